package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Priya8975/activity-logger/internal/queue"
	"github.com/Priya8975/activity-logger/internal/worker"
	"github.com/spf13/cobra"
)

var flushTimeout time.Duration

var flushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Deliver the pending queue once and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := queue.Open(cfg.StorageDir, logger)
		if err != nil {
			return fmt.Errorf("opening event store: %w", err)
		}

		deliverer, err := newDeliverer(store)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), flushTimeout)
		defer cancel()

		result := deliverer.Flush(ctx)

		if jsonOutput {
			data, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling JSON: %w", err)
			}
			fmt.Println(string(data))
		} else {
			printResult(result)
		}

		if result.Status == worker.StatusFailed {
			return fmt.Errorf("delivery failed: %s", result.Error)
		}
		return nil
	},
}

func init() {
	flushCmd.Flags().DurationVar(&flushTimeout, "timeout", 30*time.Second, "delivery timeout")
}

func printResult(r worker.Result) {
	switch r.Status {
	case worker.StatusEmpty:
		fmt.Println("Nothing to deliver")
	case worker.StatusDelivered:
		fmt.Printf("Delivered %d events (%dms)\n", r.EventCount, r.ResponseTimeMs)
	case worker.StatusDeadLettered:
		fmt.Printf("Moved %d events to the dead-letter log: %s\n", r.EventCount, r.Error)
	default:
		if r.StatusCode != nil {
			fmt.Printf("Delivery of %d events failed with HTTP %d\n", r.EventCount, *r.StatusCode)
		} else {
			fmt.Printf("Delivery of %d events failed: %s\n", r.EventCount, r.Error)
		}
	}
}
