package main

import (
	"encoding/json"
	"fmt"

	"github.com/Priya8975/activity-logger/internal/queue"
	"github.com/spf13/cobra"
)

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Show events waiting for delivery",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := queue.Open(cfg.StorageDir, logger)
		if err != nil {
			return fmt.Errorf("opening event store: %w", err)
		}
		events := store.Load()

		if jsonOutput {
			data, err := json.MarshalIndent(events, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling JSON: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		fmt.Printf("%d pending events in %s\n", len(events), store.Path())
		for _, e := range events {
			fmt.Printf("  %s  %-22s %s\n", e.Timestamp, e.Action, e.ID)
		}
		return nil
	},
}

var deadLettersCmd = &cobra.Command{
	Use:   "dead-letters",
	Short: "List batches given up on after repeated delivery failures",
	RunE: func(cmd *cobra.Command, args []string) error {
		letters, err := queue.NewDeadLetterLog(cfg.StorageDir).List()
		if err != nil {
			return fmt.Errorf("reading dead letters: %w", err)
		}

		if jsonOutput {
			data, err := json.MarshalIndent(letters, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling JSON: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		if len(letters) == 0 {
			fmt.Println("No dead letters")
			return nil
		}
		for _, dl := range letters {
			fmt.Printf("%s  %-22s attempts=%d  %s\n", dl.Event.ID, dl.Event.Action, dl.Attempts, dl.LastError)
		}
		return nil
	},
}
