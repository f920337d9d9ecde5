package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/Priya8975/activity-logger/internal/config"
	"github.com/spf13/cobra"
)

var (
	jsonOutput bool
	verbose    bool

	cfg    *config.AgentConfig
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "activity-agent <command>",
	Short:         "Record editor activity and deliver it to the collector",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

		var err error
		cfg, err = config.LoadAgent()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(runCmd, flushCmd, pendingCmd, deadLettersCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
