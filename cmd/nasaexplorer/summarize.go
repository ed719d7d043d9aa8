package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/dateutil"
)

func newSummarizeCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "summarize [date]",
		Short: "Print the cross-source summary for a date (default today) as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			st, err := buildStack(logger)
			if err != nil {
				return err
			}

			date := time.Now().UTC().Truncate(24 * time.Hour)
			if len(args) == 1 {
				date, err = dateutil.Parse("summarize", args[0])
				if err != nil {
					return err
				}
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			dc, err := st.engine.SummarizeDate(ctx, date)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(dc)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 60*time.Second, "overall deadline for the summary")
	return cmd
}
