package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// newDiagCmd probes each upstream API with one cheap request and reports
// connectivity, quota, and latency per provider.
func newDiagCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "diag",
		Short: "Probe each NASA API once and report connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			st, err := buildStack(logger)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			today := time.Now().UTC().Truncate(24 * time.Hour)
			probes := []struct {
				provider string
				run      func() error
			}{
				{"apod", func() error {
					_, err := st.apod.GetByDate(ctx, today.AddDate(0, 0, -1))
					return err
				}},
				{"neows", func() error {
					_, err := st.neo.GetByDateRange(ctx, today, today)
					return err
				}},
				{"marsrover", func() error {
					_, err := st.rovers.GetStatus(ctx, "curiosity")
					return err
				}},
			}

			failed := 0
			for _, p := range probes {
				start := time.Now()
				err := p.run()
				elapsed := time.Since(start).Round(time.Millisecond)
				if err != nil {
					failed++
					fmt.Printf("  %-10s ERROR after %v: %v\n", p.provider, elapsed, err)
					continue
				}
				fmt.Printf("  %-10s ok in %v\n", p.provider, elapsed)
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d probes failed", failed, len(probes))
			}
			fmt.Println("all providers reachable")
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall deadline for all probes")
	return cmd
}
