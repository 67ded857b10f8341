package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	experimentsadapter "github.com/bewley/remlab-cli/internal/adapters/render/experiments"
)

func newBookingsCmd(opts *rootOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "bookings",
		Short: "List bookings whose window contains the current time",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := wireApp(opts)
			if err != nil {
				return err
			}

			bookings, err := app.booker.Bookings(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOutput {
				encoded, err := json.MarshalIndent(bookings, "", "  ")
				if err != nil {
					return fmt.Errorf("encode bookings: %w", err)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
				return err
			}

			rendered, err := experimentsadapter.RenderBookings(bookings, experimentsadapter.RenderOptions{Now: time.Now()})
			if err != nil {
				return fmt.Errorf("render bookings: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "emit bookings as JSON")

	return cmd
}
