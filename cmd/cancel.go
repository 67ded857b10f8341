package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCancelCmd(opts *rootOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "cancel [name]",
		Short: "Cancel one booking by name, or every current booking with --all",
		Args: func(_ *cobra.Command, args []string) error {
			if all {
				if len(args) != 0 {
					return fmt.Errorf("cancel takes no booking name with --all")
				}
				return nil
			}
			if len(args) != 1 {
				return fmt.Errorf("cancel requires a booking name (or --all)")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := wireApp(opts)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if all {
				if err := app.booker.CancelAllBookings(ctx); err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "all bookings cancelled")
				return err
			}

			if err := app.booker.CancelBooking(ctx, args[0]); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "cancelled %s\n", args[0])
			return err
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "cancel every current booking")

	return cmd
}
