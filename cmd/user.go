package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bewley/remlab-cli/internal/domain"
)

func newUserCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Show or replace the stored user identity",
	}

	cmd.AddCommand(newUserShowCmd(opts), newUserSetCmd(opts))

	return cmd
}

func newUserShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the user identity stored for the current server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := wireApp(opts)
			if err != nil {
				return err
			}

			user, err := app.identity.Current(cmd.Context())
			if errors.Is(err, domain.ErrNoUser) {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "no user identity stored")
				return err
			}
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), user)
			return err
		},
	}
}

func newUserSetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <identity>",
		Short: "Adopt a user identity created elsewhere, e.g. through the web booking page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := wireApp(opts)
			if err != nil {
				return err
			}

			if err := app.booker.SetUser(cmd.Context(), args[0]); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "user identity set for %s\n", app.cfg.Server)
			return err
		},
	}
}
