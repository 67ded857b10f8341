package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGroupCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Manage experiment group membership",
	}

	cmd.AddCommand(newGroupAddCmd(opts))

	return cmd
}

func newGroupAddCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <name>",
		Short: "Join a group so its experiments become bookable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := wireApp(opts)
			if err != nil {
				return err
			}

			if err := app.booker.AddGroup(cmd.Context(), args[0]); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "joined group %s\n", args[0])
			return err
		},
	}
}
