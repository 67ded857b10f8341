package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "remlab",
		Short:         "Remote laboratory CLI (remlab): book experiments and stream their data",
		Long:          "remlab talks to a practable-style booking server: it joins experiment groups, lists and filters what can be booked, reserves time on a rig, and opens the live data stream of a booked experiment from the terminal.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVar(&opts.server, "server", "", "booking server URL (overrides config and REMLAB_SERVER)")
	rootCmd.PersistentFlags().BoolVar(&opts.cwdConfig, "cwd-config", false, "keep per-server state in the working directory")

	rootCmd.AddCommand(
		newVersionCmd(),
		newUserCmd(opts),
		newGroupCmd(opts),
		newExperimentsCmd(opts),
		newBookCmd(opts),
		newBookingsCmd(opts),
		newCancelCmd(opts),
		newRunCmd(opts),
	)

	return rootCmd
}
