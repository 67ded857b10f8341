package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bewley/remlab-cli/internal/domain"
)

func newBookCmd(opts *rootOptions) *cobra.Command {
	var (
		group      string
		filterName string
		number     string
		exact      bool
		experiment string
		duration   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "book",
		Short: "Reserve time on an experiment, starting now",
		Long:  "book reserves [now, now+duration) on an experiment's slot. With --experiment the named experiment is booked directly; otherwise one is picked at random from the experiments matching --filter that are available now.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := wireApp(opts)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if err := app.booker.AddGroup(ctx, group); err != nil {
				return err
			}
			if err := app.booker.RefreshCatalog(ctx); err != nil {
				return err
			}

			if experiment == "" {
				filter := domain.Filter{Name: filterName, Number: number, Exact: exact}
				if _, err := app.booker.FilterExperiments(ctx, filter); err != nil {
					return err
				}
			}

			booked, err := app.booker.Book(ctx, duration, experiment)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "booked %s for %s\n", booked, duration)
			return err
		},
	}

	cmd.Flags().StringVar(&group, "group", "", "experiment group to book from")
	cmd.Flags().StringVar(&filterName, "filter", "", "experiment name substring (or whole name with --exact)")
	cmd.Flags().StringVar(&number, "number", "", "rig number substring, narrows --filter")
	cmd.Flags().BoolVar(&exact, "exact", false, "match the whole experiment name")
	cmd.Flags().StringVar(&experiment, "experiment", "", "book this exact experiment, skipping the filter")
	cmd.Flags().DurationVar(&duration, "duration", 3*time.Minute, "how long to book for")
	_ = cmd.MarkFlagRequired("group")

	return cmd
}
