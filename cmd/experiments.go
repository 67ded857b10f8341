package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	experimentsadapter "github.com/bewley/remlab-cli/internal/adapters/render/experiments"
	"github.com/bewley/remlab-cli/internal/domain"
)

func newExperimentsCmd(opts *rootOptions) *cobra.Command {
	var (
		group      string
		filterName string
		number     string
		exact      bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "experiments",
		Short: "List bookable experiments and their availability",
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

			result, err := app.booker.FilterExperiments(ctx, domain.Filter{
				Name:   filterName,
				Number: number,
				Exact:  exact,
			})
			if err != nil {
				return err
			}

			if jsonOutput {
				encoded, err := json.MarshalIndent(result, "", "  ")
				if err != nil {
					return fmt.Errorf("encode filter result: %w", err)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
				return err
			}

			rendered, err := experimentsadapter.Render(result, experimentsadapter.RenderOptions{Now: time.Now()})
			if err != nil {
				return fmt.Errorf("render experiments: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().StringVar(&group, "group", "", "experiment group to list")
	cmd.Flags().StringVar(&filterName, "filter", "", "experiment name substring (or whole name with --exact)")
	cmd.Flags().StringVar(&number, "number", "", "rig number substring, narrows --filter")
	cmd.Flags().BoolVar(&exact, "exact", false, "match the whole experiment name")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "emit the raw filter result as JSON")
	_ = cmd.MarkFlagRequired("group")

	return cmd
}
