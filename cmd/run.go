package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bewley/remlab-cli/internal/application"
	"github.com/bewley/remlab-cli/internal/ports"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	var (
		group       string
		experiment  string
		number      string
		exact       bool
		user        string
		duration    time.Duration
		streamName  string
		commands    []string
		ignore      time.Duration
		collect     int
		timeout     time.Duration
		outPath     string
		keepBooking bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Open a live session on an experiment: send commands, collect data",
		Long:  "run attaches to one experiment end to end. It reuses a current booking when one already covers the experiment, books a slot otherwise, connects to the chosen stream, sends any --command frames, optionally discards an --ignore warm-up window, and collects --collect data records as NDJSON.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := wireApp(opts)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			session := application.NewExperimentSession(app.booker, app.dialer, ports.SystemClock{}, app.logger, application.SessionConfig{
				Group:             group,
				Experiment:        experiment,
				Number:            number,
				Exact:             exact,
				User:              user,
				Duration:          duration,
				Stream:            streamName,
				KeepBookingOnExit: keepBooking,
			})

			if err := session.Open(ctx); err != nil {
				return err
			}

			runErr := runSession(cmd, session, sessionRun{
				commands: commands,
				ignore:   ignore,
				collect:  collect,
				timeout:  timeout,
				outPath:  outPath,
			})

			return errors.Join(runErr, session.Close(ctx))
		},
	}

	cmd.Flags().StringVar(&group, "group", "", "experiment group")
	cmd.Flags().StringVar(&experiment, "experiment", "", "experiment name")
	cmd.Flags().StringVar(&number, "number", "", "rig number substring, used when a fresh booking is needed")
	cmd.Flags().BoolVar(&exact, "exact", false, "match the whole experiment name when booking")
	cmd.Flags().StringVar(&user, "user", "", "adopt this user identity before resolving, to reuse its bookings")
	cmd.Flags().DurationVar(&duration, "duration", 3*time.Minute, "booking length when a fresh booking is needed")
	cmd.Flags().StringVar(&streamName, "stream", "data", "which activity stream to attach to")
	cmd.Flags().StringArrayVar(&commands, "command", nil, "JSON frame to send after connecting, repeatable")
	cmd.Flags().DurationVar(&ignore, "ignore", 0, "discard incoming messages for this long before collecting")
	cmd.Flags().IntVar(&collect, "collect", 0, "number of data records to collect")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "per-message receive timeout while collecting")
	cmd.Flags().StringVar(&outPath, "out", "", "write collected records to this NDJSON file instead of stdout")
	cmd.Flags().BoolVar(&keepBooking, "keep-booking", false, "leave a booking made by this run in place on exit")
	_ = cmd.MarkFlagRequired("group")
	_ = cmd.MarkFlagRequired("experiment")

	return cmd
}

type sessionRun struct {
	commands []string
	ignore   time.Duration
	collect  int
	timeout  time.Duration
	outPath  string
}

func runSession(cmd *cobra.Command, session *application.ExperimentSession, run sessionRun) error {
	ctx := cmd.Context()

	for _, command := range run.commands {
		if err := session.Send(ctx, command); err != nil {
			return fmt.Errorf("send command %q: %w", command, err)
		}
	}

	if run.ignore > 0 {
		ignored, err := session.Ignore(ctx, run.ignore)
		if err != nil {
			return fmt.Errorf("ignore warm-up window: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "ignored %d messages over %s\n", ignored, run.ignore)
	}

	if run.collect <= 0 {
		return nil
	}

	var records []map[string]any
	err := runCollectSpinner(ctx, cmd.ErrOrStderr(), run.collect, func(ctx context.Context, progress func(collected, total int)) error {
		var collectErr error
		records, collectErr = session.Collect(ctx, run.collect, run.timeout, progress)
		return collectErr
	})
	if err != nil {
		return fmt.Errorf("collect %d records: %w", run.collect, err)
	}

	return writeRecords(cmd.OutOrStdout(), run.outPath, records)
}

// writeRecords emits one JSON object per line, to a file when a path is
// given and to the command's stdout otherwise.
func writeRecords(stdout io.Writer, outPath string, records []map[string]any) error {
	out := stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	encoder := json.NewEncoder(out)
	for _, record := range records {
		if err := encoder.Encode(record); err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
	}

	return nil
}
