package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"beatmark/internal/bootstrap"
	"beatmark/internal/platform/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	dataDir  string
	logFile  string
	logLevel string
	reset    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "beatmark",
		Short:         "Review and correct beat markers on physiological recordings",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.dataDir, "data", ".", "directory holding beatmark.yaml, the marker database and notes")
	root.PersistentFlags().StringVar(&opts.logFile, "log-file", "", "write logs to this file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "trace|debug|info|warn|error")
	root.PersistentFlags().BoolVar(&opts.reset, "reset", false, "ignore markers saved by an earlier session")

	root.AddCommand(newTUICmd(opts))
	root.AddCommand(newEpochsCmd(opts))
	root.AddCommand(newMarkersCmd(opts))
	root.AddCommand(newRowsCmd(opts))
	root.AddCommand(newSpansCmd(opts))
	root.AddCommand(newStatsCmd(opts))
	root.AddCommand(newSummaryCmd(opts))
	root.AddCommand(newPluginCmd(opts))
	return root
}

func loadApp(opts *rootOptions) (*bootstrap.App, error) {
	cfg, err := config.Load(opts.dataDir)
	if err != nil {
		return nil, err
	}
	if opts.logFile != "" {
		cfg.Log.File = opts.logFile
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	return bootstrap.New(cfg)
}

// openDataset loads the app, opens path and deselects hide. The caller closes
// the returned app.
func openDataset(opts *rootOptions, path string, hide []string) (*bootstrap.App, error) {
	app, err := loadApp(opts)
	if err != nil {
		return nil, err
	}
	ctx := context.Background()
	if _, err := app.SessionCLI.Open(ctx, path, opts.reset); err != nil {
		_ = app.Close()
		return nil, err
	}
	if err := app.SessionCLI.Hide(ctx, hide); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

func newTUICmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui <dataset>",
		Short: "Edit markers in the terminal UI",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			app, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()
			return bootstrap.RunTUI(args[0], opts.reset, app)
		},
	}
}

func newEpochsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "epochs <dataset>",
		Short: "List the epochs built from the event log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openDataset(opts, args[0], nil)
			if err != nil {
				return err
			}
			defer app.Close()
			epochs, err := app.SessionCLI.Epochs(context.Background())
			if err != nil {
				return err
			}
			for _, e := range epochs {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%.3f\t%.3f\n", e.Name, e.Start, e.End)
			}
			return nil
		},
	}
}

func newMarkersCmd(opts *rootOptions) *cobra.Command {
	var from, to float64
	markersCmd := &cobra.Command{
		Use:   "markers <dataset>",
		Short: "List markers with their epoch membership",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var fromPtr, toPtr *float64
			if cmd.Flags().Changed("from") {
				fromPtr = &from
			}
			if cmd.Flags().Changed("to") {
				toPtr = &to
			}
			app, err := openDataset(opts, args[0], nil)
			if err != nil {
				return err
			}
			defer app.Close()
			markers, err := app.SessionCLI.Markers(context.Background(), fromPtr, toPtr)
			if err != nil {
				return err
			}
			for _, m := range markers {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d\t%.6f\t%s\t%s\n", m.ID, m.Time, m.Label, strings.Join(m.Epochs, ","))
			}
			return nil
		},
	}
	markersCmd.Flags().Float64Var(&from, "from", 0, "first time in seconds")
	markersCmd.Flags().Float64Var(&to, "to", 0, "last time in seconds")
	return markersCmd
}

func newRowsCmd(opts *rootOptions) *cobra.Command {
	var hide []string
	rowsCmd := &cobra.Command{
		Use:   "rows <dataset>",
		Short: "Print one row per marker and selected epoch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openDataset(opts, args[0], hide)
			if err != nil {
				return err
			}
			defer app.Close()
			rows, err := app.SessionCLI.Rows(context.Background())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "marker\ttime\tlabel\tepoch\tibi")
			for _, r := range rows {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d\t%.6f\t%s\t%s\t%.6f\n", r.MarkerID, r.Time, r.Label, r.Epoch, r.IBI)
			}
			return nil
		},
	}
	rowsCmd.Flags().StringSliceVar(&hide, "hide", nil, "epochs to leave out of the selection")
	return rowsCmd
}

func newSpansCmd(opts *rootOptions) *cobra.Command {
	var hide []string
	spansCmd := &cobra.Command{
		Use:   "spans <dataset>",
		Short: "Print the time span and marker count of each selected epoch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openDataset(opts, args[0], hide)
			if err != nil {
				return err
			}
			defer app.Close()
			spans, err := app.SessionCLI.Spans(context.Background())
			if err != nil {
				return err
			}
			for _, s := range spans {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%.3f\t%.3f\t%d\n", s.Name, s.Start, s.End, s.Count)
			}
			return nil
		},
	}
	spansCmd.Flags().StringSliceVar(&hide, "hide", nil, "epochs to leave out of the selection")
	return spansCmd
}

func newStatsCmd(opts *rootOptions) *cobra.Command {
	var plugin string
	var hide []string
	statsCmd := &cobra.Command{
		Use:   "stats <dataset> --plugin <name>",
		Short: "Aggregate the selected rows with a statistics plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(plugin) == "" {
				return fmt.Errorf("--plugin is required")
			}
			app, err := openDataset(opts, args[0], hide)
			if err != nil {
				return err
			}
			defer app.Close()
			out, err := app.SessionCLI.Stats(context.Background(), plugin)
			if err != nil {
				return err
			}
			for _, e := range out.Epochs {
				keys := make([]string, 0, len(e.Values))
				for k := range e.Values {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				parts := make([]string, len(keys))
				for i, k := range keys {
					parts[i] = fmt.Sprintf("%s=%.4g", k, e.Values[k])
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", e.Epoch, strings.Join(parts, " "))
			}
			return nil
		},
	}
	statsCmd.Flags().StringVar(&plugin, "plugin", "", "aggregator plugin name")
	statsCmd.Flags().StringSliceVar(&hide, "hide", nil, "epochs to leave out of the selection")
	return statsCmd
}

func newSummaryCmd(opts *rootOptions) *cobra.Command {
	var plugin string
	var hide []string
	summaryCmd := &cobra.Command{
		Use:   "summary <dataset>",
		Short: "Write the epoch summary note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openDataset(opts, args[0], hide)
			if err != nil {
				return err
			}
			defer app.Close()
			out, err := app.SessionCLI.Summary(context.Background(), plugin)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "summary written to %s (%d rows, %d epochs)\n", out.Path, out.Rows, out.Spans)
			return nil
		},
	}
	summaryCmd.Flags().StringVar(&plugin, "plugin", "", "add statistics from this aggregator plugin")
	summaryCmd.Flags().StringSliceVar(&hide, "hide", nil, "epochs to leave out of the selection")
	return summaryCmd
}

func newPluginCmd(opts *rootOptions) *cobra.Command {
	plugin := &cobra.Command{Use: "plugin", Short: "Aggregator plugin operations"}
	plugin.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List plugin manifests",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()
			plugins, err := app.AggregateCLI.List(context.Background())
			if err != nil {
				return err
			}
			if len(plugins) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no plugins configured")
				return nil
			}
			for _, p := range plugins {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s@%s enabled=%t binary=%s\n", p.Name, p.Version, p.Enabled, p.Binary)
			}
			return nil
		},
	})

	plugin.AddCommand(&cobra.Command{
		Use:   "doctor",
		Short: "Validate plugin checksums and lifecycle",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()
			results, err := app.AggregateCLI.Doctor(context.Background())
			if err != nil {
				return err
			}
			if len(results) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no plugins configured")
				return nil
			}
			for _, r := range results {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s checksum=%t binary=%t lifecycle=%t", r.Name, r.ChecksumValid, r.BinaryReachable, r.LifecycleOK)
				if len(r.Statistics) > 0 {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), " statistics=%s", strings.Join(r.Statistics, ","))
				}
				if r.Error != "" {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), " error=%q", r.Error)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		},
	})
	return plugin
}
