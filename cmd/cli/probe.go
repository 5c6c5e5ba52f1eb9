package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hamed0406/dlprobe/internal/probe"
)

func newProbeCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <url>...",
		Short: "Probe one or more URLs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := o.prober()
			if err != nil {
				return err
			}
			results := probe.CheckAll(cmd.Context(), p, args, o.cfg.MaxConcurrentProbes)
			log := o.logger()
			for _, r := range results {
				log.Debug("probe_done", probeFields(r)...)
			}
			if err := printResults(cmd.OutOrStdout(), results); err != nil {
				return err
			}
			outcomes := make([]probe.Outcome, len(results))
			for i, r := range results {
				outcomes[i] = r.Outcome
			}
			if code := exitCode(outcomes); code != 0 {
				return exitError{code}
			}
			return nil
		},
	}
}

func printResults(w io.Writer, results []probe.Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.URL, r.Outcome, r.Detail())
	}
	return tw.Flush()
}

func probeFields(r probe.Result) []zap.Field {
	fields := []zap.Field{
		zap.String("url", r.URL),
		zap.String("outcome", r.Outcome.String()),
		zap.String("status_line", r.StatusLine),
		zap.Float64("latency_ms", r.LatencyMS),
	}
	if r.Err != nil {
		fields = append(fields, zap.Error(r.Err))
	}
	return fields
}
