package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hamed0406/dlprobe/internal/domain"
	"github.com/hamed0406/dlprobe/internal/index"
	"github.com/hamed0406/dlprobe/internal/probe"
	"github.com/hamed0406/dlprobe/internal/render"
)

func newCheckCmd(o *options) *cobra.Command {
	var (
		catalogPath string
		asJSON      bool
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Probe every download in a catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := o.service(cmd.Context(), catalogPath)
			if err != nil {
				return err
			}
			statuses, err := svc.Statuses(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				err = enc.Encode(statuses)
			} else {
				err = printStatuses(out, statuses)
			}
			if err != nil {
				return err
			}
			if code := exitCode(statusOutcomes(statuses)); code != 0 {
				return exitError{code}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&catalogPath, "catalog", o.cfg.CatalogPath, "catalog YAML file (built-in catalog when empty)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func printStatuses(w io.Writer, statuses []domain.DownloadStatus) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tOUTCOME\tPAGE TEXT\tURL")
	for _, st := range statuses {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", st.Name, st.Outcome, render.RowText(st), st.URL)
	}
	return tw.Flush()
}

func statusOutcomes(statuses []domain.DownloadStatus) []probe.Outcome {
	var out []probe.Outcome
	for _, st := range statuses {
		switch {
		case st.Outcome == index.OutcomeDisabled:
		case st.Indeterminate:
			out = append(out, probe.OutcomeFailed)
		case st.Available:
			out = append(out, probe.OutcomeExists)
		default:
			out = append(out, probe.OutcomeNotFound)
		}
	}
	return out
}
