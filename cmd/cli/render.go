package main

import (
	"bytes"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hamed0406/dlprobe/internal/render"
)

func newRenderCmd(o *options) *cobra.Command {
	var (
		catalogPath  string
		templatePath string
		out          string
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Probe the catalog and write the download page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rnd, err := render.Load(templatePath)
			if err != nil {
				return err
			}
			svc, err := o.service(cmd.Context(), catalogPath)
			if err != nil {
				return err
			}
			statuses, err := svc.Statuses(cmd.Context())
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			if err := rnd.Render(&buf, render.Build(svc.Title(), statuses, time.Now())); err != nil {
				return err
			}
			if out == "" {
				_, err = buf.WriteTo(cmd.OutOrStdout())
				return err
			}
			return os.WriteFile(out, buf.Bytes(), 0o644)
		},
	}
	cmd.Flags().StringVar(&catalogPath, "catalog", o.cfg.CatalogPath, "catalog YAML file (built-in catalog when empty)")
	cmd.Flags().StringVar(&templatePath, "template", o.cfg.TemplatePath, "page template (built-in page when empty)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to this file instead of stdout")
	return cmd
}
