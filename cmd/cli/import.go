package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hamed0406/dlprobe/internal/catalog"
)

func newImportCmd() *cobra.Command {
	var (
		base  string
		title string
		out   string
	)
	cmd := &cobra.Command{
		Use:   "import <page.html|->",
		Short: "Build a catalog YAML from an existing download page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}

			c, err := catalog.ImportHTML(r, base)
			if err != nil {
				return err
			}
			if title != "" {
				c.Title = title
			}
			b, err := catalog.Marshal(c)
			if err != nil {
				return err
			}
			if out == "" {
				_, err = cmd.OutOrStdout().Write(b)
				return err
			}
			return os.WriteFile(out, b, 0o644)
		},
	}
	cmd.Flags().StringVar(&base, "base", "", "URL the page was served from, used to resolve relative links")
	cmd.Flags().StringVar(&title, "title", "", "catalog title (defaults to the page <title>)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to this file instead of stdout")
	return cmd
}
