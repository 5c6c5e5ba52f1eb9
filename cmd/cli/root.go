package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hamed0406/dlprobe/internal/catalog"
	"github.com/hamed0406/dlprobe/internal/config"
	"github.com/hamed0406/dlprobe/internal/index"
	"github.com/hamed0406/dlprobe/internal/probe"
	"github.com/hamed0406/dlprobe/internal/repo/memory"
)

const (
	exitMissing = 1
	exitFailed  = 2
)

type exitError struct{ code int }

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

// options are the settings shared by every subcommand. Defaults come from
// the environment (and .env), flags override them.
type options struct {
	cfg     config.Config
	verbose bool
}

func newRootCmd() *cobra.Command {
	o := &options{cfg: config.FromEnv()}

	root := &cobra.Command{
		Use:   "dlprobe",
		Short: "Check that download links point at files that exist",
		Long: `dlprobe sends one plain HTTP HEAD request per link and reports whether
the file exists, is missing (404) or could not be checked.`,
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&o.cfg.ProbeMode, "mode", o.cfg.ProbeMode, "probe mode: socket (raw HEAD to port 80) or client (net/http)")
	pf.IntVar(&o.cfg.ProbePort, "port", o.cfg.ProbePort, "TCP port for socket probes")
	pf.StringVar(&o.cfg.ProbeRequestTarget, "target", o.cfg.ProbeRequestTarget, "request target for socket probes: url or path")
	pf.DurationVar(&o.cfg.ProbeConnectTimeout, "connect-timeout", o.cfg.ProbeConnectTimeout, "connect timeout")
	pf.DurationVar(&o.cfg.ProbeReadTimeout, "read-timeout", o.cfg.ProbeReadTimeout, "read timeout, 0 disables it")
	pf.IntVarP(&o.cfg.MaxConcurrentProbes, "concurrency", "j", o.cfg.MaxConcurrentProbes, "probes run at once")
	pf.BoolVarP(&o.verbose, "verbose", "v", false, "log every probe to stderr")

	root.AddCommand(
		newProbeCmd(o),
		newCheckCmd(o),
		newImportCmd(),
		newRenderCmd(o),
	)
	return root
}

func (o *options) logger() *zap.Logger {
	if !o.verbose {
		return zap.NewNop()
	}
	zc := zap.NewDevelopmentConfig()
	zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	l, err := zc.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func (o *options) prober() (probe.Prober, error) {
	return o.cfg.Prober()
}

// service loads the catalog at path (built-in when empty) into a fresh
// in-memory index.
func (o *options) service(ctx context.Context, path string) (*index.Service, error) {
	p, err := o.prober()
	if err != nil {
		return nil, err
	}
	c, err := catalog.Load(path)
	if err != nil {
		return nil, err
	}
	svc := index.New(o.logger(), memory.New(), p, o.cfg.MaxConcurrentProbes)
	if err := svc.Load(ctx, c); err != nil {
		return nil, err
	}
	return svc, nil
}

// exitCode folds outcomes into the CLI exit status; a failure outranks a
// missing file.
func exitCode(outcomes []probe.Outcome) int {
	code := 0
	for _, o := range outcomes {
		switch o {
		case probe.OutcomeFailed:
			code = exitFailed
		case probe.OutcomeNotFound:
			if code == 0 {
				code = exitMissing
			}
		}
	}
	return code
}
