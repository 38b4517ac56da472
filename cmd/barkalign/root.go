package main

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cwbudde/barkalign/dsp/pitch"
	"github.com/cwbudde/barkalign/internal/config"
	"github.com/cwbudde/barkalign/internal/logging"
)

type app struct {
	stdout     io.Writer
	stderr     io.Writer
	configPath string

	cfg *config.Config
	log *logrus.Logger
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr}

	root := a.newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		if a.log != nil {
			a.log.WithError(err).Error("barkalign failed")
		} else {
			fmt.Fprintf(stderr, "barkalign: %v\n", err)
		}
		return 1
	}
	return 0
}

func (a *app) newRootCmd() *cobra.Command {
	def := config.Default()

	root := &cobra.Command{
		Use:               "barkalign",
		Short:             "Pitch-align a folder of bark clips to one reference clip",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML configuration file")
	pf.String("log-level", def.LogLevel, "log level (debug, info, warn, error)")
	pf.String("log-format", def.LogFormat, "log format (text or json)")
	pf.String("backend", def.Backend, "preferred shifter backend (auto, formant, wsola, sonic)")
	pf.String("fallback", def.Fallback, "fallback shifter backend")
	pf.Int("sample-rate", def.SampleRate, "working and output sample rate in Hz")

	root.AddCommand(a.newAlignCmd(), a.newCatalogCmd(), a.newProbeCmd())

	return root
}

// setup resolves the configuration and logger once flags are parsed.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath, cmd.Flags())
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat, a.stderr)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.log = log
	return nil
}

// bind probes the configured shifter backends.
func (a *app) bind() (*pitch.Binding, error) {
	preferred, err := pitch.ParseBackend(a.cfg.Backend)
	if err != nil {
		return nil, err
	}
	fallback, err := pitch.ParseBackend(a.cfg.Fallback)
	if err != nil {
		return nil, err
	}

	binding, err := pitch.Bind(preferred, fallback, float64(a.cfg.SampleRate))
	if err != nil {
		return nil, err
	}

	if degraded, probeErr := binding.Degraded(); degraded {
		a.log.WithError(probeErr).WithFields(logrus.Fields{
			"preferred": preferred,
			"bound":     binding.Primary(),
		}).Warn("preferred shifter failed its probe")
	}

	return binding, nil
}
