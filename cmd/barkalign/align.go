package main

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cwbudde/barkalign/align"
	"github.com/cwbudde/barkalign/internal/config"
)

func (a *app) newAlignCmd() *cobra.Command {
	def := config.Default()

	cmd := &cobra.Command{
		Use:   "align",
		Short: "Align every clip of the input directory to the reference clip",
		Args:  cobra.NoArgs,
		RunE:  a.runAlign,
	}

	f := cmd.Flags()
	f.String("input-dir", def.InputDir, "directory of source clips")
	f.String("output-dir", def.OutputDir, "directory for aligned WAV files")
	f.String("reference-file", def.ReferenceFile, "file name of the reference clip inside the input directory")
	f.StringSlice("extensions", def.Extensions, "accepted file extensions")
	f.Float64("trim-threshold-db", def.TrimThresholdDB, "silence threshold below the loudest frame in dB")
	f.Float64("target-peak", def.TargetPeak, "output peak level in (0, 1]")
	f.Float64("voicing-threshold", def.VoicingThreshold, "pitch detector voicing threshold")
	f.Int("workers", def.Workers, "files processed concurrently")

	return cmd
}

func (a *app) runAlign(cmd *cobra.Command, _ []string) error {
	binding, err := a.bind()
	if err != nil {
		return err
	}

	p, err := align.NewPipeline(*a.cfg, binding, a.log)
	if err != nil {
		return err
	}

	results, err := p.Run(cmd.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FILE\tROLE\tF0\tSHIFT\tBACKEND\tOUTPUT")
	for _, r := range results {
		f0, shift, backend := "-", "-", "-"
		if r.F0 > 0 {
			f0 = fmt.Sprintf("%.1f", r.F0)
		}
		if r.Role == align.RoleShifted {
			shift = fmt.Sprintf("%+.2f", r.Semitones)
			backend = string(r.Backend)
		}
		out := filepath.Base(r.OutputPath)
		if r.Superseded {
			out += " (superseded)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", r.Name, r.Role, f0, shift, backend, out)
	}
	return w.Flush()
}
