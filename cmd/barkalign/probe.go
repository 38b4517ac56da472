package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) newProbeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Show which pitch shifter backend binds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			binding, err := a.bind()
			if err != nil {
				return err
			}

			status := "ok"
			if degraded, probeErr := binding.Degraded(); degraded {
				status = "degraded: " + probeErr.Error()
			}
			fmt.Fprintf(a.stdout, "backend: %s\nfallback: %s\nstatus: %s\n",
				binding.Primary(), binding.Fallback(), status)
			return nil
		},
	}
}
