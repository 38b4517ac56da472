package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/cwbudde/barkalign/catalog"
)

func (a *app) newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog [dir]",
		Short: "List the playable clips of a directory (default: the output directory)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  a.runCatalog,
	}
	cmd.Flags().Bool("random", false, "also print one random pick")
	return cmd
}

func (a *app) runCatalog(cmd *cobra.Command, args []string) error {
	dir := a.cfg.OutputDir
	if len(args) == 1 {
		dir = args[0]
	}

	store := catalog.New(dir, a.log)
	sounds, err := store.Refresh(cmd.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTYPE\tDURATION\tRATE\tSIZE\tSTATUS")
	for _, s := range sounds {
		status := string(s.Status)
		if !s.Valid() {
			status += ": " + s.Err
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			s.Name, s.Type, s.Duration.Round(time.Millisecond), s.SampleRate,
			humanize.Bytes(uint64(s.SizeBytes)), status)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	st := store.Stats()
	fmt.Fprintf(a.stdout, "\n%d files (%d valid: %d wav, %d mp3), %s, %s\n",
		st.Files, st.Valid, st.WAV, st.MP3,
		st.TotalDuration.Round(time.Millisecond), humanize.Bytes(uint64(st.TotalBytes)))

	if random, _ := cmd.Flags().GetBool("random"); random {
		pick, err := store.Random()
		if err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "random: %s\n", pick.Name)
	}

	return nil
}
