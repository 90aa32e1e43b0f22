package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ayusman/mukha/internal/gallery"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known faces and any files that could not be loaded",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	g, err := gallery.Open(cfg.FacesDir)
	if err != nil {
		return err
	}
	defer g.Close()

	out := cmd.OutOrStdout()
	labels := g.Labels()
	fmt.Fprintf(out, "%d known faces in %s\n", len(labels), g.Dir())
	for _, label := range labels {
		fmt.Fprintf(out, "  %s\n", label)
	}

	if skipped := g.Skipped(); len(skipped) > 0 {
		fmt.Fprintf(out, "%d skipped:\n", len(skipped))
		for _, d := range skipped {
			fmt.Fprintf(out, "  %s: %s\n", d.Path, d.Reason)
		}
	}
	return nil
}
