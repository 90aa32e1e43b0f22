package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ayusman/mukha/internal/gallery"
)

func newEnrollCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enroll",
		Short: "Add a known face from an image file",
		Long: `Detect the largest face in an image file and save it to the known faces
directory under the given label. With --no-detect the whole image is saved.`,
		Args: cobra.NoArgs,
		RunE: runEnroll,
	}

	cmd.Flags().String("label", "", "Name to store the face under (required)")
	cmd.Flags().String("image", "", "Image file to enroll from (required)")
	cmd.Flags().Bool("no-detect", false, "Use the whole image as the face")
	cmd.MarkFlagRequired("label")
	cmd.MarkFlagRequired("image")
	return cmd
}

func runEnroll(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	label := mustGetString(cmd, "label")
	if err := gallery.ValidateLabel(label); err != nil {
		return err
	}

	img, err := loadImage(mustGetString(cmd, "image"))
	if err != nil {
		return err
	}
	defer img.Close()

	g, err := gallery.Open(cfg.FacesDir)
	if err != nil {
		return err
	}
	defer g.Close()

	var path string
	if mustGetBool(cmd, "no-detect") {
		path, err = g.Enroll(label, img)
	} else {
		a, aerr := newApp(cfg, g)
		if aerr != nil {
			return aerr
		}
		defer a.Close()
		path, err = a.EnrollImage(label, img)
	}
	if err != nil {
		return fmt.Errorf("failed to enroll %q: %w", label, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s as %s\n", label, path)
	return nil
}
