package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ayusman/mukha/internal/gallery"
)

func newRecognizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recognize",
		Short: "Label the faces in an image file",
		Long: `Detect faces in an image file and print the best matching label for each,
or Unknown when no known face is similar enough. With --no-detect the whole
image is treated as one face.`,
		Args: cobra.NoArgs,
		RunE: runRecognize,
	}

	cmd.Flags().String("image", "", "Image file to recognize (required)")
	cmd.Flags().Bool("no-detect", false, "Treat the whole image as the face")
	cmd.MarkFlagRequired("image")
	return cmd
}

func runRecognize(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
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

	a, err := newApp(cfg, g)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()

	if mustGetBool(cmd, "no-detect") {
		c := a.Matcher().Identify(img)
		fmt.Fprintf(out, "%s\t%.3f\n", c.Label, c.Score)
		return nil
	}

	recs, err := a.Recognize(img)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Fprintln(out, "No faces found")
		return nil
	}
	for _, r := range recs {
		fmt.Fprintf(out, "%s\t%.3f\t%d,%d %dx%d\n", r.Label, r.Score, r.X, r.Y, r.Width, r.Height)
	}
	return nil
}
