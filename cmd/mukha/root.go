package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ayusman/mukha/internal/config"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mukha",
		Short: "Recognize known faces from a camera or image files",
		Long: `Mukha detects faces in camera frames or images and labels them by
comparing intensity histograms against a directory of known faces.
Enroll faces from the camera or from image files, then run the live view.`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", config.DefaultPath(), "Path to the YAML config file")
	flags.String("faces", "", "Directory of known faces (overrides config)")
	flags.String("cascade", "", "Haar cascade XML file (overrides config)")
	flags.Float64("threshold", 0, "Minimum histogram correlation to accept a match (overrides config)")
	flags.Bool("verbose", false, "Log the best candidate of every recognition")

	root.AddCommand(
		newRunCmd(),
		newEnrollCmd(),
		newRecognizeCmd(),
		newListCmd(),
		newInitCmd(),
		newVersionCmd(),
	)
	return root
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies the flags the user set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(mustGetString(cmd, "config"))
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("faces") {
		cfg.FacesDir = mustGetString(cmd, "faces")
	}
	if flags.Changed("cascade") {
		cfg.Detector.Cascade = mustGetString(cmd, "cascade")
	}
	if flags.Changed("threshold") {
		cfg.Matcher.Threshold = mustGetFloat64(cmd, "threshold")
	}
	if flags.Changed("verbose") {
		cfg.Matcher.Verbose = mustGetBool(cmd, "verbose")
	}
	if flags.Lookup("camera") != nil && flags.Changed("camera") {
		cfg.Camera.Device = mustGetInt(cmd, "camera")
	}
	if flags.Lookup("addr") != nil && flags.Changed("addr") {
		cfg.Server.Addr = mustGetString(cmd, "addr")
	}
	if flags.Lookup("motion") != nil && flags.Changed("motion") {
		cfg.Motion.Threshold = mustGetFloat64(cmd, "motion")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
