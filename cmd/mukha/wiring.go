package main

import (
	"os"
	"path/filepath"

	"github.com/ayusman/mukha/internal/app"
	"github.com/ayusman/mukha/internal/capture"
	"github.com/ayusman/mukha/internal/config"
	"github.com/ayusman/mukha/internal/detector"
	"github.com/ayusman/mukha/internal/gallery"
)

// newApp builds the application around g from cfg. The camera is not opened.
func newApp(cfg *config.Config, g *gallery.Gallery) (*app.App, error) {
	return app.New(app.Config{
		Gallery: g,
		CameraConfig: capture.Config{
			DeviceID: cfg.Camera.Device,
			Width:    cfg.Camera.Width,
			Height:   cfg.Camera.Height,
			FPS:      cfg.Camera.FPS,
		},
		DetectorConfig: detector.Config{
			CascadePath:  cfg.Detector.Cascade,
			ScaleFactor:  cfg.Detector.ScaleFactor,
			MinNeighbors: cfg.Detector.MinNeighbors,
			MinSize:      cfg.Detector.MinSize,
		},
		Threshold:    &cfg.Matcher.Threshold,
		Verbose:      cfg.Matcher.Verbose,
		MotionThresh: cfg.Motion.Threshold,
	})
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.mukha/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	// Check relative paths from current working directory
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	// Check home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".mukha", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
