// Package detector provides face detection on camera frames.
package detector

import (
	"image"
	"sort"

	"gocv.io/x/gocv"
)

// Detector defines the interface for face detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns one rectangle per candidate face.
	// Returns an empty slice if no faces are detected.
	Detect(frame *gocv.Mat) ([]image.Rectangle, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for face detection.
type Config struct {
	// CascadePath is the Haar cascade XML file. Empty means search the default locations.
	CascadePath string

	// ScaleFactor is how much the image is shrunk at each scale (default: 1.1).
	ScaleFactor float64

	// MinNeighbors is how many overlapping detections a face needs (default: 3).
	MinNeighbors int

	// MinSize is the smallest face side in pixels (default: 30).
	MinSize int
}

// DefaultConfig returns a Config with the classifier's usual defaults.
func DefaultConfig() Config {
	return Config{
		ScaleFactor:  1.1,
		MinNeighbors: 3,
		MinSize:      30,
	}
}

// LargestFirst sorts rects by area, largest first. Equal areas keep top-left order.
func LargestFirst(rects []image.Rectangle) []image.Rectangle {
	out := make([]image.Rectangle, len(rects))
	copy(out, rects)

	sort.SliceStable(out, func(i, j int) bool {
		ai := out[i].Dx() * out[i].Dy()
		aj := out[j].Dx() * out[j].Dy()
		if ai != aj {
			return ai > aj
		}
		if out[i].Min.Y != out[j].Min.Y {
			return out[i].Min.Y < out[j].Min.Y
		}
		return out[i].Min.X < out[j].Min.X
	})

	return out
}

// Clip intersects each rectangle with bounds and drops the ones left empty.
func Clip(rects []image.Rectangle, bounds image.Rectangle) []image.Rectangle {
	out := make([]image.Rectangle, 0, len(rects))
	for _, r := range rects {
		c := r.Intersect(bounds)
		if c.Empty() {
			continue
		}
		out = append(out, c)
	}
	return out
}
