package detector

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"

	"gocv.io/x/gocv"
)

// DefaultCascadeFile is the frontal face model shipped with OpenCV.
const DefaultCascadeFile = "haarcascade_frontalface_default.xml"

// ErrCascadeLoad is returned when the cascade file is missing or invalid.
var ErrCascadeLoad = errors.New("failed to load cascade classifier")

// CascadeDetector implements Detector with an OpenCV Haar cascade.
type CascadeDetector struct {
	config     Config
	classifier gocv.CascadeClassifier
	mu         sync.Mutex
	closed     bool
}

// NewCascadeDetector loads the cascade named by config, or the first default
// location that exists when config.CascadePath is empty.
func NewCascadeDetector(config Config) (*CascadeDetector, error) {
	path := config.CascadePath
	if path == "" {
		path = FindCascade()
	}
	if path == "" {
		return nil, fmt.Errorf("%w: %s not found", ErrCascadeLoad, DefaultCascadeFile)
	}

	defaults := DefaultConfig()
	if config.ScaleFactor <= 1 {
		config.ScaleFactor = defaults.ScaleFactor
	}
	if config.MinNeighbors <= 0 {
		config.MinNeighbors = defaults.MinNeighbors
	}
	if config.MinSize <= 0 {
		config.MinSize = defaults.MinSize
	}
	config.CascadePath = path

	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		classifier.Close()
		return nil, fmt.Errorf("%w: %s", ErrCascadeLoad, path)
	}

	return &CascadeDetector{
		config:     config,
		classifier: classifier,
	}, nil
}

// Config returns the effective configuration.
func (d *CascadeDetector) Config() Config {
	return d.config
}

// Detect finds faces in frame. The frame is converted to gray and
// histogram-equalized before running the cascade.
func (d *CascadeDetector) Detect(frame *gocv.Mat) ([]image.Rectangle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, errors.New("detector is closed")
	}
	if frame == nil || frame.Empty() {
		return nil, nil
	}

	gray := gocv.NewMat()
	defer gray.Close()

	switch frame.Channels() {
	case 3:
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	case 4:
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRAToGray)
	default:
		frame.CopyTo(&gray)
	}
	gocv.EqualizeHist(gray, &gray)

	minSize := image.Pt(d.config.MinSize, d.config.MinSize)
	rects := d.classifier.DetectMultiScaleWithParams(gray, d.config.ScaleFactor, d.config.MinNeighbors, 0, minSize, image.Point{})

	bounds := image.Rect(0, 0, frame.Cols(), frame.Rows())
	return Clip(rects, bounds), nil
}

// Close releases the classifier.
func (d *CascadeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	return d.classifier.Close()
}

// FindCascade searches the usual locations for the default cascade file.
// Returns an empty string if none exists.
func FindCascade() string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		filepath.Join("resources", DefaultCascadeFile),
		filepath.Join("..", "resources", DefaultCascadeFile),
		filepath.Join(execDir, "resources", DefaultCascadeFile),
		filepath.Join(os.Getenv("HOME"), ".mukha", DefaultCascadeFile),
		filepath.Join("/usr/share/opencv4/haarcascades", DefaultCascadeFile),
		filepath.Join("/usr/local/share/opencv4/haarcascades", DefaultCascadeFile),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}
