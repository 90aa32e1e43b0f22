// Package app provides the main application logic for the Mukha face recognition system.
package app

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/mukha/internal/capture"
	"github.com/ayusman/mukha/internal/detector"
	"github.com/ayusman/mukha/internal/gallery"
	"github.com/ayusman/mukha/internal/matcher"
)

// Pipeline timing constants.
const (
	// IdleFPS is the frame rate when no motion is detected.
	IdleFPS = 5
	// ActiveFPS is the frame rate while the scene is changing.
	ActiveFPS = 15
	// IdleTimeout is how long the scene must stay still before dropping back to IdleFPS.
	IdleTimeout = 2 * time.Second
	// LabelOffset is the distance in pixels between a face box and its label.
	LabelOffset = 10
)

var (
	// ErrNoGallery is returned by New when no gallery is configured.
	ErrNoGallery = errors.New("gallery is required")
	// ErrNoFace is returned when enrollment finds no face in the frame.
	ErrNoFace = errors.New("no face detected")
	// ErrNoFrame is returned when the camera produced nothing to work with.
	ErrNoFrame = errors.New("no frame available")
)

var boxColor = color.RGBA{0, 255, 0, 0}

// Config holds configuration options for the application.
type Config struct {
	Gallery *gallery.Gallery

	// Camera overrides the device built from CameraConfig.
	Camera       capture.Camera
	CameraConfig capture.Config

	// Detector overrides the cascade built from DetectorConfig.
	Detector       detector.Detector
	DetectorConfig detector.Config

	// Threshold is the minimum correlation to accept a match. Nil uses
	// matcher.DefaultThreshold.
	Threshold *float64
	Verbose   bool

	// MotionThresh is the changed-pixel percentage that triggers re-recognition.
	// Zero recognizes every frame.
	MotionThresh float64
}

// Recognition is one face found in a frame.
type Recognition struct {
	Label  string  `json:"label"`
	Score  float64 `json:"score"`
	X      int     `json:"x"`
	Y      int     `json:"y"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
}

// Rect returns the face box in frame coordinates.
func (r Recognition) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Known reports whether the face matched a gallery entry.
func (r Recognition) Known() bool {
	return r.Label != matcher.Unknown
}

// App is the main application that orchestrates capture, detection and recognition.
type App struct {
	config    Config
	gallery   *gallery.Gallery
	matcher   *matcher.Matcher
	camera    capture.Camera
	motion    *capture.MotionDetector
	detector  detector.Detector
	enabled   bool
	stopCh    chan struct{}
	done      chan struct{}
	callbacks []func([]Recognition)
	toggles   []func(bool)
	mu        sync.RWMutex

	latest     []byte
	latestRecs []Recognition
	latestMu   sync.RWMutex
}

// New creates a new App instance with the given configuration.
func New(config Config) (*App, error) {
	if config.Gallery == nil {
		return nil, ErrNoGallery
	}

	opts := []matcher.Option{matcher.WithVerbose(config.Verbose)}
	if config.Threshold != nil {
		opts = append(opts, matcher.WithThreshold(*config.Threshold))
	}

	a := &App{
		config:  config,
		gallery: config.Gallery,
		matcher: matcher.New(config.Gallery, opts...),
		camera:  config.Camera,
		enabled: true,
	}

	if a.camera == nil {
		a.camera = capture.NewCamera(config.CameraConfig)
	}
	if config.MotionThresh > 0 {
		a.motion = capture.NewMotionDetector(config.MotionThresh)
	}

	if config.Detector != nil {
		a.detector = config.Detector
	} else if cd, err := detector.NewCascadeDetector(config.DetectorConfig); err == nil {
		a.detector = cd
		log.Printf("app: using cascade %s", cd.Config().CascadePath)
	} else {
		log.Printf("app: face detection not available (%v), using mock detector", err)
		a.detector = detector.NewMockDetector()
	}

	return a, nil
}

// SetEnabled enables or disables recognition. A disabled app keeps the camera open.
// Listeners registered with OnEnabledChange are told when the state flips.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	changed := a.enabled != enabled
	a.enabled = enabled
	toggles := append([]func(bool){}, a.toggles...)
	a.mu.Unlock()

	if !changed {
		return
	}
	log.Printf("app: recognition enabled=%t", enabled)
	for _, fn := range toggles {
		fn(enabled)
	}
}

// OnEnabledChange registers fn to be called after SetEnabled changes the state.
func (a *App) OnEnabledChange(fn func(enabled bool)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.toggles = append(a.toggles, fn)
}

// IsEnabled returns whether recognition is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// Detector returns the face detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	return a.camera
}

// Gallery returns the gallery of known faces.
func (a *App) Gallery() *gallery.Gallery {
	return a.gallery
}

// Matcher returns the matcher used for recognition.
func (a *App) Matcher() *matcher.Matcher {
	return a.matcher
}

// OnRecognition registers fn to receive the faces of every freshly analyzed frame.
// Callbacks run on the pipeline goroutine and must not block.
func (a *App) OnRecognition(fn func([]Recognition)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.callbacks = append(a.callbacks, fn)
}

// ReloadGallery rescans the gallery directory.
func (a *App) ReloadGallery() error {
	if err := a.gallery.Reload(); err != nil {
		return err
	}
	log.Printf("app: gallery reloaded, %d known faces", a.gallery.Len())
	return nil
}

// detect returns the faces in frame, largest first.
func (a *App) detect(frame *gocv.Mat) ([]image.Rectangle, error) {
	d := a.Detector()
	if d == nil {
		return nil, nil
	}

	faces, err := d.Detect(frame)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}
	bounds := image.Rect(0, 0, frame.Cols(), frame.Rows())
	return detector.LargestFirst(detector.Clip(faces, bounds)), nil
}

// Recognize finds every face in frame and labels it. frame is not modified.
func (a *App) Recognize(frame gocv.Mat) ([]Recognition, error) {
	if frame.Empty() {
		return nil, ErrNoFrame
	}

	faces, err := a.detect(&frame)
	if err != nil {
		return nil, err
	}

	recs := make([]Recognition, 0, len(faces))
	for _, rect := range faces {
		region := frame.Region(rect)
		candidate := a.matcher.Identify(region)
		region.Close()

		recs = append(recs, Recognition{
			Label:  candidate.Label,
			Score:  candidate.Score,
			X:      rect.Min.X,
			Y:      rect.Min.Y,
			Width:  rect.Dx(),
			Height: rect.Dy(),
		})
	}
	return recs, nil
}

// Annotate draws a green box around each face with its label above it.
func Annotate(frame *gocv.Mat, recs []Recognition) {
	for _, r := range recs {
		rect := r.Rect()
		gocv.Rectangle(frame, rect, boxColor, 2)
		gocv.PutText(frame, r.Label, image.Pt(rect.Min.X, rect.Min.Y-LabelOffset),
			gocv.FontHersheySimplex, 0.9, boxColor, 2)
	}
}

// ProcessFrame recognizes the faces in frame, draws them onto it and
// publishes the result to LatestFrame and the registered callbacks.
func (a *App) ProcessFrame(frame *gocv.Mat) ([]Recognition, error) {
	recs, err := a.Recognize(*frame)
	if err != nil {
		return nil, err
	}

	Annotate(frame, recs)
	a.publish(frame, recs, true)
	return recs, nil
}

// publish stores the annotated frame and, when fresh, notifies callbacks.
func (a *App) publish(frame *gocv.Mat, recs []Recognition, fresh bool) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		log.Printf("app: failed to encode frame: %v", err)
	} else {
		data := append([]byte(nil), buf.GetBytes()...)
		buf.Close()

		a.latestMu.Lock()
		a.latest = data
		a.latestRecs = recs
		a.latestMu.Unlock()
	}

	if !fresh {
		return
	}

	a.mu.RLock()
	callbacks := append([]func([]Recognition){}, a.callbacks...)
	a.mu.RUnlock()

	for _, fn := range callbacks {
		fn(recs)
	}
}

// LatestFrame returns the most recent annotated frame as JPEG.
func (a *App) LatestFrame() ([]byte, bool) {
	a.latestMu.RLock()
	defer a.latestMu.RUnlock()
	return a.latest, a.latest != nil
}

// LatestRecognitions returns the faces found in the most recent frame.
func (a *App) LatestRecognitions() []Recognition {
	a.latestMu.RLock()
	defer a.latestMu.RUnlock()
	return append([]Recognition(nil), a.latestRecs...)
}

// EnrollImage stores the largest face found in img under label and returns
// the path of the written file.
func (a *App) EnrollImage(label string, img gocv.Mat) (string, error) {
	if err := gallery.ValidateLabel(label); err != nil {
		return "", err
	}
	if img.Empty() {
		return "", ErrNoFrame
	}

	faces, err := a.detect(&img)
	if err != nil {
		return "", err
	}
	if len(faces) == 0 {
		return "", ErrNoFace
	}

	region := img.Region(faces[0])
	defer region.Close()

	path, err := a.gallery.Enroll(label, region)
	if err != nil {
		return "", err
	}
	log.Printf("app: enrolled %q from %dx%d face", label, faces[0].Dx(), faces[0].Dy())
	return path, nil
}

// EnrollFromCamera captures a frame and enrolls its largest face under label.
// The camera is opened for the capture when the pipeline is not running.
func (a *App) EnrollFromCamera(label string) (string, error) {
	if err := gallery.ValidateLabel(label); err != nil {
		return "", err
	}

	if !a.camera.IsOpen() {
		if err := a.camera.Open(); err != nil {
			return "", err
		}
		defer a.camera.Close()
	}

	frame, err := a.camera.ReadFrame()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoFrame, err)
	}
	defer frame.Close()

	return a.EnrollImage(label, *frame)
}

// Start opens the camera and begins the recognition pipeline.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Don't start if already running
	if a.stopCh != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return err
	}

	if a.motion != nil {
		a.camera.SetFPS(IdleFPS)
	} else {
		a.camera.SetFPS(ActiveFPS)
	}

	a.stopCh = make(chan struct{})
	a.done = make(chan struct{})
	go a.runPipeline(a.stopCh, a.done)

	log.Println("app: recognition pipeline started")
	return nil
}

// Stop halts the pipeline and closes the camera. The app can be started again.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, done := a.stopCh, a.done
	a.stopCh, a.done = nil, nil
	a.mu.Unlock()

	if stopCh == nil {
		return
	}

	close(stopCh)
	<-done

	if err := a.camera.Close(); err != nil {
		log.Printf("app: error closing camera: %v", err)
	}
	if a.motion != nil {
		a.motion.Reset()
	}

	log.Println("app: recognition pipeline stopped")
}

// Running reports whether the pipeline goroutine is active.
func (a *App) Running() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stopCh != nil
}

// Close stops the pipeline and releases the detector.
func (a *App) Close() error {
	a.Stop()

	if a.motion != nil {
		a.motion.Close()
	}
	if d := a.Detector(); d != nil {
		return d.Close()
	}
	return nil
}
