// Package gallery provides the on-disk store of enrolled face images.
package gallery

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

var (
	// ErrInvalidLabel is returned when an enrollment label is empty or cannot be stored.
	ErrInvalidLabel = errors.New("invalid label")
	// ErrEmptyImage is returned when an enrollment image has no pixels.
	ErrEmptyImage = errors.New("empty image")
	// ErrStorage is returned when an enrollment image cannot be written.
	ErrStorage = errors.New("storage error")
)

// Entry is one enrolled identity and its grayscale reference image.
type Entry struct {
	Label string
	Image gocv.Mat
}

// Close releases the entry's image.
func (e *Entry) Close() error {
	return e.Image.Close()
}

// Diagnostic describes a file skipped during the last reload.
type Diagnostic struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Gallery owns the label to reference image mapping backed by a directory of image files.
// It is safe for concurrent use.
type Gallery struct {
	dir     string
	entries map[string]gocv.Mat
	skipped []Diagnostic
	now     func() time.Time

	// writeMu serializes Reload and Enroll; mu guards the fields for readers.
	writeMu sync.Mutex
	mu      sync.RWMutex
}

// Open ensures dir exists and loads every image file in it.
func Open(dir string) (*Gallery, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create gallery directory: %w", err)
	}

	g := &Gallery{
		dir:     dir,
		entries: make(map[string]gocv.Mat),
		now:     time.Now,
	}

	if err := g.Reload(); err != nil {
		return nil, err
	}

	return g, nil
}

// Dir returns the backing directory.
func (g *Gallery) Dir() string {
	return g.dir
}

// Reload rebuilds the in-memory mapping from the directory.
// Files that cannot be decoded are skipped and reported by Skipped.
// An unreadable directory leaves the gallery empty.
func (g *Gallery) Reload() error {
	g.writeMu.Lock()
	defer g.writeMu.Unlock()

	entries := make(map[string]gocv.Mat)
	var skipped []Diagnostic

	files, err := os.ReadDir(g.dir)
	if err != nil {
		log.Printf("gallery: cannot read %s: %v", g.dir, err)
		skipped = append(skipped, Diagnostic{Path: g.dir, Reason: err.Error()})
		files = nil
	}

	// os.ReadDir sorts by name, so the newest token for a label is loaded last.
	for _, f := range files {
		if f.IsDir() || !IsImageFile(f.Name()) {
			continue
		}

		path := filepath.Join(g.dir, f.Name())

		label, ok := ParseLabel(f.Name())
		if !ok {
			log.Printf("gallery: skipping %s: no label in file name", path)
			skipped = append(skipped, Diagnostic{Path: path, Reason: "no label in file name"})
			continue
		}

		img := gocv.IMRead(path, gocv.IMReadGrayScale)
		if img.Empty() {
			img.Close()
			log.Printf("gallery: skipping %s: failed to decode image", path)
			skipped = append(skipped, Diagnostic{Path: path, Reason: "failed to decode image"})
			continue
		}

		if prev, exists := entries[label]; exists {
			prev.Close()
		}
		entries[label] = img
	}

	g.mu.Lock()
	old := g.entries
	g.entries = entries
	g.skipped = skipped
	g.mu.Unlock()

	for _, m := range old {
		m.Close()
	}

	log.Printf("gallery: loaded %d faces from %s (%d skipped)", len(entries), g.dir, len(skipped))
	return nil
}

// Enroll writes face to a new file under label and makes it the label's reference image.
// It returns the path of the written file. On error the in-memory mapping is unchanged.
func (g *Gallery) Enroll(label string, face gocv.Mat) (string, error) {
	if err := ValidateLabel(label); err != nil {
		return "", err
	}
	if face.Empty() || face.Rows() == 0 || face.Cols() == 0 {
		return "", ErrEmptyImage
	}

	g.writeMu.Lock()
	defer g.writeMu.Unlock()

	path := filepath.Join(g.dir, FileName(label, NewToken(g.now()), DefaultExt))
	if ok := gocv.IMWrite(path, face); !ok {
		return "", fmt.Errorf("%w: failed to write %s", ErrStorage, path)
	}

	ref := toGray(face)

	g.mu.Lock()
	if prev, exists := g.entries[label]; exists {
		prev.Close()
	}
	g.entries[label] = ref
	g.mu.Unlock()

	log.Printf("gallery: enrolled %q as %s", label, filepath.Base(path))
	return path, nil
}

// Snapshot returns a copy of every entry sorted by label.
// The caller owns the returned images and must Close them.
func (g *Gallery) Snapshot() []Entry {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]Entry, 0, len(g.entries))
	for label, img := range g.entries {
		out = append(out, Entry{Label: label, Image: img.Clone()})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Label < out[j].Label
	})

	return out
}

// Labels returns the enrolled labels in sorted order.
func (g *Gallery) Labels() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	labels := make([]string, 0, len(g.entries))
	for label := range g.entries {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// Len returns the number of enrolled labels.
func (g *Gallery) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.entries)
}

// Skipped returns the files skipped by the last reload.
func (g *Gallery) Skipped() []Diagnostic {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]Diagnostic, len(g.skipped))
	copy(out, g.skipped)
	return out
}

// Close releases every reference image.
func (g *Gallery) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for label, img := range g.entries {
		img.Close()
		delete(g.entries, label)
	}
	return nil
}

// toGray returns a single-channel copy of src.
func toGray(src gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	switch src.Channels() {
	case 3:
		gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)
	case 4:
		gocv.CvtColor(src, &gray, gocv.ColorBGRAToGray)
	default:
		src.CopyTo(&gray)
	}
	return gray
}
