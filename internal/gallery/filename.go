package gallery

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Delimiter separates the label from the token in a gallery file name.
const Delimiter = "_"

// DefaultExt is the extension used for newly enrolled faces.
const DefaultExt = ".png"

// imageExts lists the extensions considered during a reload.
var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".bmp":  true,
}

// IsImageFile reports whether name has an extension the gallery loads.
func IsImageFile(name string) bool {
	return imageExts[strings.ToLower(filepath.Ext(name))]
}

// ParseLabel recovers the label from a file name of the form <label>_<token>.<ext>.
// A name without a delimiter yields its stem. The second return value is false
// when no label can be derived.
func ParseLabel(name string) (string, bool) {
	base := filepath.Base(name)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	label, _, _ := strings.Cut(stem, Delimiter)
	label = strings.TrimSpace(label)
	if label == "" {
		return "", false
	}
	return label, true
}

// FileName builds the on-disk name for an enrollment.
func FileName(label, token, ext string) string {
	if ext == "" {
		ext = DefaultExt
	}
	return label + Delimiter + token + ext
}

// NewToken returns a collision-resistant suffix: the enrollment time in
// milliseconds followed by a short random component.
func NewToken(now time.Time) string {
	id := uuid.New()
	return fmt.Sprintf("%d-%s", now.UnixMilli(), strings.ReplaceAll(id.String(), "-", "")[:8])
}

// ValidateLabel checks that a label can round-trip through a file name.
func ValidateLabel(label string) error {
	if strings.TrimSpace(label) == "" {
		return fmt.Errorf("%w: label is empty", ErrInvalidLabel)
	}
	if label != strings.TrimSpace(label) {
		return fmt.Errorf("%w: label %q has surrounding whitespace", ErrInvalidLabel, label)
	}
	if strings.Contains(label, Delimiter) {
		return fmt.Errorf("%w: label %q contains %q", ErrInvalidLabel, label, Delimiter)
	}
	if strings.ContainsAny(label, `/\`) || label == "." || label == ".." {
		return fmt.Errorf("%w: label %q is not a valid file name", ErrInvalidLabel, label)
	}
	return nil
}
