// Package matcher recognizes faces by comparing intensity histograms against the gallery.
package matcher

import (
	"log"

	"gocv.io/x/gocv"

	"github.com/ayusman/mukha/internal/gallery"
)

// Unknown is returned by Recognize when no gallery entry is accepted.
const Unknown = "Unknown"

// DefaultThreshold is the minimum correlation for a candidate to be accepted.
const DefaultThreshold = 0.6

// EntrySource supplies the gallery entries to compare against.
// Entries must be sorted by label; the caller closes them.
type EntrySource interface {
	Snapshot() []gallery.Entry
}

// Candidate is a gallery entry with its similarity to the presented face.
type Candidate struct {
	Label string
	Score float64
}

// Matcher performs a linear nearest-neighbor search over the gallery.
type Matcher struct {
	source    EntrySource
	threshold float64
	verbose   bool
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithThreshold sets the acceptance threshold. Values outside (-1, 1] are ignored.
func WithThreshold(threshold float64) Option {
	return func(m *Matcher) {
		if threshold > -1 && threshold <= 1 {
			m.threshold = threshold
		}
	}
}

// WithVerbose logs the best candidate of every recognition.
func WithVerbose(verbose bool) Option {
	return func(m *Matcher) {
		m.verbose = verbose
	}
}

// New creates a Matcher reading entries from source.
func New(source EntrySource, opts ...Option) *Matcher {
	m := &Matcher{
		source:    source,
		threshold: DefaultThreshold,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Threshold returns the acceptance threshold.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// Recognize returns the label of the gallery entry most similar to face,
// or Unknown when the gallery is empty or no entry reaches the threshold.
func (m *Matcher) Recognize(face gocv.Mat) string {
	return m.Identify(face).Label
}

// Identify is Recognize with the score of the best candidate attached.
// A rejected candidate keeps its score but is labeled Unknown.
func (m *Matcher) Identify(face gocv.Mat) Candidate {
	best, ok := m.Best(face)
	if !ok {
		return Candidate{Label: Unknown}
	}
	if m.verbose {
		log.Printf("matcher: best candidate %q score=%.3f threshold=%.2f", best.Label, best.Score, m.threshold)
	}
	if best.Score < m.threshold {
		return Candidate{Label: Unknown, Score: best.Score}
	}
	return best
}

// Best returns the highest scoring gallery entry for face, regardless of the threshold.
// Ties keep the lexicographically smallest label. It returns false when no
// entry produced a valid score.
func (m *Matcher) Best(face gocv.Mat) (Candidate, bool) {
	if m.source == nil {
		return Candidate{}, false
	}

	probe, ok := histogramOf(face)
	if !ok {
		return Candidate{}, false
	}

	entries := m.source.Snapshot()
	defer func() {
		for i := range entries {
			entries[i].Close()
		}
	}()

	var best Candidate
	found := false

	for _, e := range entries {
		ref, ok := histogramOf(e.Image)
		if !ok {
			continue
		}

		score, ok := Correlation(probe, ref)
		if !ok {
			continue
		}

		// Entries arrive sorted by label, so only a strictly greater score replaces the best.
		if !found || score > best.Score {
			best = Candidate{Label: e.Label, Score: score}
			found = true
		}
	}

	return best, found
}
