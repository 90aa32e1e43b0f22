package matcher

import (
	"math"
	"sort"
	"testing"

	"gocv.io/x/gocv"

	"github.com/ayusman/mukha/internal/gallery"
	"github.com/ayusman/mukha/testdata"
)

// staticSource serves a fixed set of entries, cloning on every snapshot like the gallery does.
type staticSource struct {
	entries []gallery.Entry
}

func newStaticSource(t *testing.T, images map[string]gocv.Mat) *staticSource {
	t.Helper()

	s := &staticSource{}
	for label, img := range images {
		s.entries = append(s.entries, gallery.Entry{Label: label, Image: img})
	}
	sort.Slice(s.entries, func(i, j int) bool {
		return s.entries[i].Label < s.entries[j].Label
	})

	t.Cleanup(func() {
		for i := range s.entries {
			s.entries[i].Close()
		}
	})
	return s
}

func (s *staticSource) Snapshot() []gallery.Entry {
	out := make([]gallery.Entry, len(s.entries))
	for i, e := range s.entries {
		out[i] = gallery.Entry{Label: e.Label, Image: e.Image.Clone()}
	}
	return out
}

func canonical() (int, int) { return CanonicalSize, CanonicalSize }

func TestMatcher_EmptyGalleryIsUnknown(t *testing.T) {
	m := New(newStaticSource(t, nil))

	faces := map[string]gocv.Mat{
		"uniform":  testdata.Uniform(80, 40, 40),
		"gradient": testdata.Gradient(64, 48),
		"color":    testdata.UniformColor(1, 2, 3, 20, 20),
		"empty":    gocv.NewMat(),
	}
	for name, face := range faces {
		if got := m.Recognize(face); got != Unknown {
			t.Errorf("Recognize(%s) = %q, want %q", name, got, Unknown)
		}
		face.Close()
	}
}

func TestMatcher_NilSource(t *testing.T) {
	m := New(nil)
	face := testdata.Uniform(80, 40, 40)
	defer face.Close()

	if got := m.Recognize(face); got != Unknown {
		t.Errorf("Recognize() = %q, want %q", got, Unknown)
	}
}

func TestMatcher_SelfMatch(t *testing.T) {
	face := testdata.ToBGR(testdata.Gradient(120, 90))
	defer face.Close()

	m := New(newStaticSource(t, map[string]gocv.Mat{"alice": face.Clone()}))

	if got := m.Recognize(face); got != "alice" {
		t.Errorf("Recognize() = %q, want alice", got)
	}
}

func TestMatcher_IdenticalBeatsWeakerCandidate(t *testing.T) {
	rows, cols := canonical()
	// stripes share half their mass with the probe: correlation ~0.707, above the threshold.
	source := newStaticSource(t, map[string]gocv.Mat{
		"alice": testdata.Stripes(40, 200, 10, rows, cols),
		"bob":   testdata.Uniform(40, rows, cols),
	})
	m := New(source)

	probe := testdata.Uniform(40, rows, cols)
	defer probe.Close()

	best, ok := m.Best(probe)
	if !ok {
		t.Fatal("Best() ok = false")
	}
	if best.Label != "bob" || math.Abs(best.Score-1) > epsilon {
		t.Errorf("Best() = %+v, want bob with score 1", best)
	}
	if got := m.Recognize(probe); got != "bob" {
		t.Errorf("Recognize() = %q, want bob", got)
	}
}

func TestMatcher_Threshold(t *testing.T) {
	rows, cols := canonical()
	probe := testdata.Stripes(40, 200, 10, rows, cols)
	defer probe.Close()

	tests := []struct {
		name      string
		threshold float64
		want      string
	}{
		{name: "default accepts partial overlap", threshold: DefaultThreshold, want: "alice"},
		{name: "strict rejects partial overlap", threshold: 0.8, want: Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := newStaticSource(t, map[string]gocv.Mat{
				"alice": testdata.Uniform(40, rows, cols),
			})
			m := New(source, WithThreshold(tt.threshold))

			if got := m.Recognize(probe); got != tt.want {
				t.Errorf("Recognize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMatcher_PartialOverlapScore(t *testing.T) {
	rows, cols := canonical()
	probe := testdata.Stripes(40, 200, 10, rows, cols)
	defer probe.Close()

	m := New(newStaticSource(t, map[string]gocv.Mat{
		"alice": testdata.Uniform(40, rows, cols),
	}))

	best, ok := m.Best(probe)
	if !ok {
		t.Fatal("Best() ok = false")
	}

	// One bin holding all mass against two bins holding half each.
	want := math.Sqrt((0.5 - 1.0/256) / (1 - 1.0/256))
	if math.Abs(best.Score-want) > epsilon {
		t.Errorf("score = %f, want %f", best.Score, want)
	}
}

func TestMatcher_WithThresholdIgnoresOutOfRange(t *testing.T) {
	for _, v := range []float64{-1, -3, 1.5, math.NaN()} {
		m := New(nil, WithThreshold(v))
		if m.Threshold() != DefaultThreshold {
			t.Errorf("WithThreshold(%f) set threshold to %f", v, m.Threshold())
		}
	}
}

func TestMatcher_UniformOppositesNotSelected(t *testing.T) {
	source := newStaticSource(t, map[string]gocv.Mat{
		"night": testdata.Uniform(0, 50, 50),
	})
	m := New(source)

	white := testdata.Uniform(255, 50, 50)
	defer white.Close()

	if got := m.Recognize(white); got != Unknown {
		t.Errorf("Recognize(white) = %q, want %q", got, Unknown)
	}
}

func TestMatcher_DegenerateEntryNeverSelected(t *testing.T) {
	face := testdata.Uniform(90, 32, 32)
	defer face.Close()

	source := newStaticSource(t, map[string]gocv.Mat{
		"aaron": gocv.NewMat(),
		"zed":   testdata.Uniform(90, 32, 32),
	})
	m := New(source)

	if got := m.Recognize(face); got != "zed" {
		t.Errorf("Recognize() = %q, want zed", got)
	}

	empty := gocv.NewMat()
	defer empty.Close()
	if got := m.Recognize(empty); got != Unknown {
		t.Errorf("Recognize(empty) = %q, want %q", got, Unknown)
	}
}

func TestMatcher_TieBreaksByLabel(t *testing.T) {
	rows, cols := canonical()
	source := newStaticSource(t, map[string]gocv.Mat{
		"mallory": testdata.Gradient(rows, cols),
		"carol":   testdata.Gradient(rows, cols),
		"trent":   testdata.Gradient(rows, cols),
	})
	m := New(source)

	probe := testdata.Gradient(rows, cols)
	defer probe.Close()

	for i := 0; i < 5; i++ {
		if got := m.Recognize(probe); got != "carol" {
			t.Fatalf("Recognize() = %q, want carol on every run", got)
		}
	}
}

func TestMatcher_GalleryScenario(t *testing.T) {
	g, err := gallery.Open(t.TempDir())
	if err != nil {
		t.Fatalf("gallery.Open() error = %v", err)
	}
	defer g.Close()

	imgA := testdata.Uniform(40, 90, 90)
	defer imgA.Close()
	imgB := testdata.ToBGR(testdata.Uniform(200, 110, 95))
	defer imgB.Close()
	imgC := testdata.Uniform(120, 70, 70)
	defer imgC.Close()

	if _, err := g.Enroll("alice", imgA); err != nil {
		t.Fatalf("Enroll(alice) error = %v", err)
	}

	m := New(g)

	if _, err := g.Enroll("bob", imgB); err != nil {
		t.Fatalf("Enroll(bob) error = %v", err)
	}

	if got := m.Recognize(imgB); got != "bob" {
		t.Errorf("Recognize(imgB) = %q, want bob", got)
	}
	if got := m.Recognize(imgA); got != "alice" {
		t.Errorf("Recognize(imgA) = %q, want alice", got)
	}
	if got := m.Recognize(imgC); got != Unknown {
		t.Errorf("Recognize(imgC) = %q, want %q", got, Unknown)
	}
}

func TestMatcher_Identify(t *testing.T) {
	rows, cols := canonical()
	source := newStaticSource(t, map[string]gocv.Mat{
		"alice": testdata.Uniform(40, rows, cols),
	})

	probe := testdata.Stripes(40, 200, 10, rows, cols)
	defer probe.Close()

	accepted := New(source).Identify(probe)
	if accepted.Label != "alice" || accepted.Score <= DefaultThreshold {
		t.Errorf("Identify() = %+v, want alice above threshold", accepted)
	}

	rejected := New(source, WithThreshold(0.9)).Identify(probe)
	if rejected.Label != Unknown {
		t.Errorf("Identify() label = %q, want %q", rejected.Label, Unknown)
	}
	if math.Abs(rejected.Score-accepted.Score) > epsilon {
		t.Errorf("rejected score = %f, want %f", rejected.Score, accepted.Score)
	}

	if got := New(nil).Identify(probe); got != (Candidate{Label: Unknown}) {
		t.Errorf("Identify() with no source = %+v", got)
	}
}
