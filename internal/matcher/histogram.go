package matcher

import (
	"image"
	"math"

	"gocv.io/x/gocv"
)

// Preprocessing constants.
const (
	// CanonicalSize is the width and height every face is resized to before scoring.
	CanonicalSize = 100
	// HistogramBins is the number of intensity bins.
	HistogramBins = 256
)

// Preprocess converts src to single-channel intensity and resizes it to
// CanonicalSize x CanonicalSize with bilinear interpolation.
// It returns false, and an empty Mat, when src has no pixels.
// The caller must close the returned Mat.
func Preprocess(src gocv.Mat) (gocv.Mat, bool) {
	if src.Empty() || src.Rows() == 0 || src.Cols() == 0 {
		return gocv.NewMat(), false
	}

	gray := gocv.NewMat()
	defer gray.Close()

	switch src.Channels() {
	case 3:
		gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)
	case 4:
		gocv.CvtColor(src, &gray, gocv.ColorBGRAToGray)
	default:
		src.CopyTo(&gray)
	}

	out := gocv.NewMat()
	gocv.Resize(gray, &out, image.Pt(CanonicalSize, CanonicalSize), 0, 0, gocv.InterpolationLinear)
	return out, true
}

// Histogram computes the 256-bin intensity histogram of a single-channel
// image, normalized so the bins sum to 1.
func Histogram(gray gocv.Mat) ([]float64, bool) {
	if gray.Empty() || gray.Channels() != 1 {
		return nil, false
	}

	hist := gocv.NewMat()
	defer hist.Close()

	mask := gocv.NewMat()
	defer mask.Close()

	gocv.CalcHist([]gocv.Mat{gray}, []int{0}, mask, &hist, []int{HistogramBins}, []float64{0, 256}, false)
	gocv.Normalize(hist, &hist, 1, 0, gocv.NormL1)

	if hist.Rows()*hist.Cols() != HistogramBins {
		return nil, false
	}

	bins := make([]float64, HistogramBins)
	for i := range bins {
		bins[i] = float64(hist.GetFloatAt(i, 0))
	}
	return bins, true
}

// Correlation returns the Pearson correlation between two histograms, in [-1, 1].
// It returns false when the histograms differ in length, are empty, or either
// has zero variance, since the coefficient is undefined there.
func Correlation(h1, h2 []float64) (float64, bool) {
	n := len(h1)
	if n == 0 || n != len(h2) {
		return 0, false
	}

	var mean1, mean2 float64
	for i := 0; i < n; i++ {
		mean1 += h1[i]
		mean2 += h2[i]
	}
	mean1 /= float64(n)
	mean2 /= float64(n)

	var cov, var1, var2 float64
	for i := 0; i < n; i++ {
		d1 := h1[i] - mean1
		d2 := h2[i] - mean2
		cov += d1 * d2
		var1 += d1 * d1
		var2 += d2 * d2
	}

	denom := math.Sqrt(var1 * var2)
	if denom == 0 || math.IsNaN(denom) {
		return 0, false
	}

	score := cov / denom
	// Clamp rounding drift so identical inputs score exactly 1.
	return math.Max(-1, math.Min(1, score)), true
}

// Compare scores two face images. It returns false when either image is
// degenerate, in which case the pair must never be treated as a match.
func Compare(a, b gocv.Mat) (float64, bool) {
	ha, ok := histogramOf(a)
	if !ok {
		return 0, false
	}
	hb, ok := histogramOf(b)
	if !ok {
		return 0, false
	}
	return Correlation(ha, hb)
}

// histogramOf preprocesses img and returns its normalized histogram.
func histogramOf(img gocv.Mat) ([]float64, bool) {
	prepared, ok := Preprocess(img)
	defer prepared.Close()
	if !ok {
		return nil, false
	}
	return Histogram(prepared)
}
