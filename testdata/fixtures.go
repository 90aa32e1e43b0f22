// Package testdata builds synthetic face images and camera frames for tests.
package testdata

import (
	"image"

	"gocv.io/x/gocv"
)

// Uniform returns a single-channel image filled with value.
func Uniform(value uint8, rows, cols int) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(float64(value), 0, 0, 0), rows, cols, gocv.MatTypeCV8UC1)
}

// UniformColor returns a three-channel BGR image filled with the given color.
func UniformColor(b, g, r uint8, rows, cols int) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(float64(b), float64(g), float64(r), 0), rows, cols, gocv.MatTypeCV8UC3)
}

// Gradient returns a single-channel image whose intensity ramps from left to right.
func Gradient(rows, cols int) gocv.Mat {
	m := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV8UC1)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			v := 0
			if cols > 1 {
				v = c * 255 / (cols - 1)
			}
			m.SetUCharAt(r, c, uint8(v))
		}
	}
	return m
}

// Stripes returns a single-channel image of vertical bands alternating between lo and hi.
func Stripes(lo, hi uint8, width, rows, cols int) gocv.Mat {
	m := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV8UC1)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			v := lo
			if (c/width)%2 == 1 {
				v = hi
			}
			m.SetUCharAt(r, c, v)
		}
	}
	return m
}

// ToBGR returns a three-channel copy of a single-channel image.
func ToBGR(gray gocv.Mat) gocv.Mat {
	bgr := gocv.NewMat()
	gocv.CvtColor(gray, &bgr, gocv.ColorGrayToBGR)
	return bgr
}

// Frame returns a 480x640 BGR frame with face pasted at the given rectangle.
// face must be single-channel and is resized to fit the rectangle.
func Frame(face gocv.Mat, at image.Rectangle) gocv.Mat {
	frame := UniformColor(30, 30, 30, 480, 640)

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(face, &resized, at.Size(), 0, 0, gocv.InterpolationLinear)

	bgr := ToBGR(resized)
	defer bgr.Close()

	region := frame.Region(at)
	defer region.Close()
	bgr.CopyTo(&region)

	return frame
}
