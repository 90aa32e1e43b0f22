package main

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"

	// Decoders for formats imported from phones and browsers.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// MaxImportSide bounds the longer side of an imported image.
const MaxImportSide = 1920

// loadImage decodes path, applies its EXIF orientation and returns it as a BGR Mat.
// The caller must close the returned Mat.
func loadImage(path string) (gocv.Mat, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to open image %s: %w", path, err)
	}

	mat, err := gocv.ImageToMatRGB(fitImage(img))
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to convert image %s: %w", path, err)
	}
	return mat, nil
}

// fitImage returns img as NRGBA, scaled down so neither side exceeds MaxImportSide.
func fitImage(img image.Image) *image.NRGBA {
	b := img.Bounds()
	if b.Dx() <= MaxImportSide && b.Dy() <= MaxImportSide {
		return imaging.Clone(img)
	}
	return imaging.Fit(img, MaxImportSide, MaxImportSide, imaging.Lanczos)
}
