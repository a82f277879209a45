package normalize

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"io"

	"github.com/disintegration/imaging"
	"github.com/jung-kurt/gofpdf"
)

// Package normalize turns a photographed or scanned image into a standardized
// single-page PDF before submission. The transform itself has no network
// dependency; callers feed it raw upload bytes and receive PDF bytes back.

// ErrDecode is returned for empty or undecodable input, before any raster
// processing is attempted.
var ErrDecode = errors.New("cannot decode image")

const (
	// maxSourceDim caps the longest source dimension before processing so an
	// oversized photo cannot exhaust memory.
	maxSourceDim = 4096

	// pageMargin is the fixed margin, in points, kept free on every side of
	// the A4 output page.
	pageMargin = 20.0

	// blurSigma is the light denoise pass applied after desaturation.
	blurSigma = 0.6
)

// ToPDF decodes the image, desaturates and lightly denoises it, then renders
// it centered on a single A4 page scaled to fit within the page margins while
// preserving the source aspect ratio. Never crops, never exceeds the margin
// bounds in either axis.
func ToPDF(r io.Reader) ([]byte, error) {
	if r == nil {
		return nil, ErrDecode
	}
	src, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	bounds := src.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, ErrDecode
	}

	if bounds.Dx() > maxSourceDim || bounds.Dy() > maxSourceDim {
		src = imaging.Fit(src, maxSourceDim, maxSourceDim, imaging.Lanczos)
	}

	// Grayscale returns an NRGBA raster, which is what the PDF embed expects.
	gray := imaging.Blur(imaging.Grayscale(src), blurSigma)

	var imgBuf bytes.Buffer
	if err := png.Encode(&imgBuf, gray); err != nil {
		return nil, fmt.Errorf("encode page image: %w", err)
	}

	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.AddPage()
	pageW, pageH := pdf.GetPageSize()

	srcW := float64(gray.Bounds().Dx())
	srcH := float64(gray.Bounds().Dy())
	w, h := fitWithin(srcW, srcH, pageW-2*pageMargin, pageH-2*pageMargin)
	x := (pageW - w) / 2
	y := (pageH - h) / 2

	opt := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("document", opt, &imgBuf)
	pdf.ImageOptions("document", x, y, w, h, false, opt, 0, "")

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return out.Bytes(), nil
}

// fitWithin scales (w, h) to the largest size that fits inside (maxW, maxH)
// without changing the aspect ratio.
func fitWithin(w, h, maxW, maxH float64) (float64, float64) {
	outW := maxW
	outH := maxW * h / w
	if outH > maxH {
		outH = maxH
		outW = maxH * w / h
	}
	return outW, outH
}
