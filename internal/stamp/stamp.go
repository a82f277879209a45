package stamp

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/fogleman/gg"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// ErrUnsupportedType is returned when the declared MIME category is neither
// application/pdf nor an image/* subtype.
var ErrUnsupportedType = errors.New("unsupported content type")

// Stamper produces a visually stamped copy of a document's bytes.
// The input buffer is never mutated; a stamped copy is always returned.
type Stamper interface {
	Stamp(data []byte, contentType, text string) ([]byte, error)
}

// Engine implements Stamper for PDF and raster image documents.
// It is stateless and safe for concurrent use.
type Engine struct{}

// NewEngine constructs a stamping engine.
func NewEngine() *Engine {
	return &Engine{}
}

var _ Stamper = (*Engine)(nil)

// Stamp dispatches on the declared MIME category: PDF documents get a text
// overlay on every page, raster images get a plaque composited at the
// bottom-right corner. Any other category fails with ErrUnsupportedType and
// produces no partial output.
func (e *Engine) Stamp(data []byte, contentType, text string) ([]byte, error) {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	switch {
	case ct == "application/pdf":
		return stampPDF(data, text)
	case strings.HasPrefix(ct, "image/"):
		return stampImage(data, text)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}
}

// stampPDF overlays the stamp text near the bottom-left corner of every page:
// Helvetica 24pt, semi-transparent red, no rotation. Page count and ordering
// are preserved; only the overlay is added.
func stampPDF(data []byte, text string) ([]byte, error) {
	desc := "fontname:Helvetica, points:24, scalefactor:1 abs, position:bl, offset:24 24, fillcolor:#c41e1e, opacity:0.45, rotation:0"
	wm, err := api.TextWatermark(text, desc, true, false, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("build text watermark: %w", err)
	}
	var buf bytes.Buffer
	if err := api.AddWatermarks(bytes.NewReader(data), &buf, nil, wm, nil); err != nil {
		return nil, fmt.Errorf("overlay pdf pages: %w", err)
	}
	return buf.Bytes(), nil
}

const (
	plaqueFontSize = 22.0
	plaqueMargin   = 16.0
	plaquePadX     = 14.0
	plaquePadY     = 10.0
)

// watermarkFont is Go Regular from x/image, so the plaque renders without any
// font files on disk.
var watermarkFont = func() *opentype.Font {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		panic(fmt.Sprintf("parse embedded watermark font: %v", err))
	}
	return f
}()

// stampImage draws a red-bordered plaque containing the stamp text at the
// bottom-right corner of the raster and re-encodes in the source format.
// Encoder settings are fixed so identical inputs produce identical bytes.
func stampImage(data []byte, text string) ([]byte, error) {
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	face, err := opentype.NewFace(watermarkFont, &opentype.FaceOptions{
		Size:    plaqueFontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("build watermark font face: %w", err)
	}
	defer face.Close()

	dc := gg.NewContextForImage(src)
	dc.SetFontFace(face)

	textW, textH := dc.MeasureString(text)
	plaqueW := textW + 2*plaquePadX
	plaqueH := textH + 2*plaquePadY

	x := float64(dc.Width()) - plaqueW - plaqueMargin
	y := float64(dc.Height()) - plaqueH - plaqueMargin
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}

	dc.SetRGBA(1, 1, 1, 0.75)
	dc.DrawRoundedRectangle(x, y, plaqueW, plaqueH, 4)
	dc.Fill()

	dc.SetRGBA(0.77, 0.12, 0.12, 0.9)
	dc.SetLineWidth(2)
	dc.DrawRoundedRectangle(x, y, plaqueW, plaqueH, 4)
	dc.Stroke()

	dc.SetRGBA(0.77, 0.12, 0.12, 1)
	dc.DrawString(text, x+plaquePadX, y+plaqueH-plaquePadY)

	return encodeImage(dc.Image(), format)
}

func encodeImage(img image.Image, format string) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 92})
	case "gif":
		err = gif.Encode(&buf, img, nil)
	default:
		// png, plus any other registered format image.Decode understood.
		err = png.Encode(&buf, img)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s image: %w", format, err)
	}
	return buf.Bytes(), nil
}
