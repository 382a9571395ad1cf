package export

import (
	"bytes"
	"context"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/yourusername/report-slides-app/pkg/logger"
)

// 16:9 page in points.
const (
	pageWidthPt  = 960.0
	pageHeightPt = 540.0
)

// PDFBackend writes one full-bleed page per slide with gofpdf. It needs no
// external processes.
type PDFBackend struct {
	log *logger.Logger
}

// NewPDFBackend creates the default backend.
func NewPDFBackend(log *logger.Logger) *PDFBackend {
	return &PDFBackend{log: logger.OrNop(log).Component("export.pdf")}
}

// Export implements Backend.
func (b *PDFBackend) Export(ctx context.Context, deck *Deck) ([]byte, error) {
	if deck == nil || len(deck.Slides) == 0 {
		return nil, fmt.Errorf("deck has no slides")
	}

	// gofpdf swaps width and height for landscape pages
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "L",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: pageHeightPt, Ht: pageWidthPt},
	})
	pdf.SetTitle(deck.Title, true)
	pdf.SetAuthor(deck.Author, true)
	pdf.SetCreator("report-slides", true)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	if deck.PublishedAt != nil {
		pdf.SetCreationDate(*deck.PublishedAt)
	}

	opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	for i, slide := range deck.Slides {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := fmt.Sprintf("slide-%03d", i)
		pdf.AddPage()
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(slide.PNG))
		pdf.ImageOptions(name, 0, 0, pageWidthPt, pageHeightPt, false, opts, 0, "")
		if pdf.Err() {
			return nil, fmt.Errorf("slide %d (%s): %w", slide.Index, slide.Type, pdf.Error())
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	b.log.Debug("deck exported", "slides", len(deck.Slides), "bytes", buf.Len())
	return buf.Bytes(), nil
}

// Close implements Backend.
func (b *PDFBackend) Close() error { return nil }

// Name returns the backend name
func (b *PDFBackend) Name() string { return BackendPDF }
