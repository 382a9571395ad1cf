package export

import (
	"context"
	"time"

	"github.com/yourusername/report-slides-app/pkg/model"
	"github.com/yourusername/report-slides-app/pkg/preview"
)

// Slide is one rendered page of a deck.
type Slide struct {
	Index  int
	Type   model.SectionType
	Number *int
	PNG    []byte
	Width  int
	Height int
}

// Deck is a report's rendered slides plus the metadata written into the document.
type Deck struct {
	Title       string
	Author      string
	PublishedAt *time.Time
	Slides      []Slide
	// TotalSections is the length of the report, which exceeds len(Slides)
	// when some sections failed to render.
	TotalSections int
}

// NewDeck assembles a deck from a report and the batch rendered from it.
func NewDeck(report *model.Report, batch *model.PreviewBatch) *Deck {
	d := &Deck{}
	if report != nil {
		d.Title = report.Title
		d.Author = report.Author
		d.PublishedAt = report.PublishedAt
	}
	if batch == nil {
		return d
	}
	d.TotalSections = batch.Metadata.TotalSlides
	d.Slides = make([]Slide, 0, len(batch.Previews))
	for _, p := range batch.Previews {
		d.Slides = append(d.Slides, Slide{
			Index:  p.SlideIndex,
			Type:   p.SlideType,
			Number: p.SectionNumber,
			PNG:    p.ImageData,
			Width:  p.Dimensions.Width,
			Height: p.Dimensions.Height,
		})
	}
	return d
}

// Missing reports how many sections have no slide.
func (d *Deck) Missing() int {
	if d.TotalSections < len(d.Slides) {
		return 0
	}
	return d.TotalSections - len(d.Slides)
}

// BatchGenerator renders the slides of a report.
type BatchGenerator interface {
	GenerateAllPreviews(ctx context.Context, report *model.Report, opts preview.BatchOptions) *model.PreviewBatch
}

// BuildDeck renders every section of report, in order and without
// de-duplication. Sections that fail to render are left out.
func BuildDeck(ctx context.Context, gen BatchGenerator, report *model.Report) *Deck {
	onePerType := false
	all := 0
	if report != nil {
		all = len(report.Sections)
	}
	batch := gen.GenerateAllPreviews(ctx, report, preview.BatchOptions{OnePerType: &onePerType, MaxPreviews: &all})
	return NewDeck(report, batch)
}
