package preview

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/report-slides-app/pkg/logger"
	"github.com/yourusername/report-slides-app/pkg/model"
)

// Batch defaults.
const (
	DefaultOnePerType  = true
	DefaultMaxPreviews = 10
)

// IsNumbered reports whether sections of type t receive a running number.
func IsNumbered(t model.SectionType) bool {
	return t == model.SectionContent || t == model.SectionChartInsights
}

// SlideGenerator renders a single section.
type SlideGenerator interface {
	GenerateSlidePreview(ctx context.Context, section *model.Section, opts SlideOptions) *model.PreviewRecord
}

// BatchOptions controls a batch run. Nil fields take the defaults.
type BatchOptions struct {
	OnePerType  *bool `json:"one_per_type,omitempty"`
	MaxPreviews *int  `json:"max_previews,omitempty"`
}

func (o BatchOptions) resolve() (onePerType bool, maxPreviews int) {
	onePerType, maxPreviews = DefaultOnePerType, DefaultMaxPreviews
	if o.OnePerType != nil {
		onePerType = *o.OnePerType
	}
	if o.MaxPreviews != nil {
		maxPreviews = *o.MaxPreviews
	}
	return onePerType, maxPreviews
}

// Planner walks a report in order and renders the selected sections.
type Planner struct {
	slides SlideGenerator
	log    *logger.Logger
	now    func() time.Time
}

// NewPlanner creates a planner backed by slides.
func NewPlanner(slides SlideGenerator, log *logger.Logger) *Planner {
	return &Planner{
		slides: slides,
		log:    logger.OrNop(log).Component("planner"),
		now:    time.Now,
	}
}

// GenerateAllPreviews renders the report's sections in order. Sections are
// processed one at a time; a failed slide is simply absent from the result.
//
// Numbered sections advance the counter before de-duplication, so numbers
// reflect position in the full report. Scanning stops once maxPreviews
// records have been produced.
func (p *Planner) GenerateAllPreviews(ctx context.Context, report *model.Report, opts BatchOptions) *model.PreviewBatch {
	onePerType, maxPreviews := opts.resolve()

	var sections []model.Section
	if report != nil {
		sections = report.Sections
	}

	batchID := uuid.NewString()
	log := p.log.With("batch_id", batchID)

	previews := make([]model.PreviewRecord, 0)
	seen := make(map[model.SectionType]bool)
	sectionNumber := 0

	for i := 0; i < len(sections) && len(previews) < maxPreviews; i++ {
		section := &sections[i]

		numbered := IsNumbered(section.Type)
		if numbered {
			sectionNumber++
		}

		if onePerType && seen[section.Type] {
			log.Debug("skipping duplicate section type", "slide_index", i, "slide_type", string(section.Type))
			continue
		}

		n := sectionNumber
		record := p.slides.GenerateSlidePreview(ctx, section, SlideOptions{SectionNumber: &n})
		if record == nil {
			continue
		}

		record.SlideIndex = i
		record.SectionNumber = nil
		if numbered {
			record.SectionNumber = &n
		}
		previews = append(previews, *record)
		seen[section.Type] = true
	}

	batch := &model.PreviewBatch{
		Previews: previews,
		Metadata: model.BatchMetadata{
			BatchID:         batchID,
			TotalSlides:     len(sections),
			PreviewedSlides: len(previews),
			OnePerType:      onePerType,
			GeneratedAt:     p.now().UTC(),
		},
	}
	log.Info("preview batch generated",
		"total_slides", batch.Metadata.TotalSlides,
		"previewed_slides", batch.Metadata.PreviewedSlides,
		"one_per_type", onePerType,
		"max_previews", maxPreviews,
	)
	return batch
}
