// Package preview turns report sections into slide previews.
package preview

import (
	"bytes"
	"context"
	"time"

	"github.com/fogleman/gg"
	"github.com/pkg/errors"

	"github.com/yourusername/report-slides-app/pkg/logger"
	"github.com/yourusername/report-slides-app/pkg/model"
)

// Slide surface size in pixels.
const (
	SlideWidth  = 1280
	SlideHeight = 720
)

// RenderFunc draws a section onto the surface.
type RenderFunc func(ctx context.Context, dc *gg.Context, section *model.Section) error

// NumberedRenderFunc additionally receives the running section number.
type NumberedRenderFunc func(ctx context.Context, dc *gg.Context, section *model.Section, sectionNumber int) error

// Renderers is the closed dispatch table, one field per section type.
// A nil field means the type has no renderer.
type Renderers struct {
	Title         RenderFunc
	Navigation    RenderFunc
	Header        RenderFunc
	Content       NumberedRenderFunc
	ChartInsights RenderFunc
	Timeline      RenderFunc
}

// SlideOptions tunes a single render. SectionNumber defaults to 1.
type SlideOptions struct {
	SectionNumber *int
}

// Dispatcher renders one section at a time with the registered renderers.
type Dispatcher struct {
	renderers Renderers
	log       *logger.Logger
}

// NewDispatcher fixes the dispatch table for the dispatcher's lifetime.
func NewDispatcher(renderers Renderers, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		renderers: renderers,
		log:       logger.OrNop(log).Component("dispatcher"),
	}
}

// Supports reports whether a renderer is registered for t.
func (d *Dispatcher) Supports(t model.SectionType) bool {
	return d.invoker(t, 0) != nil
}

type invokeFunc func(ctx context.Context, dc *gg.Context, section *model.Section) error

func (d *Dispatcher) invoker(t model.SectionType, sectionNumber int) invokeFunc {
	var fn RenderFunc
	switch t {
	case model.SectionContent:
		if d.renderers.Content == nil {
			return nil
		}
		return func(ctx context.Context, dc *gg.Context, s *model.Section) error {
			return d.renderers.Content(ctx, dc, s, sectionNumber)
		}
	case model.SectionTitle:
		fn = d.renderers.Title
	case model.SectionNavigation:
		fn = d.renderers.Navigation
	case model.SectionHeader:
		fn = d.renderers.Header
	case model.SectionChartInsights:
		fn = d.renderers.ChartInsights
	case model.SectionTimeline:
		fn = d.renderers.Timeline
	}
	if fn == nil {
		return nil
	}
	return invokeFunc(fn)
}

// GenerateSlidePreview renders section and returns its preview, or nil when
// the type is unknown or rendering failed. Failures are logged, never returned.
func (d *Dispatcher) GenerateSlidePreview(ctx context.Context, section *model.Section, opts SlideOptions) *model.PreviewRecord {
	if section == nil {
		d.log.Warn("skipping nil section")
		return nil
	}
	sectionNumber := 1
	if opts.SectionNumber != nil {
		sectionNumber = *opts.SectionNumber
	}

	invoke := d.invoker(section.Type, sectionNumber)
	if invoke == nil {
		d.log.Warn("no renderer for section type", "slide_type", string(section.Type))
		return nil
	}

	start := time.Now()
	image, err := render(ctx, invoke, section)
	if err != nil {
		d.log.Error("slide render failed", "slide_type", string(section.Type), "error", err.Error())
		return nil
	}

	d.log.Debug("slide rendered",
		"slide_type", string(section.Type),
		"bytes", len(image),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &model.PreviewRecord{
		SlideType:  section.Type,
		ImageData:  image,
		Dimensions: model.Dimensions{Width: SlideWidth, Height: SlideHeight},
	}
}

// render draws onto a fresh surface that does not outlive the call.
func render(ctx context.Context, invoke invokeFunc, section *model.Section) (image []byte, err error) {
	dc := gg.NewContext(SlideWidth, SlideHeight)
	defer func() {
		if r := recover(); r != nil {
			image, err = nil, errors.Errorf("renderer panicked: %v", r)
		}
	}()

	if err := invoke(ctx, dc, section); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, errors.Wrap(err, "encode png")
	}
	return buf.Bytes(), nil
}
