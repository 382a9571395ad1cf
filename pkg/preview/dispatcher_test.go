package preview

import (
	"bytes"
	"context"
	"image/png"
	"testing"

	"github.com/fogleman/gg"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yourusername/report-slides-app/pkg/logger"
	"github.com/yourusername/report-slides-app/pkg/model"
)

func observedLogger() (*logger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &logger.Logger{SugaredLogger: zap.New(core).Sugar()}, logs
}

func fill(ctx context.Context, dc *gg.Context, s *model.Section) error {
	dc.SetRGB(0.1, 0.3, 0.5)
	dc.Clear()
	return nil
}

// stubRenderers records the section numbers passed to the content renderer.
func stubRenderers(numbers *[]int) Renderers {
	return Renderers{
		Title:      fill,
		Navigation: fill,
		Header:     fill,
		Content: func(ctx context.Context, dc *gg.Context, s *model.Section, n int) error {
			if numbers != nil {
				*numbers = append(*numbers, n)
			}
			return fill(ctx, dc, s)
		},
		ChartInsights: fill,
		Timeline:      fill,
	}
}

func TestGenerateSlidePreview_Success(t *testing.T) {
	d := NewDispatcher(stubRenderers(nil), nil)

	rec := d.GenerateSlidePreview(context.Background(), &model.Section{Type: model.SectionTitle, Heading: "Q3"}, SlideOptions{})
	require.NotNil(t, rec)

	assert.Equal(t, model.SectionTitle, rec.SlideType)
	assert.Equal(t, model.Dimensions{Width: SlideWidth, Height: SlideHeight}, rec.Dimensions)

	img, err := png.Decode(bytes.NewReader(rec.ImageData))
	require.NoError(t, err)
	assert.Equal(t, SlideWidth, img.Bounds().Dx())
	assert.Equal(t, SlideHeight, img.Bounds().Dy())
}

func TestGenerateSlidePreview_SectionNumberDefault(t *testing.T) {
	var numbers []int
	d := NewDispatcher(stubRenderers(&numbers), nil)
	section := &model.Section{Type: model.SectionContent}

	require.NotNil(t, d.GenerateSlidePreview(context.Background(), section, SlideOptions{}))
	n := 7
	require.NotNil(t, d.GenerateSlidePreview(context.Background(), section, SlideOptions{SectionNumber: &n}))

	assert.Equal(t, []int{1, 7}, numbers)
}

func TestGenerateSlidePreview_UnknownType(t *testing.T) {
	log, logs := observedLogger()
	d := NewDispatcher(stubRenderers(nil), log)

	rec := d.GenerateSlidePreview(context.Background(), &model.Section{Type: "quote"}, SlideOptions{})
	assert.Nil(t, rec)

	warnings := logs.FilterMessage("no renderer for section type").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, zapcore.WarnLevel, warnings[0].Level)
	assert.Equal(t, "quote", warnings[0].ContextMap()["slide_type"])
}

func TestGenerateSlidePreview_MissingRenderer(t *testing.T) {
	renderers := stubRenderers(nil)
	renderers.Timeline = nil
	d := NewDispatcher(renderers, nil)

	assert.False(t, d.Supports(model.SectionTimeline))
	assert.True(t, d.Supports(model.SectionContent))
	assert.Nil(t, d.GenerateSlidePreview(context.Background(), &model.Section{Type: model.SectionTimeline}, SlideOptions{}))
}

func TestGenerateSlidePreview_RenderFailure(t *testing.T) {
	tests := []struct {
		name   string
		render RenderFunc
		expect string
	}{
		{
			name: "error",
			render: func(ctx context.Context, dc *gg.Context, s *model.Section) error {
				return errors.New("asset fetch failed")
			},
			expect: "asset fetch failed",
		},
		{
			name: "panic",
			render: func(ctx context.Context, dc *gg.Context, s *model.Section) error {
				var chart *model.Chart
				_ = chart.Kind
				return nil
			},
			expect: "renderer panicked",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, logs := observedLogger()
			renderers := stubRenderers(nil)
			renderers.Header = tt.render
			d := NewDispatcher(renderers, log)

			rec := d.GenerateSlidePreview(context.Background(), &model.Section{Type: model.SectionHeader}, SlideOptions{})
			assert.Nil(t, rec)

			entries := logs.FilterMessage("slide render failed").All()
			require.Len(t, entries, 1)
			assert.Equal(t, "header", entries[0].ContextMap()["slide_type"])
			assert.Contains(t, entries[0].ContextMap()["error"], tt.expect)
		})
	}
}

func TestGenerateSlidePreview_NilSection(t *testing.T) {
	d := NewDispatcher(stubRenderers(nil), nil)
	assert.Nil(t, d.GenerateSlidePreview(context.Background(), nil, SlideOptions{}))
}

func TestGenerateSlidePreview_LogsTypeAsString(t *testing.T) {
	log, logs := observedLogger()
	d := NewDispatcher(stubRenderers(nil), log)

	require.NotNil(t, d.GenerateSlidePreview(context.Background(), &model.Section{Type: model.SectionTimeline}, SlideOptions{}))

	rendered := logs.FilterMessage("slide rendered").All()
	require.Len(t, rendered, 1)
	v, ok := rendered[0].ContextMap()["slide_type"].(string)
	require.True(t, ok, "slide_type should be a plain string, got %T", rendered[0].ContextMap()["slide_type"])
	assert.Equal(t, "timeline", v)
}
