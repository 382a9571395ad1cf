package preview

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/report-slides-app/pkg/model"
)

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int    { return &i }

func report(types ...model.SectionType) *model.Report {
	r := &model.Report{Title: "Quarterly"}
	for _, t := range types {
		r.Sections = append(r.Sections, model.Section{Type: t})
	}
	return r
}

type recordedCall struct {
	slideType     model.SectionType
	sectionNumber int
}

// fakeGenerator fails any type listed in fail and records every call.
type fakeGenerator struct {
	fail  map[model.SectionType]int
	calls []recordedCall
}

func (f *fakeGenerator) GenerateSlidePreview(ctx context.Context, s *model.Section, opts SlideOptions) *model.PreviewRecord {
	f.calls = append(f.calls, recordedCall{s.Type, *opts.SectionNumber})
	if f.fail[s.Type] > 0 {
		f.fail[s.Type]--
		return nil
	}
	return &model.PreviewRecord{SlideType: s.Type, ImageData: []byte("png"), Dimensions: model.Dimensions{Width: SlideWidth, Height: SlideHeight}}
}

func sectionNumbers(batch *model.PreviewBatch) []interface{} {
	out := make([]interface{}, 0, len(batch.Previews))
	for _, p := range batch.Previews {
		if p.SectionNumber == nil {
			out = append(out, nil)
		} else {
			out = append(out, *p.SectionNumber)
		}
	}
	return out
}

func slideIndexes(batch *model.PreviewBatch) []int {
	out := make([]int, 0, len(batch.Previews))
	for _, p := range batch.Previews {
		out = append(out, p.SlideIndex)
	}
	return out
}

func TestGenerateAllPreviews_AllSections(t *testing.T) {
	var numbers []int
	p := NewPlanner(NewDispatcher(stubRenderers(&numbers), nil), nil)
	r := report(model.SectionTitle, model.SectionContent, model.SectionContent, model.SectionNavigation)

	batch := p.GenerateAllPreviews(context.Background(), r, BatchOptions{OnePerType: boolPtr(false), MaxPreviews: intPtr(10)})

	require.Len(t, batch.Previews, 4)
	assert.Equal(t, []interface{}{nil, 1, 2, nil}, sectionNumbers(batch))
	assert.Equal(t, []int{0, 1, 2, 3}, slideIndexes(batch))
	assert.Equal(t, []int{1, 2}, numbers)
	assert.Equal(t, 4, batch.Metadata.TotalSlides)
	assert.Equal(t, 4, batch.Metadata.PreviewedSlides)
	assert.False(t, batch.Metadata.OnePerType)
	assert.NotEmpty(t, batch.Metadata.BatchID)
	assert.False(t, batch.Metadata.GeneratedAt.IsZero())
}

func TestGenerateAllPreviews_OnePerType(t *testing.T) {
	p := NewPlanner(NewDispatcher(stubRenderers(nil), nil), nil)
	r := report(model.SectionTitle, model.SectionContent, model.SectionContent, model.SectionNavigation)

	batch := p.GenerateAllPreviews(context.Background(), r, BatchOptions{OnePerType: boolPtr(true), MaxPreviews: intPtr(10)})

	require.Len(t, batch.Previews, 3)
	assert.Equal(t, []int{0, 1, 3}, slideIndexes(batch))
	assert.Equal(t, []interface{}{nil, 1, nil}, sectionNumbers(batch))
	assert.Equal(t, 4, batch.Metadata.TotalSlides)
	assert.Equal(t, 3, batch.Metadata.PreviewedSlides)
	assert.True(t, batch.Metadata.OnePerType)
}

func TestGenerateAllPreviews_NumberingSurvivesDeduplication(t *testing.T) {
	p := NewPlanner(NewDispatcher(stubRenderers(nil), nil), nil)
	r := report(
		model.SectionTitle,
		model.SectionContent,
		model.SectionContent,
		model.SectionNavigation,
		model.SectionChartInsights,
	)

	batch := p.GenerateAllPreviews(context.Background(), r, BatchOptions{})

	require.Len(t, batch.Previews, 4)
	last := batch.Previews[3]
	assert.Equal(t, model.SectionChartInsights, last.SlideType)
	require.NotNil(t, last.SectionNumber)
	assert.Equal(t, 3, *last.SectionNumber)
}

func TestGenerateAllPreviews_StrictlyIncreasingNumbers(t *testing.T) {
	gen := &fakeGenerator{}
	p := NewPlanner(gen, nil)
	r := report(
		model.SectionTitle,
		model.SectionContent,
		model.SectionHeader,
		model.SectionChartInsights,
		model.SectionContent,
		model.SectionTimeline,
		model.SectionChartInsights,
	)

	batch := p.GenerateAllPreviews(context.Background(), r, BatchOptions{OnePerType: boolPtr(false), MaxPreviews: intPtr(len(r.Sections))})

	assert.Equal(t, []interface{}{nil, 1, nil, 2, 3, nil, 4}, sectionNumbers(batch))
}

func TestGenerateAllPreviews_Defaults(t *testing.T) {
	gen := &fakeGenerator{}
	p := NewPlanner(gen, nil)
	r := &model.Report{}
	for i := 0; i < 15; i++ {
		r.Sections = append(r.Sections, model.Section{Type: model.SectionType("custom" + string(rune('a'+i)))})
	}

	batch := p.GenerateAllPreviews(context.Background(), r, BatchOptions{})

	assert.Len(t, batch.Previews, DefaultMaxPreviews)
	assert.Len(t, gen.calls, DefaultMaxPreviews)
	assert.True(t, batch.Metadata.OnePerType)
	assert.Equal(t, 15, batch.Metadata.TotalSlides)
}

func TestGenerateAllPreviews_MaxPreviewsStopsScan(t *testing.T) {
	gen := &fakeGenerator{}
	p := NewPlanner(gen, nil)
	r := report(model.SectionContent, model.SectionContent, model.SectionContent, model.SectionContent)

	batch := p.GenerateAllPreviews(context.Background(), r, BatchOptions{OnePerType: boolPtr(false), MaxPreviews: intPtr(2)})

	assert.Len(t, batch.Previews, 2)
	assert.Len(t, gen.calls, 2)
	assert.Equal(t, 4, batch.Metadata.TotalSlides)
}

func TestGenerateAllPreviews_NonPositiveMax(t *testing.T) {
	for _, max := range []int{0, -3} {
		gen := &fakeGenerator{}
		p := NewPlanner(gen, nil)

		batch := p.GenerateAllPreviews(context.Background(), report(model.SectionTitle, model.SectionContent), BatchOptions{MaxPreviews: intPtr(max)})

		assert.Empty(t, batch.Previews)
		assert.Empty(t, gen.calls)
		assert.Equal(t, 2, batch.Metadata.TotalSlides)
		assert.Equal(t, 0, batch.Metadata.PreviewedSlides)
	}
}

func TestGenerateAllPreviews_EmptyReport(t *testing.T) {
	p := NewPlanner(&fakeGenerator{}, nil)

	for _, r := range []*model.Report{nil, {}, {Sections: model.SectionList{}}} {
		batch := p.GenerateAllPreviews(context.Background(), r, BatchOptions{})
		require.NotNil(t, batch)
		assert.NotNil(t, batch.Previews)
		assert.Empty(t, batch.Previews)
		assert.Equal(t, 0, batch.Metadata.TotalSlides)
	}
}

func TestGenerateAllPreviews_FailedTypeNotMarkedSeen(t *testing.T) {
	gen := &fakeGenerator{fail: map[model.SectionType]int{model.SectionContent: 1}}
	p := NewPlanner(gen, nil)
	r := report(model.SectionContent, model.SectionContent, model.SectionContent)

	batch := p.GenerateAllPreviews(context.Background(), r, BatchOptions{})

	require.Len(t, batch.Previews, 1)
	assert.Equal(t, 1, batch.Previews[0].SlideIndex)
	assert.Equal(t, 2, *batch.Previews[0].SectionNumber)
	assert.Len(t, gen.calls, 2)
	assert.Equal(t, 3, batch.Metadata.TotalSlides)
	assert.Equal(t, 1, batch.Metadata.PreviewedSlides)
}

func TestGenerateAllPreviews_SeenMatchesResult(t *testing.T) {
	p := NewPlanner(&fakeGenerator{}, nil)
	r := report(
		model.SectionTitle, model.SectionHeader, model.SectionContent, model.SectionHeader,
		model.SectionContent, model.SectionTimeline, model.SectionTitle, model.SectionTimeline,
	)

	batch := p.GenerateAllPreviews(context.Background(), r, BatchOptions{})

	types := map[model.SectionType]bool{}
	for _, prev := range batch.Previews {
		assert.False(t, types[prev.SlideType], "duplicate %s", prev.SlideType)
		types[prev.SlideType] = true
	}
	assert.Len(t, batch.Previews, 4)
}

func TestGenerateAllPreviews_UnknownTypeSkipped(t *testing.T) {
	log, logs := observedLogger()
	p := NewPlanner(NewDispatcher(stubRenderers(nil), log), log)
	r := report(model.SectionTitle, "quote", model.SectionContent)

	batch := p.GenerateAllPreviews(context.Background(), r, BatchOptions{})

	assert.Equal(t, []int{0, 2}, slideIndexes(batch))
	assert.Equal(t, 1, logs.FilterMessage("no renderer for section type").Len())
	assert.Equal(t, 1, logs.FilterMessage("preview batch generated").Len())
}

func TestIsNumbered(t *testing.T) {
	assert.True(t, IsNumbered(model.SectionContent))
	assert.True(t, IsNumbered(model.SectionChartInsights))
	for _, st := range []model.SectionType{model.SectionTitle, model.SectionNavigation, model.SectionHeader, model.SectionTimeline} {
		assert.False(t, IsNumbered(st), st)
	}
}

func TestGenerateAllPreviews_DuplicateLogCarriesType(t *testing.T) {
	log, logs := observedLogger()
	p := NewPlanner(NewDispatcher(stubRenderers(nil), log), log)

	p.GenerateAllPreviews(context.Background(), report(model.SectionHeader, model.SectionHeader), BatchOptions{})

	skipped := logs.FilterMessage("skipping duplicate section type").All()
	require.Len(t, skipped, 1)
	assert.Equal(t, "header", skipped[0].ContextMap()["slide_type"])
	assert.EqualValues(t, 1, skipped[0].ContextMap()["slide_index"])
}
