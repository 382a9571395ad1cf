package slides

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/report-slides-app/pkg/model"
	"github.com/yourusername/report-slides-app/pkg/preview"
	"github.com/yourusername/report-slides-app/pkg/templateconfig"
)

type stubAssets struct {
	err   error
	calls []string
}

func (s *stubAssets) Fetch(ctx context.Context, url string) (image.Image, error) {
	s.calls = append(s.calls, url)
	if s.err != nil {
		return nil, s.err
	}
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for x := 0; x < 40; x++ {
		for y := 0; y < 20; y++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	return img, nil
}

func newTestSet(t *testing.T, assets AssetFetcher) *Set {
	t.Helper()
	set, err := New(templateconfig.NewStore(templateconfig.DefaultSource(), nil), assets, nil)
	require.NoError(t, err)
	return set
}

func barChart() *model.Chart {
	return &model.Chart{
		Kind:  "bar",
		Title: "Revenue",
		Unit:  "€",
		Series: []model.DataPoint{
			{Label: "Q1", Value: 1200},
			{Label: "Q2", Value: 1850},
			{Label: "Q3", Value: 2400000},
		},
	}
}

func TestRenderers_AllTypesRender(t *testing.T) {
	assets := &stubAssets{}
	d := preview.NewDispatcher(newTestSet(t, assets).Renderers(), nil)

	sections := []model.Section{
		{Type: model.SectionTitle, Heading: "Annual Report", Subheading: "2024", Image: &model.ImageRef{URL: "https://cdn.example.com/cover.png"}},
		{Type: model.SectionNavigation, Items: []string{"Overview", "Revenue", "Outlook"}},
		{Type: model.SectionHeader, Heading: "Revenue", Theme: "green"},
		{Type: model.SectionContent, Heading: "Sales by quarter", Body: "Sales grew steadily.", Chart: barChart(), Image: &model.ImageRef{URL: "https://cdn.example.com/icon.png"}},
		{Type: model.SectionChartInsights, Heading: "Market share", Chart: &model.Chart{Kind: "pie", CSV: "label,value\nA,40\nB,35\nC,25"},
			Insights: []model.Insight{{Title: "Leader", Text: "A holds the largest share."}}},
		{Type: model.SectionTimeline, Heading: "Milestones", Events: []model.TimelineEvent{
			{Date: "2021", Title: "Founded"}, {Date: "2022", Title: "Series A"}, {Date: "2024", Title: "IPO", Description: "Listed"},
		}},
		{Type: model.SectionContent, Heading: "Trend", Chart: &model.Chart{Kind: "line", CSV: "Jan,1\nFeb,3\nMar,2"}},
	}

	for i := range sections {
		s := &sections[i]
		t.Run(string(s.Type), func(t *testing.T) {
			n := i + 1
			rec := d.GenerateSlidePreview(context.Background(), s, preview.SlideOptions{SectionNumber: &n})
			require.NotNil(t, rec)
			assert.Equal(t, s.Type, rec.SlideType)
			assert.NotEmpty(t, rec.ImageData)
		})
	}
	assert.Len(t, assets.calls, 2)
}

func TestRenderers_InvalidSections(t *testing.T) {
	set := newTestSet(t, &stubAssets{err: errors.New("connection refused")})
	d := preview.NewDispatcher(set.Renderers(), nil)

	tests := []struct {
		name    string
		section model.Section
	}{
		{"title without heading", model.Section{Type: model.SectionTitle}},
		{"header without heading", model.Section{Type: model.SectionHeader, Theme: "blue"}},
		{"content without chart", model.Section{Type: model.SectionContent, Heading: "Sales"}},
		{"content with empty chart", model.Section{Type: model.SectionContent, Heading: "Sales", Chart: &model.Chart{}}},
		{"unsupported chart kind", model.Section{Type: model.SectionChartInsights, Heading: "Mix", Chart: &model.Chart{Kind: "radar", CSV: "a,1"}}},
		{"timeline without events", model.Section{Type: model.SectionTimeline, Heading: "History"}},
		{"asset fetch failure", model.Section{Type: model.SectionTitle, Heading: "Cover", Image: &model.ImageRef{URL: "https://cdn.example.com/x.png"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, d.GenerateSlidePreview(context.Background(), &tt.section, preview.SlideOptions{}))
		})
	}
}

func TestRenderers_NoAssetFetcherIgnoresImages(t *testing.T) {
	d := preview.NewDispatcher(newTestSet(t, nil).Renderers(), nil)

	rec := d.GenerateSlidePreview(context.Background(), &model.Section{
		Type:    model.SectionTitle,
		Heading: "Cover",
		Image:   &model.ImageRef{URL: "https://cdn.example.com/cover.png"},
	}, preview.SlideOptions{})
	assert.NotNil(t, rec)
}

func TestRenderers_ConfigLoadErrorFailsSlide(t *testing.T) {
	store := templateconfig.NewStore(templateconfig.BytesSource("broken", []byte("colors: {primary: '000000'}\n")), nil)
	set, err := New(store, nil, nil)
	require.NoError(t, err)
	d := preview.NewDispatcher(set.Renderers(), nil)

	assert.Nil(t, d.GenerateSlidePreview(context.Background(), &model.Section{Type: model.SectionNavigation}, preview.SlideOptions{}))
}

func TestLayoutKeysCoverRequiredLayouts(t *testing.T) {
	var keys []string
	for _, k := range LayoutKeys {
		keys = append(keys, k)
	}
	assert.ElementsMatch(t, templateconfig.RequiredLayoutKeys, keys)
}
