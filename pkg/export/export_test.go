package export

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/report-slides-app/pkg/model"
	"github.com/yourusername/report-slides-app/pkg/preview"
)

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 36))
	for x := 0; x < 64; x++ {
		for y := 0; y < 36; y++ {
			img.Set(x, y, color.RGBA{B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func testDeck(t *testing.T) *Deck {
	one := 1
	published := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	report := &model.Report{Title: "Quarterly", Author: "Finance", PublishedAt: &published}
	batch := &model.PreviewBatch{
		Previews: []model.PreviewRecord{
			{SlideIndex: 0, SlideType: model.SectionTitle, ImageData: testPNG(t), Dimensions: model.Dimensions{Width: 1280, Height: 720}},
			{SlideIndex: 2, SlideType: model.SectionContent, SectionNumber: &one, ImageData: testPNG(t), Dimensions: model.Dimensions{Width: 1280, Height: 720}},
		},
		Metadata: model.BatchMetadata{TotalSlides: 3, PreviewedSlides: 2},
	}
	return NewDeck(report, batch)
}

func TestNewDeck(t *testing.T) {
	deck := testDeck(t)

	assert.Equal(t, "Quarterly", deck.Title)
	assert.Equal(t, "Finance", deck.Author)
	require.Len(t, deck.Slides, 2)
	assert.Equal(t, 2, deck.Slides[1].Index)
	assert.Equal(t, 1, *deck.Slides[1].Number)
	assert.Nil(t, deck.Slides[0].Number)
	assert.Equal(t, 1, deck.Missing())

	empty := NewDeck(nil, nil)
	assert.Empty(t, empty.Slides)
	assert.Equal(t, 0, empty.Missing())
}

func TestPDFBackend_Export(t *testing.T) {
	b := NewPDFBackend(nil)
	defer b.Close()

	pdf, err := b.Export(context.Background(), testDeck(t))
	require.NoError(t, err)
	require.NoError(t, checkPDF(pdf))
	assert.True(t, bytes.Contains(pdf, []byte("/Count 2")))
}

func TestPDFBackend_Errors(t *testing.T) {
	b := NewPDFBackend(nil)

	_, err := b.Export(context.Background(), &Deck{})
	assert.Error(t, err)

	broken := testDeck(t)
	broken.Slides[1].PNG = []byte("not a png")
	_, err = b.Export(context.Background(), broken)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slide 2")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = b.Export(ctx, testDeck(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDeckHTML(t *testing.T) {
	deck := testDeck(t)
	deck.Title = `Q1 <script>alert(1)</script>`

	html, err := DeckHTML(deck)
	require.NoError(t, err)

	assert.Equal(t, 2, strings.Count(html, "<section "))
	assert.Contains(t, html, `data-type="content"`)
	assert.Contains(t, html, "data:image/png;base64,")
	assert.Contains(t, html, "size: 1280px 720px")
	assert.NotContains(t, html, "<script>")

	_, err = DeckHTML(&Deck{})
	assert.Error(t, err)
}

func TestNewBackend(t *testing.T) {
	tests := []struct {
		backend string
		name    string
		wantErr bool
	}{
		{"", BackendPDF, false},
		{"PDF", BackendPDF, false},
		{"chromium", BackendChromium, false},
		{"playwright", BackendPlaywright, false},
		{"pptx", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			b, err := NewBackend(model.ExportConfig{Backend: tt.backend}, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.name, b.Name())
			assert.NoError(t, b.Close())
		})
	}
}

func TestTimeout(t *testing.T) {
	assert.Equal(t, defaultTimeout, timeout(model.ExportConfig{}))
	assert.Equal(t, 1500*time.Millisecond, timeout(model.ExportConfig{TimeoutMS: 1500}))
}

type recordingGenerator struct {
	opts preview.BatchOptions
}

func (g *recordingGenerator) GenerateAllPreviews(ctx context.Context, r *model.Report, opts preview.BatchOptions) *model.PreviewBatch {
	g.opts = opts
	return &model.PreviewBatch{Metadata: model.BatchMetadata{TotalSlides: len(r.Sections)}}
}

func TestBuildDeck_RendersEverySection(t *testing.T) {
	gen := &recordingGenerator{}
	report := &model.Report{Title: "Deck", Sections: make(model.SectionList, 14)}

	deck := BuildDeck(context.Background(), gen, report)

	require.NotNil(t, gen.opts.OnePerType)
	require.NotNil(t, gen.opts.MaxPreviews)
	assert.False(t, *gen.opts.OnePerType)
	assert.Equal(t, 14, *gen.opts.MaxPreviews)
	assert.Equal(t, 14, deck.Missing())
}
