package export

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
)

// slide surface in CSS pixels
const (
	slideWidthPx  = 1280
	slideHeightPx = 720
)

var deckTemplate = template.Must(template.New("deck").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
@page { size: {{.Width}}px {{.Height}}px; margin: 0; }
html, body { margin: 0; padding: 0; background: #fff; }
section { width: {{.Width}}px; height: {{.Height}}px; page-break-after: always; break-after: page; overflow: hidden; }
section:last-child { page-break-after: auto; break-after: auto; }
img { display: block; width: 100%; height: 100%; }
</style>
</head>
<body>
{{range .Slides}}<section data-index="{{.Index}}" data-type="{{.Type}}"><img alt="{{.Type}}" src="{{.Src}}"></section>
{{end}}</body>
</html>
`))

type htmlSlide struct {
	Index int
	Type  string
	Src   template.URL
}

// DeckHTML lays the deck out as one page-sized section per slide with the
// images inlined, so browsers can print it without network access.
func DeckHTML(deck *Deck) (string, error) {
	if deck == nil || len(deck.Slides) == 0 {
		return "", fmt.Errorf("deck has no slides")
	}
	data := struct {
		Title         string
		Width, Height int
		Slides        []htmlSlide
	}{Title: deck.Title, Width: slideWidthPx, Height: slideHeightPx}

	for _, s := range deck.Slides {
		data.Slides = append(data.Slides, htmlSlide{
			Index: s.Index,
			Type:  string(s.Type),
			Src:   template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(s.PNG)),
		})
	}

	var buf bytes.Buffer
	if err := deckTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render deck html: %w", err)
	}
	return buf.String(), nil
}

// page size in inches at the browser's 96 DPI
func pageInches() (w, h float64) {
	return slideWidthPx / 96.0, slideHeightPx / 96.0
}
