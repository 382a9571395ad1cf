// Package slides draws each report section type onto a fixed-size canvas.
package slides

import (
	"context"
	"fmt"
	"strings"

	"github.com/fogleman/gg"

	"github.com/yourusername/report-slides-app/pkg/colors"
	"github.com/yourusername/report-slides-app/pkg/logger"
	"github.com/yourusername/report-slides-app/pkg/model"
	"github.com/yourusername/report-slides-app/pkg/preview"
	"github.com/yourusername/report-slides-app/pkg/templateconfig"
)

// LayoutKeys maps each section type to its template layout.
var LayoutKeys = map[model.SectionType]string{
	model.SectionTitle:         templateconfig.LayoutTitle,
	model.SectionNavigation:    templateconfig.LayoutTableOfContents,
	model.SectionHeader:        templateconfig.LayoutSectionDivider,
	model.SectionContent:       templateconfig.LayoutChartSection,
	model.SectionChartInsights: templateconfig.LayoutInsightsSection,
	model.SectionTimeline:      templateconfig.LayoutTimelineSection,
}

// Set holds the shared resources of the concrete renderers.
type Set struct {
	templates *templateconfig.Store
	assets    AssetFetcher
	fonts     *fontCache
	log       *logger.Logger
}

// New creates the renderer set. assets may be nil, in which case image
// references are ignored.
func New(templates *templateconfig.Store, assets AssetFetcher, log *logger.Logger) (*Set, error) {
	fonts, err := newFontCache()
	if err != nil {
		return nil, err
	}
	return &Set{
		templates: templates,
		assets:    assets,
		fonts:     fonts,
		log:       logger.OrNop(log).Component("slides"),
	}, nil
}

// Renderers returns the dispatch table consumed by preview.NewDispatcher.
func (s *Set) Renderers() preview.Renderers {
	return preview.Renderers{
		Title:         s.Title,
		Navigation:    s.Navigation,
		Header:        s.Header,
		Content:       s.Content,
		ChartInsights: s.ChartInsights,
		Timeline:      s.Timeline,
	}
}

func (s *Set) painter(dc *gg.Context, sectionType model.SectionType) (*painter, error) {
	cfg, err := s.templates.Load()
	if err != nil {
		return nil, err
	}
	return &painter{
		dc:     dc,
		cfg:    cfg,
		layout: cfg.SlideTypes[LayoutKeys[sectionType]],
		fonts:  s.fonts,
	}, nil
}

func requireHeading(section *model.Section) error {
	if strings.TrimSpace(section.Heading) == "" {
		return fmt.Errorf("%s section has no heading", section.Type)
	}
	return nil
}

// Title draws the cover slide.
func (s *Set) Title(ctx context.Context, dc *gg.Context, section *model.Section) error {
	if err := requireHeading(section); err != nil {
		return err
	}
	p, err := s.painter(dc, model.SectionTitle)
	if err != nil {
		return err
	}
	p.background(section.Color)

	pad := p.padding()
	w := float64(dc.Width())
	h := float64(dc.Height())
	textW := w - 2*pad
	if section.Image != nil {
		textW = w*0.55 - pad
		box := templateconfig.Box{X: w * 0.6, Y: pad, W: w*0.4 - pad, H: h - 2*pad}
		if err := p.image(ctx, s.assets, section.Image, box); err != nil {
			return err
		}
	}

	p.fillRect(pad, h*0.38-24, 120, 8, p.accent(p.palette("accent", "F28C28")))
	p.useFont(p.titleRole(), p.titleColor())
	y := h*0.38 + p.text(section.Heading, pad, h*0.38, textW, gg.AlignLeft)
	p.useFont(p.bodyRole(), p.titleColor())
	p.text(section.Subheading, pad, y+24, textW, gg.AlignLeft)
	return nil
}

// Navigation draws the table of contents.
func (s *Set) Navigation(ctx context.Context, dc *gg.Context, section *model.Section) error {
	p, err := s.painter(dc, model.SectionNavigation)
	if err != nil {
		return err
	}
	p.background(section.Color)

	heading := section.Heading
	if heading == "" {
		heading = "Contents"
	}
	pad := p.padding()
	w := float64(dc.Width()) - 2*pad
	p.useFont(p.titleRole(), p.titleColor())
	y := pad + p.text(heading, pad, pad, w, gg.AlignLeft) + 40

	accent := p.accent(p.palette("primary", "1F4E79"))
	for i, item := range section.Items {
		p.useFont("subheading", accent)
		p.dc.DrawStringAnchored(fmt.Sprintf("%02d", i+1), pad, y, 0, 1)
		p.useFont(p.bodyRole(), "")
		y += p.text(item, pad+80, y, w-80, gg.AlignLeft) + 22
		if y > float64(dc.Height())-pad {
			s.log.Debug("table of contents truncated", "items", len(section.Items), "drawn", i+1)
			break
		}
	}
	return nil
}

// Header draws a section divider. The section's theme overrides the layout background.
func (s *Set) Header(ctx context.Context, dc *gg.Context, section *model.Section) error {
	if err := requireHeading(section); err != nil {
		return err
	}
	p, err := s.painter(dc, model.SectionHeader)
	if err != nil {
		return err
	}
	bg := section.Color
	if bg == "" && section.Theme != "" {
		bg = colors.ThemeColor(section.Theme, p.cfg)
	}
	p.background(bg)

	pad := p.padding()
	w := float64(dc.Width()) - 2*pad
	h := float64(dc.Height())
	p.fillRect(pad, h/2-40, 8, 80, p.accent(colors.MintColor))
	p.useFont(p.titleRole(), p.titleColor())
	y := h/2 - 40 + p.text(section.Heading, pad+32, h/2-40, w-32, gg.AlignLeft)
	p.useFont(p.bodyRole(), p.titleColor())
	p.text(section.Subheading, pad+32, y+16, w-32, gg.AlignLeft)
	return nil
}

// Content draws a numbered chart slide.
func (s *Set) Content(ctx context.Context, dc *gg.Context, section *model.Section, sectionNumber int) error {
	if err := requireHeading(section); err != nil {
		return err
	}
	if section.Chart == nil {
		return fmt.Errorf("content section %q has no chart", section.Heading)
	}
	p, err := s.painter(dc, model.SectionContent)
	if err != nil {
		return err
	}
	p.background(section.Color)

	pad := p.padding()
	w := float64(dc.Width())
	h := float64(dc.Height())

	p.useFont("number", "")
	p.dc.DrawStringAnchored(fmt.Sprintf("%02d", sectionNumber), w-pad, pad, 1, 1)

	p.useFont(p.titleRole(), p.titleColor())
	p.text(section.Heading, pad, pad, w*0.7, gg.AlignLeft)
	p.fillRect(pad, pad+96, 96, 6, p.accent(p.palette("primary", "1F4E79")))

	chartBox := p.layout.Box("chart", templateconfig.Box{X: pad, Y: 180, W: w*0.6 - pad, H: h - 180 - pad})
	if err := p.chart(section.Chart, chartBox); err != nil {
		return err
	}

	textBox := p.layout.Box("text", templateconfig.Box{X: w * 0.66, Y: 180, W: w*0.34 - pad, H: h - 180 - pad})
	p.useFont(p.bodyRole(), "")
	y := textBox.Y + p.text(section.Body, textBox.X, textBox.Y, textBox.W, gg.AlignLeft)
	if section.Image != nil {
		imgBox := templateconfig.Box{X: textBox.X, Y: y + 16, W: textBox.W, H: textBox.Y + textBox.H - y - 16}
		if imgBox.H > 40 {
			if err := p.image(ctx, s.assets, section.Image, imgBox); err != nil {
				return err
			}
		}
	}
	return nil
}

// ChartInsights draws a chart next to its list of findings.
func (s *Set) ChartInsights(ctx context.Context, dc *gg.Context, section *model.Section) error {
	if err := requireHeading(section); err != nil {
		return err
	}
	if section.Chart == nil {
		return fmt.Errorf("chartInsights section %q has no chart", section.Heading)
	}
	p, err := s.painter(dc, model.SectionChartInsights)
	if err != nil {
		return err
	}
	p.background(section.Color)

	pad := p.padding()
	w := float64(dc.Width())
	h := float64(dc.Height())

	p.useFont(p.titleRole(), p.titleColor())
	p.text(section.Heading, pad, pad, w-2*pad, gg.AlignLeft)

	chartBox := p.layout.Box("chart", templateconfig.Box{X: pad, Y: 180, W: w*0.5 - pad, H: h - 180 - pad})
	if err := p.chart(section.Chart, chartBox); err != nil {
		return err
	}

	box := p.layout.Box("insights", templateconfig.Box{X: w * 0.56, Y: 180, W: w*0.44 - pad, H: h - 180 - pad})
	accent := p.accent(p.palette("teal", "00A3A1"))
	y := box.Y
	for _, insight := range section.Insights {
		if y > box.Y+box.H {
			break
		}
		p.fillRect(box.X, y, 6, 56, accent)
		p.useFont("subheading", "")
		y += p.text(insight.Title, box.X+24, y, box.W-24, gg.AlignLeft) + 6
		p.useFont(p.bodyRole(), "")
		y += p.text(insight.Text, box.X+24, y, box.W-24, gg.AlignLeft) + 24
	}
	return nil
}

// Timeline draws events along a horizontal axis.
func (s *Set) Timeline(ctx context.Context, dc *gg.Context, section *model.Section) error {
	if len(section.Events) == 0 {
		return fmt.Errorf("timeline section %q has no events", section.Heading)
	}
	p, err := s.painter(dc, model.SectionTimeline)
	if err != nil {
		return err
	}
	p.background(section.Color)

	pad := p.padding()
	w := float64(dc.Width())
	h := float64(dc.Height())

	p.useFont(p.titleRole(), p.titleColor())
	p.text(section.Heading, pad, pad, w-2*pad, gg.AlignLeft)

	axisY := h * 0.55
	accent := p.accent(p.palette("accent", "F28C28"))
	p.dc.SetColor(colors.ToRGBA(p.palette("lightGray", "E6E9ED")))
	p.dc.SetLineWidth(6)
	p.dc.DrawLine(pad, axisY, w-pad, axisY)
	p.dc.Stroke()

	slot := (w - 2*pad) / float64(len(section.Events))
	for i, ev := range section.Events {
		cx := pad + slot*float64(i) + slot/2
		p.dc.SetColor(colors.ToRGBA(accent))
		p.dc.DrawCircle(cx, axisY, 14)
		p.dc.Fill()

		p.useFont("subheading", accent)
		p.dc.DrawStringAnchored(ev.Date, cx, axisY-40, 0.5, 0)

		// alternate labels above/below to keep neighbours apart
		p.useFont(p.bodyRole(), "")
		top := axisY + 36
		if i%2 == 1 {
			top = axisY + 120
		}
		used := p.text(ev.Title, cx-slot/2+8, top, slot-16, gg.AlignCenter)
		p.useFont("caption", "")
		p.text(ev.Description, cx-slot/2+8, top+used+6, slot-16, gg.AlignCenter)
	}
	return nil
}
