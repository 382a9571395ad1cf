package slides

import (
	"context"
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/fogleman/gg"
	xdraw "golang.org/x/image/draw"

	"github.com/yourusername/report-slides-app/pkg/chartdata"
	"github.com/yourusername/report-slides-app/pkg/colors"
	"github.com/yourusername/report-slides-app/pkg/model"
	"github.com/yourusername/report-slides-app/pkg/templateconfig"
)

const (
	defaultFontSize = 22
	lineSpacing     = 1.3
)

// painter bundles the drawing surface with the template it draws against.
type painter struct {
	dc     *gg.Context
	cfg    *templateconfig.Config
	layout *templateconfig.Layout
	fonts  *fontCache
}

func (p *painter) palette(name, fallback string) string {
	return colors.Normalize(p.cfg.Colors[name], fallback)
}

func (p *painter) textColor() string {
	return p.palette("text", "1A1A1A")
}

func (p *painter) font(role string) templateconfig.Font {
	if f, ok := p.cfg.Fonts[role]; ok {
		return f
	}
	return p.cfg.Fonts["body"]
}

// useFont selects the face for role. A non-empty colorToken overrides the
// role's own color.
func (p *painter) useFont(role, colorToken string) {
	f := p.font(role)
	p.dc.SetFontFace(p.fonts.face(f.Bold, f.Size))
	token := colorToken
	if token == "" {
		token = f.Color
	}
	p.dc.SetColor(colors.ToRGBA(colors.Normalize(token, p.textColor())))
}

func (p *painter) titleRole() string {
	if p.layout != nil && p.layout.TitleFont != "" {
		return p.layout.TitleFont
	}
	return "heading"
}

func (p *painter) bodyRole() string {
	if p.layout != nil && p.layout.BodyFont != "" {
		return p.layout.BodyFont
	}
	return "body"
}

func (p *painter) padding() float64 {
	if p.layout != nil && p.layout.Padding > 0 {
		return p.layout.Padding
	}
	return 64
}

func (p *painter) accent(fallback string) string {
	if p.layout != nil && p.layout.AccentColor != "" {
		return colors.Normalize(p.layout.AccentColor, fallback)
	}
	return fallback
}

func (p *painter) titleColor() string {
	if p.layout != nil {
		return p.layout.TitleColor
	}
	return ""
}

// background fills the whole slide. token wins over the layout background.
func (p *painter) background(token string) {
	bg := p.palette("background", "FFFFFF")
	if p.layout != nil && p.layout.Background != "" {
		bg = colors.Normalize(p.layout.Background, bg)
	}
	if token != "" {
		bg = colors.Normalize(token, bg)
	}
	p.fillRect(0, 0, float64(p.dc.Width()), float64(p.dc.Height()), bg)
}

func (p *painter) fillRect(x, y, w, h float64, hex string) {
	p.dc.SetColor(colors.ToRGBA(hex))
	p.dc.DrawRectangle(x, y, w, h)
	p.dc.Fill()
}

// text draws wrapped text with its top edge at y and returns the height used.
func (p *painter) text(s string, x, y, width float64, align gg.Align) float64 {
	if strings.TrimSpace(s) == "" {
		return 0
	}
	lines := p.dc.WordWrap(s, width)
	p.dc.DrawStringWrapped(s, x, y, 0, 0, width, lineSpacing, align)
	n := float64(len(lines))
	return n*p.dc.FontHeight()*lineSpacing - (lineSpacing-1)*p.dc.FontHeight()
}

// image fetches url and draws it scaled to fit inside box, centered.
func (p *painter) image(ctx context.Context, assets AssetFetcher, ref *model.ImageRef, box templateconfig.Box) error {
	if ref == nil || ref.URL == "" || assets == nil {
		return nil
	}
	src, err := assets.Fetch(ctx, ref.URL)
	if err != nil {
		return err
	}
	b := src.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return fmt.Errorf("image %q is empty", ref.URL)
	}
	scale := math.Min(box.W/float64(b.Dx()), box.H/float64(b.Dy()))
	w := int(math.Max(1, float64(b.Dx())*scale))
	h := int(math.Max(1, float64(b.Dy())*scale))

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)

	x := int(box.X + (box.W-float64(w))/2)
	y := int(box.Y + (box.H-float64(h))/2)
	p.dc.DrawImage(dst, x, y)
	return nil
}

func (p *painter) seriesColors() []string {
	return []string{
		p.palette("primary", "1F4E79"),
		p.palette("accent", "F28C28"),
		p.palette("teal", "00A3A1"),
		p.palette("secondary", "5B2C6F"),
		p.palette("muted", "5F6B7A"),
	}
}

// chart draws the chart configured on a section inside box.
func (p *painter) chart(chart *model.Chart, box templateconfig.Box) error {
	points, err := chartdata.Series(chart)
	if err != nil {
		return err
	}

	top := box.Y
	if chart.Title != "" {
		p.useFont("caption", "")
		top += p.text(chart.Title, box.X, box.Y, box.W, gg.AlignLeft) + 12
	}
	area := templateconfig.Box{X: box.X, Y: top, W: box.W, H: box.H - (top - box.Y)}
	if chart.Source != "" {
		area.H -= 28
		p.useFont("caption", "")
		p.dc.DrawStringAnchored("Source: "+chart.Source, box.X, box.Y+box.H, 0, 0)
	}

	switch strings.ToLower(chart.Kind) {
	case "", "bar":
		p.barChart(points, area, chart.Unit)
	case "line":
		p.lineChart(points, area)
	case "pie":
		p.pieChart(points, area)
	default:
		return fmt.Errorf("unsupported chart kind %q", chart.Kind)
	}
	return nil
}

func (p *painter) barChart(points []model.DataPoint, box templateconfig.Box, unit string) {
	max := chartdata.MaxValue(points)
	if max == 0 {
		max = 1
	}
	const labelBand = 36.0
	plotH := box.H - labelBand - 28
	slot := box.W / float64(len(points))
	barW := slot * 0.6
	palette := p.seriesColors()

	p.dc.SetColor(colors.ToRGBA(p.palette("lightGray", "E6E9ED")))
	p.dc.SetLineWidth(2)
	baseY := box.Y + 28 + plotH
	p.dc.DrawLine(box.X, baseY, box.X+box.W, baseY)
	p.dc.Stroke()

	for i, pt := range points {
		h := math.Max(0, pt.Value) / max * plotH
		x := box.X + float64(i)*slot + (slot-barW)/2
		p.fillRect(x, baseY-h, barW, h, palette[0])

		p.useFont("caption", "")
		p.dc.DrawStringAnchored(chartdata.FormatNumber(pt.Value)+unit, x+barW/2, baseY-h-6, 0.5, 0)
		p.dc.DrawStringAnchored(pt.Label, x+barW/2, baseY+8, 0.5, 1)
	}
}

func (p *painter) lineChart(points []model.DataPoint, box templateconfig.Box) {
	max := chartdata.MaxValue(points)
	if max == 0 {
		max = 1
	}
	plotTop := box.Y + 28
	plotH := box.H - 64
	step := box.W
	if len(points) > 1 {
		step = box.W / float64(len(points)-1)
	}
	pos := func(i int, v float64) (float64, float64) {
		x := box.X + float64(i)*step
		if len(points) == 1 {
			x = box.X + box.W/2
		}
		return x, plotTop + plotH - math.Max(0, v)/max*plotH
	}

	p.dc.SetColor(colors.ToRGBA(p.palette("primary", "1F4E79")))
	p.dc.SetLineWidth(4)
	for i, pt := range points {
		x, y := pos(i, pt.Value)
		if i == 0 {
			p.dc.MoveTo(x, y)
		} else {
			p.dc.LineTo(x, y)
		}
	}
	p.dc.Stroke()

	for i, pt := range points {
		x, y := pos(i, pt.Value)
		p.dc.SetColor(colors.ToRGBA(p.palette("accent", "F28C28")))
		p.dc.DrawCircle(x, y, 6)
		p.dc.Fill()
		p.useFont("caption", "")
		p.dc.DrawStringAnchored(pt.Label, x, plotTop+plotH+10, 0.5, 1)
	}
}

func (p *painter) pieChart(points []model.DataPoint, box templateconfig.Box) {
	total := 0.0
	for _, pt := range points {
		total += math.Max(0, pt.Value)
	}
	if total == 0 {
		total = 1
	}
	r := math.Min(box.W*0.6, box.H) / 2
	cx, cy := box.X+r, box.Y+box.H/2
	palette := p.seriesColors()

	angle := -math.Pi / 2
	for i, pt := range points {
		sweep := math.Max(0, pt.Value) / total * 2 * math.Pi
		p.dc.SetColor(colors.ToRGBA(palette[i%len(palette)]))
		p.dc.MoveTo(cx, cy)
		p.dc.DrawArc(cx, cy, r, angle, angle+sweep)
		p.dc.ClosePath()
		p.dc.Fill()
		angle += sweep

		ly := box.Y + float64(i)*34 + 20
		lx := cx + r + 32
		p.fillRect(lx, ly-10, 20, 20, palette[i%len(palette)])
		p.useFont("caption", "")
		pct := math.Max(0, pt.Value) / total * 100
		p.dc.DrawStringAnchored(fmt.Sprintf("%s (%.0f%%)", pt.Label, pct), lx+30, ly, 0, 0.35)
	}
}
