package templateconfig

import (
	_ "embed"
	"fmt"
	"os"
)

//go:embed default.yaml
var defaultDocument []byte

// Layout keys every template is expected to define.
const (
	LayoutTitle           = "title"
	LayoutTableOfContents = "tableOfContents"
	LayoutSectionDivider  = "sectionDivider"
	LayoutChartSection    = "chartSection"
	LayoutInsightsSection = "insightsSection"
	LayoutTimelineSection = "timelineSection"
)

// RequiredLayoutKeys are checked after load; a missing key only produces a warning.
var RequiredLayoutKeys = []string{
	LayoutTitle,
	LayoutTableOfContents,
	LayoutSectionDivider,
	LayoutChartSection,
	LayoutInsightsSection,
	LayoutTimelineSection,
}

// Config is the parsed template document.
type Config struct {
	Colors     map[string]string  `yaml:"colors" json:"colors"`
	Fonts      map[string]Font    `yaml:"fonts" json:"fonts"`
	SlideTypes map[string]*Layout `yaml:"slideTypes" json:"slide_types"`

	// MissingLayouts lists required layout keys absent from SlideTypes.
	MissingLayouts []string `yaml:"-" json:"missing_layouts,omitempty"`
}

// Font describes a typographic role.
type Font struct {
	Family string  `yaml:"family" json:"family"`
	Size   float64 `yaml:"size" json:"size"`
	Bold   bool    `yaml:"bold" json:"bold"`
	Color  string  `yaml:"color" json:"color"`
}

// Layout holds per-slide-type layout parameters.
type Layout struct {
	Background  string         `yaml:"background" json:"background"`
	Padding     float64        `yaml:"padding" json:"padding"`
	TitleFont   string         `yaml:"titleFont" json:"title_font"`
	BodyFont    string         `yaml:"bodyFont" json:"body_font"`
	TitleColor  string         `yaml:"titleColor" json:"title_color"`
	AccentColor string         `yaml:"accentColor" json:"accent_color"`
	Boxes       map[string]Box `yaml:"boxes" json:"boxes,omitempty"`
}

// Box is a rectangle in slide pixels.
type Box struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
	W float64 `yaml:"w" json:"w"`
	H float64 `yaml:"h" json:"h"`
}

// Box returns the named box or def when the layout does not define it.
func (l *Layout) Box(name string, def Box) Box {
	if l == nil {
		return def
	}
	if b, ok := l.Boxes[name]; ok && b.W > 0 && b.H > 0 {
		return b
	}
	return def
}

// Source supplies the raw template document.
type Source interface {
	Name() string
	Read() ([]byte, error)
}

type fileSource string

// FileSource reads the document from path on every load.
func FileSource(path string) Source { return fileSource(path) }

func (f fileSource) Name() string { return string(f) }

func (f fileSource) Read() ([]byte, error) { return os.ReadFile(string(f)) }

type bytesSource struct {
	name string
	data []byte
}

// BytesSource serves a fixed in-memory document.
func BytesSource(name string, data []byte) Source {
	return &bytesSource{name: name, data: data}
}

func (b *bytesSource) Name() string { return b.name }

func (b *bytesSource) Read() ([]byte, error) {
	if b.data == nil {
		return nil, os.ErrNotExist
	}
	return b.data, nil
}

// DefaultSource serves the template embedded in the binary.
func DefaultSource() Source {
	return BytesSource("embedded:default.yaml", defaultDocument)
}

// LoadError is returned when the template cannot be read or lacks a
// required top-level section.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("template config %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
