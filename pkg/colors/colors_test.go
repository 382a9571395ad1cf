package colors

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yourusername/report-slides-app/pkg/templateconfig"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		fallback string
		want     string
	}{
		{"six digits with hash", "#1f4e79", "000000", "1F4E79"},
		{"six digits bare", "a8e6cf", "000000", "A8E6CF"},
		{"three digits with hash", "#abc", "000000", "AABBCC"},
		{"three digits bare", "f0a", "000000", "FF00AA"},
		{"surrounding space", "  #ABCDEF ", "000000", "ABCDEF"},
		{"empty", "", "123456", "123456"},
		{"blank", "   ", "123456", "123456"},
		{"theme name", "Blue", "000000", "1F4E79"},
		{"web color", "NAVY", "000000", "000080"},
		{"brand alias", "brand-teal", "000000", "00A3A1"},
		{"unknown name", "chartreuse-ish", "654321", "654321"},
		{"four digits", "#abcd", "654321", "654321"},
		{"not hex", "#ggg", "654321", "654321"},
		{"double hash", "##abc", "654321", "654321"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.token, tt.fallback))
		})
	}
}

func TestNormalizeDefault(t *testing.T) {
	assert.Equal(t, DefaultColor, NormalizeDefault(""))
	assert.Equal(t, DefaultColor, NormalizeDefault("not-a-color"))
	assert.Equal(t, "FFFFFF", NormalizeDefault("#fff"))
}

func TestNormalizeIsTotal(t *testing.T) {
	inputs := []string{"#", "#12", "\x00", "🎨", "rgb(1,2,3)", "#1234567", "0x123456"}
	for _, in := range inputs {
		assert.NotPanics(t, func() {
			got := Normalize(in, "FEDCBA")
			assert.Len(t, got, 6)
		})
	}
}

func TestThemeColor(t *testing.T) {
	cfg := &templateconfig.Config{Colors: map[string]string{
		"primary":   "111111",
		"teal":      "222222",
		"secondary": "333333",
		"accent":    "444444",
		"lightGray": "555555",
	}}

	assert.Equal(t, "111111", ThemeColor("blue", cfg))
	assert.Equal(t, "222222", ThemeColor("green", cfg))
	assert.Equal(t, "333333", ThemeColor("purple", cfg))
	assert.Equal(t, "444444", ThemeColor("Orange", cfg))
	assert.Equal(t, "555555", ThemeColor("grey", cfg))
	assert.Equal(t, "FFFFFF", ThemeColor("none", cfg))
	assert.Equal(t, MintColor, ThemeColor("mint", cfg))
	assert.Equal(t, "111111", ThemeColor("sparkly", cfg))
	assert.Equal(t, "111111", ThemeColor("", cfg))

	cfg.Colors["white"] = "FAFAFA"
	assert.Equal(t, "FAFAFA", ThemeColor("none", cfg))

	delete(cfg.Colors, "teal")
	assert.Equal(t, "111111", ThemeColor("green", cfg), "missing slot falls back to primary")
}

func TestToRGBA(t *testing.T) {
	assert.Equal(t, color.RGBA{R: 0x1F, G: 0x4E, B: 0x79, A: 0xFF}, ToRGBA("#1f4e79"))
	assert.Equal(t, color.RGBA{R: 0x0B, G: 0x2D, B: 0x4F, A: 0xFF}, ToRGBA("???"))
}
