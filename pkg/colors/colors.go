// Package colors turns loosely formatted color tokens from report documents
// into canonical 6-digit uppercase hex strings.
package colors

import (
	"image/color"
	"regexp"
	"strconv"
	"strings"

	"github.com/yourusername/report-slides-app/pkg/templateconfig"
)

// DefaultColor is the brand navy used when nothing better is known.
const DefaultColor = "0B2D4F"

// MintColor is pinned rather than read from the template configuration.
const MintColor = "A8E6CF"

var (
	hex6 = regexp.MustCompile(`^#?([0-9a-fA-F]{6})$`)
	hex3 = regexp.MustCompile(`^#?([0-9a-fA-F]{3})$`)
)

// named maps lowercase symbolic names to canonical hex.
var named = map[string]string{
	// theme names
	"blue":   "1F4E79",
	"green":  "2E8B57",
	"teal":   "008080",
	"orange": "F28C28",
	"purple": "5B2C6F",
	"mint":   MintColor,
	"none":   "FFFFFF",

	// web colors
	"black":     "000000",
	"white":     "FFFFFF",
	"red":       "FF0000",
	"lime":      "00FF00",
	"yellow":    "FFFF00",
	"cyan":      "00FFFF",
	"aqua":      "00FFFF",
	"magenta":   "FF00FF",
	"fuchsia":   "FF00FF",
	"silver":    "C0C0C0",
	"gray":      "808080",
	"grey":      "808080",
	"lightgray": "D3D3D3",
	"lightgrey": "D3D3D3",
	"darkgray":  "A9A9A9",
	"darkgrey":  "A9A9A9",
	"maroon":    "800000",
	"olive":     "808000",
	"navy":      "000080",
	"gold":      "FFD700",
	"pink":      "FFC0CB",
	"brown":     "A52A2A",
	"coral":     "FF7F50",
	"salmon":    "FA8072",
	"indigo":    "4B0082",
	"violet":    "EE82EE",
	"beige":     "F5F5DC",
	"ivory":     "FFFFF0",
	"tan":       "D2B48C",

	// brand aliases
	"brand":        DefaultColor,
	"brand-navy":   DefaultColor,
	"brand-blue":   "1F4E79",
	"brand-teal":   "00A3A1",
	"brand-orange": "F28C28",
	"brand-gray":   "5F6B7A",
	"brand-grey":   "5F6B7A",
}

// Normalize resolves token to a 6-digit uppercase hex string without a leading '#'.
// Empty or unrecognised tokens resolve to fallback. It never fails.
func Normalize(token, fallback string) string {
	token = strings.TrimSpace(token)
	if token == "" {
		return fallback
	}
	if m := hex6.FindStringSubmatch(token); m != nil {
		return strings.ToUpper(m[1])
	}
	if m := hex3.FindStringSubmatch(token); m != nil {
		d := m[1]
		return strings.ToUpper(string([]byte{d[0], d[0], d[1], d[1], d[2], d[2]}))
	}
	if hex, ok := named[strings.ToLower(token)]; ok {
		return hex
	}
	return fallback
}

// NormalizeDefault is Normalize with DefaultColor as fallback.
func NormalizeDefault(token string) string {
	return Normalize(token, DefaultColor)
}

// ThemeColor maps a semantic theme name onto the template palette.
// Unknown names resolve to the primary color.
func ThemeColor(themeName string, cfg *templateconfig.Config) string {
	pick := func(key, fallback string) string {
		if v, ok := cfg.Colors[key]; ok && v != "" {
			return v
		}
		return fallback
	}
	primary := cfg.Colors["primary"]

	switch strings.ToLower(strings.TrimSpace(themeName)) {
	case "blue":
		return primary
	case "green":
		return pick("teal", primary)
	case "purple":
		return pick("secondary", primary)
	case "orange":
		return pick("accent", primary)
	case "grey", "gray":
		return pick("lightGray", primary)
	case "none":
		return pick("white", "FFFFFF")
	case "mint":
		return MintColor
	default:
		return primary
	}
}

// ToRGBA converts a color token to an opaque RGBA value, using DefaultColor
// for anything unparseable.
func ToRGBA(token string) color.RGBA {
	hex := NormalizeDefault(token)
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		v, _ = strconv.ParseUint(DefaultColor, 16, 32)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}
