// Package palette maps symbolic course color keys to concrete fill, border
// and text colors, and picks a readable text color for arbitrary fills.
package palette

import (
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Key is a symbolic palette index assigned per course.
type Key string

const (
	Blue   Key = "blue"
	Green  Key = "green"
	Yellow Key = "yellow"
	Cyan   Key = "cyan"
	Gray   Key = "gray"
)

// DefaultKey is used whenever a key is missing or unknown.
const DefaultKey = Blue

// Keys lists the palette keys in their canonical order. Reverse lookups walk
// this order so the first matching key wins.
var Keys = []Key{Blue, Green, Yellow, Cyan, Gray}

const (
	White = "#ffffff"
	Black = "#000000"
)

// Triple is a concrete set of colors for one rendered course.
type Triple struct {
	Bg     string `json:"bg" yaml:"bg"`
	Border string `json:"border" yaml:"border"`
	Text   string `json:"text" yaml:"text"`
}

// Palette maps keys to triples.
type Palette map[Key]Triple

// Normal is the default light palette.
var Normal = Palette{
	Blue:   {Bg: "#dbeafe", Border: "#3b82f6", Text: "#1e3a8a"},
	Green:  {Bg: "#dcfce7", Border: "#22c55e", Text: "#14532d"},
	Yellow: {Bg: "#fef9c3", Border: "#facc15", Text: "#854d0e"},
	Cyan:   {Bg: "#cffafe", Border: "#06b6d4", Text: "#164e63"},
	Gray:   {Bg: "#f3f4f6", Border: "#9ca3af", Text: "#374151"},
}

// ColorblindSafe keeps courses distinguishable under protanopia,
// deuteranopia and tritanopia (Okabe-Ito derived).
var ColorblindSafe = Palette{
	Blue:   {Bg: "#0173B2", Border: "#0173B2", Text: White}, // blue
	Green:  {Bg: "#DE8F05", Border: "#DE8F05", Text: White}, // orange
	Yellow: {Bg: "#CC78BC", Border: "#CC78BC", Text: White}, // magenta
	Cyan:   {Bg: "#029E73", Border: "#029E73", Text: White}, // green
	Gray:   {Bg: "#ECE133", Border: "#ECE133", Text: Black}, // yellow
}

// Has reports whether k is a key of p.
func (p Palette) Has(k Key) bool {
	_, ok := p[k]
	return ok
}

// Get returns the triple for k, or the DefaultKey triple when k is unknown.
func (p Palette) Get(k Key) Triple {
	if t, ok := p[k]; ok {
		return t
	}
	return p[DefaultKey]
}

// KeyForFill returns the first key whose background equals fill exactly.
func (p Palette) KeyForFill(fill string) (Key, bool) {
	for _, k := range Keys {
		if t, ok := p[k]; ok && t.Bg == fill {
			return k, true
		}
	}
	return DefaultKey, false
}

// ContrastText returns white for dark fills and black for light ones, using
// perceived luminance L = (0.299 R + 0.587 G + 0.114 B) / 255.
// The leading '#' is optional. Unparseable input is treated as a dark fill.
func ContrastText(hex string) string {
	if !strings.HasPrefix(hex, "#") {
		hex = "#" + hex
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return White
	}
	// go-colorful already scales channels into [0, 1].
	luminance := 0.299*c.R + 0.587*c.G + 0.114*c.B
	if luminance < 0.5 {
		return White
	}
	return Black
}

// Custom builds the triple used for a user-chosen fill color.
func Custom(hex string) Triple {
	return Triple{Bg: hex, Border: hex, Text: ContrastText(hex)}
}
