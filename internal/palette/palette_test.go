package palette

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContrastText(t *testing.T) {
	cases := map[string]string{
		"#dbeafe": Black, // light blue fill
		"#ffffff": Black,
		"#000000": White,
		"#0173B2": White,
		"#ECE133": Black,
		"1e3a8a":  White, // no leading '#'
	}
	for in, want := range cases {
		assert.Equal(t, want, ContrastText(in), "input %s", in)
	}
}

func TestContrastTextThreshold(t *testing.T) {
	// 0x80 = 128 -> L = 128/255 = 0.50196, so mid gray is light.
	assert.Equal(t, Black, ContrastText("#808080"))
	// 0x7f = 127 -> L = 0.498, dark.
	assert.Equal(t, White, ContrastText("#7f7f7f"))
}

func TestGetFallsBackToBlue(t *testing.T) {
	assert.Equal(t, Normal[Blue], Normal.Get("purple"))
	assert.Equal(t, ColorblindSafe[Blue], ColorblindSafe.Get(""))
	assert.Equal(t, Normal[Cyan], Normal.Get(Cyan))
}

func TestKeyForFill(t *testing.T) {
	k, ok := Normal.KeyForFill("#fef9c3")
	assert.True(t, ok)
	assert.Equal(t, Yellow, k)

	k, ok = Normal.KeyForFill("#FEF9C3")
	assert.False(t, ok, "reverse lookup is an exact string match")
	assert.Equal(t, Blue, k)
}

func TestColorblindBlue(t *testing.T) {
	assert.Equal(t, Triple{Bg: "#0173B2", Border: "#0173B2", Text: "#ffffff"}, ColorblindSafe.Get(Blue))
}

func TestPalettesShareKeys(t *testing.T) {
	for _, k := range Keys {
		assert.True(t, Normal.Has(k), "normal %s", k)
		assert.True(t, ColorblindSafe.Has(k), "colorblind %s", k)
	}
}

func TestCustom(t *testing.T) {
	assert.Equal(t, Triple{Bg: "#123456", Border: "#123456", Text: White}, Custom("#123456"))
}
