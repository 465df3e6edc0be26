package slide

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFontSize(t *testing.T) {
	cases := []struct {
		raw   string
		value float64
		unit  string
		ok    bool
	}{
		{"1.5rem", 1.5, "rem", true},
		{"24px", 24, "px", true},
		{" 12pt ", 12, "pt", true},
		{"2em", 2, "em", true},
		{"large", 0, "", false},
		{"-1rem", 0, "", false},
		{"10vh", 0, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			got, err := ParseFontSize(tc.raw)
			if !tc.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.value, got.Value)
			assert.Equal(t, tc.unit, got.Unit)
		})
	}
}

func TestFontSizeScaleClampsPerUnit(t *testing.T) {
	one := FontSize{Value: 1, Unit: "rem"}
	assert.Equal(t, "1.5rem", one.Scale(1.5).String())
	assert.Equal(t, "5rem", one.Scale(10).String())
	assert.Equal(t, "0.5rem", one.Scale(0.1).String())

	px := FontSize{Value: 16, Unit: "px"}
	assert.Equal(t, "80px", px.Scale(100).String())
	assert.Equal(t, "8px", px.Scale(0.01).String())

	assert.Equal(t, one, one.Scale(0), "non-positive factor is ignored")
}

func TestStyleWithRejectsInvalidValues(t *testing.T) {
	base := DefaultStyle(ElementParagraph)

	next, err := base.With(StyleColor, "#ff0000")
	require.NoError(t, err)
	assert.Equal(t, "#ff0000", next.Color)
	assert.Equal(t, "#ffffff", base.Color, "original style is untouched")

	_, err = base.With(StyleColor, "red")
	assert.Error(t, err)
	_, err = base.With(StyleTextAlign, "justify")
	assert.Error(t, err)
	_, err = base.With(StyleTextShadow, "0 0 2px red; background:url(x)")
	assert.Error(t, err)
	_, err = base.With(StyleKey("letterSpacing"), "2px")
	assert.Error(t, err)
}

func TestParseStyleKey(t *testing.T) {
	key, err := ParseStyleKey("fontWeight")
	require.NoError(t, err)
	assert.Equal(t, StyleFontWeight, key)

	_, err = ParseStyleKey("fontweight")
	assert.Error(t, err)
}

func TestDefaultStylesAreValid(t *testing.T) {
	for _, typ := range []ElementType{ElementHeading, ElementParagraph, ElementCaption} {
		assert.NoError(t, DefaultStyle(typ).Validate(), typ)
	}
	assert.Equal(t, "3rem", DefaultStyle(ElementHeading).FontSize)
	assert.Equal(t, "1rem", DefaultStyle(ElementCaption).FontSize)
}

func TestStyleCSS(t *testing.T) {
	css := Style{FontSize: "2rem", Color: "#000", TextAlign: AlignLeft}.CSS()
	assert.Equal(t, "font-size:2rem;color:#000;text-align:left;", css)
}

func TestPositionClamp(t *testing.T) {
	assert.Equal(t, Position{X: 0, Y: 100}, Position{X: -12, Y: 140}.Clamp())
	assert.Equal(t, Position{X: 42.5, Y: 0}, Position{X: 42.5, Y: 0}.Clamp())
}

func TestBackgroundEffective(t *testing.T) {
	id := uint(3)
	assert.Equal(t, BackgroundColor, Background{Color: "#fff"}.Effective())
	assert.Equal(t, BackgroundImage, Background{Color: "#fff", ImageURL: "https://x/y.png"}.Effective())
	assert.Equal(t, BackgroundMedia, Background{ImageURL: "https://x/y.png", MediaID: &id}.Effective())
}

func TestDesignValidate(t *testing.T) {
	d := Design{
		Title:      "Spring Concert",
		LayoutType: LayoutFull,
		Animation:  DefaultAnimation(),
		DesignData: DesignData{TextElements: []TextElement{
			{ID: "a", Type: ElementHeading, Text: "Hi", Style: DefaultStyle(ElementHeading)},
		}},
	}
	require.NoError(t, d.Validate())

	dup := d
	dup.DesignData.TextElements = append([]TextElement{}, d.DesignData.TextElements[0], d.DesignData.TextElements[0])
	assert.ErrorIs(t, dup.Validate(), ErrInvalidDesign)

	slow := d
	slow.Animation.Duration = 100
	assert.ErrorIs(t, slow.Validate(), ErrInvalidDesign)
}
