package slide

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// TextAlign 是元素的水平对齐方式。
type TextAlign string

const (
	AlignLeft   TextAlign = "left"
	AlignCenter TextAlign = "center"
	AlignRight  TextAlign = "right"
)

func (a TextAlign) Valid() bool {
	switch a {
	case AlignLeft, AlignCenter, AlignRight:
		return true
	}
	return false
}

// StyleKey 枚举元素支持的样式属性，属性面板只能修改这些键。
type StyleKey string

const (
	StyleFontSize   StyleKey = "fontSize"
	StyleColor      StyleKey = "color"
	StyleFontWeight StyleKey = "fontWeight"
	StyleFontStyle  StyleKey = "fontStyle"
	StyleTextAlign  StyleKey = "textAlign"
	StyleTextShadow StyleKey = "textShadow"
)

// StyleKeys 按属性面板的展示顺序列出全部键。
var StyleKeys = []StyleKey{StyleFontSize, StyleColor, StyleFontWeight, StyleFontStyle, StyleTextAlign, StyleTextShadow}

// ParseStyleKey 将外部输入转换为 StyleKey。
func ParseStyleKey(raw string) (StyleKey, error) {
	for _, k := range StyleKeys {
		if string(k) == raw {
			return k, nil
		}
	}
	return "", fmt.Errorf("unsupported style property %q", raw)
}

// Style 是元素的展示属性。
type Style struct {
	FontSize   string    `json:"fontSize,omitempty"`
	Color      string    `json:"color,omitempty"`
	FontWeight string    `json:"fontWeight,omitempty"`
	FontStyle  string    `json:"fontStyle,omitempty"`
	TextAlign  TextAlign `json:"textAlign,omitempty"`
	TextShadow string    `json:"textShadow,omitempty"`
}

var (
	hexColorPattern   = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)
	fontSizePattern   = regexp.MustCompile(`^(\d+(?:\.\d+)?)(rem|em|px|pt)$`)
	textShadowPattern = regexp.MustCompile(`^[a-zA-Z0-9#.,%()\s-]*$`)
)

// IsHexColor 判断是否为 #rgb / #rrggbb / #rrggbbaa。
func IsHexColor(s string) bool {
	return hexColorPattern.MatchString(s)
}

// Get 返回指定键的当前值。
func (s Style) Get(key StyleKey) string {
	switch key {
	case StyleFontSize:
		return s.FontSize
	case StyleColor:
		return s.Color
	case StyleFontWeight:
		return s.FontWeight
	case StyleFontStyle:
		return s.FontStyle
	case StyleTextAlign:
		return string(s.TextAlign)
	case StyleTextShadow:
		return s.TextShadow
	}
	return ""
}

// With 返回设置了单个属性的新样式；值非法时返回错误且不修改原样式。
func (s Style) With(key StyleKey, value string) (Style, error) {
	value = strings.TrimSpace(value)
	if err := validateStyleValue(key, value); err != nil {
		return s, err
	}
	switch key {
	case StyleFontSize:
		s.FontSize = value
	case StyleColor:
		s.Color = value
	case StyleFontWeight:
		s.FontWeight = value
	case StyleFontStyle:
		s.FontStyle = value
	case StyleTextAlign:
		s.TextAlign = TextAlign(value)
	case StyleTextShadow:
		s.TextShadow = value
	default:
		return s, fmt.Errorf("unsupported style property %q", key)
	}
	return s, nil
}

// Validate 校验全部已设置的属性。
func (s Style) Validate() error {
	for _, key := range StyleKeys {
		if err := validateStyleValue(key, s.Get(key)); err != nil {
			return err
		}
	}
	return nil
}

func validateStyleValue(key StyleKey, value string) error {
	if value == "" {
		return nil
	}
	switch key {
	case StyleFontSize:
		if _, err := ParseFontSize(value); err != nil {
			return err
		}
	case StyleColor:
		if !IsHexColor(value) {
			return fmt.Errorf("color %q is not a hex color", value)
		}
	case StyleFontWeight:
		switch value {
		case "normal", "bold", "100", "200", "300", "400", "500", "600", "700", "800", "900":
		default:
			return fmt.Errorf("unsupported font weight %q", value)
		}
	case StyleFontStyle:
		if value != "normal" && value != "italic" {
			return fmt.Errorf("unsupported font style %q", value)
		}
	case StyleTextAlign:
		if !TextAlign(value).Valid() {
			return fmt.Errorf("unsupported text align %q", value)
		}
	case StyleTextShadow:
		if len(value) > 120 || !textShadowPattern.MatchString(value) {
			return fmt.Errorf("unsupported text shadow %q", value)
		}
	default:
		return fmt.Errorf("unsupported style property %q", key)
	}
	return nil
}

// CSS 将样式渲染为内联 CSS 声明，调用方需保证已通过 Validate。
func (s Style) CSS() string {
	var b strings.Builder
	write := func(prop, value string) {
		if value == "" {
			return
		}
		b.WriteString(prop)
		b.WriteByte(':')
		b.WriteString(value)
		b.WriteByte(';')
	}
	write("font-size", s.FontSize)
	write("color", s.Color)
	write("font-weight", s.FontWeight)
	write("font-style", s.FontStyle)
	write("text-align", string(s.TextAlign))
	write("text-shadow", s.TextShadow)
	return b.String()
}

const defaultTextShadow = "2px 2px 4px rgba(0,0,0,0.5)"

// DefaultStyle 返回各元素类型的默认样式。
func DefaultStyle(t ElementType) Style {
	style := Style{
		FontSize:   "1.5rem",
		Color:      "#ffffff",
		FontWeight: "normal",
		FontStyle:  "normal",
		TextAlign:  AlignCenter,
		TextShadow: defaultTextShadow,
	}
	switch t {
	case ElementHeading:
		style.FontSize = "3rem"
		style.FontWeight = "bold"
	case ElementCaption:
		style.FontSize = "1rem"
	}
	return style
}

// FontSize 是带单位的字号。
type FontSize struct {
	Value float64
	Unit  string
}

// 字号缩放的上下限（rem）。
const (
	MinFontSizeRem = 0.5
	MaxFontSizeRem = 5.0
)

// 每种单位对应多少 rem。
var unitToRem = map[string]float64{
	"rem": 1,
	"em":  1,
	"px":  1.0 / 16,
	"pt":  1.0 / 12,
}

// ParseFontSize 解析 "1.5rem"、"24px" 等字号。
func ParseFontSize(raw string) (FontSize, error) {
	m := fontSizePattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return FontSize{}, fmt.Errorf("invalid font size %q", raw)
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return FontSize{}, fmt.Errorf("invalid font size %q: %w", raw, err)
	}
	return FontSize{Value: v, Unit: m[2]}, nil
}

func (f FontSize) String() string {
	return strconv.FormatFloat(math.Round(f.Value*1000)/1000, 'f', -1, 64) + f.Unit
}

// Rem 以 rem 表示字号。
func (f FontSize) Rem() float64 {
	return f.Value * unitToRem[f.Unit]
}

// Scale 按比例缩放字号，并按单位换算后限制在 [0.5rem, 5rem]。
func (f FontSize) Scale(factor float64) FontSize {
	perRem := unitToRem[f.Unit]
	if perRem == 0 || factor != factor || factor <= 0 {
		return f
	}
	lo, hi := MinFontSizeRem/perRem, MaxFontSizeRem/perRem
	v := f.Value * factor
	switch {
	case v < lo:
		v = lo
	case v > hi:
		v = hi
	}
	return FontSize{Value: v, Unit: f.Unit}
}
