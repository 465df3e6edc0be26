package editor

import (
	"encoding/json"
	"strings"
	"unicode"

	"slidestudio/internal/slide"
)

// ExportDocument 是离线备份用的轻量 JSON 结构，与持久化的设计不同。
type ExportDocument struct {
	Title             string                  `json:"title"`
	Description       string                  `json:"description"`
	TextElements      []slide.TextElement     `json:"textElements"`
	BackgroundColor   string                  `json:"backgroundColor"`
	BackgroundImage   string                  `json:"backgroundImage"`
	AnimationSettings slide.AnimationSettings `json:"animationSettings"`
}

// BuildExport 从设计载荷构造导出文档。
func BuildExport(d slide.Design) ExportDocument {
	elements := d.DesignData.TextElements
	if elements == nil {
		elements = []slide.TextElement{}
	}
	return ExportDocument{
		Title:             d.Title,
		Description:       d.Description,
		TextElements:      elements,
		BackgroundColor:   d.Background.Color,
		BackgroundImage:   d.Background.ImageURL,
		AnimationSettings: d.Animation,
	}
}

// MarshalExport 输出带缩进的导出文件内容。
func MarshalExport(d slide.Design) ([]byte, error) {
	return json.MarshalIndent(BuildExport(d), "", "  ")
}

// ExportFileName 根据标题生成下载文件名。
func ExportFileName(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimRight(b.String(), "-")
	if slug == "" {
		slug = "slide-design"
	}
	return slug + ".json"
}
