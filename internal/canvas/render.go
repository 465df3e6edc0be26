package canvas

import (
	"fmt"
	"html/template"
	"io"
	"net/url"
	"path"
	"strconv"
	"strings"

	"slidestudio/internal/slide"
)

// Options 控制一次渲染。BackgroundURL 由调用方解析（如 background_media_id 对应的媒体地址），
// 非空时覆盖设计自带的背景图片。
type Options struct {
	Viewport      Viewport
	BackgroundURL string
	Reserved      []slide.Region
}

// Placed 是元素在当前缩放下的像素中心点。
type Placed struct {
	ID      string
	CenterX float64
	CenterY float64
}

// Frame 是设计在画布上的投影，供测试与截图视口使用。
type Frame struct {
	Width    float64
	Height   float64
	Elements []Placed
}

// Layout 计算每个元素的像素位置。坐标是百分比，因此任意缩放下相对位置不变。
func Layout(d slide.Design, vp Viewport) Frame {
	w, h := vp.Size()
	frame := Frame{Width: w, Height: h, Elements: make([]Placed, 0, len(d.DesignData.TextElements))}
	for _, el := range d.DesignData.TextElements {
		p := el.Position.Clamp()
		frame.Elements = append(frame.Elements, Placed{
			ID:      el.ID,
			CenterX: p.X / 100 * w,
			CenterY: p.Y / 100 * h,
		})
	}
	return frame
}

type elementView struct {
	ID    string
	Type  string
	Text  string
	Style template.CSS
}

type regionView struct {
	Style template.CSS
}

type pageView struct {
	Title             string
	Width             string
	Height            string
	RootFontPx        string
	BackgroundCSS     template.CSS
	BackgroundURL     string
	BackgroundIsVideo bool
	Grid              bool
	GridCellPx        int
	Elements          []elementView
	Reserved          []regionView
}

var pageTemplate = template.Must(template.New("slide").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>{{.Title}}</title>
<style>
html { font-size: {{.RootFontPx}}px; }
body { margin: 0; padding: 0; }
#slide-canvas { position: relative; overflow: hidden; width: {{.Width}}px; height: {{.Height}}px; font-family: sans-serif; }
#slide-canvas .bg-media { position: absolute; inset: 0; width: 100%; height: 100%; object-fit: cover; }
#slide-canvas .grid { position: absolute; inset: 0; pointer-events: none; background-size: {{.GridCellPx}}px {{.GridCellPx}}px; background-image: linear-gradient(to right, rgba(255,255,255,0.15) 1px, transparent 1px), linear-gradient(to bottom, rgba(255,255,255,0.15) 1px, transparent 1px); }
#slide-canvas .reserved { position: absolute; background: repeating-linear-gradient(45deg, rgba(0,0,0,0.35), rgba(0,0,0,0.35) 10px, rgba(0,0,0,0.2) 10px, rgba(0,0,0,0.2) 20px); }
#slide-canvas .el { position: absolute; transform: translate(-50%, -50%); white-space: pre-wrap; }
</style>
</head>
<body>
<div id="slide-canvas" style="{{.BackgroundCSS}}">
{{- if .BackgroundURL}}
{{- if .BackgroundIsVideo}}
<video class="bg-media" src="{{.BackgroundURL}}" autoplay muted loop playsinline></video>
{{- else}}
<img class="bg-media" src="{{.BackgroundURL}}" alt="">
{{- end}}
{{- end}}
{{- range .Reserved}}
<div class="reserved" style="{{.Style}}"></div>
{{- end}}
{{- range .Elements}}
<div class="el el-{{.Type}}" data-id="{{.ID}}" style="{{.Style}}">{{.Text}}</div>
{{- end}}
{{- if .Grid}}
<div class="grid"></div>
{{- end}}
</div>
<div id="render-ready"></div>
</body>
</html>
`))

var videoExtensions = map[string]bool{".mp4": true, ".webm": true, ".ogg": true, ".mov": true}

// IsVideoURL 根据扩展名判断背景是否为视频。
func IsVideoURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return videoExtensions[strings.ToLower(path.Ext(u.Path))]
}

func formatPx(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func percentCSS(prop string, v float64) string {
	return fmt.Sprintf("%s:%s%%;", prop, strconv.FormatFloat(v, 'f', -1, 64))
}

// Render 输出设计的只读 HTML 预览，编辑、预览与缩略图共用同一份布局。
func Render(w io.Writer, d slide.Design, opts Options) error {
	vp := opts.Viewport.Normalize()
	width, height := vp.Size()

	bgColor := strings.TrimSpace(d.Background.Color)
	if !slide.IsHexColor(bgColor) {
		bgColor = slide.DefaultBackgroundColor
	}
	bgURL := strings.TrimSpace(opts.BackgroundURL)
	if bgURL == "" {
		bgURL = strings.TrimSpace(d.Background.ImageURL)
	}

	view := pageView{
		Title:             d.Title,
		Width:             formatPx(width),
		Height:            formatPx(height),
		RootFontPx:        formatPx(16 * vp.Scale()),
		BackgroundCSS:     template.CSS("background-color:" + bgColor + ";"),
		BackgroundURL:     bgURL,
		BackgroundIsVideo: bgURL != "" && IsVideoURL(bgURL),
		Grid:              vp.Grid,
		GridCellPx:        GridCellPx,
	}

	for _, r := range opts.Reserved {
		view.Reserved = append(view.Reserved, regionView{Style: template.CSS(
			percentCSS("left", r.X) + percentCSS("top", r.Y) + percentCSS("width", r.Width) + percentCSS("height", r.Height),
		)})
	}

	for _, el := range d.DesignData.TextElements {
		style := el.Style
		if err := style.Validate(); err != nil {
			return fmt.Errorf("element %s: %w", el.ID, err)
		}
		p := el.Position.Clamp()
		view.Elements = append(view.Elements, elementView{
			ID:    el.ID,
			Type:  string(el.Type),
			Text:  el.Text,
			Style: template.CSS(percentCSS("left", p.X) + percentCSS("top", p.Y) + style.CSS()),
		})
	}

	if err := pageTemplate.Execute(w, view); err != nil {
		return fmt.Errorf("render slide: %w", err)
	}
	return nil
}
