package slide

// TextArea 是模板中的占位文本，结构与 TextElement 相同，只是用 DefaultText 作为初始内容。
type TextArea struct {
	ID          string      `json:"id"`
	Type        ElementType `json:"type"`
	DefaultText string      `json:"defaultText"`
	Position    Position    `json:"position"`
	Style       Style       `json:"style"`
}

// TemplateData 对应 slide_templates.template_data。
type TemplateData struct {
	TextAreas []TextArea `json:"textAreas"`
}

// Region 是画布上的矩形区域，单位均为百分比。
type Region struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains 判断点是否落在区域内（含边界）。
func (r Region) Contains(p Position) bool {
	return p.X >= r.X && p.X <= r.X+r.Width && p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// AreaConstraints 约束可设计区域内允许放置的内容。
type AreaConstraints struct {
	MaxElements  int           `json:"maxElements,omitempty"`
	AllowedTypes []ElementType `json:"allowedTypes,omitempty"`
}

// DesignableArea 标记布局中可供设计的区域，其余部分保留给站点其它内容。
type DesignableArea struct {
	Region
	Constraints AreaConstraints `json:"constraints"`
}

// DefaultStyles 在设计缺省时提供背景与阴影。
type DefaultStyles struct {
	BackgroundColor string `json:"backgroundColor,omitempty"`
	TextShadow      string `json:"textShadow,omitempty"`
}

// Template 是只读的起始布局（slide_templates）。
type Template struct {
	ID              uint             `json:"id"`
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	LayoutType      LayoutType       `json:"layout_type"`
	Data            TemplateData     `json:"template_data"`
	DesignableAreas []DesignableArea `json:"designable_areas"`
	DefaultStyles   DefaultStyles    `json:"default_styles"`
}
