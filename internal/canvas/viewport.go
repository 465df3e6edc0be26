package canvas

// 画布基准尺寸（16:9），缩放以此为 100%。
const (
	BaseWidth  = 1280
	BaseHeight = 720

	GridCellPx  = 20
	MinZoom     = 50
	MaxZoom     = 200
	ZoomStep    = 10
	DefaultZoom = 100
)

// Viewport 是渲染器唯一持有的状态：缩放百分比与网格开关。
type Viewport struct {
	Zoom int  `json:"zoom"`
	Grid bool `json:"grid"`
}

func DefaultViewport() Viewport {
	return Viewport{Zoom: DefaultZoom}
}

// Normalize 将缩放限制在 50–200 并对齐到 10% 步进；零值视为 100%。
func (v Viewport) Normalize() Viewport {
	if v.Zoom == 0 {
		v.Zoom = DefaultZoom
	}
	switch {
	case v.Zoom < MinZoom:
		v.Zoom = MinZoom
	case v.Zoom > MaxZoom:
		v.Zoom = MaxZoom
	}
	v.Zoom = (v.Zoom + ZoomStep/2) / ZoomStep * ZoomStep
	return v
}

// ZoomIn 与 ZoomOut 按一个步进缩放，到达边界后保持不变。
func (v Viewport) ZoomIn() Viewport {
	v = v.Normalize()
	v.Zoom += ZoomStep
	return v.Normalize()
}

func (v Viewport) ZoomOut() Viewport {
	v = v.Normalize()
	v.Zoom -= ZoomStep
	return v.Normalize()
}

// Scale 返回缩放系数（1.0 = 100%）。
func (v Viewport) Scale() float64 {
	return float64(v.Normalize().Zoom) / 100
}

// Size 返回当前缩放下画布的像素尺寸。
func (v Viewport) Size() (width, height float64) {
	s := v.Scale()
	return BaseWidth * s, BaseHeight * s
}
