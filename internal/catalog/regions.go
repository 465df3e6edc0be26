package catalog

import (
	"sort"

	"slidestudio/internal/slide"
)

// DefaultDesignableAreas 返回布局类型的默认可设计区域。
func DefaultDesignableAreas(layout slide.LayoutType) []slide.DesignableArea {
	var r slide.Region
	switch layout {
	case slide.LayoutHalfHorizontal:
		r = slide.Region{X: 0, Y: 0, Width: 100, Height: 50}
	case slide.LayoutHalfVertical:
		r = slide.Region{X: 0, Y: 0, Width: 50, Height: 100}
	case slide.LayoutQuarter:
		r = slide.Region{X: 0, Y: 0, Width: 50, Height: 50}
	default:
		r = slide.Region{X: 0, Y: 0, Width: 100, Height: 100}
	}
	return []slide.DesignableArea{{Region: r}}
}

// ReservedRegions 计算画布上不属于任何可设计区域的部分，
// 结果是按行扫描得到的互不重叠矩形，供模板选择器渲染“保留区”。
func ReservedRegions(areas []slide.DesignableArea) []slide.Region {
	xs := []float64{0, 100}
	ys := []float64{0, 100}
	for _, a := range areas {
		xs = append(xs, clampEdge(a.X), clampEdge(a.X+a.Width))
		ys = append(ys, clampEdge(a.Y), clampEdge(a.Y+a.Height))
	}
	xs = uniqueSorted(xs)
	ys = uniqueSorted(ys)

	var out []slide.Region
	for j := 0; j+1 < len(ys); j++ {
		y0, y1 := ys[j], ys[j+1]
		var run *slide.Region
		for i := 0; i+1 < len(xs); i++ {
			x0, x1 := xs[i], xs[i+1]
			cx, cy := (x0+x1)/2, (y0+y1)/2
			if covered(areas, cx, cy) {
				if run != nil {
					out = append(out, *run)
					run = nil
				}
				continue
			}
			if run == nil {
				run = &slide.Region{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
				continue
			}
			run.Width = x1 - run.X
		}
		if run != nil {
			out = append(out, *run)
		}
	}
	return mergeRows(out)
}

// mergeRows 合并上下相邻且水平范围一致的矩形。
func mergeRows(regions []slide.Region) []slide.Region {
	var merged []slide.Region
	for _, r := range regions {
		joined := false
		for i := range merged {
			m := &merged[i]
			if m.X == r.X && m.Width == r.Width && m.Y+m.Height == r.Y {
				m.Height += r.Height
				joined = true
				break
			}
		}
		if !joined {
			merged = append(merged, r)
		}
	}
	return merged
}

func covered(areas []slide.DesignableArea, x, y float64) bool {
	for _, a := range areas {
		if x > a.X && x < a.X+a.Width && y > a.Y && y < a.Y+a.Height {
			return true
		}
	}
	return false
}

func clampEdge(v float64) float64 {
	return slide.ClampPercent(v)
}

func uniqueSorted(values []float64) []float64 {
	sort.Float64s(values)
	out := values[:0]
	for i, v := range values {
		if i > 0 && v == out[len(out)-1] {
			continue
		}
		out = append(out, v)
	}
	return out
}

// InDesignableArea 判断元素中心点是否落在任一可设计区域中。
func InDesignableArea(areas []slide.DesignableArea, p slide.Position) bool {
	for _, a := range areas {
		if a.Contains(p) {
			return true
		}
	}
	return false
}

// OutsideElements 返回中心点落在保留区内的元素 ID。
func OutsideElements(areas []slide.DesignableArea, elements []slide.TextElement) []string {
	if len(areas) == 0 {
		return nil
	}
	var ids []string
	for _, el := range elements {
		if !InDesignableArea(areas, el.Position) {
			ids = append(ids, el.ID)
		}
	}
	return ids
}

// ConstraintViolations 返回违反所在区域约束的元素 ID：类型不在 AllowedTypes 中，
// 或超出 MaxElements 的多余元素。元素归属于第一个包含其中心点的区域。
func ConstraintViolations(areas []slide.DesignableArea, elements []slide.TextElement) []string {
	if len(areas) == 0 {
		return nil
	}
	counts := make([]int, len(areas))
	var ids []string
	for _, el := range elements {
		for i, a := range areas {
			if !a.Contains(el.Position) {
				continue
			}
			counts[i]++
			c := a.Constraints
			if (c.MaxElements > 0 && counts[i] > c.MaxElements) || !typeAllowed(c.AllowedTypes, el.Type) {
				ids = append(ids, el.ID)
			}
			break
		}
	}
	return ids
}

func typeAllowed(allowed []slide.ElementType, t slide.ElementType) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == t {
			return true
		}
	}
	return false
}
