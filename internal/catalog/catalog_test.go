package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slidestudio/internal/slide"
)

type memoryStore struct {
	templates []slide.Template
}

func (m *memoryStore) CreateTemplate(_ context.Context, tpl *slide.Template) error {
	tpl.ID = uint(len(m.templates) + 1)
	m.templates = append(m.templates, *tpl)
	return nil
}

func (m *memoryStore) GetTemplate(_ context.Context, id uint) (*slide.Template, error) {
	for _, tpl := range m.templates {
		if tpl.ID == id {
			found := tpl
			return &found, nil
		}
	}
	return nil, assert.AnError
}

func (m *memoryStore) ListTemplates(context.Context) ([]slide.Template, error) {
	return m.templates, nil
}

func (m *memoryStore) DeleteTemplate(_ context.Context, id uint) error {
	for i, tpl := range m.templates {
		if tpl.ID == id {
			m.templates = append(m.templates[:i], m.templates[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *memoryStore) CountTemplates(context.Context) (int64, error) {
	return int64(len(m.templates)), nil
}

func TestReservedRegions(t *testing.T) {
	assert.Empty(t, ReservedRegions(DefaultDesignableAreas(slide.LayoutFull)))

	assert.Equal(t,
		[]slide.Region{{X: 0, Y: 50, Width: 100, Height: 50}},
		ReservedRegions(DefaultDesignableAreas(slide.LayoutHalfHorizontal)))

	assert.Equal(t,
		[]slide.Region{{X: 50, Y: 0, Width: 50, Height: 100}},
		ReservedRegions(DefaultDesignableAreas(slide.LayoutHalfVertical)))

	assert.Equal(t,
		[]slide.Region{
			{X: 50, Y: 0, Width: 50, Height: 50},
			{X: 0, Y: 50, Width: 100, Height: 50},
		},
		ReservedRegions(DefaultDesignableAreas(slide.LayoutQuarter)))
}

func TestReservedRegionsCenterBox(t *testing.T) {
	areas := []slide.DesignableArea{{Region: slide.Region{X: 25, Y: 25, Width: 50, Height: 50}}}
	regions := ReservedRegions(areas)

	var total float64
	for _, r := range regions {
		total += r.Width * r.Height
	}
	assert.InDelta(t, 10000-2500, total, 1e-9)
	for _, r := range regions {
		center := slide.Position{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
		assert.False(t, InDesignableArea(areas, center), "reserved region %+v overlaps the designable area", r)
	}
}

func TestOutsideElements(t *testing.T) {
	areas := DefaultDesignableAreas(slide.LayoutHalfVertical)
	elements := []slide.TextElement{
		{ID: "in", Position: slide.Position{X: 20, Y: 50}},
		{ID: "out", Position: slide.Position{X: 80, Y: 50}},
	}
	assert.Equal(t, []string{"out"}, OutsideElements(areas, elements))
	assert.Nil(t, OutsideElements(nil, elements))
}

func TestConstraintViolations(t *testing.T) {
	areas := []slide.DesignableArea{{
		Region: slide.Region{X: 0, Y: 0, Width: 50, Height: 100},
		Constraints: slide.AreaConstraints{
			MaxElements:  2,
			AllowedTypes: []slide.ElementType{slide.ElementHeading, slide.ElementParagraph},
		},
	}}
	elements := []slide.TextElement{
		{ID: "h", Type: slide.ElementHeading, Position: slide.Position{X: 10, Y: 10}},
		{ID: "cap", Type: slide.ElementCaption, Position: slide.Position{X: 10, Y: 30}},
		{ID: "p", Type: slide.ElementParagraph, Position: slide.Position{X: 10, Y: 50}},
		{ID: "outside", Type: slide.ElementCaption, Position: slide.Position{X: 80, Y: 50}},
	}
	// cap 类型不允许，p 是区域内的第三个元素。区域外的元素只计入 outside_elements。
	assert.Equal(t, []string{"cap", "p"}, ConstraintViolations(areas, elements))
	assert.Nil(t, ConstraintViolations(nil, elements))
	assert.Empty(t, ConstraintViolations(DefaultDesignableAreas(slide.LayoutFull), elements))
}

func TestNormalizeFillsDefaults(t *testing.T) {
	tpl, err := Normalize(slide.Template{
		Name:       "  Minimal ",
		LayoutType: slide.LayoutQuarter,
		Data: slide.TemplateData{TextAreas: []slide.TextArea{
			{DefaultText: "one", Position: slide.Position{X: 10, Y: 10}},
			{DefaultText: "two", Type: slide.ElementCaption, Position: slide.Position{X: 20, Y: 20}},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Minimal", tpl.Name)
	assert.Equal(t, "area-1", tpl.Data.TextAreas[0].ID)
	assert.Equal(t, slide.ElementParagraph, tpl.Data.TextAreas[0].Type)
	assert.Equal(t, slide.DefaultStyle(slide.ElementCaption), tpl.Data.TextAreas[1].Style)
	assert.Equal(t, DefaultDesignableAreas(slide.LayoutQuarter), tpl.DesignableAreas)
}

func TestNormalizeRejects(t *testing.T) {
	valid := func() slide.Template {
		return slide.Template{
			Name:       "T",
			LayoutType: slide.LayoutFull,
			Data: slide.TemplateData{TextAreas: []slide.TextArea{
				{ID: "a", Type: slide.ElementHeading, Position: slide.Position{X: 50, Y: 50}},
			}},
		}
	}

	cases := map[string]func(*slide.Template){
		"missing name":     func(tpl *slide.Template) { tpl.Name = " " },
		"bad layout":       func(tpl *slide.Template) { tpl.LayoutType = "diagonal" },
		"no areas":         func(tpl *slide.Template) { tpl.Data.TextAreas = nil },
		"position outside": func(tpl *slide.Template) { tpl.Data.TextAreas[0].Position.X = 120 },
		"duplicate id": func(tpl *slide.Template) {
			tpl.Data.TextAreas = append(tpl.Data.TextAreas, tpl.Data.TextAreas[0])
		},
		"area overflow": func(tpl *slide.Template) {
			tpl.DesignableAreas = []slide.DesignableArea{{Region: slide.Region{X: 60, Y: 0, Width: 60, Height: 10}}}
		},
		"bad background": func(tpl *slide.Template) { tpl.DefaultStyles.BackgroundColor = "navy" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			tpl := valid()
			mutate(&tpl)
			_, err := Normalize(tpl)
			assert.ErrorIs(t, err, ErrInvalidTemplate)
		})
	}
}

func TestSeedDefaultsOnlyOnce(t *testing.T) {
	store := &memoryStore{}
	c := New(store, nil)
	ctx := context.Background()

	n, err := c.SeedDefaults(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(Builtins()), n)

	n, err = c.SeedDefaults(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	entries, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, len(Builtins()))
	for _, e := range entries {
		if e.LayoutType == slide.LayoutFull {
			assert.Empty(t, e.ReservedRegions, e.Name)
		} else {
			assert.NotEmpty(t, e.ReservedRegions, e.Name)
		}
	}
}
