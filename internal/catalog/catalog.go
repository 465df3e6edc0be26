package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"slidestudio/internal/slide"
)

var ErrInvalidTemplate = errors.New("invalid template")

// Store 是模板的持久化协作方，由 repository 实现。
type Store interface {
	CreateTemplate(ctx context.Context, tpl *slide.Template) error
	GetTemplate(ctx context.Context, id uint) (*slide.Template, error)
	ListTemplates(ctx context.Context) ([]slide.Template, error)
	DeleteTemplate(ctx context.Context, id uint) error
	CountTemplates(ctx context.Context) (int64, error)
}

// Entry 是模板选择器中的一项，附带保留区用于预览。
type Entry struct {
	slide.Template
	ReservedRegions []slide.Region `json:"reserved_regions"`
}

// Catalog 提供模板的只读浏览与管理员创建入口。
type Catalog struct {
	store  Store
	logger *slog.Logger
}

func New(store Store, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{store: store, logger: logger}
}

func newEntry(tpl slide.Template) Entry {
	return Entry{Template: tpl, ReservedRegions: ReservedRegions(tpl.DesignableAreas)}
}

func (c *Catalog) List(ctx context.Context) ([]Entry, error) {
	templates, err := c.store.ListTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	entries := make([]Entry, 0, len(templates))
	for _, tpl := range templates {
		entries = append(entries, newEntry(tpl))
	}
	return entries, nil
}

func (c *Catalog) Get(ctx context.Context, id uint) (Entry, error) {
	tpl, err := c.store.GetTemplate(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	return newEntry(*tpl), nil
}

// Create 校验并保存管理员在模板创建器中提交的模板。
func (c *Catalog) Create(ctx context.Context, tpl slide.Template) (*slide.Template, error) {
	normalized, err := Normalize(tpl)
	if err != nil {
		return nil, err
	}
	if err := c.store.CreateTemplate(ctx, &normalized); err != nil {
		return nil, fmt.Errorf("create template: %w", err)
	}
	c.logger.Info("template created",
		slog.Uint64("template_id", uint64(normalized.ID)),
		slog.String("layout_type", string(normalized.LayoutType)),
	)
	return &normalized, nil
}

// Delete 删除模板。已有设计仅弱引用 template_id，不受影响。
func (c *Catalog) Delete(ctx context.Context, id uint) error {
	return c.store.DeleteTemplate(ctx, id)
}

// SeedDefaults 在模板表为空时写入内置模板。
func (c *Catalog) SeedDefaults(ctx context.Context) (int, error) {
	count, err := c.store.CountTemplates(ctx)
	if err != nil {
		return 0, fmt.Errorf("count templates: %w", err)
	}
	if count > 0 {
		return 0, nil
	}
	seeded := 0
	for _, tpl := range Builtins() {
		if _, err := c.Create(ctx, tpl); err != nil {
			return seeded, fmt.Errorf("seed template %q: %w", tpl.Name, err)
		}
		seeded++
	}
	return seeded, nil
}

// Normalize 实现模板创建器的校验规则，返回补全默认值后的模板。
func Normalize(tpl slide.Template) (slide.Template, error) {
	tpl.Name = strings.TrimSpace(tpl.Name)
	tpl.Description = strings.TrimSpace(tpl.Description)
	if tpl.Name == "" {
		return tpl, fmt.Errorf("%w: name is required", ErrInvalidTemplate)
	}
	if tpl.LayoutType == "" {
		tpl.LayoutType = slide.LayoutFull
	}
	if !tpl.LayoutType.Valid() {
		return tpl, fmt.Errorf("%w: unsupported layout %q", ErrInvalidTemplate, tpl.LayoutType)
	}
	if len(tpl.Data.TextAreas) == 0 {
		return tpl, fmt.Errorf("%w: at least one text area is required", ErrInvalidTemplate)
	}

	areas := make([]slide.TextArea, len(tpl.Data.TextAreas))
	seen := make(map[string]struct{}, len(areas))
	for i, area := range tpl.Data.TextAreas {
		area.ID = strings.TrimSpace(area.ID)
		if area.ID == "" {
			area.ID = fmt.Sprintf("area-%d", i+1)
		}
		if _, dup := seen[area.ID]; dup {
			return tpl, fmt.Errorf("%w: duplicate text area id %q", ErrInvalidTemplate, area.ID)
		}
		seen[area.ID] = struct{}{}
		if area.Type == "" {
			area.Type = slide.ElementParagraph
		}
		if !area.Type.Valid() {
			return tpl, fmt.Errorf("%w: text area %s has unsupported type %q", ErrInvalidTemplate, area.ID, area.Type)
		}
		if area.Position.Clamp() != area.Position {
			return tpl, fmt.Errorf("%w: text area %s position must be within 0-100", ErrInvalidTemplate, area.ID)
		}
		if area.Style == (slide.Style{}) {
			area.Style = slide.DefaultStyle(area.Type)
		}
		if err := area.Style.Validate(); err != nil {
			return tpl, fmt.Errorf("%w: text area %s: %v", ErrInvalidTemplate, area.ID, err)
		}
		areas[i] = area
	}
	tpl.Data.TextAreas = areas

	if len(tpl.DesignableAreas) == 0 {
		tpl.DesignableAreas = DefaultDesignableAreas(tpl.LayoutType)
	}
	for i, a := range tpl.DesignableAreas {
		if a.Width <= 0 || a.Height <= 0 || a.X < 0 || a.Y < 0 || a.X+a.Width > 100 || a.Y+a.Height > 100 {
			return tpl, fmt.Errorf("%w: designable area %d must lie inside the canvas", ErrInvalidTemplate, i)
		}
		for _, typ := range a.Constraints.AllowedTypes {
			if !typ.Valid() {
				return tpl, fmt.Errorf("%w: designable area %d allows unsupported type %q", ErrInvalidTemplate, i, typ)
			}
		}
	}

	if c := tpl.DefaultStyles.BackgroundColor; c != "" && !slide.IsHexColor(c) {
		return tpl, fmt.Errorf("%w: default background %q is not a hex color", ErrInvalidTemplate, c)
	}
	if s := tpl.DefaultStyles.TextShadow; s != "" {
		if _, err := (slide.Style{}).With(slide.StyleTextShadow, s); err != nil {
			return tpl, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
		}
	}
	return tpl, nil
}
