package repository

import (
	"context"
	"fmt"

	"gorm.io/datatypes"

	"slidestudio/internal/database"
	"slidestudio/internal/slide"
)

func templateFromModel(m database.SlideTemplate) slide.Template {
	return slide.Template{
		ID:              m.ID,
		Name:            m.Name,
		Description:     m.Description,
		LayoutType:      slide.LayoutType(m.LayoutType),
		Data:            m.TemplateData.Data(),
		DesignableAreas: []slide.DesignableArea(m.DesignableAreas),
		DefaultStyles:   m.DefaultStyles.Data(),
	}
}

func (r *Repository) CreateTemplate(ctx context.Context, tpl *slide.Template) error {
	m := database.SlideTemplate{
		Name:            tpl.Name,
		Description:     tpl.Description,
		LayoutType:      string(tpl.LayoutType),
		TemplateData:    datatypes.NewJSONType(tpl.Data),
		DesignableAreas: datatypes.NewJSONSlice(tpl.DesignableAreas),
		DefaultStyles:   datatypes.NewJSONType(tpl.DefaultStyles),
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("insert template: %w", err)
	}
	tpl.ID = m.ID
	return nil
}

func (r *Repository) GetTemplate(ctx context.Context, id uint) (*slide.Template, error) {
	var m database.SlideTemplate
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, mapErr(err)
	}
	tpl := templateFromModel(m)
	return &tpl, nil
}

func (r *Repository) ListTemplates(ctx context.Context) ([]slide.Template, error) {
	var rows []database.SlideTemplate
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]slide.Template, 0, len(rows))
	for _, m := range rows {
		out = append(out, templateFromModel(m))
	}
	return out, nil
}

func (r *Repository) DeleteTemplate(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&database.SlideTemplate{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete template: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) CountTemplates(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&database.SlideTemplate{}).Count(&n).Error
	return n, err
}
