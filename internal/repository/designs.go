package repository

import (
	"context"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"slidestudio/internal/database"
	"slidestudio/internal/slide"
)

func designToModel(d *slide.Design, m *database.SlideDesign) {
	m.Title = d.Title
	m.Description = d.Description
	m.TemplateID = d.TemplateID
	m.LayoutType = string(d.LayoutType)
	data := d.DesignData
	if data.TextElements == nil {
		data.TextElements = []slide.TextElement{}
	}
	m.DesignData = datatypes.NewJSONType(data)
	m.BackgroundColor = d.Background.Color
	m.BackgroundImageURL = d.Background.ImageURL
	m.BackgroundMediaID = d.Background.MediaID
	m.AnimationSettings = datatypes.NewJSONType(d.Animation)
	m.LinkURL = d.LinkURL
	m.IsActive = d.IsActive
	m.DisplayOrder = d.DisplayOrder
}

func designFromModel(m database.SlideDesign) slide.Design {
	return slide.Design{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		TemplateID:  m.TemplateID,
		LayoutType:  slide.LayoutType(m.LayoutType),
		DesignData:  m.DesignData.Data(),
		Background: slide.Background{
			Color:    m.BackgroundColor,
			ImageURL: m.BackgroundImageURL,
			MediaID:  m.BackgroundMediaID,
		},
		Animation:       m.AnimationSettings.Data(),
		LinkURL:         m.LinkURL,
		IsActive:        m.IsActive,
		DisplayOrder:    m.DisplayOrder,
		PreviewImageURL: m.PreviewImageURL,
	}
}

// InsertDesign 插入新设计并回填 ID。
func (r *Repository) InsertDesign(ctx context.Context, d *slide.Design) error {
	return r.insertDesign(ctx, d, 0)
}

func (r *Repository) insertDesign(ctx context.Context, d *slide.Design, createdBy uint) error {
	var m database.SlideDesign
	designToModel(d, &m)
	m.CreatedBy = createdBy
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("insert design: %w", err)
	}
	d.ID = m.ID
	return nil
}

// UpdateDesign 覆盖已有设计，后写入者生效。预览图由缩略图任务单独维护。
func (r *Repository) UpdateDesign(ctx context.Context, d *slide.Design) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m database.SlideDesign
		if err := tx.First(&m, d.ID).Error; err != nil {
			return mapErr(err)
		}
		designToModel(d, &m)
		if err := tx.Save(&m).Error; err != nil {
			return fmt.Errorf("update design: %w", err)
		}
		d.PreviewImageURL = m.PreviewImageURL
		return nil
	})
}

func (r *Repository) GetDesign(ctx context.Context, id uint) (*slide.Design, error) {
	var m database.SlideDesign
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, mapErr(err)
	}
	d := designFromModel(m)
	return &d, nil
}

// ListDesigns 按展示顺序列出设计；activeOnly 时只返回前台可见的。
func (r *Repository) ListDesigns(ctx context.Context, activeOnly bool) ([]slide.Design, error) {
	q := r.db.WithContext(ctx).Order("display_order ASC").Order("id ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var rows []database.SlideDesign
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list designs: %w", err)
	}
	out := make([]slide.Design, 0, len(rows))
	for _, m := range rows {
		out = append(out, designFromModel(m))
	}
	return out, nil
}

func (r *Repository) DeleteDesign(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&database.SlideDesign{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete design: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPreview 写入缩略图地址。
func (r *Repository) SetPreview(ctx context.Context, id uint, url string) error {
	res := r.db.WithContext(ctx).
		Model(&database.SlideDesign{}).
		Where("id = ?", id).
		Update("preview_image_url", url)
	if res.Error != nil {
		return fmt.Errorf("set preview: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DesignWriter 是绑定创建者的保存入口，实现 editor.Persister。
type DesignWriter struct {
	repo   *Repository
	userID uint
}

func (r *Repository) DesignWriter(userID uint) *DesignWriter {
	return &DesignWriter{repo: r, userID: userID}
}

func (w *DesignWriter) InsertDesign(ctx context.Context, d *slide.Design) error {
	return w.repo.insertDesign(ctx, d, w.userID)
}

func (w *DesignWriter) UpdateDesign(ctx context.Context, d *slide.Design) error {
	return w.repo.UpdateDesign(ctx, d)
}
