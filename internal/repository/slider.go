package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"slidestudio/internal/database"
	"slidestudio/internal/slider"
)

func sliderToModel(it *slider.Item, m *database.TopSliderItem) {
	m.Title = it.Title
	m.Description = it.Description
	m.ImageURL = it.ImageURL
	m.YouTubeURL = it.YouTubeURL
	m.MediaID = it.MediaID
	m.BackgroundColor = it.BackgroundColor
	m.LinkURL = it.LinkURL
	m.TextColor = it.TextColor
	m.IsVisible = it.Visible
	m.DisplayOrder = it.DisplayOrder
}

func sliderFromModel(m database.TopSliderItem) slider.Item {
	return slider.Item{
		ID:              m.ID,
		Title:           m.Title,
		Description:     m.Description,
		ImageURL:        m.ImageURL,
		YouTubeURL:      m.YouTubeURL,
		MediaID:         m.MediaID,
		BackgroundColor: m.BackgroundColor,
		LinkURL:         m.LinkURL,
		TextColor:       m.TextColor,
		Visible:         m.IsVisible,
		DisplayOrder:    m.DisplayOrder,
	}
}

func (r *Repository) CreateSliderItem(ctx context.Context, it *slider.Item) error {
	var m database.TopSliderItem
	sliderToModel(it, &m)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("insert slider item: %w", err)
	}
	it.ID = m.ID
	return nil
}

func (r *Repository) UpdateSliderItem(ctx context.Context, it *slider.Item) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m database.TopSliderItem
		if err := tx.First(&m, it.ID).Error; err != nil {
			return mapErr(err)
		}
		sliderToModel(it, &m)
		return tx.Save(&m).Error
	})
}

func (r *Repository) GetSliderItem(ctx context.Context, id uint) (*slider.Item, error) {
	var m database.TopSliderItem
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, mapErr(err)
	}
	it := sliderFromModel(m)
	return &it, nil
}

func (r *Repository) ListSliderItems(ctx context.Context) ([]slider.Item, error) {
	var rows []database.TopSliderItem
	if err := r.db.WithContext(ctx).Order("display_order ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]slider.Item, 0, len(rows))
	for _, m := range rows {
		out = append(out, sliderFromModel(m))
	}
	return out, nil
}

func (r *Repository) DeleteSliderItem(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&database.TopSliderItem{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete slider item: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReorderSliderItems 在同一事务中写入各条目的 display_order。
func (r *Repository) ReorderSliderItems(ctx context.Context, items []slider.Item) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, it := range items {
			res := tx.Model(&database.TopSliderItem{}).
				Where("id = ?", it.ID).
				Update("display_order", it.DisplayOrder)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrNotFound
			}
		}
		return nil
	})
}
