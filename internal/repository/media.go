package repository

import (
	"context"
	"fmt"

	"slidestudio/internal/database"
	"slidestudio/internal/media"
)

func mediaFromModel(m database.MediaItem) media.Item {
	return media.Item{
		ID:          m.ID,
		Kind:        media.Kind(m.Kind),
		FileName:    m.FileName,
		ObjectKey:   m.ObjectKey,
		ContentType: m.ContentType,
		Size:        m.Size,
		UploadedBy:  m.UploadedBy,
		CreatedAt:   m.CreatedAt,
	}
}

func (r *Repository) CreateMedia(ctx context.Context, it *media.Item) error {
	m := database.MediaItem{
		Kind:        string(it.Kind),
		FileName:    it.FileName,
		ObjectKey:   it.ObjectKey,
		ContentType: it.ContentType,
		Size:        it.Size,
		UploadedBy:  it.UploadedBy,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("insert media: %w", err)
	}
	it.ID = m.ID
	it.CreatedAt = m.CreatedAt
	return nil
}

func (r *Repository) GetMedia(ctx context.Context, id uint) (*media.Item, error) {
	var m database.MediaItem
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, mapErr(err)
	}
	it := mediaFromModel(m)
	return &it, nil
}

func (r *Repository) ListMedia(ctx context.Context, kind media.Kind, limit int) ([]media.Item, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC")
	if kind != "" {
		q = q.Where("kind = ?", string(kind))
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []database.MediaItem
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]media.Item, 0, len(rows))
	for _, m := range rows {
		out = append(out, mediaFromModel(m))
	}
	return out, nil
}

func (r *Repository) DeleteMedia(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&database.MediaItem{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete media: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
