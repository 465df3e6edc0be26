package slider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrCannotMove 表示条目已在列表边界。
var ErrCannotMove = errors.New("slider item cannot move further")

// Store 是轮播条目的持久化协作方。
type Store interface {
	CreateSliderItem(ctx context.Context, it *Item) error
	UpdateSliderItem(ctx context.Context, it *Item) error
	GetSliderItem(ctx context.Context, id uint) (*Item, error)
	ListSliderItems(ctx context.Context) ([]Item, error)
	DeleteSliderItem(ctx context.Context, id uint) error
	// ReorderSliderItems 在同一事务中保存这些条目的 display_order。
	ReorderSliderItems(ctx context.Context, items []Item) error
}

// Input 是管理后台表单提交的条目。
type Input struct {
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	LinkURL         string         `json:"link_url"`
	TextColor       string         `json:"text_color"`
	Visible         *bool          `json:"visible"`
	DisplayOrder    *int           `json:"display_order"`
	BackgroundType  BackgroundType `json:"background_type"`
	BackgroundValue string         `json:"background_value"`
	BackgroundColor string         `json:"background_color"`
}

// applyTo 把表单写入条目。更新时 background_type 为空表示不修改背景来源；
// 新建时缺省为纯色。
func (in Input) applyTo(it *Item, creating bool) error {
	it.Title = strings.TrimSpace(in.Title)
	it.Description = strings.TrimSpace(in.Description)
	it.LinkURL = strings.TrimSpace(in.LinkURL)
	if c := strings.TrimSpace(in.TextColor); c != "" {
		it.TextColor = c
	}
	if it.TextColor == "" {
		it.TextColor = DefaultTextColor
	}
	if in.Visible != nil {
		it.Visible = *in.Visible
	}
	if in.DisplayOrder != nil {
		it.DisplayOrder = *in.DisplayOrder
	}
	if c := strings.TrimSpace(in.BackgroundColor); c != "" {
		it.BackgroundColor = c
	}
	t := in.BackgroundType
	if t == "" {
		if !creating {
			return it.Validate()
		}
		t = BackgroundColor
	}
	value := in.BackgroundValue
	if t == BackgroundColor && value == "" {
		value = it.BackgroundColor
	}
	if err := ApplyBackground(it, t, value); err != nil {
		return err
	}
	return it.Validate()
}

// Service 管理首页轮播条目。
type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// List 返回全部条目（管理后台）。
func (s *Service) List(ctx context.Context) ([]Item, error) {
	items, err := s.store.ListSliderItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list slider items: %w", err)
	}
	Sort(items)
	return items, nil
}

// Public 返回对外展示的可见条目。
func (s *Service) Public(ctx context.Context) ([]Item, error) {
	items, err := s.store.ListSliderItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list slider items: %w", err)
	}
	return Visible(items), nil
}

// Create 新建条目；未指定顺序时排在最后。
func (s *Service) Create(ctx context.Context, in Input) (*Item, error) {
	it := &Item{Visible: true}
	if err := in.applyTo(it, true); err != nil {
		return nil, err
	}
	if in.DisplayOrder == nil {
		items, err := s.store.ListSliderItems(ctx)
		if err != nil {
			return nil, fmt.Errorf("list slider items: %w", err)
		}
		for _, existing := range items {
			if existing.DisplayOrder >= it.DisplayOrder {
				it.DisplayOrder = existing.DisplayOrder + 1
			}
		}
	}
	if err := s.store.CreateSliderItem(ctx, it); err != nil {
		return nil, fmt.Errorf("create slider item: %w", err)
	}
	s.logger.Info("slider item created", slog.Uint64("slider_item_id", uint64(it.ID)))
	return it, nil
}

func (s *Service) Update(ctx context.Context, id uint, in Input) (*Item, error) {
	it, err := s.store.GetSliderItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := in.applyTo(it, false); err != nil {
		return nil, err
	}
	if err := s.store.UpdateSliderItem(ctx, it); err != nil {
		return nil, fmt.Errorf("update slider item: %w", err)
	}
	return it, nil
}

// Move 与相邻条目交换位置。
func (s *Service) Move(ctx context.Context, id uint, dir Direction) ([]Item, error) {
	if !dir.Valid() {
		return nil, fmt.Errorf("%w: direction %q", ErrInvalidItem, dir)
	}
	if _, err := s.store.GetSliderItem(ctx, id); err != nil {
		return nil, err
	}
	items, err := s.store.ListSliderItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list slider items: %w", err)
	}
	changed, ok := Move(items, id, dir)
	if !ok {
		return nil, ErrCannotMove
	}
	if err := s.store.ReorderSliderItems(ctx, changed); err != nil {
		return nil, fmt.Errorf("reorder slider items: %w", err)
	}
	return s.List(ctx)
}

func (s *Service) Delete(ctx context.Context, id uint) error {
	return s.store.DeleteSliderItem(ctx, id)
}
