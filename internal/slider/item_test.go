package slider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestApplyBackgroundExclusivity(t *testing.T) {
	it := Item{Title: "Gala", ImageURL: ptr("https://cdn.example.org/a.jpg"), MediaID: ptr(uint(4))}

	require.NoError(t, ApplyBackground(&it, BackgroundYouTube, "https://www.youtube.com/watch?v=dQw4w9WgXcQ"))
	assert.Nil(t, it.ImageURL)
	assert.Nil(t, it.MediaID)
	require.NotNil(t, it.YouTubeURL)
	assert.Equal(t, BackgroundYouTube, it.BackgroundType())

	require.NoError(t, ApplyBackground(&it, BackgroundColor, "#112233"))
	assert.Nil(t, it.ImageURL)
	assert.Nil(t, it.YouTubeURL)
	assert.Nil(t, it.MediaID)
	assert.Equal(t, "#112233", it.BackgroundColor)
	assert.Equal(t, BackgroundColor, it.BackgroundType())

	require.NoError(t, ApplyBackground(&it, BackgroundMedia, "12"))
	require.NotNil(t, it.MediaID)
	assert.Equal(t, uint(12), *it.MediaID)
	assert.NoError(t, it.Validate())
}

func TestApplyBackgroundRejects(t *testing.T) {
	cases := []struct {
		t     BackgroundType
		value string
	}{
		{BackgroundYouTube, "https://vimeo.com/123"},
		{BackgroundImage, "not a url"},
		{BackgroundMedia, "abc"},
		{BackgroundColor, "teal"},
		{"gif", "x"},
	}
	for _, tc := range cases {
		it := Item{ImageURL: ptr("https://cdn.example.org/keep.jpg")}
		err := ApplyBackground(&it, tc.t, tc.value)
		assert.ErrorIs(t, err, ErrInvalidBackground, "%s %s", tc.t, tc.value)
		require.NotNil(t, it.ImageURL, "failed apply must not modify the item")
	}
}

func TestValidateSingleSource(t *testing.T) {
	it := Item{Title: "x", ImageURL: ptr("https://a/b.jpg"), YouTubeURL: ptr("https://youtu.be/dQw4w9WgXcQ")}
	assert.ErrorIs(t, it.Validate(), ErrInvalidItem)
	assert.ErrorIs(t, Item{}.Validate(), ErrInvalidItem)
}

func TestYouTubeID(t *testing.T) {
	for _, raw := range []string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"https://youtube.com/watch?v=dQw4w9WgXcQ&t=30",
		"https://youtu.be/dQw4w9WgXcQ",
		"https://www.youtube.com/embed/dQw4w9WgXcQ",
		"https://m.youtube.com/shorts/dQw4w9WgXcQ",
	} {
		id, ok := YouTubeID(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, "dQw4w9WgXcQ", id, raw)
	}
	_, ok := YouTubeID("https://example.com/watch?v=dQw4w9WgXcQ")
	assert.False(t, ok)
	_, ok = YouTubeID("https://www.youtube.com/watch?v=short")
	assert.False(t, ok)
}

func applyOrders(items []Item, changed []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	for _, c := range changed {
		for k := range out {
			if out[k].ID == c.ID {
				out[k].DisplayOrder = c.DisplayOrder
			}
		}
	}
	Sort(out)
	return out
}

func ids(items []Item) []uint {
	out := make([]uint, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestMoveSwapsDisplayOrder(t *testing.T) {
	items := []Item{
		{ID: 1, DisplayOrder: 10},
		{ID: 2, DisplayOrder: 20},
		{ID: 3, DisplayOrder: 30},
	}
	changed, ok := Move(items, 3, Up)
	require.True(t, ok)
	require.Len(t, changed, 2)
	assert.Equal(t, uint(2), changed[0].ID)
	assert.Equal(t, 30, changed[0].DisplayOrder)
	assert.Equal(t, uint(3), changed[1].ID)
	assert.Equal(t, 20, changed[1].DisplayOrder)
	assert.Equal(t, []uint{1, 3, 2}, ids(applyOrders(items, changed)))

	_, ok = Move(items, 1, Up)
	assert.False(t, ok)
	_, ok = Move(items, 3, Down)
	assert.False(t, ok)
	_, ok = Move(items, 99, Down)
	assert.False(t, ok)
}

func TestMoveWithEqualOrders(t *testing.T) {
	items := []Item{{ID: 1, DisplayOrder: 0}, {ID: 2, DisplayOrder: 0}, {ID: 3, DisplayOrder: 0}}

	changed, ok := Move(items, 2, Up)
	require.True(t, ok)
	after := applyOrders(items, changed)
	assert.Equal(t, []uint{2, 1, 3}, ids(after))
	assert.False(t, hasTies(after))

	changed, ok = Move(items, 2, Down)
	require.True(t, ok)
	assert.Equal(t, []uint{1, 3, 2}, ids(applyOrders(items, changed)))

	// 部分相同：只有相邻两项交换，第三项保持在最后。
	items = []Item{{ID: 1, DisplayOrder: 5}, {ID: 2, DisplayOrder: 5}, {ID: 3, DisplayOrder: 6}}
	changed, ok = Move(items, 1, Down)
	require.True(t, ok)
	assert.Equal(t, []uint{2, 1, 3}, ids(applyOrders(items, changed)))
}

func TestVisibleIsIndependentOfOrder(t *testing.T) {
	items := []Item{
		{ID: 1, DisplayOrder: 3, Visible: true},
		{ID: 2, DisplayOrder: 1, Visible: false},
		{ID: 3, DisplayOrder: 2, Visible: true},
	}
	out := Visible(items)
	require.Len(t, out, 2)
	assert.Equal(t, uint(3), out[0].ID)
	assert.Equal(t, uint(1), out[1].ID)
}

type memoryStore struct {
	items    map[uint]Item
	nextID   uint
	reorders int
}

func newMemoryStore() *memoryStore { return &memoryStore{items: map[uint]Item{}} }

func (m *memoryStore) CreateSliderItem(_ context.Context, it *Item) error {
	m.nextID++
	it.ID = m.nextID
	m.items[it.ID] = *it
	return nil
}

func (m *memoryStore) UpdateSliderItem(_ context.Context, it *Item) error {
	m.items[it.ID] = *it
	return nil
}

func (m *memoryStore) GetSliderItem(_ context.Context, id uint) (*Item, error) {
	it, ok := m.items[id]
	if !ok {
		return nil, assert.AnError
	}
	return &it, nil
}

func (m *memoryStore) ListSliderItems(context.Context) ([]Item, error) {
	out := make([]Item, 0, len(m.items))
	for _, it := range m.items {
		out = append(out, it)
	}
	return out, nil
}

func (m *memoryStore) DeleteSliderItem(_ context.Context, id uint) error {
	delete(m.items, id)
	return nil
}

func (m *memoryStore) ReorderSliderItems(_ context.Context, items []Item) error {
	m.reorders++
	for _, it := range items {
		m.items[it.ID] = it
	}
	return nil
}

func TestServiceCreateAppendsAndMoves(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	svc := NewService(store, nil)

	first, err := svc.Create(ctx, Input{Title: "Auditions", BackgroundType: BackgroundColor, BackgroundValue: "#000000"})
	require.NoError(t, err)
	second, err := svc.Create(ctx, Input{
		Title:           "Tour video",
		BackgroundType:  BackgroundYouTube,
		BackgroundValue: "https://youtu.be/dQw4w9WgXcQ",
		Visible:         ptr(false),
	})
	require.NoError(t, err)
	assert.Greater(t, second.DisplayOrder, first.DisplayOrder)
	assert.Equal(t, DefaultTextColor, second.TextColor)

	public, err := svc.Public(ctx)
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, first.ID, public[0].ID)

	ordered, err := svc.Move(ctx, second.ID, Up)
	require.NoError(t, err)
	assert.Equal(t, second.ID, ordered[0].ID)
	assert.Equal(t, 1, store.reorders)

	_, err = svc.Move(ctx, second.ID, Up)
	assert.ErrorIs(t, err, ErrCannotMove)
}

func TestServiceUpdateSwitchesToColor(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryStore(), nil)
	it, err := svc.Create(ctx, Input{Title: "Hero", BackgroundType: BackgroundImage, BackgroundValue: "https://cdn.example.org/hero.jpg"})
	require.NoError(t, err)
	require.NotNil(t, it.ImageURL)

	updated, err := svc.Update(ctx, it.ID, Input{Title: "Hero", BackgroundType: BackgroundColor, BackgroundColor: "#4c1d95"})
	require.NoError(t, err)
	assert.Nil(t, updated.ImageURL)
	assert.Nil(t, updated.YouTubeURL)
	assert.Nil(t, updated.MediaID)
	assert.Equal(t, "#4c1d95", updated.BackgroundColor)
}

func TestServiceMoveRenumbersTiedOrders(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	svc := NewService(store, nil)
	for _, title := range []string{"One", "Two", "Three"} {
		_, err := svc.Create(ctx, Input{Title: title, DisplayOrder: ptr(0)})
		require.NoError(t, err)
	}

	ordered, err := svc.Move(ctx, 2, Up)
	require.NoError(t, err)
	assert.Equal(t, []uint{2, 1, 3}, ids(ordered))
	assert.False(t, hasTies(ordered))
}

func TestServiceUpdateKeepsBackgroundWhenTypeOmitted(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryStore(), nil)
	it, err := svc.Create(ctx, Input{Title: "Hero", BackgroundType: BackgroundImage, BackgroundValue: "https://cdn.example.org/hero.jpg"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, it.ID, Input{Title: "Hero", Visible: ptr(false)})
	require.NoError(t, err)
	assert.False(t, updated.Visible)
	require.NotNil(t, updated.ImageURL)
	assert.Equal(t, "https://cdn.example.org/hero.jpg", *updated.ImageURL)
	assert.Equal(t, BackgroundImage, updated.BackgroundType())

	// 新建时缺省仍是纯色。
	plain, err := svc.Create(ctx, Input{Title: "Plain"})
	require.NoError(t, err)
	assert.Equal(t, BackgroundColor, plain.BackgroundType())
}
