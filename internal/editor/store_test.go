package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slidestudio/internal/slide"
)

func strPtr(s string) *string { return &s }

func TestStoreAddSelectsDefaultElement(t *testing.T) {
	s := NewStore(nil)
	id, err := s.Add(nil)
	require.NoError(t, err)

	el, ok := s.Get(id)
	require.True(t, ok)
	assert.Equal(t, id, s.Selected())
	assert.Equal(t, slide.ElementParagraph, el.Type)
	assert.Equal(t, slide.Position{X: 50, Y: 50}, el.Position)
	assert.Equal(t, slide.DefaultStyle(slide.ElementParagraph), el.Style)
}

func TestStoreAddClampsSeed(t *testing.T) {
	s := NewStore(nil)
	id, err := s.Add(&slide.TextElement{Type: slide.ElementHeading, Text: "Hi", Position: slide.Position{X: -20, Y: 140}})
	require.NoError(t, err)
	el, _ := s.Get(id)
	assert.Equal(t, slide.Position{X: 0, Y: 100}, el.Position)
	assert.Equal(t, "3rem", el.Style.FontSize)

	_, err = s.Add(&slide.TextElement{Type: "banner"})
	assert.Error(t, err)
}

func TestStoreUpdate(t *testing.T) {
	s := NewStore(nil)
	id, _ := s.Add(nil)
	before := s.snapshot()

	changed, err := s.Update(id, ElementPatch{
		Text:     strPtr("Spring Concert"),
		Position: &slide.Position{X: 120, Y: 30},
		Style:    StylePatch{slide.StyleColor: "#ff0000", slide.StyleTextAlign: "left"},
	})
	require.NoError(t, err)
	assert.True(t, changed)

	el, _ := s.Get(id)
	assert.Equal(t, "Spring Concert", el.Text)
	assert.Equal(t, slide.Position{X: 100, Y: 30}, el.Position)
	assert.Equal(t, "#ff0000", el.Style.Color)
	assert.Equal(t, slide.AlignLeft, el.Style.TextAlign)

	// 旧快照不受影响
	assert.Equal(t, "New text", before[0].Text)
}

func TestStoreUpdateRejectsAndNoops(t *testing.T) {
	s := NewStore(nil)
	id, _ := s.Add(nil)

	changed, err := s.Update("missing", ElementPatch{Text: strPtr("x")})
	assert.NoError(t, err)
	assert.False(t, changed)

	_, err = s.Update(id, ElementPatch{Style: StylePatch{slide.StyleColor: "red"}})
	assert.Error(t, err)

	_, err = s.Update(id, ElementPatch{Style: StylePatch{"letterSpacing": "2px"}})
	assert.Error(t, err)

	el, _ := s.Get(id)
	changed, err = s.Update(id, ElementPatch{Text: &el.Text})
	assert.NoError(t, err)
	assert.False(t, changed)
}

func TestStoreRemoveClearsSelection(t *testing.T) {
	s := NewStore(nil)
	first, _ := s.Add(nil)
	second, _ := s.Add(nil)

	assert.True(t, s.Remove(first))
	assert.Equal(t, second, s.Selected())

	assert.True(t, s.Remove(second))
	assert.Empty(t, s.Selected())
	assert.False(t, s.Remove(second))
	assert.Zero(t, s.Len())
}

func TestStoreDuplicate(t *testing.T) {
	s := NewStore([]slide.TextElement{{
		ID: "a", Type: slide.ElementCaption, Text: "Tickets",
		Position: slide.Position{X: 20, Y: 30},
		Style:    slide.DefaultStyle(slide.ElementCaption),
	}})

	id, ok := s.Duplicate("a")
	require.True(t, ok)
	clone, _ := s.Get(id)
	orig, _ := s.Get("a")

	assert.NotEqual(t, orig.ID, clone.ID)
	assert.Equal(t, orig.Style, clone.Style)
	assert.Equal(t, orig.Text, clone.Text)
	assert.Equal(t, slide.Position{X: 25, Y: 35}, clone.Position)
	assert.Equal(t, id, s.Selected())

	_, ok = s.Duplicate("missing")
	assert.False(t, ok)
}

func TestStoreDuplicateClampsAtEdge(t *testing.T) {
	s := NewStore([]slide.TextElement{{ID: "a", Type: slide.ElementParagraph, Position: slide.Position{X: 98, Y: 97}}})
	id, _ := s.Duplicate("a")
	clone, _ := s.Get(id)
	assert.Equal(t, slide.Position{X: 100, Y: 100}, clone.Position)
}

func TestHistoryUndoRedoRestoresExactSnapshot(t *testing.T) {
	s := NewStore(nil)
	id, _ := s.Add(nil)
	h := NewHistory(s.snapshot(), 0)
	before := s.Elements()

	_, err := s.Update(id, ElementPatch{Position: &slide.Position{X: 12.5, Y: 80}, Style: StylePatch{slide.StyleFontSize: "2rem"}})
	require.NoError(t, err)
	h.Commit(s.snapshot())
	after := s.Elements()

	snap, ok := h.Undo()
	require.True(t, ok)
	s.restore(snap)
	assert.Equal(t, before, s.Elements())

	snap, ok = h.Redo()
	require.True(t, ok)
	s.restore(snap)
	assert.Equal(t, after, s.Elements())

	_, ok = h.Redo()
	assert.False(t, ok)
}

func TestHistoryCommitAfterUndoDropsRedo(t *testing.T) {
	h := NewHistory(nil, 0)
	a := []slide.TextElement{{ID: "a"}}
	b := []slide.TextElement{{ID: "b"}}
	c := []slide.TextElement{{ID: "c"}}

	h.Commit(a)
	h.Commit(b)
	h.Undo()
	h.Commit(c)

	assert.False(t, h.CanRedo())
	assert.Equal(t, c, h.Current())
	snap, _ := h.Undo()
	assert.Equal(t, a, snap)
	assert.Equal(t, 3, h.Len())
}

func TestHistoryCapDropsOldest(t *testing.T) {
	h := NewHistory([]slide.TextElement{}, 3)
	for i := 0; i < 5; i++ {
		h.Commit([]slide.TextElement{{ID: string(rune('a' + i))}})
	}
	assert.Equal(t, 3, h.Len())

	undone := 0
	for h.CanUndo() {
		h.Undo()
		undone++
	}
	assert.Equal(t, 2, undone)
	assert.Equal(t, "c", h.Current()[0].ID)
}
