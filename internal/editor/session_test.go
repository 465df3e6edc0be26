package editor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slidestudio/internal/auth"
	"slidestudio/internal/canvas"
	"slidestudio/internal/catalog"
	"slidestudio/internal/notify"
	"slidestudio/internal/slide"
)

var admin = auth.Session{UserID: 1, Username: "director", Role: auth.RoleAdmin}

type fakePersister struct {
	inserts int
	updates int
	err     error
	last    slide.Design
}

func (f *fakePersister) InsertDesign(_ context.Context, d *slide.Design) error {
	f.inserts++
	if f.err != nil {
		return f.err
	}
	d.ID = 42
	f.last = *d
	return nil
}

func (f *fakePersister) UpdateDesign(_ context.Context, d *slide.Design) error {
	f.updates++
	if f.err != nil {
		return f.err
	}
	f.last = *d
	return nil
}

func newTestSession(t *testing.T, p Persister, n notify.Notifier) *Session {
	t.Helper()
	return NewBlankSession(Options{Owner: admin, Persister: p, Notifier: n})
}

func TestDragUndoRedoScenario(t *testing.T) {
	s := newTestSession(t, nil, nil)
	id, err := s.AddElement(nil)
	require.NoError(t, err)

	container := Size{Width: 1000, Height: 500}
	require.True(t, s.PointerDown(id, Point{X: 500, Y: 250}, container))
	assert.Equal(t, GestureDrag, s.State().Gesture)

	frame, ok := s.PointerMove(Point{X: 300, Y: 150}, container)
	require.True(t, ok)
	assert.Equal(t, id, frame.ElementID)
	_, ok = s.PointerMove(Point{X: 100, Y: 50}, container)
	require.True(t, ok)
	assert.True(t, s.PointerUp())

	position := func() slide.Position {
		for _, el := range s.State().Elements {
			if el.ID == id {
				return el.Position
			}
		}
		t.Fatalf("element %s missing", id)
		return slide.Position{}
	}
	assert.InDelta(t, 10, position().X, 1e-9)
	assert.InDelta(t, 10, position().Y, 1e-9)

	// 中间帧不入历史：一次撤销直接回到 (50,50)
	require.True(t, s.Undo())
	assert.Equal(t, slide.Position{X: 50, Y: 50}, position())

	require.True(t, s.Redo())
	assert.InDelta(t, 10, position().X, 1e-9)
	assert.InDelta(t, 10, position().Y, 1e-9)
}

func TestPointerUpWithoutMoveDoesNotCommit(t *testing.T) {
	s := newTestSession(t, nil, nil)
	id, _ := s.AddElement(nil)
	require.True(t, s.PointerDown(id, Point{X: 10, Y: 10}, Size{Width: 100, Height: 100}))
	assert.False(t, s.PointerUp())

	require.True(t, s.Undo()) // 撤销的是 AddElement
	assert.Empty(t, s.State().Elements)
	assert.False(t, s.Undo())
}

func TestPinchGestureThroughSession(t *testing.T) {
	s := newTestSession(t, nil, nil)
	id, _ := s.AddElement(&slide.TextElement{Type: slide.ElementCaption, Text: "Soloist"})

	container := Size{Width: 1280, Height: 720}
	state := s.TouchStart(id, []Point{{X: 100, Y: 100}, {X: 200, Y: 100}}, container)
	require.Equal(t, GestureTransform, state)

	frame, ok := s.TouchMove([]Point{{X: 100, Y: 100}, {X: 250, Y: 100}}, container)
	require.True(t, ok)
	require.NotNil(t, frame.Transform)
	assert.Equal(t, "1.5rem", frame.Transform.FontSize)
	assert.True(t, s.TouchEnd())

	assert.Equal(t, "1.5rem", s.State().Elements[0].Style.FontSize)
	require.True(t, s.Undo())
	assert.Equal(t, "1rem", s.State().Elements[0].Style.FontSize)
}

func TestDoubleTapTogglesTextEditing(t *testing.T) {
	s := newTestSession(t, nil, nil)
	id, _ := s.AddElement(nil)
	container := Size{Width: 100, Height: 100}

	s.TouchStart(id, []Point{{X: 50, Y: 50}}, container)
	s.TouchEnd()
	s.TouchStart(id, []Point{{X: 50, Y: 50}}, container)
	assert.Equal(t, ModeEditingText, s.Mode())
	assert.Equal(t, id, s.State().EditingID)
}

func TestTextEditingStateMachine(t *testing.T) {
	s := newTestSession(t, nil, nil)
	assert.Equal(t, ModeIdle, s.Mode())

	id, _ := s.AddElement(nil)
	assert.Equal(t, ModeSelected, s.Mode())

	mode, err := s.DoubleClick(id)
	require.NoError(t, err)
	assert.Equal(t, ModeEditingText, mode)

	require.NoError(t, s.SetDraftText("<b>Messiah</b> &amp; more<script>alert(1)</script>"))
	handled, err := s.KeyDown(Key{Name: KeyEnter, Shift: true})
	require.NoError(t, err)
	assert.False(t, handled)
	assert.Equal(t, ModeEditingText, s.Mode())

	handled, err = s.KeyDown(Key{Name: KeyEnter})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, ModeSelected, s.Mode())
	assert.Equal(t, "Messiah & more", s.State().Elements[0].Text)

	_, err = s.DoubleClick(id)
	require.NoError(t, err)
	require.NoError(t, s.SetDraftText("discarded"))
	_, err = s.KeyDown(Key{Name: KeyEscape})
	require.NoError(t, err)
	assert.Equal(t, "Messiah & more", s.State().Elements[0].Text)

	_, err = s.KeyDown(Key{Name: KeyEnter})
	assert.ErrorIs(t, err, ErrNotEditing)

	s.ClearSelection()
	assert.Equal(t, ModeIdle, s.Mode())
}

func TestEmptyCommitIsCancel(t *testing.T) {
	s := newTestSession(t, nil, nil)
	id, _ := s.AddElement(nil)
	_, _ = s.DoubleClick(id)
	require.NoError(t, s.SetDraftText("  <br>  "))
	changed, err := s.CommitTextEdit()
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, "New text", s.State().Elements[0].Text)
}

func TestCanvasClickByTool(t *testing.T) {
	s := newTestSession(t, nil, nil)
	container := Size{Width: 400, Height: 200}

	id, err := s.CanvasClick(Point{X: 100, Y: 150}, container)
	require.NoError(t, err)
	assert.Empty(t, id, "select tool does not create elements")

	require.NoError(t, s.SetTool(ToolText))
	id, err = s.CanvasClick(Point{X: 100, Y: 150}, container)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	st := s.State()
	assert.Equal(t, id, st.SelectedID)
	assert.Equal(t, slide.Position{X: 25, Y: 75}, st.Elements[0].Position)

	id, err = s.CanvasClick(Point{X: 1, Y: 1}, Size{})
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.Len(t, s.State().Elements, 1)

	require.NoError(t, s.SetTool(ToolSelect))
	_, _ = s.CanvasClick(Point{X: 10, Y: 10}, container)
	assert.Empty(t, s.State().SelectedID)

	assert.ErrorIs(t, s.SetTool("lasso"), ErrInvalidTool)
}

func TestSaveRequiresTitle(t *testing.T) {
	p := &fakePersister{}
	rec := &notify.Recorder{}
	s := newTestSession(t, p, rec)
	_, _ = s.AddElement(nil)

	for _, title := range []string{"", "   \t"} {
		_, err := s.UpdateMetadata(MetadataPatch{Title: &title})
		require.NoError(t, err)
		_, err = s.Save(context.Background())
		assert.ErrorIs(t, err, ErrTitleRequired)
	}
	assert.Zero(t, p.inserts+p.updates)

	records := rec.Records()
	require.Len(t, records, 2)
	assert.Equal(t, notify.LevelError, records[0].Notification.Level)
}

func TestSaveInsertsThenUpdates(t *testing.T) {
	p := &fakePersister{}
	rec := &notify.Recorder{}
	s := newTestSession(t, p, rec)
	_, _ = s.AddElement(nil)
	_, err := s.UpdateMetadata(MetadataPatch{Title: strPtr("  Spring Gala ")})
	require.NoError(t, err)

	saved, err := s.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, p.inserts)
	assert.Zero(t, p.updates)
	assert.Equal(t, uint(42), saved.ID)
	assert.Equal(t, "Spring Gala", p.last.Title)
	assert.Empty(t, s.State().SelectedID)
	assert.Equal(t, uint(42), s.State().DesignID)

	_, err = s.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, p.inserts)
	assert.Equal(t, 1, p.updates)

	records := rec.Records()
	require.Len(t, records, 2)
	assert.Equal(t, notify.LevelSuccess, records[1].Notification.Level)
	assert.Equal(t, uint(42), records[1].Notification.DesignID)
}

func TestSaveFailureKeepsState(t *testing.T) {
	p := &fakePersister{err: errors.New("connection reset")}
	s := newTestSession(t, p, nil)
	id, _ := s.AddElement(nil)
	_, _ = s.UpdateMetadata(MetadataPatch{Title: strPtr("Gala")})

	_, err := s.Save(context.Background())
	assert.Error(t, err)
	st := s.State()
	assert.Equal(t, id, st.SelectedID)
	assert.Zero(t, st.DesignID)
	assert.False(t, st.Saving)
	assert.Len(t, st.Elements, 1)
}

func TestSaveForbiddenForMembers(t *testing.T) {
	p := &fakePersister{}
	s := NewBlankSession(Options{Owner: auth.Session{UserID: 9, Role: auth.RoleMember}, Persister: p})
	_, _ = s.UpdateMetadata(MetadataPatch{Title: strPtr("x")})
	_, err := s.Save(context.Background())
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Zero(t, p.inserts)
}

type blockingPersister struct {
	calls   atomic.Int32
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (b *blockingPersister) InsertDesign(_ context.Context, d *slide.Design) error {
	b.calls.Add(1)
	b.once.Do(func() { close(b.started) })
	<-b.release
	d.ID = 7
	return nil
}

func (b *blockingPersister) UpdateDesign(ctx context.Context, d *slide.Design) error {
	return b.InsertDesign(ctx, d)
}

func TestSecondSaveWhileInFlightIsRejected(t *testing.T) {
	p := &blockingPersister{started: make(chan struct{}), release: make(chan struct{})}
	s := newTestSession(t, p, nil)
	_, _ = s.UpdateMetadata(MetadataPatch{Title: strPtr("Gala")})

	done := make(chan error, 1)
	go func() {
		_, err := s.Save(context.Background())
		done <- err
	}()
	<-p.started

	assert.True(t, s.State().Saving)
	_, err := s.Save(context.Background())
	assert.ErrorIs(t, err, ErrSaveInProgress)

	close(p.release)
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), p.calls.Load())
}

func TestDraftRoundTrip(t *testing.T) {
	s := newTestSession(t, nil, nil)
	first, _ := s.AddElement(&slide.TextElement{Type: slide.ElementHeading, Text: "Winter Concert", Position: slide.Position{X: 50, Y: 20}})
	_, _ = s.AddElement(&slide.TextElement{Type: slide.ElementCaption, Text: "Dec 12", Position: slide.Position{X: 80, Y: 90}})
	_, _ = s.DuplicateElement(first)
	_, err := s.UpdateMetadata(MetadataPatch{
		Title:      strPtr("Winter"),
		Background: &slide.Background{Color: "#000000", ImageURL: "https://cdn.example.org/bg.jpg"},
	})
	require.NoError(t, err)

	draft := s.Draft()
	raw, err := json.Marshal(draft)
	require.NoError(t, err)
	var decoded slide.Design
	require.NoError(t, json.Unmarshal(raw, &decoded))

	reopened := NewSessionFromDesign(decoded, Options{Owner: admin})
	assert.Equal(t, s.State().Elements, reopened.State().Elements)
	assert.Equal(t, draft.Background, reopened.Draft().Background)
	assert.Equal(t, "Winter", reopened.State().Metadata.Title)
}

func TestSessionFromTemplate(t *testing.T) {
	var tpl slide.Template
	for _, b := range catalog.Builtins() {
		if b.LayoutType == slide.LayoutHalfHorizontal {
			tpl = b
		}
	}
	require.NotEmpty(t, tpl.Name)
	tpl.ID = 3

	s := NewSessionFromTemplate(tpl, Options{Owner: admin})
	st := s.State()
	require.Len(t, st.Elements, len(tpl.Data.TextAreas))
	for i, area := range tpl.Data.TextAreas {
		assert.Equal(t, area.DefaultText, st.Elements[i].Text)
		assert.Equal(t, area.Position, st.Elements[i].Position)
		assert.NotEmpty(t, st.Elements[i].ID)
	}
	require.NotNil(t, st.Metadata.TemplateID)
	assert.Equal(t, uint(3), *st.Metadata.TemplateID)
	assert.Equal(t, slide.LayoutHalfHorizontal, st.Metadata.LayoutType)
	assert.Equal(t, []slide.Region{{X: 0, Y: 50, Width: 100, Height: 50}}, st.ReservedRegions)
	assert.False(t, st.CanUndo)
}

func TestOutsideElementsFollowLayout(t *testing.T) {
	s := newTestSession(t, nil, nil)
	id, _ := s.AddElement(&slide.TextElement{Position: slide.Position{X: 80, Y: 80}})
	assert.Empty(t, s.State().OutsideElements)

	layout := slide.LayoutQuarter
	_, err := s.UpdateMetadata(MetadataPatch{LayoutType: &layout})
	require.NoError(t, err)
	assert.Equal(t, []string{id}, s.State().OutsideElements)
}

func TestStateReportsAreaConstraintViolations(t *testing.T) {
	tpl := slide.Template{
		Name:       "Headline only",
		LayoutType: slide.LayoutHalfVertical,
		DesignableAreas: []slide.DesignableArea{{
			Region: slide.Region{X: 0, Y: 0, Width: 50, Height: 100},
			Constraints: slide.AreaConstraints{
				MaxElements:  2,
				AllowedTypes: []slide.ElementType{slide.ElementHeading},
			},
		}},
	}
	s := NewSessionFromTemplate(tpl, Options{Owner: admin})

	_, err := s.AddElement(&slide.TextElement{Type: slide.ElementHeading, Position: slide.Position{X: 20, Y: 20}})
	require.NoError(t, err)
	assert.Empty(t, s.State().ConstraintViolations)

	para, err := s.AddElement(&slide.TextElement{Type: slide.ElementParagraph, Position: slide.Position{X: 20, Y: 60}})
	require.NoError(t, err)
	assert.Equal(t, []string{para}, s.State().ConstraintViolations)

	extra, err := s.AddElement(&slide.TextElement{Type: slide.ElementHeading, Position: slide.Position{X: 20, Y: 80}})
	require.NoError(t, err)
	assert.Equal(t, []string{para, extra}, s.State().ConstraintViolations)
}

func TestUpdateMetadataValidates(t *testing.T) {
	s := newTestSession(t, nil, nil)
	_, err := s.UpdateMetadata(MetadataPatch{Animation: &slide.AnimationSettings{Duration: 10, Transition: slide.TransitionFade}})
	assert.ErrorIs(t, err, slide.ErrInvalidDesign)

	_, err = s.UpdateMetadata(MetadataPatch{Background: &slide.Background{Color: "blue"}})
	assert.ErrorIs(t, err, slide.ErrInvalidDesign)

	bad := slide.LayoutType("circle")
	_, err = s.UpdateMetadata(MetadataPatch{LayoutType: &bad})
	assert.ErrorIs(t, err, slide.ErrInvalidDesign)

	assert.Equal(t, slide.DefaultAnimation(), s.State().Metadata.Animation)
}

func TestPreviewAndExport(t *testing.T) {
	s := newTestSession(t, nil, nil)
	_, _ = s.AddElement(&slide.TextElement{Type: slide.ElementHeading, Text: "Alumni Night", Position: slide.Position{X: 40, Y: 30}})
	_, _ = s.UpdateMetadata(MetadataPatch{Title: strPtr("Alumni Night 2026!"), Description: strPtr("Annual")})

	var buf bytes.Buffer
	require.NoError(t, s.Preview(&buf, canvas.Options{Viewport: canvas.DefaultViewport()}))
	assert.Contains(t, buf.String(), "Alumni Night")
	assert.Contains(t, buf.String(), "left:40%;top:30%;")

	name, data, err := s.ExportJSON()
	require.NoError(t, err)
	assert.Equal(t, "alumni-night-2026.json", name)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &doc))
	for _, key := range []string{"title", "description", "textElements", "backgroundColor", "backgroundImage", "animationSettings"} {
		assert.Contains(t, doc, key)
	}
	assert.Len(t, doc, 6)
}

func TestExportFileName(t *testing.T) {
	assert.Equal(t, "slide-design.json", ExportFileName("   "))
	assert.Equal(t, "slide-design.json", ExportFileName("合唱"))
	assert.Equal(t, "spring-tour-2026.json", ExportFileName("Spring  Tour -- 2026"))
}
