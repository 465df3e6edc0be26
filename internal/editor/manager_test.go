package editor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slidestudio/internal/auth"
)

func TestManagerOwnership(t *testing.T) {
	m := NewManager(time.Hour, nil)
	s := NewBlankSession(Options{Owner: admin})
	require.NoError(t, m.Add(s))

	got, err := m.Get(s.ID(), admin)
	require.NoError(t, err)
	assert.Same(t, s, got)

	other := auth.Session{UserID: 2, Role: auth.RoleAdmin}
	_, err = m.Get(s.ID(), other)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, m.Close(s.ID(), other), ErrSessionNotFound)

	require.NoError(t, m.Close(s.ID(), admin))
	assert.Zero(t, m.Len())
}

func TestManagerRejectsNonEditors(t *testing.T) {
	m := NewManager(time.Hour, nil)
	s := NewBlankSession(Options{Owner: auth.Session{UserID: 5, Role: auth.RoleMember}})
	assert.ErrorIs(t, m.Add(s), ErrForbidden)
}

func TestManagerSweep(t *testing.T) {
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	now := base
	clock := func() time.Time { return now }

	m := NewManager(30*time.Minute, nil)
	idle := NewBlankSession(Options{Owner: admin, Clock: clock})
	require.NoError(t, m.Add(idle))

	now = base.Add(20 * time.Minute)
	busy := NewBlankSession(Options{Owner: admin, Clock: clock})
	require.NoError(t, m.Add(busy))

	now = base.Add(40 * time.Minute)
	_, _ = busy.AddElement(nil)

	assert.Equal(t, 1, m.Sweep(now))
	_, err := m.Get(idle.ID(), admin)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.Get(busy.ID(), admin)
	assert.NoError(t, err)
}
