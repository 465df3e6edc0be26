package editor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"slidestudio/internal/auth"
	"slidestudio/internal/metrics"
)

var ErrSessionNotFound = errors.New("editor session not found")

// DefaultIdleTTL 是会话无操作后被清理的时间。
const DefaultIdleTTL = 2 * time.Hour

// Manager 保存进程内的编辑会话，按 UUID 索引并归属于打开它的用户。
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	logger   *slog.Logger
}

func NewManager(ttl time.Duration, logger *slog.Logger) *Manager {
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		logger:   logger,
	}
}

// Add 注册会话；未授权的用户不能打开编辑会话。
func (m *Manager) Add(s *Session) error {
	if !s.Owner().CanEditSlides() {
		return ErrForbidden
	}
	m.mu.Lock()
	m.sessions[s.ID()] = s
	n := len(m.sessions)
	m.mu.Unlock()

	metrics.SetOpenSessions(n)
	m.logger.Info("editor session opened",
		slog.String("session_id", s.ID()),
		slog.Uint64("user_id", uint64(s.Owner().UserID)),
	)
	return nil
}

// Get 返回属于该用户的会话。
func (m *Manager) Get(id string, user auth.Session) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.Owner().UserID != user.UserID {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (m *Manager) Close(id string, user auth.Session) error {
	if _, err := m.Get(id, user); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()
	metrics.SetOpenSessions(n)
	return nil
}

// Sweep 删除闲置超过 TTL 的会话，返回删除数量。
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	candidates := make(map[string]*Session, len(m.sessions))
	for id, s := range m.sessions {
		candidates[id] = s
	}
	m.mu.Unlock()

	var expired []string
	for id, s := range candidates {
		if now.Sub(s.LastActive()) > m.ttl {
			expired = append(expired, id)
		}
	}
	if len(expired) == 0 {
		return 0
	}

	m.mu.Lock()
	for _, id := range expired {
		delete(m.sessions, id)
	}
	n := len(m.sessions)
	m.mu.Unlock()

	metrics.SetOpenSessions(n)
	m.logger.Info("expired editor sessions removed", slog.Int("count", len(expired)))
	return len(expired)
}

// Run 按固定间隔清理闲置会话，直到 ctx 结束。
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.Sweep(now)
		}
	}
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
