package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Level 是前端 toast 的级别。
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Notification 是通过 Redis Pub/Sub 转发到 WebSocket 的消息。
// 字段名与前端解析保持一致。
type Notification struct {
	Level         Level  `json:"level"`
	Event         string `json:"event"`
	Code          int    `json:"code"`
	Message       string `json:"message"`
	DesignID      uint   `json:"design_id,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// Notifier 是“发出即忘”的通知通道，调用方不关心结果。
type Notifier interface {
	Notify(ctx context.Context, userID uint, n Notification)
}

// Channel 返回用户的通知频道名。
func Channel(userID uint) string {
	return fmt.Sprintf("user_notify:%d", userID)
}

type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisNotifier 把通知发布到 user_notify:<id>。
type RedisNotifier struct {
	client publisher
	logger *slog.Logger
}

func NewRedisNotifier(client *redis.Client, logger *slog.Logger) *RedisNotifier {
	return newRedisNotifier(client, logger)
}

func newRedisNotifier(client publisher, logger *slog.Logger) *RedisNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisNotifier{client: client, logger: logger}
}

// Publish 发布通知并返回错误，供需要感知失败的调用方（如 worker）使用。
func (n *RedisNotifier) Publish(ctx context.Context, userID uint, msg Notification) error {
	if userID == 0 {
		return nil
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	channel := Channel(userID)
	if err := n.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish redis notification to %q: %w", channel, err)
	}
	return nil
}

// Notify 实现 Notifier，失败只记录日志。
func (n *RedisNotifier) Notify(ctx context.Context, userID uint, msg Notification) {
	if err := n.Publish(ctx, userID, msg); err != nil {
		n.logger.Error("publish notification failed",
			slog.Uint64("user_id", uint64(userID)),
			slog.String("event", msg.Event),
			slog.Any("error", err),
		)
	}
}

// Discard 丢弃所有通知。
type Discard struct{}

func (Discard) Notify(context.Context, uint, Notification) {}

// Recorder 在内存中记录通知，测试用。
type Recorder struct {
	mu      sync.Mutex
	entries []Record
}

type Record struct {
	UserID       uint
	Notification Notification
}

func (r *Recorder) Notify(_ context.Context, userID uint, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Record{UserID: userID, Notification: n})
}

// Records 返回已记录通知的副本。
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.entries))
	copy(out, r.entries)
	return out
}
