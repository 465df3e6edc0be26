package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"slidestudio/internal/api/middleware"
	"slidestudio/internal/notify"
)

const (
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 5 * time.Second
)

var errInvalidNotification = errors.New("invalid notification payload")

// WsHandler 把 Redis 中的用户通知（缩略图完成、保存结果）推送给编辑器。
// 客户端先发送 auth 帧，之后可以随时发送 subscribe 帧调整关心的事件。
type WsHandler struct {
	redisClient redis.UniversalClient
	tokens      middleware.TokenValidator
	logger      *slog.Logger
	upgrader    websocket.Upgrader
}

func NewWsHandler(redisClient redis.UniversalClient, tokens middleware.TokenValidator, logger *slog.Logger, allowedOrigins []string) *WsHandler {
	return &WsHandler{
		redisClient: redisClient,
		tokens:      tokens,
		logger:      logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return originAllowed(r.Header.Get("Origin"), r.Host, allowedOrigins)
			},
		},
	}
}

// originAllowed 未配置白名单时只接受同源请求。
func originAllowed(origin, host string, allowed []string) bool {
	if origin == "" {
		return true
	}
	if len(allowed) == 0 {
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, host)
	}
	for _, a := range allowed {
		if origin == a {
			return true
		}
	}
	return false
}

// wsClientFrame 是客户端发来的控制帧。
type wsClientFrame struct {
	Type   string   `json:"type"`
	Token  string   `json:"token,omitempty"`
	Events []string `json:"events,omitempty"`
}

// eventFilter 为空表示接收全部事件。
type eventFilter map[string]struct{}

func newEventFilter(events []string) eventFilter {
	f := eventFilter{}
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			f[e] = struct{}{}
		}
	}
	return f
}

func (f eventFilter) accepts(event string) bool {
	if len(f) == 0 {
		return true
	}
	_, ok := f[event]
	return ok
}

// decodeNotification 解析频道消息；不关心的事件返回 ok=false。
func decodeNotification(payload string, f eventFilter) (notify.Notification, bool, error) {
	var n notify.Notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return n, false, fmt.Errorf("%w: %v", errInvalidNotification, err)
	}
	if n.Event == "" || n.Level == "" {
		return n, false, fmt.Errorf("%w: missing event or level", errInvalidNotification)
	}
	return n, f.accepts(n.Event), nil
}

// wsStream 是单个连接的状态。
type wsStream struct {
	// 鉴权之后写操作只发生在 forward 所在的 goroutine。
	conn   *websocket.Conn
	filter atomic.Pointer[eventFilter]
	log    *slog.Logger
	done   chan error
}

func (s *wsStream) setFilter(events []string) {
	f := newEventFilter(events)
	s.filter.Store(&f)
}

func (s *wsStream) stop(err error) {
	select {
	case s.done <- err:
	default:
	}
}

// HandleConnection 升级连接，完成鉴权后转发通知直到任一方断开。
func (h *WsHandler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("upgrade websocket failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	stream := &wsStream{
		conn: conn,
		log:  h.logger.With(slog.String("client_ip", c.ClientIP())),
		done: make(chan error, 1),
	}

	userID, err := h.authenticate(stream)
	if err != nil {
		stream.log.Warn("websocket authentication failed", slog.Any("error", err))
		return
	}
	stream.log = stream.log.With(slog.Uint64("user_id", uint64(userID)))

	go h.readFrames(stream)
	go h.forward(ctx, stream, userID)

	if err := <-stream.done; err != nil {
		stream.log.Info("websocket connection closed", slog.Any("error", err))
	} else {
		stream.log.Info("websocket connection closed")
	}
}

// authenticate 读取第一帧并校验令牌；失败时发送关闭帧。
func (h *WsHandler) authenticate(s *wsStream) (uint, error) {
	var frame wsClientFrame
	if err := s.conn.ReadJSON(&frame); err != nil {
		writeClose(s.conn, websocket.ClosePolicyViolation, "invalid auth payload")
		return 0, fmt.Errorf("decode auth payload: %w", err)
	}
	if frame.Type != "auth" || frame.Token == "" {
		writeClose(s.conn, websocket.ClosePolicyViolation, "auth required")
		return 0, errors.New("invalid auth message")
	}
	claims, err := h.tokens.ValidateAccessToken(frame.Token)
	if err != nil {
		writeClose(s.conn, websocket.ClosePolicyViolation, "unauthorized")
		return 0, fmt.Errorf("validate token: %w", err)
	}
	if claims.MustChangePassword {
		writeClose(s.conn, websocket.ClosePolicyViolation, "password change required")
		return 0, errors.New("password change required")
	}
	s.setFilter(frame.Events)
	s.log.Info("websocket authenticated", slog.Uint64("user_id", uint64(claims.UserID)), slog.Any("events", frame.Events))
	return claims.UserID, nil
}

// readFrames 处理 subscribe 帧，同时感知客户端断开。
func (h *WsHandler) readFrames(s *wsStream) {
	for {
		var frame wsClientFrame
		if err := s.conn.ReadJSON(&frame); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				s.log.Warn("ignore malformed websocket frame", slog.Any("error", err))
				continue
			}
			s.stop(fmt.Errorf("read message: %w", err))
			return
		}
		if frame.Type == "subscribe" {
			s.setFilter(frame.Events)
			s.log.Debug("websocket filter updated", slog.Any("events", frame.Events))
		}
	}
}

func writeClose(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(wsWriteTimeout))
}

// forward 订阅用户频道，按过滤条件把通知以 JSON 写给客户端，并定期发送 ping。
func (h *WsHandler) forward(ctx context.Context, s *wsStream, userID uint) {
	channel := notify.Channel(userID)
	pubsub := h.redisClient.Subscribe(ctx, channel)
	defer pubsub.Close()

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			s.stop(nil)
			return
		case msg, ok := <-ch:
			if !ok {
				s.stop(errors.New("pubsub channel closed"))
				return
			}
			n, wanted, err := decodeNotification(msg.Payload, *s.filter.Load())
			if err != nil {
				s.log.Warn("drop notification", slog.String("channel", channel), slog.Any("error", err))
				continue
			}
			if !wanted {
				continue
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := s.conn.WriteJSON(n); err != nil {
				s.stop(fmt.Errorf("write notification %s: %w", n.Event, err))
				return
			}
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				s.stop(fmt.Errorf("write ping: %w", err))
				return
			}
		}
	}
}
