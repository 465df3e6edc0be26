package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slidestudio/internal/auth"
	"slidestudio/internal/notify"
)

func TestDecodeNotificationFiltersByEvent(t *testing.T) {
	payload := `{"level":"success","event":"design.thumbnail","code":200,"message":"缩略图已生成","design_id":7}`

	n, ok, err := decodeNotification(payload, newEventFilter(nil))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, notify.LevelSuccess, n.Level)
	assert.Equal(t, uint(7), n.DesignID)

	_, ok, err = decodeNotification(payload, newEventFilter([]string{"design.save", " "}))
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = decodeNotification(payload, newEventFilter([]string{" design.thumbnail "}))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDecodeNotificationRejectsInvalidPayload(t *testing.T) {
	for _, payload := range []string{
		"not json",
		`{"message":"no event"}`,
		`{"event":"design.save"}`,
	} {
		_, ok, err := decodeNotification(payload, newEventFilter(nil))
		assert.ErrorIs(t, err, errInvalidNotification, payload)
		assert.False(t, ok)
	}
}

func TestOriginAllowed(t *testing.T) {
	assert.True(t, originAllowed("", "api.example.org", nil))
	assert.True(t, originAllowed("https://API.example.org", "api.example.org", nil))
	assert.False(t, originAllowed("https://evil.example.com", "api.example.org", nil))

	allowed := []string{"https://choir.example.org"}
	assert.True(t, originAllowed("https://choir.example.org", "api.example.org", allowed))
	assert.False(t, originAllowed("https://api.example.org", "api.example.org", allowed))
}

type wsValidator map[string]auth.TokenClaims

func (v wsValidator) ValidateAccessToken(token string) (*auth.TokenClaims, error) {
	claims, ok := v[token]
	if !ok {
		return nil, errors.New("invalid")
	}
	return &claims, nil
}

func TestWsHandlerRejectsBadAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := wsValidator{
		"pending": {UserID: 3, MustChangePassword: true},
	}
	h := NewWsHandler(nil, tokens, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	r := gin.New()
	r.GET("/v1/ws", h.HandleConnection)
	ts := httptest.NewServer(r)
	defer ts.Close()

	cases := []struct {
		name  string
		frame any
		text  string
	}{
		{"unknown token", wsClientFrame{Type: "auth", Token: "nope"}, "unauthorized"},
		{"missing type", wsClientFrame{Token: "pending"}, "auth required"},
		{"password change", wsClientFrame{Type: "auth", Token: "pending"}, "password change required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/v1/ws", nil)
			require.NoError(t, err)
			defer conn.Close()

			require.NoError(t, conn.WriteJSON(tc.frame))
			_, _, err = conn.ReadMessage()
			var closeErr *websocket.CloseError
			require.ErrorAs(t, err, &closeErr)
			assert.Equal(t, websocket.ClosePolicyViolation, closeErr.Code)
			assert.Equal(t, tc.text, closeErr.Text)
		})
	}
}
