package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qualitygate/internal/analysis/notifier"
	"qualitygate/internal/logging"
	"qualitygate/internal/types"
)

func TestAllowlistValidatorEmptyAllowsAll(t *testing.T) {
	v := NewAllowlistValidator(nil)
	assert.True(t, v.IsAllowedOrigin("http://anything"))
}

func TestAllowlistValidatorRejectsUnlisted(t *testing.T) {
	v := NewAllowlistValidator([]string{"http://localhost:3000"})
	assert.True(t, v.IsAllowedOrigin("http://localhost:3000"))
	assert.False(t, v.IsAllowedOrigin("http://evil.example"))
}

func TestHandlerAttachesSubscriberAndDelivers(t *testing.T) {
	n := notifier.New(logging.NewTestLogger())
	h := NewHandler(n, nil, logging.NewTestLogger(), nil)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeSession(w, r, "sess1")
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := ws.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(ws.StatusNormalClosure, "")

	// Give the server a moment to register the subscriber.
	deadline := time.Now().Add(2 * time.Second)
	for n.SubscriberCount("sess1") == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, 1, n.SubscriberCount("sess1"))

	n.Send(ctx, "sess1", types.Event{Kind: types.EventLog, Message: "hello"})

	readCtx, readCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer readCancel()
	_, data, err := conn.Read(readCtx)
	require.NoError(t, err)
	assert.Contains(t, string(data), "LOG")
}
