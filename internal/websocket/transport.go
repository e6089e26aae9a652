// Package websocket adapts github.com/coder/websocket connections to the
// notifier.Subscriber interface, keyed by session (project) id instead of
// the teacher's single global client map. Origin validation mirrors the
// teacher's OriginValidator pattern, generalised to a configured allowlist.
package websocket

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"qualitygate/internal/analysis/notifier"
	"qualitygate/internal/logging"
	"qualitygate/internal/metrics"
	"qualitygate/internal/validation"
)

const (
	writeTimeout = 5 * time.Second
	pingInterval = 30 * time.Second
	sendBuffer   = 256
)

// OriginValidator decides whether a WebSocket upgrade's Origin header is
// allowed. Generalised from the teacher's templ-dev-server defaults to a
// configured allowlist.
type OriginValidator interface {
	IsAllowedOrigin(origin string) bool
}

// AllowlistValidator is the simplest OriginValidator: an explicit set of
// allowed origins, or "allow all" when empty (local single-user tool). The
// allowlist is held behind an atomic pointer so a config hot-reload can
// swap it in place without locking out connections being validated.
type AllowlistValidator struct {
	origins atomic.Pointer[[]string]
}

func NewAllowlistValidator(origins []string) *AllowlistValidator {
	v := &AllowlistValidator{}
	v.origins.Store(&origins)
	return v
}

// Set swaps the allowed-origins list in place.
func (v *AllowlistValidator) Set(origins []string) {
	v.origins.Store(&origins)
}

// IsAllowedOrigin delegates to validation.ValidateOrigin, which allows any
// http/https origin when the allowlist is empty (local single-user tool).
func (v *AllowlistValidator) IsAllowedOrigin(origin string) bool {
	return validation.ValidateOrigin(origin, *v.origins.Load()) == nil
}

// client adapts one coder/websocket connection to notifier.Subscriber via
// a buffered send channel and a dedicated write-pump goroutine, so Send
// never blocks the notifier's fan-out on a slow network peer.
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	log  logging.Logger

	closeOnce sync.Once
	done      chan struct{}
}

func (c *client) ID() string { return c.id }

func (c *client) Send(data []byte) error {
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return fmt.Errorf("subscriber %s closed", c.id)
	default:
		return fmt.Errorf("subscriber %s send buffer full", c.id)
	}
}

func (c *client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case data := <-c.send:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				c.log.Warn(ctx, "websocket write failed", "subscriber", c.id, "error", err)
				return
			}
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Ping(pctx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Handler serves the push-channel attach endpoint, registering each
// accepted connection as a subscriber of the Notifier for the requested
// session id.
type Handler struct {
	notifier  *notifier.Notifier
	validator OriginValidator
	log       logging.Logger
	metrics   *metrics.Metrics // optional; nil disables instrumentation

	mu       sync.Mutex
	nextConn int
}

// NewHandler builds a Handler. mtx may be nil.
func NewHandler(n *notifier.Notifier, validator OriginValidator, log logging.Logger, mtx *metrics.Metrics) *Handler {
	if log == nil {
		log = logging.NewTestLogger()
	}
	if validator == nil {
		validator = NewAllowlistValidator(nil)
	}
	return &Handler{notifier: n, validator: validator, log: log, metrics: mtx}
}

// ServeSession accepts a WebSocket upgrade and attaches it to the Notifier
// under sessionID until the connection closes or ctx is cancelled.
func (h *Handler) ServeSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	if origin := r.Header.Get("Origin"); origin != "" && !h.validator.IsAllowedOrigin(origin) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(r.Context(), w, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		h.log.Warn(r.Context(), "websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		id:   h.newClientID(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
		log:  h.log,
		done: make(chan struct{}),
	}

	h.notifier.Attach(sessionID, c)
	if h.metrics != nil {
		h.metrics.WebsocketSubscribers.Inc()
	}
	defer func() {
		h.notifier.Detach(sessionID, c)
		if h.metrics != nil {
			h.metrics.WebsocketSubscribers.Dec()
		}
	}()

	ctx := conn.CloseRead(r.Context())
	c.writePump(ctx)
	c.close()
	_ = conn.Close(websocket.StatusNormalClosure, "")
}

func (h *Handler) newClientID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextConn++
	return fmt.Sprintf("ws-%d", h.nextConn)
}
