// Package notifier maintains per-session subscriber lists and fans out
// structured events to them. It is the sole point of contact between the
// analysis core and whatever transport (WebSocket, CLI stdout, tests)
// ultimately delivers events to a consumer.
package notifier

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync"
	"time"

	"qualitygate/internal/logging"
	"qualitygate/internal/types"
)

func marshalEvent(event types.Event) ([]byte, error) {
	return json.Marshal(event)
}

// Subscriber receives already-JSON-encoded events. Send must not block the
// caller indefinitely; implementations that front a slow transport should
// buffer or drop rather than stall the notifier.
type Subscriber interface {
	Send(data []byte) error
	ID() string
}

// Notifier maintains session_id -> list<Subscriber> and serialises events
// to JSON before fan-out. Safe for concurrent use.
type Notifier struct {
	mu          sync.RWMutex
	subscribers map[string][]Subscriber
	log         logging.Logger
}

// New builds a Notifier with the given logger (component-tagged by the
// caller if desired).
func New(log logging.Logger) *Notifier {
	if log == nil {
		log = logging.NewTestLogger()
	}
	return &Notifier{subscribers: map[string][]Subscriber{}, log: log}
}

// Attach appends subscriber to sessionID's list, creating it if absent.
func (n *Notifier) Attach(sessionID string, sub Subscriber) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subscribers[sessionID] = append(n.subscribers[sessionID], sub)
}

// Detach removes subscriber from sessionID's list, dropping the entry
// entirely once it is empty.
func (n *Notifier) Detach(sessionID string, sub Subscriber) {
	n.mu.Lock()
	defer n.mu.Unlock()
	list := n.subscribers[sessionID]
	for i, s := range list {
		if s == sub || s.ID() == sub.ID() {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(n.subscribers, sessionID)
	} else {
		n.subscribers[sessionID] = list
	}
}

// Send serialises event as JSON and writes it to every subscriber of
// sessionID. Per-subscriber send failures are logged and do not abort the
// fan-out. A session with no subscribers is a logged no-op.
func (n *Notifier) Send(ctx context.Context, sessionID string, event types.Event) {
	event.SessionID = sessionID
	data, err := marshalEvent(event)
	if err != nil {
		n.log.Error(ctx, "failed to marshal event", "session_id", sessionID, "error", err)
		return
	}

	n.mu.RLock()
	subs := append([]Subscriber(nil), n.subscribers[sessionID]...)
	n.mu.RUnlock()

	if len(subs) == 0 {
		n.log.Debug(ctx, "event dropped, no subscribers", "session_id", sessionID, "kind", event.Kind)
		return
	}
	for _, sub := range subs {
		if err := sub.Send(data); err != nil {
			n.log.Warn(ctx, "subscriber send failed", "session_id", sessionID, "subscriber", sub.ID(), "error", err)
		}
	}
}

// SubscriberCount reports how many subscribers are currently attached to
// sessionID, for diagnostics/metrics.
func (n *Notifier) SubscriberCount(sessionID string) int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subscribers[sessionID])
}

// Scoped wraps a Notifier with a fixed session id and exposes event-shaped
// helpers. Every method is a thin adapter onto Send.
type Scoped struct {
	n         *Notifier
	sessionID string
}

// NewScoped builds a Scoped notifier bound to sessionID.
func NewScoped(n *Notifier, sessionID string) *Scoped {
	return &Scoped{n: n, sessionID: sessionID}
}

func (s *Scoped) SessionID() string { return s.sessionID }

func (s *Scoped) send(ctx context.Context, event types.Event) {
	event.Timestamp = now()
	s.n.Send(ctx, s.sessionID, event)
}

func (s *Scoped) SendGlobalInit(ctx context.Context) {
	s.send(ctx, types.Event{Kind: types.EventGlobalInit})
}

func (s *Scoped) SendGlobalEnd(ctx context.Context, status types.GlobalStatus) {
	s.send(ctx, types.Event{Kind: types.EventGlobalEnd, Status: string(status)})
}

func (s *Scoped) SendInit(ctx context.Context, module string) {
	s.send(ctx, types.Event{Kind: types.EventInit, Module: module})
}

func (s *Scoped) SendLog(ctx context.Context, module, msg string) {
	s.send(ctx, types.Event{Kind: types.EventLog, Module: module, Message: msg})
}

// SendStream sends a STREAM event. When gzipBase64 is true, data is assumed
// already gzip-compressed; it is base64-encoded here and
// encoding="gzip_base64" is set. Otherwise data is sent as raw text with no
// encoding field.
func (s *Scoped) SendStream(ctx context.Context, module string, data []byte, gzipBase64 bool) {
	ev := types.Event{Kind: types.EventStream, Module: module}
	if gzipBase64 {
		ev.Data = base64.StdEncoding.EncodeToString(data)
		ev.Encoding = "gzip_base64"
	} else {
		ev.Data = string(data)
	}
	s.send(ctx, ev)
}

func (s *Scoped) SendEnd(ctx context.Context, module string, status types.RunStatus, summary string) {
	s.send(ctx, types.Event{Kind: types.EventEnd, Module: module, Status: string(status), Summary: summary})
}

func (s *Scoped) SendMetrics(ctx context.Context, module string, report *types.MetricsReport) {
	s.send(ctx, types.Event{Kind: types.EventMetrics, Module: module, Report: report})
}

func (s *Scoped) SendError(ctx context.Context, module, errMsg string) {
	s.send(ctx, types.Event{Kind: types.EventError, Module: module, Error: errMsg})
}

func (s *Scoped) BroadcastRaw(ctx context.Context, event types.Event) {
	s.send(ctx, event)
}

// now is overridable in tests that need deterministic timestamps.
var now = func() time.Time { return time.Now() }
