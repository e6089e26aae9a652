package notifier

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qualitygate/internal/logging"
	"qualitygate/internal/types"
)

type fakeSub struct {
	id      string
	mu      sync.Mutex
	frames  [][]byte
	failing bool
}

func (f *fakeSub) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return assert.AnError
	}
	f.frames = append(f.frames, data)
	return nil
}
func (f *fakeSub) ID() string { return f.id }
func (f *fakeSub) frameCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func TestAttachSendDetach(t *testing.T) {
	n := New(logging.NewTestLogger())
	sub := &fakeSub{id: "a"}
	n.Attach("sess1", sub)
	assert.Equal(t, 1, n.SubscriberCount("sess1"))

	n.Send(context.Background(), "sess1", types.Event{Kind: types.EventLog, Message: "hi"})
	require.Equal(t, 1, sub.frameCount())

	var decoded types.Event
	require.NoError(t, json.Unmarshal(sub.frames[0], &decoded))
	assert.Equal(t, "sess1", decoded.SessionID)
	assert.Equal(t, "hi", decoded.Message)

	n.Detach("sess1", sub)
	assert.Equal(t, 0, n.SubscriberCount("sess1"))
}

func TestSendWithNoSubscribersIsNoop(t *testing.T) {
	n := New(logging.NewTestLogger())
	assert.NotPanics(t, func() {
		n.Send(context.Background(), "ghost", types.Event{Kind: types.EventLog})
	})
}

func TestSendFailureDoesNotAbortFanOut(t *testing.T) {
	n := New(logging.NewTestLogger())
	bad := &fakeSub{id: "bad", failing: true}
	good := &fakeSub{id: "good"}
	n.Attach("sess1", bad)
	n.Attach("sess1", good)

	n.Send(context.Background(), "sess1", types.Event{Kind: types.EventLog})
	assert.Equal(t, 1, good.frameCount())
}

func TestScopedHelpersSetSessionID(t *testing.T) {
	n := New(logging.NewTestLogger())
	sub := &fakeSub{id: "a"}
	n.Attach("sess1", sub)
	scoped := NewScoped(n, "sess1")

	scoped.SendInit(context.Background(), "tool-a")
	scoped.SendEnd(context.Background(), "tool-a", types.StatusPass, "ok")
	require.Equal(t, 2, sub.frameCount())

	var ev types.Event
	require.NoError(t, json.Unmarshal(sub.frames[1], &ev))
	assert.Equal(t, types.EventEnd, ev.Kind)
	assert.Equal(t, "tool-a", ev.Module)
	assert.Equal(t, "ok", ev.Summary)
}

func TestScopedStreamEncoding(t *testing.T) {
	n := New(logging.NewTestLogger())
	sub := &fakeSub{id: "a"}
	n.Attach("sess1", sub)
	scoped := NewScoped(n, "sess1")

	scoped.SendStream(context.Background(), "tool-a", []byte("raw text"), false)
	var ev types.Event
	require.NoError(t, json.Unmarshal(sub.frames[0], &ev))
	assert.Empty(t, ev.Encoding)
	assert.Equal(t, "raw text", ev.Data)
}
