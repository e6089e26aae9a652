package module

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qualitygate/internal/analysis/notifier"
	"qualitygate/internal/logging"
	"qualitygate/internal/types"
)

type fakeAdapter struct {
	argv      []string
	configWarn string
	summary   string
}

func (a *fakeAdapter) ID() string             { return "L" }
func (a *fakeAdapter) Title() string          { return "fake" }
func (a *fakeAdapter) Subtitle() string       { return "fake" }
func (a *fakeAdapter) Icon() string           { return "fake" }
func (a *fakeAdapter) Extensions() []string   { return []string{".py"} }
func (a *fakeAdapter) BuildCommand(projectRoot string, files []string) ([]string, string) {
	return a.argv, a.configWarn
}
func (a *fakeAdapter) Summarize(stdout, stderr string, exitCode int) string {
	return a.summary
}

type recordingSub struct {
	mu     sync.Mutex
	events []types.Event
}

func (s *recordingSub) Send(data []byte) error {
	var ev types.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return err
	}
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
	return nil
}
func (s *recordingSub) ID() string { return "rec" }
func (s *recordingSub) snapshot() []types.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Event, len(s.events))
	copy(out, s.events)
	return out
}

func newTestModule(t *testing.T, a *fakeAdapter) (*Module, *recordingSub) {
	n := notifier.New(logging.NewTestLogger())
	sub := &recordingSub{}
	n.Attach("sess", sub)
	scoped := notifier.NewScoped(n, "sess")
	m := New(a, t.TempDir(), scoped, nil, logging.NewTestLogger())
	return m, sub
}

func TestModuleSkippedOnEmptyArgv(t *testing.T) {
	m, sub := newTestModule(t, &fakeAdapter{argv: nil})
	status, err := m.Run(context.Background(), []string{"README.md"})
	require.NoError(t, err)
	assert.Equal(t, types.StatusSkipped, status)
	assert.Empty(t, sub.snapshot())
}

func TestModuleHappyPath(t *testing.T) {
	m, sub := newTestModule(t, &fakeAdapter{argv: []string{"/bin/echo", "hello"}, summary: "ok"})
	status, err := m.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, types.StatusPass, status)

	events := sub.snapshot()
	require.NotEmpty(t, events)
	assert.Equal(t, types.EventInit, events[0].Kind)

	var streamData []byte
	var sawMetrics, sawEnd bool
	for _, ev := range events {
		switch ev.Kind {
		case types.EventLog:
			assert.Contains(t, ev.Message, "/bin/echo hello")
		case types.EventStream:
			if ev.Encoding == "gzip_base64" {
				raw, err := base64.StdEncoding.DecodeString(ev.Data)
				require.NoError(t, err)
				gz, err := gzip.NewReader(bytes.NewReader(raw))
				require.NoError(t, err)
				plain, err := io.ReadAll(gz)
				require.NoError(t, err)
				streamData = append(streamData, plain...)
			} else {
				streamData = append(streamData, []byte(ev.Data)...)
			}
		case types.EventMetrics:
			sawMetrics = true
		case types.EventEnd:
			sawEnd = true
			assert.Equal(t, "PASS", ev.Status)
			assert.Equal(t, "ok", ev.Summary)
		}
	}
	assert.Equal(t, "hello\n", string(streamData))
	assert.True(t, sawMetrics)
	assert.True(t, sawEnd)
}

func TestModuleFailureSummary(t *testing.T) {
	m, sub := newTestModule(t, &fakeAdapter{argv: []string{"/bin/sh", "-c", "exit 1"}, summary: "issues"})
	status, err := m.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, types.StatusFail, status)

	events := sub.snapshot()
	last := events[len(events)-1]
	assert.Equal(t, types.EventEnd, last.Kind)
	assert.Equal(t, "FAIL", last.Status)
}

func TestModuleCancellation(t *testing.T) {
	m, sub := newTestModule(t, &fakeAdapter{argv: []string{"/bin/sh", "-c", "sleep 60"}, summary: "n/a"})
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	status, err := m.Run(ctx, nil)
	elapsed := time.Since(start)

	assert.Equal(t, types.StatusFail, status)
	assert.Error(t, err)
	assert.Less(t, elapsed, 3*time.Second)

	events := sub.snapshot()
	last := events[len(events)-1]
	assert.Equal(t, types.EventEnd, last.Kind)
	assert.Contains(t, last.Summary, "cancelled")
}
