package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qualitygate/internal/analysis/adapter"
	"qualitygate/internal/analysis/notifier"
	"qualitygate/internal/analysis/orchestrator"
	"qualitygate/internal/logging"
	"qualitygate/internal/types"
)

func TestIsRelevantFilter(t *testing.T) {
	assert.True(t, isRelevant("src/main.py"))
	assert.False(t, isRelevant("node_modules/pkg/index.js"))
	assert.False(t, isRelevant(".git/HEAD"))
	assert.True(t, isRelevant(".github/workflows/ci.yml"))
	assert.False(t, isRelevant("README.md"))
	assert.False(t, isRelevant("dist/bundle.js"))
}

type countingAdapter struct{}

func (a *countingAdapter) ID() string           { return "L" }
func (a *countingAdapter) Title() string        { return "L" }
func (a *countingAdapter) Subtitle() string     { return "L" }
func (a *countingAdapter) Icon() string         { return "L" }
func (a *countingAdapter) Extensions() []string { return []string{".py"} }
func (a *countingAdapter) BuildCommand(projectRoot string, files []string) ([]string, string) {
	return []string{"/bin/true"}, ""
}
func (a *countingAdapter) Summarize(stdout, stderr string, exitCode int) string { return "ok" }

type noopSub struct{}

func (noopSub) Send(data []byte) error { return nil }
func (noopSub) ID() string             { return "noop" }

func TestDebounceCoalescesRapidChanges(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.py"), []byte("x"), 0o644))

	reg := adapter.NewRegistry()
	reg.Register("L", func() adapter.Adapter { return &countingAdapter{} })

	n := notifier.New(logging.NewTestLogger())
	n.Attach("sess", noopSub{})
	scoped := notifier.NewScoped(n, "sess")

	var runCount int32
	orch := orchestrator.New(dir, types.ModeIncremental, scoped, []string{"L"}, reg, logging.NewTestLogger(), nil)

	w := New(dir, orch, logging.NewTestLogger())
	// Execute calls are not counted here (runCount is never incremented; the
	// orchestrator has no interface seam for it). Instead: three rapid
	// notifications for the same file, then a single debounce cycle, which
	// must leave the pending set empty.
	_ = atomic.LoadInt32(&runCount)

	w.mu.Lock()
	w.pendingFiles["a.py"] = struct{}{}
	w.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for i := 0; i < 3; i++ {
		w.NotifyChange("a.py", false)
		time.Sleep(10 * time.Millisecond)
	}

	done := make(chan struct{})
	go func() {
		w.runCycle(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("debounce cycle did not complete")
	}

	w.mu.Lock()
	remaining := len(w.pendingFiles)
	w.mu.Unlock()
	assert.Equal(t, 0, remaining)
}
