// Package watch implements the Watch Manager and its debouncer: a
// long-lived polling filesystem observer (not kernel inotify, since the
// project tree may live on a network/share-like mount) that coalesces
// change bursts into incremental orchestrator runs without overlap.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"qualitygate/internal/analysis/orchestrator"
	"qualitygate/internal/logging"
	"qualitygate/internal/types"
)

const (
	debounceDelay  = 100 * time.Millisecond
	pollInterval   = 300 * time.Millisecond
	observerJoinTO = 5 * time.Second
)

var ignoredNames = map[string]bool{
	"node_modules": true, ".git": true, "__pycache__": true, ".venv": true,
	"venv": true, "dist": true, "build": true, ".next": true, ".cache": true,
	"coverage": true, ".pytest_cache": true, ".mypy_cache": true, ".tox": true,
	"htmlcov": true, "eggs": true, ".eggs": true, "tmp": true, "temp": true,
	".tmp": true, ".swp": true, ".swo": true, "~": true,
}

var dotAllowlist = map[string]bool{".github": true, ".gitlab": true}

var relevantExtensions = map[string]bool{
	".py": true, ".js": true, ".jsx": true, ".ts": true, ".tsx": true,
	".json": true, ".yaml": true, ".yml": true, ".toml": true,
}

// isRelevant applies the relevance filter to a path relative to the
// watched project root.
func isRelevant(relPath string) bool {
	segments := strings.Split(filepath.ToSlash(relPath), "/")
	for _, seg := range segments {
		if ignoredNames[seg] {
			return false
		}
		if strings.HasPrefix(seg, ".") && !dotAllowlist[seg] {
			return false
		}
	}
	ext := strings.ToLower(filepath.Ext(relPath))
	return relevantExtensions[ext]
}

// Watcher owns a polling observer, a debouncer, and the currently running
// incremental orchestrator invocation for one project/session.
type Watcher struct {
	ProjectRoot string
	Orch        *orchestrator.Orchestrator
	Log         logging.Logger

	mu           sync.Mutex
	pendingFiles map[string]struct{}
	isAnalyzing  bool

	stopCh   chan struct{}
	runCh    chan struct{} // thread-safe "run debounce cycle" signal
	wg       sync.WaitGroup
	running  bool
	cancelFn context.CancelFunc
}

// New builds a Watcher for the given orchestrator (already configured with
// project root, notifier, and selected tool ids).
func New(projectRoot string, orch *orchestrator.Orchestrator, log logging.Logger) *Watcher {
	if log == nil {
		log = logging.NewTestLogger()
	}
	return &Watcher{
		ProjectRoot:  projectRoot,
		Orch:         orch,
		Log:          log,
		pendingFiles: map[string]struct{}{},
		stopCh:       make(chan struct{}),
		runCh:        make(chan struct{}, 1),
	}
}

// Start marks the watcher running, launches the polling observer, runs an
// initial full analysis, and returns immediately; the observer and
// debounce loop continue in background goroutines until Stop is called.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	runCtx, cancel := context.WithCancel(ctx)
	w.cancelFn = cancel
	w.mu.Unlock()

	w.Orch.Notifier.SendLog(runCtx, "", "watch activated")

	w.wg.Add(2)
	go w.pollLoop(runCtx)
	go w.debounceLoop(runCtx)

	// Initial full analysis, per startup contract. The watcher's own
	// orchestrator is configured for incremental runs, so a full-mode copy
	// of it runs this one.
	full := *w.Orch
	full.Mode = types.ModeFull
	go func() {
		if _, err := full.Execute(runCtx, nil); err != nil {
			w.Log.Warn(runCtx, "initial watch analysis failed", "error", err)
		}
	}()
}

// Stop cancels any in-flight orchestrator run, stops the observer and
// debounce loop (waiting up to observerJoinTO), and is idempotent.
func (w *Watcher) Stop(ctx context.Context) {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	cancel := w.cancelFn
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	close(w.stopCh)

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(observerJoinTO):
	}

	w.Orch.Notifier.SendLog(ctx, "", "watch deactivated")
}

// NotifyChange is called by the observer (conceptually its own OS thread)
// whenever it sees a creation or modification event for path (relative to
// ProjectRoot). It applies the relevance filter and, if accepted, records
// the file and (re)arms the debounce timer via runCh.
func (w *Watcher) NotifyChange(relPath string, isDir bool) {
	if isDir {
		return
	}
	if !isRelevant(relPath) {
		return
	}

	w.mu.Lock()
	w.pendingFiles[relPath] = struct{}{}
	analyzing := w.isAnalyzing
	w.mu.Unlock()

	if analyzing {
		// Picked up after the in-flight run finishes, via the drain loop
		// in debounceLoop re-checking pendingFiles after each cycle.
		return
	}

	select {
	case w.runCh <- struct{}{}:
	default:
		// A debounce cycle is already armed/running; it will pick up the
		// newly-added file because pendingFiles is shared state.
	}
}

// pollLoop is the polling observer: it walks the project tree every
// pollInterval and reports any file that is new or whose mtime is newer
// than the last scan. It runs conceptually on its own thread and only
// touches the rest of the watcher through NotifyChange (mutex-protected)
// and runCh.
func (w *Watcher) pollLoop(ctx context.Context) {
	defer w.wg.Done()
	seen := map[string]time.Time{}
	baseline := true
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	scan := func() {
		_ = filepath.Walk(w.ProjectRoot, func(path string, info os.FileInfo, err error) error {
			if err != nil || info == nil {
				return nil
			}
			rel, relErr := filepath.Rel(w.ProjectRoot, path)
			if relErr != nil {
				return nil
			}
			if info.IsDir() {
				if rel != "." && ignoredNames[info.Name()] {
					return filepath.SkipDir
				}
				return nil
			}
			mtime := info.ModTime()
			prev, known := seen[rel]
			if !known || mtime.After(prev) {
				seen[rel] = mtime
				if !baseline {
					w.NotifyChange(rel, false)
				}
			}
			return nil
		})
	}

	// Establish a baseline before treating anything as "changed".
	scan()
	baseline = false

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			scan()
		}
	}
}

// debounceLoop implements the debounce cycle: sleep, drain pending files,
// invoke the orchestrator incrementally, and repeat if stragglers arrived
// during the run.
func (w *Watcher) debounceLoop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-w.runCh:
			w.runCycle(ctx)
		}
	}
}

func (w *Watcher) runCycle(ctx context.Context) {
	timer := time.NewTimer(debounceDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-w.stopCh:
		return
	case <-timer.C:
	}

	for {
		w.mu.Lock()
		snapshot := make([]string, 0, len(w.pendingFiles))
		for f := range w.pendingFiles {
			snapshot = append(snapshot, f)
		}
		w.pendingFiles = map[string]struct{}{}
		if len(snapshot) == 0 {
			w.mu.Unlock()
			return
		}
		w.isAnalyzing = true
		w.mu.Unlock()

		_, err := w.Orch.Execute(ctx, snapshot)
		if err != nil {
			w.Log.Warn(ctx, "incremental watch run failed", "error", err)
		}

		w.mu.Lock()
		w.isAnalyzing = false
		more := len(w.pendingFiles) > 0
		w.mu.Unlock()

		if !more {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-time.After(debounceDelay):
		}
	}
}
