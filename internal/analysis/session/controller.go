// Package session implements the Session Controller: the single inbound
// entry point that accepts start/stop commands, tracks active runs and
// watchers per session, and enforces the one-shot/watcher exclusivity
// invariant.
package session

import (
	"context"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"qualitygate/internal/analysis/adapter"
	"qualitygate/internal/analysis/notifier"
	"qualitygate/internal/analysis/orchestrator"
	"qualitygate/internal/analysis/watch"
	"qualitygate/internal/logging"
	"qualitygate/internal/metrics"
	"qualitygate/internal/qgerrors"
	"qualitygate/internal/types"
	"qualitygate/internal/validation"
)

// StartRequest is the validated inbound run-analysis command.
type StartRequest struct {
	SessionID      string
	ProjectPath    string
	Mode           types.RunMode
	SelectedTools  []string
}

// StartResponse is returned immediately; the run itself continues in the
// background.
type StartResponse struct {
	Status string       `json:"status"`
	Mode   types.RunMode `json:"mode"`
}

// StopResponse reports whether a session had anything to stop.
type StopResponse struct {
	Status string `json:"status"` // "stopped" | "not_found"
}

// Controller owns all active watchers and in-flight one-shot runs. Safe
// for concurrent use.
type Controller struct {
	notifier *notifier.Notifier
	registry *adapter.Registry
	log      logging.Logger
	metrics  *metrics.Metrics // optional; nil disables instrumentation

	mu             sync.Mutex
	activeAnalyses map[string]context.CancelFunc
	activeWatchers map[string]*watch.Watcher
}

// New builds a Controller around a shared Notifier and tool adapter
// Registry. mtx may be nil.
func New(n *notifier.Notifier, reg *adapter.Registry, log logging.Logger, mtx *metrics.Metrics) *Controller {
	if log == nil {
		log = logging.NewTestLogger()
	}
	return &Controller{
		notifier:       n,
		registry:       reg,
		log:            log,
		metrics:        mtx,
		activeAnalyses: map[string]context.CancelFunc{},
		activeWatchers: map[string]*watch.Watcher{},
	}
}

// ListTools returns the registered tool metadata for the `tools` request.
func (c *Controller) ListTools() []types.ToolInfo {
	out := make([]types.ToolInfo, 0, len(c.registry.IDs()))
	for _, id := range c.registry.IDs() {
		a, ok := c.registry.New(id)
		if !ok {
			continue
		}
		out = append(out, types.ToolInfo{ID: a.ID(), Title: a.Title(), Subtitle: a.Subtitle(), Icon: a.Icon()})
	}
	return out
}

// Start validates req and, if accepted, launches the corresponding
// orchestrator or watcher as a background task, returning immediately.
func (c *Controller) Start(ctx context.Context, req StartRequest) (*StartResponse, error) {
	info, err := os.Stat(req.ProjectPath)
	if err != nil || !info.IsDir() {
		return nil, qgerrors.InvalidInputf("project_path %q does not exist or is not a directory", req.ProjectPath).WithComponent("session")
	}

	if len(req.SelectedTools) > 0 {
		allowed := toolAllowlist(c.registry)
		for _, id := range req.SelectedTools {
			if err := validation.ValidateCommand(id, allowed); err != nil {
				return nil, qgerrors.Wrap(qgerrors.InvalidInput, err, "selected_tools").WithComponent("session")
			}
		}
	}

	// The run or watcher outlives the caller's (typically HTTP request)
	// context; Stop is what ends it.
	bgCtx := context.WithoutCancel(ctx)

	if req.Mode == types.ModeWatch {
		c.mu.Lock()
		if _, inFlight := c.activeAnalyses[req.SessionID]; inFlight {
			c.mu.Unlock()
			return nil, qgerrors.Conflictf("session %q already has an analysis in flight", req.SessionID).WithComponent("session")
		}
		if existing, ok := c.activeWatchers[req.SessionID]; ok {
			c.mu.Unlock()
			existing.Stop(ctx)
			c.decGauge(func(m *metrics.Metrics) prometheus.Gauge { return m.ActiveWatchers })
			c.mu.Lock()
		}
		scoped := notifier.NewScoped(c.notifier, req.SessionID)
		orch := orchestrator.New(req.ProjectPath, types.ModeIncremental, scoped, req.SelectedTools, c.registry, c.log, c.metrics)
		w := watch.New(req.ProjectPath, orch, c.log)
		c.activeWatchers[req.SessionID] = w
		c.mu.Unlock()
		c.incGauge(func(m *metrics.Metrics) prometheus.Gauge { return m.ActiveWatchers })

		w.Start(bgCtx)
		return &StartResponse{Status: "accepted", Mode: types.ModeWatch}, nil
	}

	c.mu.Lock()
	if _, inFlight := c.activeAnalyses[req.SessionID]; inFlight {
		c.mu.Unlock()
		return nil, qgerrors.Conflictf("session %q already has an analysis in flight", req.SessionID).WithComponent("session")
	}
	if _, watching := c.activeWatchers[req.SessionID]; watching {
		c.mu.Unlock()
		return nil, qgerrors.Conflictf("session %q has an active watcher", req.SessionID).WithComponent("session")
	}
	runCtx, cancel := context.WithCancel(bgCtx)
	c.activeAnalyses[req.SessionID] = cancel
	c.mu.Unlock()
	c.incGauge(func(m *metrics.Metrics) prometheus.Gauge { return m.ActiveAnalyses })

	scoped := notifier.NewScoped(c.notifier, req.SessionID)
	orch := orchestrator.New(req.ProjectPath, req.Mode, scoped, req.SelectedTools, c.registry, c.log, c.metrics)

	go func() {
		defer func() {
			c.mu.Lock()
			delete(c.activeAnalyses, req.SessionID)
			c.mu.Unlock()
			c.decGauge(func(m *metrics.Metrics) prometheus.Gauge { return m.ActiveAnalyses })
		}()
		if _, err := orch.Execute(runCtx, nil); err != nil {
			c.log.Warn(runCtx, "analysis run ended with error", "session_id", req.SessionID, "error", err)
		}
	}()

	return &StartResponse{Status: "accepted", Mode: req.Mode}, nil
}

// Stop cancels and removes the watcher (or in-flight one-shot run, via
// cancellation) for sessionID. Idempotent: stopping an inactive session
// returns not_found and changes no state.
func (c *Controller) Stop(ctx context.Context, sessionID string) *StopResponse {
	c.mu.Lock()
	w, hasWatcher := c.activeWatchers[sessionID]
	if hasWatcher {
		delete(c.activeWatchers, sessionID)
	}
	cancel, hasRun := c.activeAnalyses[sessionID]
	c.mu.Unlock()

	if !hasWatcher && !hasRun {
		return &StopResponse{Status: "not_found"}
	}
	if hasWatcher {
		w.Stop(ctx)
		c.decGauge(func(m *metrics.Metrics) prometheus.Gauge { return m.ActiveWatchers })
	}
	if hasRun {
		cancel()
	}
	return &StopResponse{Status: "stopped"}
}

// incGauge/decGauge apply a gauge selector only when metrics instrumentation
// is enabled; the selector indirection avoids a nil-check at every call site.
func (c *Controller) incGauge(sel func(*metrics.Metrics) prometheus.Gauge) {
	if c.metrics != nil {
		sel(c.metrics).Inc()
	}
}

func (c *Controller) decGauge(sel func(*metrics.Metrics) prometheus.Gauge) {
	if c.metrics != nil {
		sel(c.metrics).Dec()
	}
}

// toolAllowlist adapts the registry's known ids into the map shape
// ValidateCommand expects.
func toolAllowlist(reg *adapter.Registry) map[string]bool {
	ids := reg.IDs()
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}
