// Package orchestrator coordinates a single run of multiple tool modules
// under a fixed concurrency cap and reduces their individual results into a
// final run status.
package orchestrator

import (
	"context"
	"os/exec"
	"strings"
	"sync"
	"time"

	"qualitygate/internal/analysis/adapter"
	"qualitygate/internal/analysis/logparser"
	"qualitygate/internal/analysis/module"
	"qualitygate/internal/analysis/notifier"
	"qualitygate/internal/logging"
	"qualitygate/internal/metrics"
	"qualitygate/internal/types"
)

// MaxConcurrentModules is the fixed semaphore size bounding how many child
// processes may be alive simultaneously for a single run.
const MaxConcurrentModules = 3

// Orchestrator coordinates one run for a project.
type Orchestrator struct {
	ProjectRoot  string
	Mode         types.RunMode
	Notifier     *notifier.Scoped
	SelectedIDs  []string // empty/nil means "all known"
	Registry     *adapter.Registry
	ExtensionSet logparser.ExtensionSet
	Log          logging.Logger
	Metrics      *metrics.Metrics // optional; nil disables instrumentation
}

// New builds an Orchestrator. selectedIDs of nil or empty means "all known
// tools in the registry". mtx may be nil.
func New(projectRoot string, mode types.RunMode, n *notifier.Scoped, selectedIDs []string, reg *adapter.Registry, log logging.Logger, mtx *metrics.Metrics) *Orchestrator {
	if log == nil {
		log = logging.NewTestLogger()
	}
	exts := logparser.ExtensionSet{}
	for _, id := range reg.IDs() {
		a, ok := reg.New(id)
		if ok {
			exts[id] = a.Extensions()
		}
	}
	return &Orchestrator{
		ProjectRoot:  projectRoot,
		Mode:         mode,
		Notifier:     n,
		SelectedIDs:  selectedIDs,
		Registry:     reg,
		ExtensionSet: exts,
		Log:          log,
		Metrics:      mtx,
	}
}

// Execute resolves the file list, runs the selected modules under the
// concurrency cap, and returns the reduced run result. files is used only
// in incremental mode when the caller supplies it directly (e.g. from the
// watch manager's debounced pending set); it is ignored in full mode.
func (o *Orchestrator) Execute(ctx context.Context, files []string) (*types.RunResult, error) {
	o.Notifier.SendGlobalInit(ctx)

	resolved, err := o.resolveFiles(ctx, files)
	if err != nil {
		o.Log.Warn(ctx, "file resolution failed", "error", err)
	}

	ids := o.SelectedIDs
	if len(ids) == 0 {
		ids = o.Registry.IDs()
	}

	modules := make([]*module.Module, 0, len(ids))
	for _, id := range ids {
		a, ok := o.Registry.New(id)
		if !ok {
			o.Log.Warn(ctx, "unknown tool id skipped", "tool_id", id)
			continue
		}
		modules = append(modules, module.New(a, o.ProjectRoot, o.Notifier, o.ExtensionSet, o.Log))
	}

	statuses := make(map[string]types.RunStatus, len(modules))
	var mu sync.Mutex
	sem := make(chan struct{}, MaxConcurrentModules)
	var wg sync.WaitGroup

	for _, mod := range modules {
		mod := mod
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			start := time.Now()
			status, runErr := mod.Run(ctx, resolved)
			if runErr != nil && status != types.StatusFail && status != types.StatusSkipped {
				status = types.StatusFail
			}
			if o.Metrics != nil {
				o.Metrics.RecordModule(mod.ID, string(status), time.Since(start))
			}
			mu.Lock()
			statuses[mod.ID] = status
			mu.Unlock()
		}()
	}
	wg.Wait()

	finalStatus := types.GlobalSuccess
	for _, s := range statuses {
		if s == types.StatusFail {
			finalStatus = types.GlobalFailure
			break
		}
	}

	result := &types.RunResult{
		Status:             finalStatus,
		Mode:               o.Mode,
		Modules:            statuses,
		ModifiedFilesCount: len(resolved),
	}

	if ctx.Err() != nil {
		return result, ctx.Err()
	}

	if o.Metrics != nil {
		o.Metrics.RecordRun(string(finalStatus), string(o.Mode))
	}
	o.Notifier.SendGlobalEnd(ctx, finalStatus)
	return result, nil
}

// resolveFiles implements the file-list resolution policy: nil in full
// mode, the caller-supplied list in incremental mode when given, or a
// `git diff --name-only HEAD` probe when incremental mode is requested
// without an explicit file list. An empty result (rather than promotion to
// full mode) is kept on git-diff failure or an empty diff, per policy.
func (o *Orchestrator) resolveFiles(ctx context.Context, files []string) ([]string, error) {
	if o.Mode == types.ModeFull {
		return nil, nil
	}
	if files != nil {
		return files, nil
	}

	cmd := exec.CommandContext(ctx, "git", "diff", "--name-only", "HEAD")
	cmd.Dir = o.ProjectRoot
	out, err := cmd.Output()
	if err != nil {
		o.Notifier.SendLog(ctx, "", "git diff failed, falling back to empty incremental file list")
		return []string{}, err
	}
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	result := []string{}
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			result = append(result, l)
		}
	}
	return result, nil
}
