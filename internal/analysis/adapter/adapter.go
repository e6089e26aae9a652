// Package adapter defines the per-analyzer strategy interface (build a
// command, summarise its output) and a registry of built-in adapters. Each
// analyzer is pluggable and identified by a stable id; shared execution
// machinery belongs to the module runner, not here.
package adapter

import (
	"os"
	"path/filepath"
	"strings"
)

// Adapter is the capability set a tool must implement. BuildCommand may
// return a nil/empty argv to signal the module should be SKIPPED for this
// run (e.g. the incremental file list contains nothing this tool handles).
type Adapter interface {
	// ID is the stable identifier the registry is keyed by.
	ID() string
	// Title, Subtitle, Icon describe the tool for list_tools.
	Title() string
	Subtitle() string
	Icon() string
	// Extensions lists the file extensions (with leading dot, lowercase)
	// this adapter's output should be attributed to by the log parser.
	Extensions() []string
	// BuildCommand constructs argv for a run. files is nil in full mode;
	// in incremental mode it holds the changed file list (possibly
	// empty). A non-empty configWarning is streamed as a LOG event before
	// execution.
	BuildCommand(projectRoot string, files []string) (argv []string, configWarning string)
	// Summarize produces a one-line human-readable summary from captured
	// output.
	Summarize(stdout, stderr string, exitCode int) string
}

// Registry maps adapter id to a constructor, matching the teacher's
// registry idiom of id -> constructor rather than a live instance map, so
// each run gets a fresh adapter value.
type Registry struct {
	constructors map[string]func() Adapter
	order        []string
}

// NewRegistry builds a Registry pre-populated with the built-in adapters.
func NewRegistry() *Registry {
	r := &Registry{constructors: map[string]func() Adapter{}}
	r.Register("F_TypeScript", func() Adapter { return &TypeScriptAdapter{} })
	r.Register("F_ESLint", func() Adapter { return &ESLintAdapter{} })
	r.Register("B_Ruff", func() Adapter { return &RuffAdapter{} })
	r.Register("B_Pyright", func() Adapter { return &PyrightAdapter{} })
	r.Register("B_Lizard", func() Adapter { return &LizardAdapter{} })
	return r
}

// Register adds or replaces the constructor for id. The zero Registry is
// ready to use: Register lazily allocates the constructor map, so tests can
// build a registry containing only the adapters they need via
// &Registry{} rather than starting from NewRegistry's built-in set.
func (r *Registry) Register(id string, ctor func() Adapter) {
	if r.constructors == nil {
		r.constructors = map[string]func() Adapter{}
	}
	if _, exists := r.constructors[id]; !exists {
		r.order = append(r.order, id)
	}
	r.constructors[id] = ctor
}

// New builds a fresh Adapter instance for id, or (nil, false) if unknown.
func (r *Registry) New(id string) (Adapter, bool) {
	ctor, ok := r.constructors[id]
	if !ok {
		return nil, false
	}
	return ctor(), true
}

// IDs returns all registered ids in registration order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// filterByExtension narrows files to those whose extension is in exts;
// returns nil (not empty-non-nil) when nothing matches, so callers can
// treat "no files" uniformly whether files was nil or became empty.
func filterByExtension(files []string, exts []string) []string {
	if files == nil {
		return nil
	}
	var out []string
	for _, f := range files {
		ext := strings.ToLower(filepath.Ext(f))
		for _, e := range exts {
			if ext == e {
				out = append(out, f)
				break
			}
		}
	}
	return out
}

// findConfigFile probes projectRoot for any of candidates, then falls back
// to the first immediate subdirectory that contains one ("monorepo
// fallback"). Returns the directory containing the config file, whether a
// fallback was used, and whether any config file was found at all.
func findConfigFile(projectRoot string, candidates []string) (dir string, usedFallback bool, found bool) {
	for _, c := range candidates {
		if fileExists(filepath.Join(projectRoot, c)) {
			return projectRoot, false, true
		}
	}
	entries, err := os.ReadDir(projectRoot)
	if err != nil {
		return projectRoot, false, false
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		sub := filepath.Join(projectRoot, e.Name())
		for _, c := range candidates {
			if fileExists(filepath.Join(sub, c)) {
				return sub, true, true
			}
		}
	}
	return projectRoot, false, false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// insertUnbufferedFlag mirrors the original implementation's handling of
// python-invoked tools: when argv[0] is a python interpreter, "-u" is
// inserted as argv[1] so the child's stdout is unbuffered and streams
// promptly. A no-op for adapters that invoke a standalone binary directly.
func insertUnbufferedFlag(argv []string) []string {
	if len(argv) == 0 {
		return argv
	}
	base := filepath.Base(argv[0])
	if base != "python" && base != "python3" {
		return argv
	}
	out := make([]string, 0, len(argv)+1)
	out = append(out, argv[0], "-u")
	out = append(out, argv[1:]...)
	return out
}
