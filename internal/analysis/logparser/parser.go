// Package logparser classifies analyzer output lines into ERROR, WARNING,
// INFO, and COMPLEXITY issues and produces a per-file metrics report. The
// parser is a pure function: it is restartable, resetting all accumulators
// on every call.
package logparser

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"qualitygate/internal/types"
)

var (
	filePathRe  = regexp.MustCompile(`^(.+?)(?::\d+|\(\d+)`)
	complexityRe = regexp.MustCompile(`(?i)(cyclomatic complexity|\bccn\b)`)
	errorRe      = regexp.MustCompile(`(?i)(\berror\b|\bE\d+\b|\bF\d+\b|\bC\d+\b|TS\d+)`)
	warningRe    = regexp.MustCompile(`(?i)(\bwarning\b|\bwarn\b|\bW\d+\b)`)
	infoRe       = regexp.MustCompile(`(?i)(\bnote\b|\binfo\b|\binformation\b|\bI\d+\b)`)
	trailingIntRe = regexp.MustCompile(`\((\d+)\)\s*$`)
)

// ExtensionSet maps a tool id to the set of file extensions (including the
// leading dot, lowercase) it is expected to report on. An empty or absent
// entry means "no filtering for this tool".
type ExtensionSet map[string][]string

type fileAccum struct {
	errorCount      int
	warningCount    int
	infoCount       int
	complexityCount int
	maxCCN          int
}

// Parse scans content line by line and builds a MetricsReport. toolID, if
// non-empty, narrows accepted lines to extensions known to that tool in
// exts; an empty exts entry for a known toolID disables filtering for it.
func Parse(content string, toolID string, exts ExtensionSet) *types.MetricsReport {
	accum := map[string]*fileAccum{}
	order := []string{}
	totals := types.IssueCounts{}

	var allowed []string
	if toolID != "" {
		allowed = exts[toolID]
	}

	lines := strings.Split(content, "\n")
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		m := filePathRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		path := strings.TrimSpace(m[1])
		if path == "" {
			continue
		}
		if strings.HasPrefix(path, "Analysis started") || strings.HasPrefix(path, "[") {
			continue
		}

		if len(allowed) > 0 {
			ext := strings.ToLower(filepath.Ext(path))
			if !containsExt(allowed, ext) {
				continue
			}
		}

		kind, ccn := classify(line)
		if kind == kindNone {
			continue
		}

		fa, ok := accum[path]
		if !ok {
			fa = &fileAccum{}
			accum[path] = fa
			order = append(order, path)
		}

		switch kind {
		case kindError:
			fa.errorCount++
			totals.Error++
		case kindWarning:
			fa.warningCount++
			totals.Warning++
		case kindInfo:
			fa.infoCount++
			totals.Info++
		case kindComplexity:
			fa.complexityCount++
			totals.Complexity++
			if ccn > fa.maxCCN {
				fa.maxCCN = ccn
			}
		}
	}

	report := &types.MetricsReport{TotalIssues: totals}
	for _, path := range order {
		fa := accum[path]
		report.Modules = append(report.Modules, types.FileReport{
			File: path,
			Metrics: types.FileMetrics{
				Error:   fa.errorCount,
				Warning: fa.warningCount,
				Info:    fa.infoCount,
			},
			ComplexityMetrics: types.ComplexityMetrics{
				Complexity: fa.complexityCount,
				MaxCCN:     fa.maxCCN,
			},
		})
	}
	return report
}

func containsExt(exts []string, ext string) bool {
	for _, e := range exts {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

type issueKind string

const (
	kindNone       issueKind = ""
	kindComplexity issueKind = "COMPLEXITY"
	kindError      issueKind = "ERROR"
	kindWarning    issueKind = "WARNING"
	kindInfo       issueKind = "INFO"
)

// classify applies the classification precedence: COMPLEXITY, ERROR,
// WARNING, INFO. Returns kindNone if the line matches none.
func classify(line string) (issueKind, int) {
	switch {
	case complexityRe.MatchString(line):
		ccn := 0
		if m := trailingIntRe.FindStringSubmatch(line); m != nil {
			if v, err := strconv.Atoi(m[1]); err == nil {
				ccn = v
			}
		}
		return kindComplexity, ccn
	case errorRe.MatchString(line):
		return kindError, 0
	case warningRe.MatchString(line):
		return kindWarning, 0
	case infoRe.MatchString(line):
		return kindInfo, 0
	default:
		return kindNone, 0
	}
}
