package adapter

import "fmt"

// TypeScriptAdapter runs the TypeScript compiler in no-emit mode to surface
// type errors without producing build output.
type TypeScriptAdapter struct{}

func (a *TypeScriptAdapter) ID() string         { return "F_TypeScript" }
func (a *TypeScriptAdapter) Title() string      { return "TypeScript" }
func (a *TypeScriptAdapter) Subtitle() string   { return "Type checking" }
func (a *TypeScriptAdapter) Icon() string       { return "typescript" }
func (a *TypeScriptAdapter) Extensions() []string {
	return []string{".ts", ".tsx"}
}

func (a *TypeScriptAdapter) BuildCommand(projectRoot string, files []string) ([]string, string) {
	if files != nil {
		matched := filterByExtension(files, a.Extensions())
		if len(matched) == 0 {
			return nil, ""
		}
	}
	dir, fallback, found := findConfigFile(projectRoot, []string{"tsconfig.json"})
	warning := ""
	if !found {
		warning = "no tsconfig.json found, running with defaults"
	} else if fallback {
		warning = fmt.Sprintf("tsconfig.json found in subdirectory %s, not project root", dir)
	}
	return []string{"tsc", "--noEmit", "-p", dir}, warning
}

func (a *TypeScriptAdapter) Summarize(stdout, stderr string, exitCode int) string {
	if exitCode == 0 {
		return "✅ no type errors"
	}
	return "❌ type errors found"
}

// ESLintAdapter runs ESLint over the project, narrowed to changed JS/TS
// files in incremental mode.
type ESLintAdapter struct{}

func (a *ESLintAdapter) ID() string       { return "F_ESLint" }
func (a *ESLintAdapter) Title() string    { return "ESLint" }
func (a *ESLintAdapter) Subtitle() string { return "JavaScript/TypeScript linting" }
func (a *ESLintAdapter) Icon() string     { return "eslint" }
func (a *ESLintAdapter) Extensions() []string {
	return []string{".js", ".jsx", ".ts", ".tsx"}
}

func (a *ESLintAdapter) BuildCommand(projectRoot string, files []string) ([]string, string) {
	var matched []string
	if files != nil {
		matched = filterByExtension(files, a.Extensions())
		if len(matched) == 0 {
			return nil, ""
		}
	}
	dir, fallback, found := findConfigFile(projectRoot, []string{".eslintrc", ".eslintrc.json", ".eslintrc.js", ".eslintrc.yml"})
	warning := ""
	if !found {
		warning = "no eslintrc found, running with defaults"
	} else if fallback {
		warning = fmt.Sprintf("eslintrc found in subdirectory %s, not project root", dir)
	}
	argv := []string{"eslint", "--format", "unix"}
	if matched != nil {
		argv = append(argv, matched...)
	} else {
		argv = append(argv, dir)
	}
	return argv, warning
}

func (a *ESLintAdapter) Summarize(stdout, stderr string, exitCode int) string {
	if exitCode == 0 {
		return "✅ no lint issues"
	}
	return "❌ lint issues found"
}

// RuffAdapter runs the Ruff Python linter.
type RuffAdapter struct{}

func (a *RuffAdapter) ID() string           { return "B_Ruff" }
func (a *RuffAdapter) Title() string        { return "Ruff" }
func (a *RuffAdapter) Subtitle() string     { return "Python linting" }
func (a *RuffAdapter) Icon() string         { return "ruff" }
func (a *RuffAdapter) Extensions() []string { return []string{".py"} }

func (a *RuffAdapter) BuildCommand(projectRoot string, files []string) ([]string, string) {
	var matched []string
	if files != nil {
		matched = filterByExtension(files, a.Extensions())
		if len(matched) == 0 {
			return nil, ""
		}
	}
	argv := []string{"ruff", "check"}
	if matched != nil {
		argv = append(argv, matched...)
	} else {
		argv = append(argv, ".")
	}
	return insertUnbufferedFlag(argv), ""
}

func (a *RuffAdapter) Summarize(stdout, stderr string, exitCode int) string {
	if exitCode == 0 {
		return "✅ no issues found"
	}
	return "❌ issues found"
}

// PyrightAdapter runs the Pyright type checker. No mode flag is passed, so
// the strictness is whatever the project's Pyright configuration sets.
type PyrightAdapter struct{}

func (a *PyrightAdapter) ID() string           { return "B_Pyright" }
func (a *PyrightAdapter) Title() string        { return "Pyright" }
func (a *PyrightAdapter) Subtitle() string     { return "Python strict type checking" }
func (a *PyrightAdapter) Icon() string         { return "pyright" }
func (a *PyrightAdapter) Extensions() []string { return []string{".py"} }

func (a *PyrightAdapter) BuildCommand(projectRoot string, files []string) ([]string, string) {
	var matched []string
	if files != nil {
		matched = filterByExtension(files, a.Extensions())
		if len(matched) == 0 {
			return nil, ""
		}
	}
	_, _, found := findConfigFile(projectRoot, []string{"pyrightconfig.json", "pyproject.toml"})
	warning := ""
	if !found {
		warning = "no pyright configuration found, running with defaults"
	}
	argv := []string{"pyright"}
	if matched != nil {
		argv = append(argv, matched...)
	}
	return insertUnbufferedFlag(argv), warning
}

func (a *PyrightAdapter) Summarize(stdout, stderr string, exitCode int) string {
	if exitCode == 0 {
		return "✅ no type errors"
	}
	return "❌ type errors found"
}

// LizardAdapter runs lizard, a multi-language cyclomatic complexity
// checker, over the project tree (it has no single-extension narrowing
// since it natively spans many languages).
type LizardAdapter struct{}

func (a *LizardAdapter) ID() string       { return "B_Lizard" }
func (a *LizardAdapter) Title() string    { return "Lizard" }
func (a *LizardAdapter) Subtitle() string { return "Cyclomatic complexity" }
func (a *LizardAdapter) Icon() string     { return "lizard" }
func (a *LizardAdapter) Extensions() []string {
	return []string{".py", ".js", ".ts", ".jsx", ".tsx", ".go", ".java", ".c", ".cpp"}
}

func (a *LizardAdapter) BuildCommand(projectRoot string, files []string) ([]string, string) {
	if files != nil {
		matched := filterByExtension(files, a.Extensions())
		if len(matched) == 0 {
			return nil, ""
		}
		return append([]string{"lizard"}, matched...), ""
	}
	return []string{"lizard", projectRoot}, ""
}

func (a *LizardAdapter) Summarize(stdout, stderr string, exitCode int) string {
	if exitCode == 0 {
		return "✅ complexity within bounds"
	}
	return "❌ complexity analysis reported issues"
}
