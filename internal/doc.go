// Package internal contains the core implementation packages for
// qualitygate.
//
// This package follows Go's internal package convention, making these
// packages unavailable for import by external modules.
//
// # Package Organization
//
//   - types: shared domain model (runs, modules, events, metrics reports)
//   - qgerrors: the structured error taxonomy used across the core
//   - analysis/notifier: session-scoped event fan-out
//   - analysis/adapter: per-tool command-building strategies and registry
//   - analysis/module: the subprocess runner and its I/O pipeline
//   - analysis/logparser: tool-output parsing into metrics reports
//   - analysis/orchestrator: per-run scheduling under a concurrency cap
//   - analysis/watch: the debounced filesystem watcher
//   - analysis/session: the inbound start/stop command surface
//   - registry: the project registry (ambient, bbolt-backed)
//   - httpapi: HTTP/WebSocket transport wiring the above together
//   - middleware: the HTTP middleware chain
//   - config: Viper-based configuration loading and validation
//   - logging: the structured logging wrapper around log/slog
//   - metrics: Prometheus instrumentation
//   - validation: input validation shared by the tool-adapter command path
//     and the push-channel origin check
//   - websocket: coder/websocket transport adapter for the push channel
package internal
