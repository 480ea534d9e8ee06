// Package ui renders terminal output for the autoconnectd CLI.
//
// Two kinds of output are provided:
//
//   - Printer: one-shot styled output (headers, result boxes, tables)
//     for commands that run once and exit.
//   - WatchModel: a Bubble Tea dashboard following a portal's events
//     feed, with key bindings that send scan, disconnect and reset
//     requests.
//
// Logging stays silent unless AUTOCONNECT_LOG_LEVEL is set, so the
// styled output is not interleaved with log lines.
package ui
