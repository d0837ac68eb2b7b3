// Package ui renders sync results and run history for the terminal with lipgloss.
//
// A [Palette] holds the styles; [PlainPalette] drops colors for piped output and tests.
// Summaries are plain label/value blocks, while history listings use lipgloss/table:
//   - [Palette.Summary] : outcome of one sync run, including per-film failures
//   - [Palette.Progress] : one line per engine progress update
//   - [Palette.RunsTable] : recent runs from the history ledger
//   - [Palette.RunDetail] and [Palette.ItemsTable] : a single stored run and its films
package ui
