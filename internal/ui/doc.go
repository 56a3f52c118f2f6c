// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI walks through a multi-screen sync workflow: browse source
// playlists, preview the tracks of one, confirm, watch live progress, then
// review match metrics, missing tracks, and queued downloads.
//
// [Model] implements bubbletea's standard Init/Update/View pattern. Progress
// updates flow through a channel from the PlaylistEngine, providing
// non-blocking status reporting during syncs.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with
// contextual help displayed via charmbracelet/bubbles/help.
package ui
