// Package view computes the view models of the dashboard pages and the
// attack simulation from an analysis.
//
// View models are plain data with JSON tags. The terminal UI renders them
// with lipgloss, the report writers print them and the HTTP server returns
// them as JSON. Every page has an Empty flag for its empty state.
package view
