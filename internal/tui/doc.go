// Package tui is the terminal front end of PersonaShield, built on
// bubbletea.
//
// Dashboard shows the pages of internal/view for the current analysis with a
// sidebar and a scrollable content pane. Simulation is the four-stage attack
// walkthrough; it drives a reveal.Sequencer by turning every reveal.Task
// into a tea.Tick whose message carries the task's token, so ticks that
// arrive after a stage change are dropped by the sequencer. Upload shows a
// spinner and a progress bar while one document is ingested.
//
// Models are plain values driven through Update, which is how the tests
// exercise them without a terminal.
package tui
