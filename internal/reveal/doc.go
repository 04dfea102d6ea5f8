// Package reveal implements the staged walkthrough of the attack
// simulation: Reconnaissance, Profiling, Weaponization and Impact.
//
// The Sequencer is pure state. Each timed reveal is a Task identified by a
// Token; the host (the terminal UI) schedules a tick after Task.Interval and
// hands the token back to Tick. Stage changes and Close issue a new token,
// which turns any tick still in flight into a no-op.
package reveal
