// Package store holds the analysis shared by every view.
//
// A Store keeps one optional current analysis and an append-only history.
// Every SetAnalysis replaces the current analysis, appends to the history
// and writes the whole history through to a KV under KeyHistory. The history
// is never truncated or edited; ClearAnalysis only drops the current slot.
//
// The KV is injected so that the same Store runs over SQLite in the CLI
// (see internal/database) and over MemoryKV in tests.
package store
