package store

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"

	"github.com/nao1215/personashield/internal/model"
)

// KeyHistory is the KV key holding the analysis history as a JSON array.
const KeyHistory = "analysisHistory"

// EventType identifies a store change.
type EventType string

const (
	// EventAnalysisSet is emitted when a new analysis becomes current,
	// either freshly received or restored from history.
	EventAnalysisSet EventType = "analysis.set"

	// EventAnalysisCleared is emitted when the current analysis is cleared.
	EventAnalysisCleared EventType = "analysis.cleared"
)

// Event describes one change to the store.
type Event struct {
	Type EventType `json:"type"`

	// Analysis is the new current analysis. Nil for EventAnalysisCleared.
	Analysis *model.AnalysisResult `json:"analysis,omitempty"`

	// HistoryLen is the number of history entries after the change.
	HistoryLen int `json:"history_len"`

	// Restored is true when the analysis was selected from history rather
	// than appended.
	Restored bool `json:"restored,omitempty"`
}

// Store holds the current analysis and the append-only analysis history.
// Every view reads the same Store, so a new analysis is visible everywhere
// as soon as SetAnalysis returns.
//
// The history is written through to the KV on every append. The current
// analysis lives in memory only.
type Store struct {
	kv     KV
	logger *slog.Logger

	mu      sync.RWMutex
	current *model.AnalysisResult
	history []*model.AnalysisResult

	subMu   sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used to report persistence failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Store backed by kv and loads the persisted history.
// A missing, unreadable or corrupt history yields an empty history; the
// failure is logged and never returned. A nil kv keeps the history in
// memory only.
func New(ctx context.Context, kv KV, opts ...Option) *Store {
	if kv == nil {
		kv = NewMemoryKV()
	}
	s := &Store{
		kv:     kv,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		subs:   make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.history = s.loadHistory(ctx)
	return s
}

func (s *Store) loadHistory(ctx context.Context) []*model.AnalysisResult {
	data, found, err := s.kv.Get(ctx, KeyHistory)
	if err != nil {
		s.logger.Warn("failed to read analysis history", "error", err)
		return nil
	}
	if !found {
		return nil
	}

	var history []*model.AnalysisResult
	if err := json.Unmarshal(data, &history); err != nil {
		s.logger.Warn("discarding corrupt analysis history", "error", err)
		return nil
	}
	return history
}

// SetAnalysis makes result the current analysis, appends it to the history
// and persists the history. A persistence failure is logged; the in-memory
// state is kept either way. A nil result is ignored.
func (s *Store) SetAnalysis(ctx context.Context, result *model.AnalysisResult) {
	if result == nil {
		return
	}

	s.mu.Lock()
	s.current = result
	s.history = append(s.history, result)
	n := len(s.history)
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.notify(Event{Type: EventAnalysisSet, Analysis: result, HistoryLen: n})
}

// persistLocked writes the whole history. The caller must hold s.mu so that
// concurrent appends reach the KV in order.
func (s *Store) persistLocked(ctx context.Context) {
	data, err := json.Marshal(s.history)
	if err != nil {
		s.logger.Warn("failed to encode analysis history", "error", err)
		return
	}
	if err := s.kv.Set(ctx, KeyHistory, data); err != nil {
		s.logger.Warn("failed to persist analysis history", "error", err, "entries", len(s.history))
	}
}

// ClearAnalysis drops the current analysis. The history is untouched.
func (s *Store) ClearAnalysis() {
	s.mu.Lock()
	s.current = nil
	n := len(s.history)
	s.mu.Unlock()

	s.notify(Event{Type: EventAnalysisCleared, HistoryLen: n})
}

// Restore makes the history entry at index current without appending it.
// Negative indexes count from the end, so -1 selects the latest entry.
// It reports false when the index is out of range.
func (s *Store) Restore(index int) bool {
	s.mu.Lock()
	n := len(s.history)
	if index < 0 {
		index += n
	}
	if index < 0 || index >= n || s.history[index] == nil {
		s.mu.Unlock()
		return false
	}
	result := s.history[index]
	s.current = result
	s.mu.Unlock()

	s.notify(Event{Type: EventAnalysisSet, Analysis: result, HistoryLen: n, Restored: true})
	return true
}

// Current returns the current analysis.
func (s *Store) Current() (*model.AnalysisResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.current != nil
}

// History returns a copy of the history, oldest first.
func (s *Store) History() []*model.AnalysisResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*model.AnalysisResult(nil), s.history...)
}

// Len returns the number of history entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history)
}

// Subscribe registers fn to be called after every change. Callbacks run
// synchronously on the goroutine that made the change and must not block
// or call back into the Store's mutating methods. The returned function
// removes the subscription.
func (s *Store) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *Store) notify(ev Event) {
	s.subMu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
