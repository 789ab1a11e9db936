// Package history keeps a per-agent undo/redo history of whole-text
// snapshots. Snapshots rather than positional deltas: a delta computed
// against a position a concurrent remote edit has shifted would corrupt
// the document, restoring a whole previously-observed state cannot.
package history

import "time"

// DefaultMaxDepth caps the undo stack; the oldest entry is dropped on
// overflow. The redo stack never outgrows the undo stack.
const DefaultMaxDepth = 1000

type Snapshot struct {
	Text string
	At   time.Time
}

// Manager tracks one agent's history for one session. lastObserved always
// holds the text most recently pushed or restored; divergence from the
// live text is what triggers a new undo entry. Not safe for concurrent
// use; the owning session serializes access.
type Manager struct {
	undo         []Snapshot
	redo         []Snapshot
	lastObserved string
	suppressed   bool
	maxDepth     int
}

func NewManager(initial string) *Manager {
	return &Manager{
		lastObserved: initial,
		maxDepth:     DefaultMaxDepth,
	}
}

// OnChange records a change notification. While suppressed, or when the
// live text matches the last observed baseline, nothing happens.
// Otherwise the old baseline becomes an undo entry and any redo history
// is invalidated.
func (m *Manager) OnChange(live string) {
	if m.suppressed || live == m.lastObserved {
		return
	}

	m.undo = append(m.undo, Snapshot{Text: m.lastObserved, At: time.Now()})
	if len(m.undo) > m.maxDepth {
		m.undo = m.undo[1:]
	}
	m.redo = nil
	m.lastObserved = live
}

// Undo pops the most recent snapshot, pushing the live text onto the redo
// stack. The caller restores the returned text while suppressed so the
// restore is not re-captured.
func (m *Manager) Undo(live string) (string, bool) {
	if len(m.undo) == 0 {
		return "", false
	}

	m.redo = append(m.redo, Snapshot{Text: live, At: time.Now()})
	s := m.undo[len(m.undo)-1]
	m.undo = m.undo[:len(m.undo)-1]
	m.lastObserved = s.Text
	return s.Text, true
}

// Redo is symmetric to Undo.
func (m *Manager) Redo(live string) (string, bool) {
	if len(m.redo) == 0 {
		return "", false
	}

	m.undo = append(m.undo, Snapshot{Text: live, At: time.Now()})
	s := m.redo[len(m.redo)-1]
	m.redo = m.redo[:len(m.redo)-1]
	m.lastObserved = s.Text
	return s.Text, true
}

// SetSuppressed gates change tracking. Releasing suppression resyncs the
// baseline to the live text, so the next real local edit diffs against
// the current state rather than stale pre-suppression text.
func (m *Manager) SetSuppressed(on bool, live string) {
	m.suppressed = on
	if !on {
		m.lastObserved = live
	}
}

func (m *Manager) Suppressed() bool {
	return m.suppressed
}

func (m *Manager) Depths() (undo, redo int) {
	return len(m.undo), len(m.redo)
}
