// =============================================================================
// Journal CSV Converter - Working Copy Store
// =============================================================================
//
// The working copy is the journal table a session is currently looking at.
// It is produced by a successful conversion, changed by row edits, and read
// by the exporter. The store also tracks the session lifecycle:
//
//   Empty -> Converting -> Ready -> Editing <-> Ready -> Exported
//
// A failed conversion never touches the table: the session returns to Ready
// when a working copy exists and to Empty otherwise. Exported is not final;
// editing after an export moves the session back to Editing.
//
// Tables handed in or out are copies, so callers cannot change the working
// copy behind the store's back.
//
// =============================================================================

package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ginjaninja78/journal-csv-converter/internal/journal"
	"github.com/google/uuid"
)

// State is a session lifecycle state.
type State int

const (
	StateEmpty State = iota
	StateConverting
	StateReady
	StateEditing
	StateExported
)

var stateNames = [...]string{"empty", "converting", "ready", "editing", "exported"}

// String implements fmt.Stringer.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

var (
	// ErrNoWorkingCopy is returned by operations that need a table when
	// none has been produced yet.
	ErrNoWorkingCopy = errors.New("no working copy")

	// ErrConversionInProgress is returned when a conversion is already
	// running or an edit is attempted while one is.
	ErrConversionInProgress = errors.New("conversion in progress")

	// ErrNotConverting is returned when a conversion is finished or failed
	// without having been started.
	ErrNotConverting = errors.New("no conversion in progress")
)

// IndexError reports a row index outside the working copy.
type IndexError struct {
	Index int
	Len   int
}

// Error implements the error interface.
func (e *IndexError) Error() string {
	return fmt.Sprintf("row index %d out of range [0, %d)", e.Index, e.Len)
}

// Snapshot summarises the store for display.
type Snapshot struct {
	SessionID string         `json:"session_id"`
	State     State          `json:"state"`
	Source    string         `json:"source,omitempty"`
	Totals    journal.Totals `json:"totals"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// WorkingCopy holds one session's journal table.
type WorkingCopy struct {
	id        string
	table     journal.Table
	present   bool
	state     State
	source    string
	updatedAt time.Time
	mu        sync.RWMutex
}

// New creates an empty store with a fresh session id.
func New() *WorkingCopy {
	return &WorkingCopy{
		id:        uuid.NewString(),
		state:     StateEmpty,
		updatedAt: time.Now(),
	}
}

// ID returns the session id.
func (w *WorkingCopy) ID() string {
	return w.id
}

// State returns the lifecycle state.
func (w *WorkingCopy) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// Get returns a copy of the working copy, or false when there is none.
func (w *WorkingCopy) Get() (journal.Table, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if !w.present {
		return nil, false
	}
	return w.table.Clone(), true
}

// Snapshot returns the current state and totals.
func (w *WorkingCopy) Snapshot() Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return Snapshot{
		SessionID: w.id,
		State:     w.state,
		Source:    w.source,
		Totals:    w.table.Totals(),
		UpdatedAt: w.updatedAt,
	}
}

// Set replaces the working copy and moves the session to Ready.
func (w *WorkingCopy) Set(table journal.Table) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.setLocked(table)
}

func (w *WorkingCopy) setLocked(table journal.Table) {
	w.table = table.Clone()
	if w.table == nil {
		w.table = journal.Table{}
	}
	w.present = true
	w.state = StateReady
	w.updatedAt = time.Now()
}

// =============================================================================
// ROW EDITS
// =============================================================================

// ReplaceRow overwrites the entry at index.
func (w *WorkingCopy) ReplaceRow(index int, entry journal.Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.checkEditableLocked(); err != nil {
		return err
	}
	if index < 0 || index >= len(w.table) {
		return &IndexError{Index: index, Len: len(w.table)}
	}
	w.table[index] = entry
	w.touchLocked()
	return nil
}

// InsertRow appends an entry and returns its index.
func (w *WorkingCopy) InsertRow(entry journal.Entry) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.checkEditableLocked(); err != nil {
		return 0, err
	}
	w.table = append(w.table, entry)
	w.touchLocked()
	return len(w.table) - 1, nil
}

// DeleteRow removes the entry at index.
func (w *WorkingCopy) DeleteRow(index int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.checkEditableLocked(); err != nil {
		return err
	}
	if index < 0 || index >= len(w.table) {
		return &IndexError{Index: index, Len: len(w.table)}
	}
	w.table = append(w.table[:index], w.table[index+1:]...)
	w.touchLocked()
	return nil
}

// Commit ends an edit and returns the session to Ready.
func (w *WorkingCopy) Commit() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.present {
		return ErrNoWorkingCopy
	}
	if w.state == StateEditing {
		w.state = StateReady
	}
	return nil
}

func (w *WorkingCopy) checkEditableLocked() error {
	if w.state == StateConverting {
		return ErrConversionInProgress
	}
	if !w.present {
		return ErrNoWorkingCopy
	}
	return nil
}

func (w *WorkingCopy) touchLocked() {
	w.state = StateEditing
	w.updatedAt = time.Now()
}

// =============================================================================
// CONVERSION LIFECYCLE
// =============================================================================

// BeginConversion moves the session to Converting.
func (w *WorkingCopy) BeginConversion() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == StateConverting {
		return ErrConversionInProgress
	}
	w.state = StateConverting
	return nil
}

// FinishConversion stores the converted table and moves the session to
// Ready. source names the converted input for snapshots.
func (w *WorkingCopy) FinishConversion(source string, table journal.Table) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateConverting {
		return ErrNotConverting
	}
	w.source = source
	w.setLocked(table)
	return nil
}

// FailConversion leaves the working copy as it was and moves the session
// back to Ready, or to Empty when there is no working copy.
func (w *WorkingCopy) FailConversion() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateConverting {
		return ErrNotConverting
	}
	if w.present {
		w.state = StateReady
	} else {
		w.state = StateEmpty
	}
	return nil
}

// MarkExported records a successful export.
func (w *WorkingCopy) MarkExported() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.checkEditableLocked(); err != nil {
		return err
	}
	w.state = StateExported
	return nil
}
