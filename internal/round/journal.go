package round

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EntryKind classifies journal entries for the admin log view.
type EntryKind string

const (
	KindSettlement EntryKind = "settlement"
	KindRound      EntryKind = "round"
	KindEvent      EntryKind = "event"
	KindAdmin      EntryKind = "admin"
)

// Entry is one line of the game narrative.
type Entry struct {
	ID      string    `json:"id"`
	At      time.Time `json:"at"`
	Round   int       `json:"round"`
	Kind    EntryKind `json:"kind"`
	TeamID  string    `json:"team_id,omitempty"`
	Message string    `json:"message"`
}

// Journal keeps the most recent entries in a fixed-size ring.
type Journal struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
	now     func() time.Time
}

// NewJournal returns a journal holding at most size entries (minimum 1).
func NewJournal(size int) *Journal {
	return &Journal{entries: make([]Entry, max(size, 1)), now: time.Now}
}

// Add stamps e with an id and time when missing and appends it, evicting the
// oldest entry once the ring is full.
func (j *Journal) Add(e Entry) Entry {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if e.At.IsZero() {
		e.At = j.now().UTC()
	}
	j.entries[j.next] = e
	j.next = (j.next + 1) % len(j.entries)
	if j.next == 0 {
		j.full = true
	}
	return e
}

// Entries returns a copy, oldest first.
func (j *Journal) Entries() []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.snapshotLocked()
}

func (j *Journal) snapshotLocked() []Entry {
	if !j.full {
		return append([]Entry(nil), j.entries[:j.next]...)
	}
	out := make([]Entry, 0, len(j.entries))
	out = append(out, j.entries[j.next:]...)
	return append(out, j.entries[:j.next]...)
}

// Resize changes capacity, keeping the newest entries that still fit.
func (j *Journal) Resize(size int) {
	size = max(size, 1)
	j.mu.Lock()
	defer j.mu.Unlock()
	if size == len(j.entries) {
		return
	}
	kept := j.snapshotLocked()
	if len(kept) > size {
		kept = kept[len(kept)-size:]
	}
	j.entries = make([]Entry, size)
	copy(j.entries, kept)
	j.next = len(kept) % size
	j.full = len(kept) == size
}

// Reset drops every entry.
func (j *Journal) Reset() {
	j.mu.Lock()
	defer j.mu.Unlock()
	clear(j.entries)
	j.next = 0
	j.full = false
}
