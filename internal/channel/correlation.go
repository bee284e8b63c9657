package channel

import (
	"sync"

	"qchat/internal/domain"
)

// Table tracks messages waiting for their decrypted_message event, keyed by
// ciphertext. There is at most one entry per distinct ciphertext; a
// ciphertext that arrives again while still pending joins the existing entry
// instead of creating a second one, so a single response fills both.
//
// Register, MarkRequested and Resolve are atomic with respect to each other.
type Table struct {
	mu      sync.Mutex
	entries map[string]*pending
}

type pending struct {
	ids       []domain.MessageID
	requested bool
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{entries: make(map[string]*pending)}
}

// Register records that message id awaits the plaintext of ciphertext. It
// reports whether a new entry was created.
func (t *Table) Register(ciphertext string, id domain.MessageID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if p, ok := t.entries[ciphertext]; ok {
		p.ids = append(p.ids, id)
		return false
	}
	t.entries[ciphertext] = &pending{ids: []domain.MessageID{id}}
	return true
}

// MarkRequested flags the entry for ciphertext as having a decrypt request
// in flight. It reports true only to the first caller, so the request is
// sent at most once per entry.
func (t *Table) MarkRequested(ciphertext string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.entries[ciphertext]
	if !ok || p.requested {
		return false
	}
	p.requested = true
	return true
}

// Resolve removes the entry for ciphertext and returns the message ids it
// held. It returns false when nothing was pending, e.g. for a late or
// duplicate response.
func (t *Table) Resolve(ciphertext string) ([]domain.MessageID, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.entries[ciphertext]
	if !ok {
		return nil, false
	}
	delete(t.entries, ciphertext)
	return p.ids, true
}

// Len returns the number of distinct pending ciphertexts.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Reset discards every entry and returns how many there were.
func (t *Table) Reset() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(t.entries)
	t.entries = make(map[string]*pending)
	return n
}
