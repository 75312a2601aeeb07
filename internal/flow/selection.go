package flow

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Selection identifies an advert, and optionally one of its channels, picked
// in the instant-posting menu. An empty Channel means "all channels".
type Selection struct {
	AdID    string
	Channel string
}

// SelectionMap hands out short single-use tokens for menu picks so callback
// payloads stay within Telegram's 64-byte limit. Entries live in memory
// only: a restart invalidates outstanding menus, which simply re-render.
type SelectionMap struct {
	mu      sync.Mutex
	entries map[string]Selection
}

func NewSelectionMap() *SelectionMap {
	return &SelectionMap{entries: make(map[string]Selection)}
}

// Put stores the selection and returns its token.
func (m *SelectionMap) Put(sel Selection) string {
	key := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	m.mu.Lock()
	m.entries[key] = sel
	m.mu.Unlock()
	return key
}

// Claim retrieves and removes the selection. The second claim of the same
// token fails, which makes stale menu taps harmless.
func (m *SelectionMap) Claim(key string) (Selection, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sel, ok := m.entries[key]
	if ok {
		delete(m.entries, key)
	}
	return sel, ok
}
