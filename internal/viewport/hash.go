package viewport

import "sync"

// HashStore is where the hash token lives between sessions, typically a URL
// fragment or a command-line argument.
type HashStore interface {
	Hash() string
	SetHash(token string)
}

// HashSync seeds the initial viewport. With no stored token the encoded
// default is written back so store and viewport agree from the first render.
// Otherwise the token is decoded once against def.
func HashSync(store HashStore, def Viewport) Viewport {
	token := store.Hash()
	if token == "" {
		store.SetHash(Encode(def))
		return def
	}
	return Decode(token, def)
}

// MemoryHashStore is a HashStore held in memory.
type MemoryHashStore struct {
	mu    sync.RWMutex
	token string
}

// NewMemoryHashStore creates a store holding token.
func NewMemoryHashStore(token string) *MemoryHashStore {
	return &MemoryHashStore{token: token}
}

// Hash returns the stored token.
func (s *MemoryHashStore) Hash() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// SetHash replaces the stored token.
func (s *MemoryHashStore) SetHash(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}
