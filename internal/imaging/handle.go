package imaging

import (
	"bytes"
	"errors"
	"io"
	"sync"

	"github.com/google/uuid"
)

// ErrReleased is returned when a released handle is used.
var ErrReleased = errors.New("image handle released")

// Handle is a revocable reference to image bytes held by a Store.
type Handle struct {
	id    string
	store *Store

	mu       sync.RWMutex
	data     []byte
	size     int
	released bool
}

// ID returns the handle's "blob:<uuid>" identifier.
func (h *Handle) ID() string { return h.id }

// Size returns the number of bytes the handle was created with.
func (h *Handle) Size() int { return h.size }

// Open returns a reader over the handle's bytes.
func (h *Handle) Open() (io.ReadCloser, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.released {
		return nil, ErrReleased
	}
	return io.NopCloser(bytes.NewReader(h.data)), nil
}

// Release frees the handle's bytes and removes it from its store. Only the
// first call has an effect; later calls return ErrReleased.
func (h *Handle) Release() error {
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return ErrReleased
	}
	h.released = true
	h.data = nil
	h.mu.Unlock()

	if h.store != nil {
		h.store.forget(h.id)
	}
	return nil
}

// Store tracks live handles.
//
// A Store is the registry that makes handle IDs resolvable and lets callers
// check for leaks: every handle created must eventually be released.
type Store struct {
	mu       sync.Mutex
	handles  map[string]*Handle
	created  int
	released int
}

// NewStore creates an empty handle store.
func NewStore() *Store {
	return &Store{handles: make(map[string]*Handle)}
}

// Create copies data into a new live handle.
func (s *Store) Create(data []byte) *Handle {
	h := &Handle{
		id:    "blob:" + uuid.NewString(),
		store: s,
		data:  bytes.Clone(data),
		size:  len(data),
	}

	s.mu.Lock()
	s.handles[h.id] = h
	s.created++
	s.mu.Unlock()

	return h
}

// Lookup returns the live handle with the given ID.
func (s *Store) Lookup(id string) (*Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.handles[id]
	return h, ok
}

// Live returns the number of handles created and not yet released.
func (s *Store) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}

// Stats returns the number of handles created and released over the store's
// lifetime.
func (s *Store) Stats() (created, released int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.created, s.released
}

// Clear releases every live handle and returns how many it released.
func (s *Store) Clear() int {
	s.mu.Lock()
	live := make([]*Handle, 0, len(s.handles))
	for _, h := range s.handles {
		live = append(live, h)
	}
	s.mu.Unlock()

	n := 0
	for _, h := range live {
		if h.Release() == nil {
			n++
		}
	}
	return n
}

func (s *Store) forget(id string) {
	s.mu.Lock()
	if _, ok := s.handles[id]; ok {
		delete(s.handles, id)
		s.released++
	}
	s.mu.Unlock()
}
