package ledger

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// ContextStore holds key/value pairs that are added to every message logged
// with a context carrying the store. It is safe for concurrent use, so a
// context may be shared with child goroutines; a goroutine that opens its own
// scope with NewScope(ctx) works on a private copy. The zero-value pointer is
// an empty store that ignores writes.
type ContextStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewContextStore returns an empty store.
func NewContextStore() *ContextStore {
	return &ContextStore{values: make(map[string]string)}
}

// Set stores value under key, replacing any previous value.
func (c *ContextStore) Set(key, value string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.values[key] = value
	c.mu.Unlock()
}

// Get returns the value stored under key, or "" when the key is absent.
func (c *ContextStore) Get(key string) string {
	v, _ := c.Lookup(key)
	return v
}

// Lookup is Get with an explicit presence flag.
func (c *ContextStore) Lookup(key string) (string, bool) {
	if c == nil {
		return emptyString, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok
}

// Remove deletes key. Removing an absent key is a no-op.
func (c *ContextStore) Remove(key string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	delete(c.values, key)
	c.mu.Unlock()
}

// Len returns the number of entries.
func (c *ContextStore) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.values)
}

// Snapshot returns a copy of the current entries.
func (c *ContextStore) Snapshot() map[string]string {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// fields returns the entries as fields sorted by key, read in one pass so a
// concurrent Scope.Close cannot split a key from its value.
func (c *ContextStore) fields() []field {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	out := make([]field, 0, len(c.values))
	for k, v := range c.values {
		out = append(out, field{key: k, value: v})
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })
	return out
}

// NewScope returns a scope whose additions are removed again by Close.
func (c *ContextStore) NewScope() *Scope {
	return &Scope{store: c}
}

// Scope tracks the keys it added to a ContextStore and deletes exactly those
// keys on Close. Close deletes; it does not restore a value the key held
// before the scope set it. Use it with defer so the keys are removed however
// the function exits:
//
//	ctx, scope := ledger.NewScope(ctx)
//	defer scope.Close()
//	scope.Add("request_id", id)
//
// A Scope belongs to the goroutine that opened it.
type Scope struct {
	store  *ContextStore
	keys   []string
	closed bool
}

// Add stores key in the underlying store. Numbers are converted to their
// decimal text form; other values use the same conversion as log pairs.
func (s *Scope) Add(key string, value interface{}) *Scope {
	if s.closed {
		return s
	}
	if !s.tracks(key) {
		s.keys = append(s.keys, key)
	}
	s.store.Set(key, toString(value))
	return s
}

// Correlate adds a freshly generated UUID under key and returns it.
func (s *Scope) Correlate(key string) string {
	id := uuid.NewString()
	s.Add(key, id)
	return id
}

// Keys returns the keys added through this scope, in insertion order.
func (s *Scope) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Close removes every key this scope added. It is safe to call more than once.
func (s *Scope) Close() {
	if s.closed {
		return
	}
	s.closed = true
	for _, k := range s.keys {
		s.store.Remove(k)
	}
	s.keys = nil
}

func (s *Scope) tracks(key string) bool {
	for _, k := range s.keys {
		if k == key {
			return true
		}
	}
	return false
}

type storeKey struct{}

// WithContextStore returns a copy of ctx carrying store.
func WithContextStore(ctx context.Context, store *ContextStore) context.Context {
	return context.WithValue(ctx, storeKey{}, store)
}

// ContextStoreFrom returns the store carried by ctx, or nil.
func ContextStoreFrom(ctx context.Context) *ContextStore {
	if ctx == nil {
		return nil
	}
	store, _ := ctx.Value(storeKey{}).(*ContextStore)
	return store
}

// NewScope attaches a new store to ctx, seeded with the entries of the store
// ctx already carries, and opens a scope on it. Keys added through the scope
// are visible only through the returned context, so goroutines sharing a
// parent context never see or delete each other's keys.
func NewScope(ctx context.Context) (context.Context, *Scope) {
	if ctx == nil {
		ctx = context.Background()
	}
	store := forkStore(ContextStoreFrom(ctx))
	return WithContextStore(ctx, store), store.NewScope()
}

// Fork returns a context carrying a copy of ctx's store. Later changes to
// either store are not seen by the other.
func Fork(ctx context.Context) context.Context {
	parent := ContextStoreFrom(ctx)
	if parent == nil {
		return ctx
	}
	return WithContextStore(ctx, forkStore(parent))
}

func forkStore(parent *ContextStore) *ContextStore {
	if parent == nil {
		return NewContextStore()
	}
	return &ContextStore{values: parent.Snapshot()}
}
