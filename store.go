package cachedresource

import (
	"log/slog"
	"sync"
)

// HostContext carries the caching facilities of a hosting application.
// When supplied to NewStore, default records constructed by the store
// use the host's cache backend and logger instead of the built-in
// in-memory backend and discard logger.
type HostContext struct {
	// Cache is the host's cache backend.
	Cache Backend

	// Logger is the host's log sink.
	Logger *slog.Logger
}

// Store is a registry of per-entity cache configurations.
// An entity that has no record of its own resolves to its nearest
// configured ancestor's record, sharing it by reference until the
// entity is configured or assigned a record itself.
//
// A Store is safe for concurrent use; the first-resolution-wins binding
// of an entity to a record is atomic.
type Store struct {
	host *HostContext

	mu      sync.RWMutex
	records map[string]*Config
	parents map[string]string
}

// NewStore creates an empty configuration registry.
// The host context may be nil, in which case default records degrade to
// an in-memory backend and a discard logger.
func NewStore(host *HostContext) *Store {
	return &Store{
		host:    host,
		records: map[string]*Config{},
		parents: map[string]string{},
	}
}

// Derive declares parent as the ancestor of entity.
// Ancestry only affects entities that have not yet bound a record:
// their next Resolve walks the parent chain nearest first.
func (s *Store) Derive(entity, parent string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parents[entity] = parent
}

// Resolve returns the configuration record bound to entity.
// If the entity has no record, the nearest configured ancestor's record
// is bound to the entity by reference and returned. If no ancestor is
// configured either, a default record is constructed lazily and bound
// to the root-most unconfigured entity in the chain, so that future
// descendants share the same record. Repeated calls for the same entity
// return the identical record instance.
func (s *Store) Resolve(entity string) *Config {
	s.mu.RLock()
	if c, ok := s.records[entity]; ok {
		s.mu.RUnlock()
		return c
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.records[entity]; ok {
		return c
	}

	// nearest configured ancestor wins
	seen := map[string]struct{}{entity: {}}
	for parent := s.parents[entity]; parent != ""; parent = s.parents[parent] {
		if _, ok := seen[parent]; ok {
			break
		}
		seen[parent] = struct{}{}
		if c, ok := s.records[parent]; ok {
			s.records[entity] = c
			return c
		}
	}

	// nothing configured anywhere in the chain: construct defaults at
	// the root-most entity so the whole chain shares one record
	root := entity
	seen = map[string]struct{}{root: {}}
	for parent := s.parents[root]; parent != ""; parent = s.parents[parent] {
		if _, ok := seen[parent]; ok {
			break
		}
		seen[parent] = struct{}{}
		root = parent
	}
	c := newConfig(s.host, nil)
	s.records[root] = c
	if root != entity {
		s.records[entity] = c
	}
	return c
}

// Configure constructs a new record from documented defaults plus the
// given options and binds it to entity, replacing any inherited
// reference. Descendants that already resolved keep the record they
// bound to; descendants that have never resolved will find the new
// record on their next Resolve.
func (s *Store) Configure(entity string, opts Options) *Config {
	c := newConfig(s.host, opts)

	s.mu.Lock()
	s.records[entity] = c
	s.mu.Unlock()
	return c
}

// Assign binds an existing record to entity, replacing any prior
// binding. No other entity's record is mutated.
func (s *Store) Assign(entity string, cfg *Config) {
	s.mu.Lock()
	s.records[entity] = cfg
	s.mu.Unlock()
}
