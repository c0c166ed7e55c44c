// Package state is the minimal in-memory game state the
// STATE_UPDATE/ENTITY_DESTROYED/DAMAGE_RECEIVED/DIAL_UPDATE/
// MOVEMENT_INPUT/FIRE_WEAPON message types exist to serve. It is
// adapted from a C state.c/game.c pair: the original carries a single
// int32 tick counter incremented once a second by a background thread
// and persisted to a file on shutdown; persistent game state files are
// out of scope here, so this port keeps the tick counter and the
// per-entity bookkeeping the later message types imply, but drops the
// file load/write round trip.
package state

import (
	"sync"
	"sync/atomic"
)

// Entity is one peer's position and health, the minimum state
// MOVEMENT_INPUT/FIRE_WEAPON/DAMAGE_RECEIVED need to mutate and report.
type Entity struct {
	X, Y   int32
	Health int32
}

// Store is the server's single in-memory game state instance. The zero
// value is not usable; use New.
type Store struct {
	tick int64 // atomic; mirrors original_source's game.c tick counter

	mu       sync.Mutex
	entities map[string]*Entity
}

// New builds an empty Store.
func New() *Store {
	return &Store{entities: make(map[string]*Entity)}
}

// Tick increments and returns the tick counter; a background goroutine
// (cmd/space-captain-server) calls this once a second, the same cadence
// as the original's game_loop.
func (s *Store) Tick() int64 {
	return atomic.AddInt64(&s.tick, 1)
}

// CurrentTick reads the tick counter without incrementing it.
func (s *Store) CurrentTick() int64 {
	return atomic.LoadInt64(&s.tick)
}

// Join creates (or resets) the entity for id at the origin with full
// health, called on DIAL_UPDATE.
func (s *Store) Join(id string) *Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := &Entity{Health: 100}
	s.entities[id] = e
	return e
}

// Move applies a relative movement to id's entity, creating it first if
// this is the peer's first MOVEMENT_INPUT.
func (s *Store) Move(id string, dx, dy int32) *Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[id]
	if !ok {
		e = &Entity{Health: 100}
		s.entities[id] = e
	}
	e.X += dx
	e.Y += dy
	return e
}

// Damage reduces id's health by amount, removing the entity (and
// reporting destroyed=true) if health reaches zero — the trigger for an
// ENTITY_DESTROYED response.
func (s *Store) Damage(id string, amount int32) (e Entity, destroyed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ent, ok := s.entities[id]
	if !ok {
		return Entity{}, false
	}
	ent.Health -= amount
	if ent.Health <= 0 {
		ent.Health = 0
		delete(s.entities, id)
		return *ent, true
	}
	return *ent, false
}

// Get returns a copy of id's entity, if any.
func (s *Store) Get(id string) (Entity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[id]
	if !ok {
		return Entity{}, false
	}
	return *e, true
}

// Remove drops id's entity. The server does not call it when a session
// is reaped or closed; an entity stays in the store after its peer
// disconnects.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entities, id)
}
