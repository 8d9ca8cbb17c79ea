package rps

import (
	"fmt"
	"sync"
	"time"
)

// Registry holds every open room keyed by id. Its lock only guards the
// map; game logic runs under each session's own lock.
type Registry struct {
	mu     sync.Mutex
	rooms  map[RoomID]*Session
	notify Notifier
	logf   func(format string, args ...any)
}

func NewRegistry(n Notifier, logf func(string, ...any)) *Registry {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Registry{
		rooms:  make(map[RoomID]*Session),
		notify: n,
		logf:   logf,
	}
}

// GetOrCreate returns the open room for id, creating it if necessary.
// Concurrent callers for the same id all receive the same session.
func (r *Registry) GetOrCreate(id RoomID, player1, player2 string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.rooms[id]; ok {
		return s
	}

	s := newSession(id, player1, player2, r.notify, r.logf)
	r.rooms[id] = s
	r.logf("GAMES: Created room %s", id)
	return s
}

func (r *Registry) Get(id RoomID) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.rooms[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchRoom, id)
	}
	return s, nil
}

// Close marks the room closed and forgets it. Closing twice is a no-op.
func (r *Registry) Close(id RoomID, by string) {
	r.mu.Lock()
	s, ok := r.rooms[id]
	if ok {
		delete(r.rooms, id)
	}
	r.mu.Unlock()

	if ok && s.close(by) {
		r.logf("GAMES: Closed room %s", id)
	}
}

// CloseSession closes s, but only unregisters it if it is still the room
// registered under its id; a newer room for the same pair is left alone.
func (r *Registry) CloseSession(s *Session, by string) {
	r.mu.Lock()
	if r.rooms[s.id] == s {
		delete(r.rooms, s.id)
	}
	r.mu.Unlock()

	if s.close(by) {
		r.logf("GAMES: Closed room %s", s.id)
	}
}

// RoomsOf returns every open room user is seated in, joined or not.
func (r *Registry) RoomsOf(user string) []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Session
	for _, s := range r.rooms {
		if s.HasPlayer(user) {
			out = append(out, s)
		}
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

// Reap closes rooms with no activity since cutoff and returns how many it closed.
func (r *Registry) Reap(cutoff time.Time) int {
	r.mu.Lock()
	all := make([]*Session, 0, len(r.rooms))
	for _, s := range r.rooms {
		all = append(all, s)
	}
	r.mu.Unlock()

	n := 0
	for _, s := range all {
		if !s.idleSince().Before(cutoff) {
			continue
		}

		r.mu.Lock()
		current := r.rooms[s.id] == s
		if current {
			delete(r.rooms, s.id)
		}
		r.mu.Unlock()

		if current && s.close("") {
			r.logf("GAMES: Reaped idle room %s", s.id)
			n++
		}
	}
	return n
}
