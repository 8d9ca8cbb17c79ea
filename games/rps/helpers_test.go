package rps

import (
	"sync"
	"testing"
)

type sent struct {
	user string
	msg  any
}

// recorder is a Notifier and Presence that remembers everything it was given.
type recorder struct {
	mu     sync.Mutex
	sent   []sent
	online map[string]bool
}

func newRecorder(online ...string) *recorder {
	r := &recorder{online: make(map[string]bool)}
	for _, u := range online {
		r.online[u] = true
	}
	return r
}

func (r *recorder) Notify(user string, msg any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sent{user: user, msg: msg})
}

func (r *recorder) Online(user string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.online[user]
}

func (r *recorder) setOnline(user string, online bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.online[user] = online
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}

// to returns every message of type T sent to user, in order.
func to[T any](r *recorder, user string) []T {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []T
	for _, s := range r.sent {
		if s.user != user {
			continue
		}
		if m, ok := s.msg.(T); ok {
			out = append(out, m)
		}
	}
	return out
}

// startedRoom returns a session with both players seated.
func startedRoom(t *testing.T, r *recorder, p1, p2 string) *Session {
	t.Helper()

	reg := NewRegistry(r, nil)
	s := reg.GetOrCreate(RoomIDFor(p1, p2), p1, p2)
	if err := s.Join(p1); err != nil {
		t.Fatal(err)
	}
	if err := s.Join(p2); err != nil {
		t.Fatal(err)
	}
	r.reset()
	return s
}
