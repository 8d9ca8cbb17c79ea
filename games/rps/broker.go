package rps

import (
	"fmt"
	"sync"
	"time"
)

// GameRequest is one user's pending invitation to another. Answered,
// superseded and expired requests are removed, never kept in a terminal state.
type GameRequest struct {
	From      string
	To        string
	CreatedAt time.Time
}

// pairKey identifies an unordered pair of users.
type pairKey struct {
	lo, hi string
}

func keyFor(a, b string) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}

// Broker tracks outstanding invitations. At most one pending request exists
// per unordered pair; terminal requests are dropped immediately.
type Broker struct {
	rooms    *Registry
	presence Presence
	notify   Notifier
	ttl      time.Duration
	now      func() time.Time
	logf     func(format string, args ...any)

	mu      sync.Mutex
	pending map[pairKey]*GameRequest
}

// NewBroker returns a broker whose pending requests expire after ttl.
// A zero ttl keeps requests until they are answered.
func NewBroker(rooms *Registry, p Presence, n Notifier, ttl time.Duration, logf func(string, ...any)) *Broker {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Broker{
		rooms:    rooms,
		presence: p,
		notify:   n,
		ttl:      ttl,
		now:      time.Now,
		logf:     logf,
		pending:  make(map[pairKey]*GameRequest),
	}
}

func (b *Broker) expiredLocked(req *GameRequest) bool {
	return b.ttl > 0 && b.now().Sub(req.CreatedAt) >= b.ttl
}

// lookupLocked returns the live pending request for the pair, dropping it
// first if it has expired.
func (b *Broker) lookupLocked(k pairKey) *GameRequest {
	req, ok := b.pending[k]
	if !ok {
		return nil
	}
	if b.expiredLocked(req) {
		delete(b.pending, k)
		return nil
	}
	return req
}

// Invite records a request from one user to another. If the target already
// invited the caller, the two requests agree and the earlier one is accepted
// instead; the returned room is then non-empty.
func (b *Broker) Invite(from, to string) (RoomID, error) {
	if from == "" || to == "" {
		return "", fmt.Errorf("%w: to", ErrMissingArgument)
	}
	if from == to {
		return "", ErrInvalidTarget
	}
	if !b.presence.Online(to) {
		return "", fmt.Errorf("%w: %s", ErrNotOnline, to)
	}

	k := keyFor(from, to)

	b.mu.Lock()
	prior := b.lookupLocked(k)
	if prior != nil && prior.From == to {
		delete(b.pending, k)
		b.mu.Unlock()

		b.logf("GAMES: Mutual invite between %q and %q", to, from)
		return b.open(to, from), nil
	}
	superseded := prior != nil
	b.pending[k] = &GameRequest{
		From:      from,
		To:        to,
		CreatedAt: b.now(),
	}
	b.mu.Unlock()

	b.notify.Notify(to, GameRequestMessage{
		Type: "game_request",
		From: from,
	})
	if superseded {
		b.logf("GAMES: %q invited %q again, earlier request superseded", from, to)
	} else {
		b.logf("GAMES: %q invited %q", from, to)
	}

	return "", nil
}

// Accept answers a pending request from `from` to `by` and returns the room
// both of them should join.
func (b *Broker) Accept(by, from string) (RoomID, error) {
	if from == "" {
		return "", fmt.Errorf("%w: from", ErrMissingArgument)
	}

	k := keyFor(by, from)

	b.mu.Lock()
	req := b.lookupLocked(k)
	if req == nil || req.From != from || req.To != by {
		b.mu.Unlock()
		return "", fmt.Errorf("%w from %s", ErrNoSuchRequest, from)
	}
	delete(b.pending, k)
	b.mu.Unlock()

	b.logf("GAMES: %q accepted %q", by, from)
	return b.open(from, by), nil
}

// open creates the room for an accepted request and tells both sides.
func (b *Broker) open(from, by string) RoomID {
	id := RoomIDFor(from, by)

	p1, p2 := from, by
	if p2 < p1 {
		p1, p2 = p2, p1
	}
	b.rooms.GetOrCreate(id, p1, p2)

	msg := GameRequestAcceptedMessage{
		Type: "game_request_accepted",
		From: from,
		By:   by,
		Room: id,
	}
	b.notify.Notify(from, msg)
	b.notify.Notify(by, msg)

	return id
}

// Reject declines a pending request. Rejecting a request that no longer
// exists is not an error, so duplicate client messages are harmless.
func (b *Broker) Reject(by, from string) error {
	if from == "" {
		return fmt.Errorf("%w: from", ErrMissingArgument)
	}

	k := keyFor(by, from)

	b.mu.Lock()
	req := b.lookupLocked(k)
	if req == nil || req.From != from || req.To != by {
		b.mu.Unlock()
		return nil
	}
	delete(b.pending, k)
	b.mu.Unlock()

	b.notify.Notify(from, GameRequestRejectedMessage{
		Type: "game_request_rejected",
		By:   by,
	})
	b.logf("GAMES: %q rejected %q", by, from)

	return nil
}

// DropUser removes every pending request from or to a user who went offline.
func (b *Broker) DropUser(user string) {
	var cancelled []*GameRequest

	b.mu.Lock()
	for k, req := range b.pending {
		if req.From == user || req.To == user {
			delete(b.pending, k)
			cancelled = append(cancelled, req)
		}
	}
	b.mu.Unlock()

	for _, req := range cancelled {
		if req.From == user {
			b.notify.Notify(req.To, GameRequestCancelledMessage{
				Type: "game_request_cancelled",
				From: user,
			})
		}
	}
}

// Expire drops requests older than the broker's ttl and tells each inviter.
func (b *Broker) Expire() int {
	if b.ttl <= 0 {
		return 0
	}

	var expired []*GameRequest

	b.mu.Lock()
	for k, req := range b.pending {
		if b.expiredLocked(req) {
			delete(b.pending, k)
			expired = append(expired, req)
		}
	}
	b.mu.Unlock()

	for _, req := range expired {
		b.notify.Notify(req.From, GameRequestExpiredMessage{
			Type: "game_request_expired",
			To:   req.To,
		})
		b.logf("GAMES: Request from %q to %q expired", req.From, req.To)
	}

	return len(expired)
}

// Pending returns the live request for a pair, if any.
func (b *Broker) Pending(u1, u2 string) (GameRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	req := b.lookupLocked(keyFor(u1, u2))
	if req == nil {
		return GameRequest{}, false
	}
	return *req, true
}

func (b *Broker) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
