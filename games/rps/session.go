package rps

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// RoomID names a room. Both participants derive the same value independently.
type RoomID string

const roomPrefix = "game_"

// RoomIDFor returns the canonical room for an unordered pair of users.
func RoomIDFor(a, b string) RoomID {
	pair := []string{a, b}
	sort.Strings(pair)
	return RoomID(roomPrefix + pair[0] + "_" + pair[1])
}

type State int

const (
	WaitingForSecondPlayer State = iota
	AwaitingMoves
	Resolving
	Closed
)

func (s State) String() string {
	switch s {
	case WaitingForSecondPlayer:
		return "waiting_for_second_player"
	case AwaitingMoves:
		return "awaiting_moves"
	case Resolving:
		return "resolving"
	default:
		return "closed"
	}
}

// RoundResult is produced once per round and never mutated.
type RoundResult struct {
	Room    RoomID
	Round   int
	Choice1 Move
	Choice2 Move
	Outcome Outcome
}

// Session is the state of one two-player room. Every exported method takes
// the room's own lock, so rooms never contend with each other.
type Session struct {
	id      RoomID
	players [2]string
	notify  Notifier
	logf    func(format string, args ...any)

	mu         sync.Mutex
	joined     [2]bool
	round      int
	pending    map[string]Move
	state      State
	lastActive time.Time
}

func newSession(id RoomID, player1, player2 string, n Notifier, logf func(string, ...any)) *Session {
	return &Session{
		id:         id,
		players:    [2]string{player1, player2},
		notify:     n,
		logf:       logf,
		round:      1,
		pending:    make(map[string]Move, 2),
		state:      WaitingForSecondPlayer,
		lastActive: time.Now(),
	}
}

func (s *Session) ID() RoomID { return s.id }

// Players returns the seating, player1 first.
func (s *Session) Players() (string, string) { return s.players[0], s.players[1] }

func (s *Session) seat(user string) int {
	for i, p := range s.players {
		if p == user {
			return i
		}
	}
	return -1
}

func (s *Session) HasPlayer(user string) bool {
	return s.seat(user) >= 0
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Round is the number of the round currently accepting moves.
func (s *Session) Round() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.round
}

// PendingMoves reports how many moves are recorded for the current round.
func (s *Session) PendingMoves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Join seats a participant. The room starts once both players have joined.
func (s *Session) Join(user string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Closed {
		return fmt.Errorf("%w: %s", ErrNoSuchRoom, s.id)
	}

	i := s.seat(user)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrRoomFull, s.id)
	}

	s.lastActive = time.Now()

	if s.joined[i] {
		if s.state != WaitingForSecondPlayer {
			s.notify.Notify(user, s.startMessageLocked())
		}
		return nil
	}

	s.joined[i] = true
	s.logf("GAMES: %q joined %s", user, s.id)

	if s.joined[0] && s.joined[1] {
		s.state = AwaitingMoves
		msg := s.startMessageLocked()
		for _, p := range s.players {
			s.notify.Notify(p, msg)
		}
		s.logf("GAMES: Started %s", s.id)
	}

	return nil
}

func (s *Session) startMessageLocked() StartGameMessage {
	return StartGameMessage{
		Type:    "start_game",
		Room:    s.id,
		Player1: s.players[0],
		Player2: s.players[1],
	}
}

// SubmitMove records a move for the current round. When it completes the
// pair, the round is resolved, broadcast, and reset before the lock is
// released, so no other submission can observe a half-finished round.
// The returned result is nil unless this call resolved the round.
func (s *Session) SubmitMove(user string, move Move) (*RoundResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Closed {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchRoom, s.id)
	}
	if !s.HasPlayer(user) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlayer, s.id)
	}
	if s.state == WaitingForSecondPlayer {
		return nil, ErrNotStarted
	}
	if _, ok := s.pending[user]; ok {
		return nil, fmt.Errorf("%w (round %d)", ErrDuplicateMove, s.round)
	}

	s.lastActive = time.Now()
	s.pending[user] = move

	if len(s.pending) < len(s.players) {
		s.notify.Notify(user, MoveReceivedMessage{
			Type:  "move_received",
			Room:  s.id,
			Round: s.round,
		})
		return nil, nil
	}

	s.state = Resolving

	result := &RoundResult{
		Room:    s.id,
		Round:   s.round,
		Choice1: s.pending[s.players[0]],
		Choice2: s.pending[s.players[1]],
	}
	result.Outcome = Resolve(result.Choice1, result.Choice2)

	msg := RoundResultMessage{
		Type:    "round_result",
		Room:    s.id,
		Round:   result.Round,
		Player1: s.players[0],
		Player2: s.players[1],
		Choice1: result.Choice1,
		Choice2: result.Choice2,
		Result:  result.Outcome,
	}
	for _, p := range s.players {
		s.notify.Notify(p, msg)
	}

	s.logf("GAMES: %s round %d: %s vs %s, %s", s.id, result.Round, result.Choice1, result.Choice2, result.Outcome)

	s.round++
	clear(s.pending)
	s.state = AwaitingMoves

	return result, nil
}

// close is terminal. by names the participant who left, if any.
func (s *Session) close(by string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Closed {
		return false
	}

	s.state = Closed
	clear(s.pending)

	msg := RoomClosedMessage{
		Type: "room_closed",
		Room: s.id,
		By:   by,
	}
	for _, p := range s.players {
		if p != by {
			s.notify.Notify(p, msg)
		}
	}

	return true
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}
