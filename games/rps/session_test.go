package rps

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomIDForIsOrderIndependent(t *testing.T) {
	require.Equal(t, RoomID("game_alice_bob"), RoomIDFor("alice", "bob"))
	require.Equal(t, RoomIDFor("alice", "bob"), RoomIDFor("bob", "alice"))
}

func TestJoinStartsGameOnce(t *testing.T) {
	r := newRecorder()
	reg := NewRegistry(r, nil)
	s := reg.GetOrCreate(RoomIDFor("alice", "bob"), "alice", "bob")

	require.NoError(t, s.Join("alice"))
	require.Equal(t, WaitingForSecondPlayer, s.State())
	require.Empty(t, to[StartGameMessage](r, "alice"))

	require.NoError(t, s.Join("bob"))
	require.Equal(t, AwaitingMoves, s.State())

	for _, u := range []string{"alice", "bob"} {
		starts := to[StartGameMessage](r, u)
		require.Len(t, starts, 1)
		assert.Equal(t, "alice", starts[0].Player1)
		assert.Equal(t, "bob", starts[0].Player2)
	}

	// A participant rejoining changes nothing but is told the game is on.
	require.NoError(t, s.Join("bob"))
	require.Equal(t, AwaitingMoves, s.State())
	require.Len(t, to[StartGameMessage](r, "bob"), 2)
	require.Len(t, to[StartGameMessage](r, "alice"), 1)

	require.ErrorIs(t, s.Join("carol"), ErrRoomFull)
}

func TestMoveBeforeStart(t *testing.T) {
	r := newRecorder()
	s := NewRegistry(r, nil).GetOrCreate(RoomIDFor("alice", "bob"), "alice", "bob")
	require.NoError(t, s.Join("alice"))

	_, err := s.SubmitMove("alice", Rock)
	require.ErrorIs(t, err, ErrNotStarted)
	require.Equal(t, 0, s.PendingMoves())
}

func TestRoundResolvesOnce(t *testing.T) {
	r := newRecorder()
	s := startedRoom(t, r, "alice", "bob")

	res, err := s.SubmitMove("bob", Scissors)
	require.NoError(t, err)
	require.Nil(t, res)
	require.Len(t, to[MoveReceivedMessage](r, "bob"), 1)

	res, err = s.SubmitMove("alice", Rock)
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Equal(t, 1, res.Round)
	require.Equal(t, Player1Wins, res.Outcome)

	for _, u := range []string{"alice", "bob"} {
		results := to[RoundResultMessage](r, u)
		require.Len(t, results, 1)
		assert.Equal(t, RoundResultMessage{
			Type:    "round_result",
			Room:    "game_alice_bob",
			Round:   1,
			Player1: "alice",
			Player2: "bob",
			Choice1: Rock,
			Choice2: Scissors,
			Result:  Player1Wins,
		}, results[0])
	}

	require.Equal(t, 2, s.Round())
	require.Equal(t, 0, s.PendingMoves())
	require.Equal(t, AwaitingMoves, s.State())
}

func TestDuplicateMoveRejected(t *testing.T) {
	r := newRecorder()
	s := startedRoom(t, r, "alice", "bob")

	_, err := s.SubmitMove("alice", Rock)
	require.NoError(t, err)

	_, err = s.SubmitMove("alice", Paper)
	require.ErrorIs(t, err, ErrDuplicateMove)
	require.Empty(t, to[RoundResultMessage](r, "alice"))
	require.Equal(t, 1, s.Round())

	res, err := s.SubmitMove("bob", Paper)
	require.NoError(t, err)
	require.Equal(t, Rock, res.Choice1, "the first move stands")
	require.Equal(t, Player2Wins, res.Outcome)
	require.Len(t, to[RoundResultMessage](r, "bob"), 1)
}

func TestUnknownPlayerMove(t *testing.T) {
	r := newRecorder()
	s := startedRoom(t, r, "alice", "bob")

	_, err := s.SubmitMove("mallory", Rock)
	require.ErrorIs(t, err, ErrUnknownPlayer)
	require.Equal(t, 0, s.PendingMoves())
}

func TestConcurrentMovesResolveExactlyOnce(t *testing.T) {
	for i := 0; i < 200; i++ {
		r := newRecorder()
		s := startedRoom(t, r, "alice", "bob")

		var wg sync.WaitGroup
		results := make(chan *RoundResult, 2)
		for _, u := range []string{"alice", "bob"} {
			wg.Add(1)
			go func(user string) {
				defer wg.Done()
				res, err := s.SubmitMove(user, Paper)
				assert.NoError(t, err)
				results <- res
			}(u)
		}
		wg.Wait()
		close(results)

		resolved := 0
		for res := range results {
			if res != nil {
				resolved++
			}
		}
		require.Equal(t, 1, resolved)
		require.Len(t, to[RoundResultMessage](r, "alice"), 1)
		require.Len(t, to[RoundResultMessage](r, "bob"), 1)
		require.Equal(t, 2, s.Round())
		require.Equal(t, 0, s.PendingMoves())
	}
}

func TestRacingRetriesNeverDoubleCount(t *testing.T) {
	r := newRecorder()
	s := startedRoom(t, r, "alice", "bob")

	var wg sync.WaitGroup
	var mu sync.Mutex
	dupes := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.SubmitMove("alice", Rock); err != nil {
				assert.ErrorIs(t, err, ErrDuplicateMove)
				mu.Lock()
				dupes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 9, dupes)
	require.Equal(t, 1, s.PendingMoves())
	require.Equal(t, 1, s.Round())
}

func TestClosedSessionRejectsEverything(t *testing.T) {
	r := newRecorder()
	s := startedRoom(t, r, "alice", "bob")

	_, err := s.SubmitMove("alice", Rock)
	require.NoError(t, err)

	require.True(t, s.close("alice"))
	require.False(t, s.close("alice"))
	require.Equal(t, Closed, s.State())
	require.Equal(t, 0, s.PendingMoves())

	closed := to[RoomClosedMessage](r, "bob")
	require.Len(t, closed, 1)
	require.Equal(t, "alice", closed[0].By)
	require.Empty(t, to[RoomClosedMessage](r, "alice"))

	_, err = s.SubmitMove("bob", Rock)
	require.ErrorIs(t, err, ErrNoSuchRoom)
	require.ErrorIs(t, s.Join("bob"), ErrNoSuchRoom)
}
