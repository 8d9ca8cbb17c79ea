package rps

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEngineMatchAndRounds(t *testing.T) {
	r := newRecorder("A", "B")
	e := New(r, r, Options{RequestTimeout: time.Minute})

	_, err := e.Dispatch("A", ClientMessage{Type: MsgSendGameRequest, To: "B"})
	require.NoError(t, err)

	_, err = e.Dispatch("B", ClientMessage{Type: MsgAcceptGameRequest, From: "A"})
	require.NoError(t, err)

	accepted := to[GameRequestAcceptedMessage](r, "A")
	require.Len(t, accepted, 1)
	room := accepted[0].Room
	require.Equal(t, RoomID("game_A_B"), room)

	joined, err := e.Dispatch("A", ClientMessage{Type: MsgJoinRoom, Room: room})
	require.NoError(t, err)
	require.Equal(t, room, joined.ID())
	_, err = e.Dispatch("B", ClientMessage{Type: MsgJoinRoom, Room: room})
	require.NoError(t, err)

	require.Len(t, to[StartGameMessage](r, "A"), 1)
	require.Len(t, to[StartGameMessage](r, "B"), 1)

	_, err = e.Dispatch("A", ClientMessage{Type: MsgMakeMove, Room: room, Choice: "rock"})
	require.NoError(t, err)
	_, err = e.Dispatch("B", ClientMessage{Type: MsgMakeMove, Room: room, Choice: "scissors"})
	require.NoError(t, err)

	s, err := e.Rooms.Get(room)
	require.NoError(t, err)
	require.Equal(t, 2, s.Round())

	_, err = e.Dispatch("A", ClientMessage{Type: MsgMakeMove, Room: room, Choice: "paper"})
	require.NoError(t, err)
	_, err = e.Dispatch("B", ClientMessage{Type: MsgMakeMove, Room: room, Choice: "paper"})
	require.NoError(t, err)

	for _, u := range []string{"A", "B"} {
		results := to[RoundResultMessage](r, u)
		require.Len(t, results, 2)

		require.Equal(t, 1, results[0].Round)
		require.Equal(t, Player1Wins, results[0].Result)
		require.Equal(t, "A", results[0].Player1)

		require.Equal(t, 2, results[1].Round)
		require.Equal(t, Tie, results[1].Result)
	}
	require.Equal(t, 3, s.Round())
}

func TestEngineDispatchErrors(t *testing.T) {
	r := newRecorder("A", "B")
	e := New(r, r, Options{})

	_, err := e.Dispatch("A", ClientMessage{Type: "dance"})
	require.ErrorIs(t, err, ErrUnknownMessage)

	_, err = e.Dispatch("A", ClientMessage{Type: MsgJoinRoom, Room: "game_A_B"})
	require.ErrorIs(t, err, ErrNoSuchRoom)

	_, err = e.Dispatch("A", ClientMessage{Type: MsgMakeMove, Room: "game_A_B", Choice: "rock"})
	require.ErrorIs(t, err, ErrNoSuchRoom)

	_, err = e.Dispatch("A", ClientMessage{Type: MsgMakeMove, Room: "game_A_B", Choice: "spock"})
	require.ErrorIs(t, err, ErrInvalidMove)

	_, err = e.Dispatch("A", ClientMessage{Type: MsgAcceptGameRequest, From: "B"})
	require.ErrorIs(t, err, ErrNoSuchRequest)

	_, err = e.Dispatch("A", ClientMessage{Type: MsgRejectGameRequest, From: "B"})
	require.NoError(t, err)
}

func TestEngineLeaveAndDisconnect(t *testing.T) {
	r := newRecorder("A", "B", "C")
	e := New(r, r, Options{})

	room, err := e.Requests.Invite("A", "B")
	require.NoError(t, err)
	require.Empty(t, room)
	room, err = e.Requests.Accept("B", "A")
	require.NoError(t, err)

	require.ErrorIs(t, e.Leave(room, "C"), ErrUnknownPlayer)

	_, err = e.Join(room, "A")
	require.NoError(t, err)
	_, err = e.Join(room, "B")
	require.NoError(t, err)
	_, err = e.SubmitMove(room, "A", Rock)
	require.NoError(t, err)

	require.NoError(t, e.Leave(room, "B"))
	require.ErrorIs(t, e.Leave(room, "B"), ErrNoSuchRoom)

	closed := to[RoomClosedMessage](r, "A")
	require.Len(t, closed, 1)
	require.Equal(t, "B", closed[0].By)

	_, err = e.SubmitMove(room, "B", Paper)
	require.ErrorIs(t, err, ErrNoSuchRoom)

	// Disconnecting closes joined rooms and drops outstanding invitations.
	_, err = e.Requests.Invite("C", "A")
	require.NoError(t, err)
	room, err = e.Requests.Invite("B", "A")
	require.NoError(t, err)
	require.Empty(t, room)
	room, err = e.Requests.Accept("A", "B")
	require.NoError(t, err)
	joined, err := e.Join(room, "A")
	require.NoError(t, err)

	e.Disconnect("A", []*Session{joined}, true)
	require.Equal(t, 0, e.Rooms.Len())
	require.Equal(t, 0, e.Requests.Len())
}

func TestEngineDisconnectBeforeJoining(t *testing.T) {
	r := newRecorder("A", "B")
	e := New(r, r, Options{})

	_, err := e.Requests.Invite("A", "B")
	require.NoError(t, err)
	room, err := e.Requests.Accept("B", "A")
	require.NoError(t, err)
	_, err = e.Join(room, "B")
	require.NoError(t, err)

	// A never joined from any connection, then went away entirely.
	r.setOnline("A", false)
	e.Disconnect("A", nil, true)

	_, err = e.Rooms.Get(room)
	require.ErrorIs(t, err, ErrNoSuchRoom)
	require.Equal(t, 0, e.Rooms.Len())

	closed := to[RoomClosedMessage](r, "B")
	require.Len(t, closed, 1)
	require.Equal(t, "A", closed[0].By)
	require.Equal(t, room, closed[0].Room)
}

func TestEngineDisconnectKeepsOtherConnectionsRooms(t *testing.T) {
	r := newRecorder("A", "B")
	e := New(r, r, Options{})

	_, err := e.Requests.Invite("A", "B")
	require.NoError(t, err)
	room, err := e.Requests.Accept("B", "A")
	require.NoError(t, err)

	// A still has another tab open, so only rooms joined here are closed.
	e.Disconnect("A", nil, false)
	_, err = e.Rooms.Get(room)
	require.NoError(t, err)
}

func TestEngineDisconnectIgnoresReplacedRoom(t *testing.T) {
	r := newRecorder("A", "B")
	e := New(r, r, Options{})

	_, err := e.Requests.Invite("A", "B")
	require.NoError(t, err)
	room, err := e.Requests.Accept("B", "A")
	require.NoError(t, err)
	old, err := e.Join(room, "A")
	require.NoError(t, err)

	// B leaves from their side; A's connection still remembers the room.
	require.NoError(t, e.Leave(room, "B"))

	_, err = e.Requests.Invite("B", "A")
	require.NoError(t, err)
	_, err = e.Requests.Accept("A", "B")
	require.NoError(t, err)
	fresh, err := e.Rooms.Get(room)
	require.NoError(t, err)
	require.NotSame(t, old, fresh)

	e.Disconnect("A", []*Session{old}, false)

	got, err := e.Rooms.Get(room)
	require.NoError(t, err)
	require.Same(t, fresh, got)
	require.Equal(t, WaitingForSecondPlayer, fresh.State())
}

func TestEngineReap(t *testing.T) {
	r := newRecorder("A", "B")
	e := New(r, r, Options{RequestTimeout: time.Nanosecond})

	_, err := e.Requests.Invite("A", "B")
	require.NoError(t, err)
	e.Rooms.GetOrCreate(RoomIDFor("A", "B"), "A", "B")

	time.Sleep(time.Millisecond)

	requests, rooms := e.Reap(time.Now().Add(time.Second))
	require.Equal(t, 1, requests)
	require.Equal(t, 1, rooms)
}
