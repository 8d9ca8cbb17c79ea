package rps

// Notifier delivers events to every connection of a user. Implementations
// must not block: the engine calls Notify while holding room locks so that
// both participants observe events in the same order.
type Notifier interface {
	Notify(user string, msg any)
}

// Presence reports whether a user currently has a live connection.
type Presence interface {
	Online(user string) bool
}

// Messages coming from clients
type ClientMessage struct {
	Type   string `json:"type"`             // see the Msg* constants
	To     string `json:"to,omitempty"`     // send_game_request
	From   string `json:"from,omitempty"`   // accept_game_request / reject_game_request
	Room   RoomID `json:"room,omitempty"`   // join_room / make_move / leave_room
	Choice string `json:"choice,omitempty"` // make_move
}

const (
	MsgSendGameRequest   = "send_game_request"
	MsgAcceptGameRequest = "accept_game_request"
	MsgRejectGameRequest = "reject_game_request"
	MsgJoinRoom          = "join_room"
	MsgMakeMove          = "make_move"
	MsgLeaveRoom         = "leave_room"
)

// GameRequestMessage is sent to the invitee.
type GameRequestMessage struct {
	Type string `json:"type"` // "game_request"
	From string `json:"from"`
}

// GameRequestRejectedMessage is sent to the inviter.
type GameRequestRejectedMessage struct {
	Type string `json:"type"` // "game_request_rejected"
	By   string `json:"by"`
}

// GameRequestAcceptedMessage is sent to both parties once mutual intent exists.
type GameRequestAcceptedMessage struct {
	Type string `json:"type"` // "game_request_accepted"
	From string `json:"from"`
	By   string `json:"by"`
	Room RoomID `json:"room"`
}

// GameRequestCancelledMessage tells the invitee the inviter went away.
type GameRequestCancelledMessage struct {
	Type string `json:"type"` // "game_request_cancelled"
	From string `json:"from"`
}

// GameRequestExpiredMessage tells the inviter nobody answered in time.
type GameRequestExpiredMessage struct {
	Type string `json:"type"` // "game_request_expired"
	To   string `json:"to"`
}

type StartGameMessage struct {
	Type    string `json:"type"` // "start_game"
	Room    RoomID `json:"room"`
	Player1 string `json:"player1"`
	Player2 string `json:"player2"`
}

type MoveReceivedMessage struct {
	Type  string `json:"type"` // "move_received"
	Room  RoomID `json:"room"`
	Round int    `json:"round"`
}

// RoundResultMessage is the authoritative outcome of one round.
type RoundResultMessage struct {
	Type    string  `json:"type"` // "round_result"
	Room    RoomID  `json:"room"`
	Round   int     `json:"round"`
	Player1 string  `json:"player1"`
	Player2 string  `json:"player2"`
	Choice1 Move    `json:"choice1"`
	Choice2 Move    `json:"choice2"`
	Result  Outcome `json:"result"`
}

type RoomClosedMessage struct {
	Type string `json:"type"` // "room_closed"
	Room RoomID `json:"room"`
	By   string `json:"by,omitempty"`
}

type OnlineUsersMessage struct {
	Type  string   `json:"type"` // "online_users"
	Users []string `json:"users"`
}

// ErrorMessage is sent only to the connection that caused the failure.
type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}

func NewErrorMessage(err error) ErrorMessage {
	return ErrorMessage{
		Type:    "error",
		Message: err.Error(),
	}
}
