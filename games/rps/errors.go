/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package rps

import "errors"

// Validation errors.
var (
	ErrInvalidMove     = errors.New("invalid move")
	ErrInvalidTarget   = errors.New("you cannot invite yourself")
	ErrNotOnline       = errors.New("player is not online")
	ErrNoSuchRequest   = errors.New("no pending game request")
	ErrUnknownMessage  = errors.New("unknown message type")
	ErrMissingArgument = errors.New("missing field")
)

// State errors. The client is out of sync with the room and should refetch.
var (
	ErrNoSuchRoom    = errors.New("no such room")
	ErrRoomFull      = errors.New("room is full")
	ErrDuplicateMove = errors.New("you already made your move this round")
	ErrUnknownPlayer = errors.New("you are not a player in this room")
	ErrNotStarted    = errors.New("waiting for your opponent to join")
)
