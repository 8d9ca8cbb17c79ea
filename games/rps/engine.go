/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package rps matches two online users and referees their rock-paper-scissors
// rounds. It owns no connections: callers supply identities, a Notifier for
// outbound events, and a Presence check for invitations.
package rps

import (
	"fmt"
	"time"
)

type Engine struct {
	Requests *Broker
	Rooms    *Registry
}

type Options struct {
	// RequestTimeout bounds how long an invitation stays pending. Zero disables expiry.
	RequestTimeout time.Duration

	// Logf receives verbose log lines. Nil discards them.
	Logf func(format string, args ...any)
}

func New(n Notifier, p Presence, opts Options) *Engine {
	logf := opts.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}

	rooms := NewRegistry(n, logf)

	return &Engine{
		Requests: NewBroker(rooms, p, n, opts.RequestTimeout, logf),
		Rooms:    rooms,
	}
}

// Dispatch applies one inbound message on behalf of user. When the message
// seated the user in a room, that room is returned so the caller can tie it
// to the connection.
func (e *Engine) Dispatch(user string, msg ClientMessage) (*Session, error) {
	switch msg.Type {
	case MsgSendGameRequest:
		_, err := e.Requests.Invite(user, msg.To)
		return nil, err

	case MsgAcceptGameRequest:
		_, err := e.Requests.Accept(user, msg.From)
		return nil, err

	case MsgRejectGameRequest:
		return nil, e.Requests.Reject(user, msg.From)

	case MsgJoinRoom:
		return e.Join(msg.Room, user)

	case MsgMakeMove:
		move, err := ParseMove(msg.Choice)
		if err != nil {
			return nil, err
		}
		_, err = e.SubmitMove(msg.Room, user, move)
		return nil, err

	case MsgLeaveRoom:
		return nil, e.Leave(msg.Room, user)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
	}
}

func (e *Engine) Join(id RoomID, user string) (*Session, error) {
	s, err := e.Rooms.Get(id)
	if err != nil {
		return nil, err
	}
	if err := s.Join(user); err != nil {
		return nil, err
	}
	return s, nil
}

func (e *Engine) SubmitMove(id RoomID, user string, move Move) (*RoundResult, error) {
	s, err := e.Rooms.Get(id)
	if err != nil {
		return nil, err
	}
	return s.SubmitMove(user, move)
}

// Leave closes a room at the request of one of its players.
func (e *Engine) Leave(id RoomID, user string) error {
	s, err := e.Rooms.Get(id)
	if err != nil {
		return err
	}
	if !s.HasPlayer(user) {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, id)
	}
	e.Rooms.Close(id, user)
	return nil
}

// Disconnect releases everything a closed connection held: the rooms it
// joined and, if it was the user's last connection, every room they are
// seated in and all their invitations.
func (e *Engine) Disconnect(user string, joined []*Session, lastConnection bool) {
	for _, s := range joined {
		e.Rooms.CloseSession(s, user)
	}
	if lastConnection {
		for _, s := range e.Rooms.RoomsOf(user) {
			e.Rooms.CloseSession(s, user)
		}
		e.Requests.DropUser(user)
	}
}

// Reap expires stale invitations and closes rooms idle since before cutoff.
func (e *Engine) Reap(cutoff time.Time) (requests, rooms int) {
	return e.Requests.Expire(), e.Rooms.Reap(cutoff)
}
