/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package rps

import (
	"fmt"
	"strings"
)

// Move is a single throw, encoded on the wire as its lower-case name.
type Move string

const (
	Rock     Move = "rock"
	Paper    Move = "paper"
	Scissors Move = "scissors"
)

// Moves lists every valid throw.
var Moves = []Move{Rock, Paper, Scissors}

// beats maps each move to the move it defeats.
var beats = map[Move]Move{
	Rock:     Scissors,
	Scissors: Paper,
	Paper:    Rock,
}

// ParseMove accepts a client-supplied choice token.
func ParseMove(s string) (Move, error) {
	m := Move(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := beats[m]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidMove, s)
	}
	return m, nil
}

type Outcome int

const (
	Tie Outcome = iota
	Player1Wins
	Player2Wins
)

func (o Outcome) String() string {
	switch o {
	case Player1Wins:
		return "player1"
	case Player2Wins:
		return "player2"
	default:
		return "tie"
	}
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Resolve decides a round. Both moves must already be valid.
func Resolve(a, b Move) Outcome {
	switch {
	case a == b:
		return Tie
	case beats[a] == b:
		return Player1Wins
	default:
		return Player2Wins
	}
}
