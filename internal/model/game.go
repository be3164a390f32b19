package model

import (
	"strings"
	"time"
)

// GameID uniquely identifies a game
type GameID string

// GameStatus represents the lifecycle phase of a game
type GameStatus string

const (
	GameStatusWaiting   GameStatus = "waiting"   // Created, second seat open
	GameStatusActive    GameStatus = "active"    // Both seats taken
	GameStatusCompleted GameStatus = "completed" // Finished with a result
	GameStatusAbandoned GameStatus = "abandoned" // Ended without a result
)

// Side is one of the two playing roles
type Side string

const (
	SideWhite Side = "white"
	SideBlack Side = "black"
)

// Opponent returns the other side
func (s Side) Opponent() Side {
	if s == SideWhite {
		return SideBlack
	}
	return SideWhite
}

// Outcome is the recorded result of a finished game
type Outcome string

const (
	OutcomeWhiteWins Outcome = "white_wins"
	OutcomeBlackWins Outcome = "black_wins"
	OutcomeDraw      Outcome = "draw"
	OutcomeAbandoned Outcome = "abandoned"
)

// Valid reports whether o is a recognised outcome
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeWhiteWins, OutcomeBlackWins, OutcomeDraw, OutcomeAbandoned:
		return true
	}
	return false
}

// Game is the persisted record of a single game.
// WhitePlayer is the creator; BlackPlayer is empty until a second
// player claims the seat, which also flips Status off waiting.
type Game struct {
	ID          GameID
	WhitePlayer PlayerID
	BlackPlayer PlayerID // empty while Status is waiting
	Status      GameStatus
	Result      Outcome // empty until completed
	Moves       string  // space-joined move tokens, append-only
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasPlayer reports whether id occupies either seat
func (g *Game) HasPlayer(id PlayerID) bool {
	return id != "" && (g.WhitePlayer == id || g.BlackPlayer == id)
}

// SideOf returns the side id is seated on, or "" if not a player
func (g *Game) SideOf(id PlayerID) Side {
	switch {
	case id != "" && g.WhitePlayer == id:
		return SideWhite
	case id != "" && g.BlackPlayer == id:
		return SideBlack
	default:
		return ""
	}
}

// MoveCount returns the number of move tokens in a move log.
// An empty log is zero moves; tokens are space-separated.
func MoveCount(moves string) int {
	if strings.TrimSpace(moves) == "" {
		return 0
	}
	return len(strings.Fields(moves))
}

// SideToMove derives the turn from the move log alone: white moves on
// even counts (including the empty log), black on odd. Moves are
// appended one token at a time and never rewritten, so this is the
// single source of truth for turn order.
func SideToMove(moves string) Side {
	if MoveCount(moves)%2 == 0 {
		return SideWhite
	}
	return SideBlack
}

// AppendMove returns the move log with one token appended
func AppendMove(moves, token string) string {
	if moves == "" {
		return token
	}
	return moves + " " + token
}
