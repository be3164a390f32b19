package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMoveCount(t *testing.T) {
	assert.Equal(t, 0, MoveCount(""))
	assert.Equal(t, 0, MoveCount("   "))
	assert.Equal(t, 1, MoveCount("e4"))
	assert.Equal(t, 2, MoveCount("e4 e5"))
	assert.Equal(t, 3, MoveCount("e4 e5 Nf3"))
}

func TestSideToMove(t *testing.T) {
	// Empty log: white opens
	assert.Equal(t, SideWhite, SideToMove(""))
	// Odd count: black to move
	assert.Equal(t, SideBlack, SideToMove("e4"))
	// Even count: back to white
	assert.Equal(t, SideWhite, SideToMove("e4 e5"))
	assert.Equal(t, SideBlack, SideToMove("e4 e5 Nf3"))
}

func TestAppendMove(t *testing.T) {
	log := AppendMove("", "e4")
	assert.Equal(t, "e4", log)
	log = AppendMove(log, "e5")
	assert.Equal(t, "e4 e5", log)
	assert.Equal(t, 2, MoveCount(log))
}

func TestSideOpponent(t *testing.T) {
	assert.Equal(t, SideBlack, SideWhite.Opponent())
	assert.Equal(t, SideWhite, SideBlack.Opponent())
}

func TestGameSideOf(t *testing.T) {
	g := &Game{WhitePlayer: "p1", BlackPlayer: "p2"}
	assert.Equal(t, SideWhite, g.SideOf("p1"))
	assert.Equal(t, SideBlack, g.SideOf("p2"))
	assert.Equal(t, Side(""), g.SideOf("p3"))
	assert.Equal(t, Side(""), g.SideOf(""))

	waiting := &Game{WhitePlayer: "p1"}
	assert.False(t, waiting.HasPlayer(""))
	assert.True(t, waiting.HasPlayer("p1"))
}

func TestOutcomeValid(t *testing.T) {
	assert.True(t, OutcomeWhiteWins.Valid())
	assert.True(t, OutcomeAbandoned.Valid())
	assert.False(t, Outcome("stalemate").Valid())
}

func TestStatsResultRatingDelta(t *testing.T) {
	assert.Equal(t, 25, StatsWin.RatingDelta())
	assert.Equal(t, -15, StatsLoss.RatingDelta())
	assert.Equal(t, 5, StatsDraw.RatingDelta())
}
