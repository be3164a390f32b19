package model

import "errors"

// Common errors used across the application
var (
	// Player errors
	ErrPlayerNotFound = errors.New("player not found")

	// Game errors
	ErrGameNotFound = errors.New("game not found")
	ErrNotAPlayer   = errors.New("not a player in this game")
	ErrOutOfTurn    = errors.New("not this player's turn")
	ErrSlotTaken    = errors.New("second seat already taken")
	ErrGameFinished = errors.New("game is already finished")
	ErrMoveConflict = errors.New("move log changed since read")
	ErrEmptyMove    = errors.New("move token is empty")
	ErrBadOutcome   = errors.New("unrecognised outcome")

	// Realtime errors
	ErrNotAuthenticated = errors.New("connection is not authenticated")
)
