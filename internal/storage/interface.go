package storage

import (
	"context"

	"github.com/jmallard/chessrelay/internal/model"
)

// Storage defines the interface for data persistence
type Storage interface {
	// Player operations
	SavePlayer(ctx context.Context, player *model.Player) error
	GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error)
	GetPlayerByUsername(ctx context.Context, username string) (*model.Player, error)

	// Credential operations
	SaveCredentials(ctx context.Context, creds *model.Credentials) error
	GetCredentialsByUsername(ctx context.Context, username string) (*model.Credentials, error)

	// Game operations
	SaveGame(ctx context.Context, game *model.Game) error
	GetGame(ctx context.Context, id model.GameID) (*model.Game, error)
	ListAvailableGames(ctx context.Context, limit int) ([]*model.Game, error)
	ListPlayerGames(ctx context.Context, playerID model.PlayerID, limit int) ([]*model.Game, error)

	// ClaimBlackSeat conditionally seats playerID as black: it succeeds
	// only while the seat is still empty and the game is still waiting,
	// and returns model.ErrSlotTaken when another claimant won the race.
	ClaimBlackSeat(ctx context.Context, id model.GameID, playerID model.PlayerID) (*model.Game, error)

	// AppendMove conditionally appends a move token: it succeeds only
	// while the stored move count still equals expectedCount, and
	// returns model.ErrMoveConflict when a concurrent append landed first.
	AppendMove(ctx context.Context, id model.GameID, token string, expectedCount int) (*model.Game, error)

	// SetResult marks a game completed with the given outcome
	SetResult(ctx context.Context, id model.GameID, outcome model.Outcome) (*model.Game, error)

	// ApplyStatsDelta records a finished game on a player's stats,
	// adjusting the win/loss/draw counter and rating
	ApplyStatsDelta(ctx context.Context, playerID model.PlayerID, result model.StatsResult) error

	// Leaderboard returns players with at least one recorded game,
	// ordered by rating then wins, descending
	Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)
}
