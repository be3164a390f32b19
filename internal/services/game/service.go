package game

import (
	"context"
	"log/slog"

	"github.com/jmallard/chessrelay/internal/dependencies/clock"
	"github.com/jmallard/chessrelay/internal/dependencies/random"
	"github.com/jmallard/chessrelay/internal/model"
	"github.com/jmallard/chessrelay/internal/storage"
)

// DefaultListLimit caps game listings when the caller gives no limit
const DefaultListLimit = 20

// Service manages the persisted game lifecycle for the HTTP surface.
// Realtime move handling lives in the coordinator; this service covers
// creation, lookup and the leaderboard.
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	random  random.Random
	logger  *slog.Logger
}

// New creates a new game Service
func New(storage storage.Storage, clock clock.Clock, random random.Random, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		clock:   clock,
		random:  random,
		logger:  logger,
	}
}

// CreateGame opens a new game with the creator seated as white.
// The game waits for a second player to claim the black seat.
func (s *Service) CreateGame(ctx context.Context, creator model.PlayerID) (*model.Game, error) {
	now := s.clock.Now()
	gameID := model.GameID(s.random.String(12, "abcdefghijklmnopqrstuvwxyz0123456789"))

	game := &model.Game{
		ID:          gameID,
		WhitePlayer: creator,
		Status:      model.GameStatusWaiting,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.storage.SaveGame(ctx, game); err != nil {
		s.logger.Error("failed to save game",
			slog.String("game_id", string(gameID)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.logger.Info("game created",
		slog.String("game_id", string(gameID)),
		slog.String("white_player", string(creator)),
	)

	return game, nil
}

// GetGame retrieves a game by ID
func (s *Service) GetGame(ctx context.Context, id model.GameID) (*model.Game, error) {
	return s.storage.GetGame(ctx, id)
}

// AvailableGames lists games still waiting for an opponent
func (s *Service) AvailableGames(ctx context.Context, limit int) ([]*model.Game, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	return s.storage.ListAvailableGames(ctx, limit)
}

// PlayerGames lists a player's games, most recently updated first
func (s *Service) PlayerGames(ctx context.Context, playerID model.PlayerID, limit int) ([]*model.Game, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	return s.storage.ListPlayerGames(ctx, playerID, limit)
}

// Leaderboard returns the top-rated players with at least one game
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	return s.storage.Leaderboard(ctx, limit)
}

// PlayerStats returns a player's record and rating
func (s *Service) PlayerStats(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	return s.storage.GetPlayer(ctx, id)
}
