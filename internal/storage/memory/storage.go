package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jmallard/chessrelay/internal/model"
	"github.com/jmallard/chessrelay/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	players       map[model.PlayerID]*model.Player
	credentials   map[model.PlayerID]*model.Credentials
	usernameIndex map[string]model.PlayerID
	games         map[model.GameID]*model.Game
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		players:       make(map[model.PlayerID]*model.Player),
		credentials:   make(map[model.PlayerID]*model.Credentials),
		usernameIndex: make(map[string]model.PlayerID),
		games:         make(map[model.GameID]*model.Game),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *player
	s.players[player.ID] = &cp
	s.usernameIndex[player.Username] = player.ID
	return nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	player, ok := s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	cp := *player
	return &cp, nil
}

func (s *Storage) GetPlayerByUsername(ctx context.Context, username string) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usernameIndex[username]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	player, ok := s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	cp := *player
	return &cp, nil
}

// Credential operations

func (s *Storage) SaveCredentials(ctx context.Context, creds *model.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *creds
	s.credentials[creds.PlayerID] = &cp
	s.usernameIndex[creds.Username] = creds.PlayerID
	return nil
}

func (s *Storage) GetCredentialsByUsername(ctx context.Context, username string) (*model.Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usernameIndex[username]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	creds, ok := s.credentials[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	cp := *creds
	return &cp, nil
}

// Game operations

func (s *Storage) SaveGame(ctx context.Context, game *model.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *game
	s.games[game.ID] = &cp
	return nil
}

func (s *Storage) GetGame(ctx context.Context, id model.GameID) (*model.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	game, ok := s.games[id]
	if !ok {
		return nil, model.ErrGameNotFound
	}
	cp := *game
	return &cp, nil
}

func (s *Storage) ListAvailableGames(ctx context.Context, limit int) ([]*model.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var games []*model.Game
	for _, g := range s.games {
		if g.Status == model.GameStatusWaiting {
			cp := *g
			games = append(games, &cp)
		}
	}
	sortGamesNewestFirst(games, func(g *model.Game) time.Time { return g.CreatedAt })
	return capGames(games, limit), nil
}

func (s *Storage) ListPlayerGames(ctx context.Context, playerID model.PlayerID, limit int) ([]*model.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var games []*model.Game
	for _, g := range s.games {
		if g.HasPlayer(playerID) {
			cp := *g
			games = append(games, &cp)
		}
	}
	sortGamesNewestFirst(games, func(g *model.Game) time.Time { return g.UpdatedAt })
	return capGames(games, limit), nil
}

func (s *Storage) ClaimBlackSeat(ctx context.Context, id model.GameID, playerID model.PlayerID) (*model.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	game, ok := s.games[id]
	if !ok {
		return nil, model.ErrGameNotFound
	}
	if game.BlackPlayer != "" || game.Status != model.GameStatusWaiting {
		return nil, model.ErrSlotTaken
	}

	game.BlackPlayer = playerID
	game.Status = model.GameStatusActive
	game.UpdatedAt = time.Now()
	cp := *game
	return &cp, nil
}

func (s *Storage) AppendMove(ctx context.Context, id model.GameID, token string, expectedCount int) (*model.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	game, ok := s.games[id]
	if !ok {
		return nil, model.ErrGameNotFound
	}
	if model.MoveCount(game.Moves) != expectedCount {
		return nil, model.ErrMoveConflict
	}

	game.Moves = model.AppendMove(game.Moves, token)
	game.UpdatedAt = time.Now()
	cp := *game
	return &cp, nil
}

func (s *Storage) SetResult(ctx context.Context, id model.GameID, outcome model.Outcome) (*model.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	game, ok := s.games[id]
	if !ok {
		return nil, model.ErrGameNotFound
	}

	game.Status = model.GameStatusCompleted
	if outcome == model.OutcomeAbandoned {
		game.Status = model.GameStatusAbandoned
	}
	game.Result = outcome
	game.UpdatedAt = time.Now()
	cp := *game
	return &cp, nil
}

func (s *Storage) ApplyStatsDelta(ctx context.Context, playerID model.PlayerID, result model.StatsResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	player, ok := s.players[playerID]
	if !ok {
		return model.ErrPlayerNotFound
	}

	switch result {
	case model.StatsWin:
		player.Wins++
	case model.StatsLoss:
		player.Losses++
	case model.StatsDraw:
		player.Draws++
	}
	player.Rating += result.RatingDelta()
	player.UpdatedAt = time.Now()
	return nil
}

func (s *Storage) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []model.LeaderboardEntry
	for _, p := range s.players {
		if p.TotalGames() == 0 {
			continue
		}
		entries = append(entries, model.LeaderboardEntry{
			PlayerID:   p.ID,
			Username:   p.Username,
			Wins:       p.Wins,
			Losses:     p.Losses,
			Draws:      p.Draws,
			Rating:     p.Rating,
			TotalGames: p.TotalGames(),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Rating != entries[j].Rating {
			return entries[i].Rating > entries[j].Rating
		}
		return entries[i].Wins > entries[j].Wins
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Helpers

func sortGamesNewestFirst(games []*model.Game, key func(*model.Game) time.Time) {
	sort.Slice(games, func(i, j int) bool {
		return key(games[i]).After(key(games[j]))
	})
}

func capGames(games []*model.Game, limit int) []*model.Game {
	if limit > 0 && len(games) > limit {
		return games[:limit]
	}
	if games == nil {
		return []*model.Game{}
	}
	return games
}
