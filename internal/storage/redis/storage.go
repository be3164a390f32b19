package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jmallard/chessrelay/internal/model"
	"github.com/jmallard/chessrelay/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	data, err := json.Marshal(player)
	if err != nil {
		return err
	}

	// Pipeline the record, the username index and the rating index
	pipe := s.client.Pipeline()
	pipe.Set(ctx, playerKey(player.ID), data, 0)
	pipe.Set(ctx, usernameIndexKey(player.Username), string(player.ID), 0)
	pipe.ZAdd(ctx, ratingIndexKey(), redis.Z{Score: float64(player.Rating), Member: string(player.ID)})
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	data, err := s.client.Get(ctx, playerKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	var player model.Player
	if err := json.Unmarshal(data, &player); err != nil {
		return nil, err
	}
	return &player, nil
}

func (s *Storage) GetPlayerByUsername(ctx context.Context, username string) (*model.Player, error) {
	playerIDStr, err := s.client.Get(ctx, usernameIndexKey(username)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	return s.GetPlayer(ctx, model.PlayerID(playerIDStr))
}

// Credential operations

func (s *Storage) SaveCredentials(ctx context.Context, creds *model.Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, credentialsKey(creds.PlayerID), data, 0)
	pipe.Set(ctx, usernameIndexKey(creds.Username), string(creds.PlayerID), 0)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetCredentialsByUsername(ctx context.Context, username string) (*model.Credentials, error) {
	playerIDStr, err := s.client.Get(ctx, usernameIndexKey(username)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	data, err := s.client.Get(ctx, credentialsKey(model.PlayerID(playerIDStr))).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	var creds model.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

// Game operations

func (s *Storage) SaveGame(ctx context.Context, game *model.Game) error {
	data, err := json.Marshal(game)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, gameKey(game.ID), data, s.cfg.GameTTL)
	if game.Status == model.GameStatusWaiting {
		pipe.SAdd(ctx, availableGamesKey(), string(game.ID))
	} else {
		pipe.SRem(ctx, availableGamesKey(), string(game.ID))
	}
	pipe.SAdd(ctx, playerGamesKey(game.WhitePlayer), string(game.ID))
	if game.BlackPlayer != "" {
		pipe.SAdd(ctx, playerGamesKey(game.BlackPlayer), string(game.ID))
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetGame(ctx context.Context, id model.GameID) (*model.Game, error) {
	data, err := s.client.Get(ctx, gameKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrGameNotFound
		}
		return nil, err
	}

	var game model.Game
	if err := json.Unmarshal(data, &game); err != nil {
		return nil, err
	}
	return &game, nil
}

func (s *Storage) ListAvailableGames(ctx context.Context, limit int) ([]*model.Game, error) {
	ids, err := s.client.SMembers(ctx, availableGamesKey()).Result()
	if err != nil {
		return nil, err
	}

	games, err := s.getGames(ctx, ids)
	if err != nil {
		return nil, err
	}

	// Index membership can outlive a status change; filter on the record
	waiting := games[:0]
	for _, g := range games {
		if g.Status == model.GameStatusWaiting {
			waiting = append(waiting, g)
		}
	}
	sort.Slice(waiting, func(i, j int) bool {
		return waiting[i].CreatedAt.After(waiting[j].CreatedAt)
	})
	if limit > 0 && len(waiting) > limit {
		waiting = waiting[:limit]
	}
	return waiting, nil
}

func (s *Storage) ListPlayerGames(ctx context.Context, playerID model.PlayerID, limit int) ([]*model.Game, error) {
	ids, err := s.client.SMembers(ctx, playerGamesKey(playerID)).Result()
	if err != nil {
		return nil, err
	}

	games, err := s.getGames(ctx, ids)
	if err != nil {
		return nil, err
	}

	sort.Slice(games, func(i, j int) bool {
		return games[i].UpdatedAt.After(games[j].UpdatedAt)
	})
	if limit > 0 && len(games) > limit {
		games = games[:limit]
	}
	return games, nil
}

// ClaimBlackSeat seats playerID as black with compare-and-swap semantics:
// the WATCH transaction retries nothing and fails outright if the game key
// changes between the read and the write, so at most one claimant wins.
func (s *Storage) ClaimBlackSeat(ctx context.Context, id model.GameID, playerID model.PlayerID) (*model.Game, error) {
	var claimed *model.Game

	key := gameKey(id)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return model.ErrGameNotFound
		}
		if err != nil {
			return err
		}

		var game model.Game
		if err := json.Unmarshal(data, &game); err != nil {
			return err
		}
		if game.BlackPlayer != "" || game.Status != model.GameStatusWaiting {
			return model.ErrSlotTaken
		}

		game.BlackPlayer = playerID
		game.Status = model.GameStatusActive
		game.UpdatedAt = time.Now()

		updated, err := json.Marshal(&game)
		if err != nil {
			return err
		}

		pipe := tx.TxPipeline()
		pipe.Set(ctx, key, updated, s.cfg.GameTTL)
		pipe.SRem(ctx, availableGamesKey(), string(game.ID))
		pipe.SAdd(ctx, playerGamesKey(playerID), string(game.ID))
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}

		claimed = &game
		return nil
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		// A concurrent writer touched the game; treat as losing the claim
		return nil, model.ErrSlotTaken
	}
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// AppendMove appends one token with an optimistic version check on the
// move count observed at read time.
func (s *Storage) AppendMove(ctx context.Context, id model.GameID, token string, expectedCount int) (*model.Game, error) {
	var appended *model.Game

	key := gameKey(id)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return model.ErrGameNotFound
		}
		if err != nil {
			return err
		}

		var game model.Game
		if err := json.Unmarshal(data, &game); err != nil {
			return err
		}
		if model.MoveCount(game.Moves) != expectedCount {
			return model.ErrMoveConflict
		}

		game.Moves = model.AppendMove(game.Moves, token)
		game.UpdatedAt = time.Now()

		updated, err := json.Marshal(&game)
		if err != nil {
			return err
		}

		pipe := tx.TxPipeline()
		pipe.Set(ctx, key, updated, s.cfg.GameTTL)
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}

		appended = &game
		return nil
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return nil, model.ErrMoveConflict
	}
	if err != nil {
		return nil, err
	}
	return appended, nil
}

func (s *Storage) SetResult(ctx context.Context, id model.GameID, outcome model.Outcome) (*model.Game, error) {
	game, err := s.GetGame(ctx, id)
	if err != nil {
		return nil, err
	}

	game.Status = model.GameStatusCompleted
	if outcome == model.OutcomeAbandoned {
		game.Status = model.GameStatusAbandoned
	}
	game.Result = outcome
	game.UpdatedAt = time.Now()

	if err := s.SaveGame(ctx, game); err != nil {
		return nil, err
	}
	return game, nil
}

func (s *Storage) ApplyStatsDelta(ctx context.Context, playerID model.PlayerID, result model.StatsResult) error {
	key := playerKey(playerID)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return model.ErrPlayerNotFound
		}
		if err != nil {
			return err
		}

		var player model.Player
		if err := json.Unmarshal(data, &player); err != nil {
			return err
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

		updated, err := json.Marshal(&player)
		if err != nil {
			return err
		}

		pipe := tx.TxPipeline()
		pipe.Set(ctx, key, updated, 0)
		pipe.ZAdd(ctx, ratingIndexKey(), redis.Z{Score: float64(player.Rating), Member: string(player.ID)})
		_, err = pipe.Exec(ctx)
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		// Deltas are applied once per finished game per player; a clash
		// here means an unrelated writer, so surface it
		return err
	}
	return err
}

func (s *Storage) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	// Over-fetch so the wins tie-break can reorder within equal ratings
	fetch := int64(-1)
	if limit > 0 {
		fetch = int64(limit*2) - 1
	}
	ids, err := s.client.ZRevRange(ctx, ratingIndexKey(), 0, fetch).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]model.LeaderboardEntry, 0, len(ids))
	for _, id := range ids {
		player, err := s.GetPlayer(ctx, model.PlayerID(id))
		if err != nil {
			if errors.Is(err, model.ErrPlayerNotFound) {
				continue // Stale index entry
			}
			return nil, err
		}
		if player.TotalGames() == 0 {
			continue
		}
		entries = append(entries, model.LeaderboardEntry{
			PlayerID:   player.ID,
			Username:   player.Username,
			Wins:       player.Wins,
			Losses:     player.Losses,
			Draws:      player.Draws,
			Rating:     player.Rating,
			TotalGames: player.TotalGames(),
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

// getGames fetches a batch of games by id using MGET
func (s *Storage) getGames(ctx context.Context, ids []string) ([]*model.Game, error) {
	if len(ids) == 0 {
		return []*model.Game{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = gameKey(model.GameID(id))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	games := make([]*model.Game, 0, len(values))
	for _, val := range values {
		if val == nil {
			continue // Game may have expired
		}
		var game model.Game
		if err := json.Unmarshal([]byte(val.(string)), &game); err != nil {
			continue // Skip invalid data
		}
		games = append(games, &game)
	}
	return games, nil
}
