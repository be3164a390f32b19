package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/jmallard/chessrelay/internal/model"
)

type StorageSuite struct {
	suite.Suite
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.storage = New()
	s.ctx = context.Background()
}

func (s *StorageSuite) savePlayer(id model.PlayerID, username string) *model.Player {
	player := &model.Player{
		ID:        id,
		Username:  username,
		Rating:    model.InitialRating,
		CreatedAt: time.Now(),
	}
	s.Require().NoError(s.storage.SavePlayer(s.ctx, player))
	return player
}

func (s *StorageSuite) saveGame(id model.GameID, white, black model.PlayerID, status model.GameStatus) *model.Game {
	game := &model.Game{
		ID:          id,
		WhitePlayer: white,
		BlackPlayer: black,
		Status:      status,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	s.Require().NoError(s.storage.SaveGame(s.ctx, game))
	return game
}

// Player tests

func (s *StorageSuite) TestSaveAndGetPlayer() {
	s.savePlayer("player-1", "alice")

	got, err := s.storage.GetPlayer(s.ctx, "player-1")
	s.Require().NoError(err)
	s.Equal("alice", got.Username)
	s.Equal(model.InitialRating, got.Rating)
}

func (s *StorageSuite) TestGetPlayerNotFound() {
	_, err := s.storage.GetPlayer(s.ctx, "missing")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *StorageSuite) TestGetPlayerByUsername() {
	s.savePlayer("player-1", "alice")

	got, err := s.storage.GetPlayerByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("player-1"), got.ID)

	_, err = s.storage.GetPlayerByUsername(s.ctx, "bob")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *StorageSuite) TestSaveAndGetCredentials() {
	creds := &model.Credentials{
		PlayerID:     "player-1",
		Username:     "alice",
		PasswordHash: "$2a$10$fakehash",
		CreatedAt:    time.Now(),
	}
	s.Require().NoError(s.storage.SaveCredentials(s.ctx, creds))

	got, err := s.storage.GetCredentialsByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(creds.PasswordHash, got.PasswordHash)
}

// Game tests

func (s *StorageSuite) TestSaveAndGetGame() {
	s.saveGame("game-1", "player-1", "", model.GameStatusWaiting)

	got, err := s.storage.GetGame(s.ctx, "game-1")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("player-1"), got.WhitePlayer)
	s.Equal(model.GameStatusWaiting, got.Status)
}

func (s *StorageSuite) TestGetGameNotFound() {
	_, err := s.storage.GetGame(s.ctx, "missing")
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *StorageSuite) TestGetGameReturnsCopy() {
	s.saveGame("game-1", "player-1", "", model.GameStatusWaiting)

	got, err := s.storage.GetGame(s.ctx, "game-1")
	s.Require().NoError(err)
	got.Moves = "e4"

	again, err := s.storage.GetGame(s.ctx, "game-1")
	s.Require().NoError(err)
	s.Equal("", again.Moves)
}

func (s *StorageSuite) TestListAvailableGames() {
	s.saveGame("game-1", "player-1", "", model.GameStatusWaiting)
	s.saveGame("game-2", "player-2", "player-3", model.GameStatusActive)

	games, err := s.storage.ListAvailableGames(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(games, 1)
	s.Equal(model.GameID("game-1"), games[0].ID)
}

func (s *StorageSuite) TestListPlayerGames() {
	s.saveGame("game-1", "player-1", "", model.GameStatusWaiting)
	s.saveGame("game-2", "player-2", "player-1", model.GameStatusActive)
	s.saveGame("game-3", "player-3", "player-4", model.GameStatusActive)

	games, err := s.storage.ListPlayerGames(s.ctx, "player-1", 10)
	s.Require().NoError(err)
	s.Len(games, 2)
}

// Conditional write tests

func (s *StorageSuite) TestClaimBlackSeat() {
	s.saveGame("game-1", "player-1", "", model.GameStatusWaiting)

	game, err := s.storage.ClaimBlackSeat(s.ctx, "game-1", "player-2")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("player-2"), game.BlackPlayer)
	s.Equal(model.GameStatusActive, game.Status)
}

func (s *StorageSuite) TestClaimBlackSeatAlreadyTaken() {
	s.saveGame("game-1", "player-1", "", model.GameStatusWaiting)

	_, err := s.storage.ClaimBlackSeat(s.ctx, "game-1", "player-2")
	s.Require().NoError(err)

	_, err = s.storage.ClaimBlackSeat(s.ctx, "game-1", "player-3")
	s.ErrorIs(err, model.ErrSlotTaken)
}

func (s *StorageSuite) TestClaimBlackSeatGameNotFound() {
	_, err := s.storage.ClaimBlackSeat(s.ctx, "missing", "player-2")
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *StorageSuite) TestAppendMove() {
	s.saveGame("game-1", "player-1", "player-2", model.GameStatusActive)

	game, err := s.storage.AppendMove(s.ctx, "game-1", "e4", 0)
	s.Require().NoError(err)
	s.Equal("e4", game.Moves)

	game, err = s.storage.AppendMove(s.ctx, "game-1", "e5", 1)
	s.Require().NoError(err)
	s.Equal("e4 e5", game.Moves)
}

func (s *StorageSuite) TestAppendMoveConflict() {
	s.saveGame("game-1", "player-1", "player-2", model.GameStatusActive)

	_, err := s.storage.AppendMove(s.ctx, "game-1", "e4", 0)
	s.Require().NoError(err)

	// A second writer that also observed an empty log loses
	_, err = s.storage.AppendMove(s.ctx, "game-1", "d4", 0)
	s.ErrorIs(err, model.ErrMoveConflict)

	game, err := s.storage.GetGame(s.ctx, "game-1")
	s.Require().NoError(err)
	s.Equal("e4", game.Moves)
}

func (s *StorageSuite) TestSetResult() {
	s.saveGame("game-1", "player-1", "player-2", model.GameStatusActive)

	game, err := s.storage.SetResult(s.ctx, "game-1", model.OutcomeWhiteWins)
	s.Require().NoError(err)
	s.Equal(model.GameStatusCompleted, game.Status)
	s.Equal(model.OutcomeWhiteWins, game.Result)
}

func (s *StorageSuite) TestSetResultAbandoned() {
	s.saveGame("game-1", "player-1", "player-2", model.GameStatusActive)

	game, err := s.storage.SetResult(s.ctx, "game-1", model.OutcomeAbandoned)
	s.Require().NoError(err)
	s.Equal(model.GameStatusAbandoned, game.Status)
	s.Equal(model.OutcomeAbandoned, game.Result)
}

// Stats tests

func (s *StorageSuite) TestApplyStatsDelta() {
	s.savePlayer("player-1", "alice")

	s.Require().NoError(s.storage.ApplyStatsDelta(s.ctx, "player-1", model.StatsWin))
	s.Require().NoError(s.storage.ApplyStatsDelta(s.ctx, "player-1", model.StatsLoss))
	s.Require().NoError(s.storage.ApplyStatsDelta(s.ctx, "player-1", model.StatsDraw))

	got, err := s.storage.GetPlayer(s.ctx, "player-1")
	s.Require().NoError(err)
	s.Equal(1, got.Wins)
	s.Equal(1, got.Losses)
	s.Equal(1, got.Draws)
	s.Equal(model.InitialRating+25-15+5, got.Rating)
}

func (s *StorageSuite) TestLeaderboard() {
	s.savePlayer("player-1", "alice")
	s.savePlayer("player-2", "bob")
	s.savePlayer("player-3", "carol") // no games: excluded

	s.Require().NoError(s.storage.ApplyStatsDelta(s.ctx, "player-1", model.StatsWin))
	s.Require().NoError(s.storage.ApplyStatsDelta(s.ctx, "player-2", model.StatsLoss))

	entries, err := s.storage.Leaderboard(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal("alice", entries[0].Username)
	s.Equal("bob", entries[1].Username)
}
