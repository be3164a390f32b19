package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/jmallard/chessrelay/internal/dependencies/mocks"
	"github.com/jmallard/chessrelay/internal/model"
	"github.com/jmallard/chessrelay/internal/storage"
	"github.com/jmallard/chessrelay/internal/storage/memory"
	"github.com/jmallard/chessrelay/internal/testutil"
)

// fakeConn records every event delivered to it
type fakeConn struct {
	events []ServerEvent
}

func (c *fakeConn) Send(event ServerEvent) {
	c.events = append(c.events, event)
}

func (c *fakeConn) ofType(t EventType) []ServerEvent {
	var out []ServerEvent
	for _, e := range c.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (c *fakeConn) last() ServerEvent {
	if len(c.events) == 0 {
		return ServerEvent{}
	}
	return c.events[len(c.events)-1]
}

// fakeRelay delivers room broadcasts to fakeConns in memory
type fakeRelay struct {
	rooms map[model.GameID]map[Conn]bool
}

func newFakeRelay() *fakeRelay {
	return &fakeRelay{rooms: make(map[model.GameID]map[Conn]bool)}
}

func (r *fakeRelay) JoinRoom(c Conn, id model.GameID) {
	if r.rooms[id] == nil {
		r.rooms[id] = make(map[Conn]bool)
	}
	r.rooms[id][c] = true
}

func (r *fakeRelay) LeaveRoom(c Conn, id model.GameID) {
	delete(r.rooms[id], c)
}

func (r *fakeRelay) ToRoom(id model.GameID, event ServerEvent) {
	for c := range r.rooms[id] {
		c.Send(event)
	}
}

func (r *fakeRelay) ToRoomExcept(id model.GameID, except Conn, event ServerEvent) {
	for c := range r.rooms[id] {
		if c != except {
			c.Send(event)
		}
	}
}

// staleReadStorage serves one stale game read before falling through,
// standing in for a peer that raced ahead between read and write
type staleReadStorage struct {
	storage.Storage
	stale *model.Game
	reads int
}

func (s *staleReadStorage) GetGame(ctx context.Context, id model.GameID) (*model.Game, error) {
	s.reads++
	if s.reads == 1 {
		copied := *s.stale
		return &copied, nil
	}
	return s.Storage.GetGame(ctx, id)
}

type CoordinatorSuite struct {
	suite.Suite
	storage     *memory.Storage
	registry    *Registry
	relay       *fakeRelay
	clock       *mocks.MockClock
	coordinator *Coordinator
	ctx         context.Context
}

func TestCoordinatorSuite(t *testing.T) {
	suite.Run(t, new(CoordinatorSuite))
}

func (s *CoordinatorSuite) SetupTest() {
	s.storage = memory.New()
	s.registry = NewRegistry()
	s.relay = newFakeRelay()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.coordinator = NewCoordinator(s.storage, s.registry, s.relay, s.clock, testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *CoordinatorSuite) saveGame(game *model.Game) *model.Game {
	if game.Status == "" {
		game.Status = model.GameStatusWaiting
	}
	s.Require().NoError(s.storage.SaveGame(s.ctx, game))
	return game
}

func (s *CoordinatorSuite) savePlayer(id model.PlayerID) {
	s.Require().NoError(s.storage.SavePlayer(s.ctx, &model.Player{
		ID:       id,
		Username: string(id),
		Rating:   model.InitialRating,
	}))
}

func (s *CoordinatorSuite) join(conn Conn, playerID model.PlayerID, gameID model.GameID) {
	s.Require().NoError(s.coordinator.Join(s.ctx, conn, playerID, gameID, false))
}

func (s *CoordinatorSuite) TestJoinCreatorResumesWhiteSeat() {
	s.saveGame(&model.Game{ID: "g1", WhitePlayer: "alice"})
	conn := &fakeConn{}

	s.join(conn, "alice", "g1")

	joined := conn.ofType(EventJoined)
	s.Require().Len(joined, 1)
	payload := joined[0].Payload.(JoinedPayload)
	s.Equal(RoleWhite, payload.Role)
	s.Equal(model.SideWhite, payload.SideToMove)
	s.Equal(model.GameID("g1"), payload.Game.ID)

	s.Equal(model.PlayerID("alice"), s.registry.Snapshot("g1").White)
}

func (s *CoordinatorSuite) TestJoinStrangerClaimsBlackSeat() {
	s.saveGame(&model.Game{ID: "g1", WhitePlayer: "alice"})
	white := &fakeConn{}
	s.join(white, "alice", "g1")

	black := &fakeConn{}
	s.join(black, "bob", "g1")

	payload := black.ofType(EventJoined)[0].Payload.(JoinedPayload)
	s.Equal(RoleBlack, payload.Role)
	s.Equal(model.GameStatusActive, payload.Game.Status)
	s.Equal(model.PlayerID("bob"), payload.Game.BlackPlayer)

	// The seat claim is persisted, not just live state
	stored, err := s.storage.GetGame(s.ctx, "g1")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("bob"), stored.BlackPlayer)
	s.Equal(model.GameStatusActive, stored.Status)

	// White hears about the opponent but the joiner does not
	s.Len(white.ofType(EventOpponentJoined), 1)
	s.Empty(black.ofType(EventOpponentJoined))
	s.Len(white.ofType(EventParticipantConnected), 1)
}

func (s *CoordinatorSuite) TestJoinSeatRaceLoserBecomesObserver() {
	game := s.saveGame(&model.Game{ID: "g1", WhitePlayer: "alice"})
	stale := *game
	_, err := s.storage.ClaimBlackSeat(s.ctx, "g1", "bob")
	s.Require().NoError(err)

	racy := &staleReadStorage{Storage: s.storage, stale: &stale}
	coordinator := NewCoordinator(racy, s.registry, s.relay, s.clock, testutil.NopLogger())

	conn := &fakeConn{}
	s.Require().NoError(coordinator.Join(s.ctx, conn, "carol", "g1", false))

	payload := conn.ofType(EventJoined)[0].Payload.(JoinedPayload)
	s.Equal(RoleObserver, payload.Role)
	s.Equal(model.PlayerID("bob"), payload.Game.BlackPlayer)
	s.True(s.registry.Snapshot("g1").Observers["carol"])
}

func (s *CoordinatorSuite) TestJoinExplicitObserverLeavesSeatOpen() {
	s.saveGame(&model.Game{ID: "g1", WhitePlayer: "alice"})
	conn := &fakeConn{}

	s.Require().NoError(s.coordinator.Join(s.ctx, conn, "carol", "g1", true))

	payload := conn.ofType(EventJoined)[0].Payload.(JoinedPayload)
	s.Equal(RoleObserver, payload.Role)
	s.Equal(model.GameStatusWaiting, payload.Game.Status)
	s.Empty(payload.Game.BlackPlayer)
}

func (s *CoordinatorSuite) TestJoinSeatedPlayerObservingKeepsSingleRole() {
	s.saveGame(&model.Game{ID: "g1", WhitePlayer: "alice", BlackPlayer: "bob", Status: model.GameStatusActive})
	conn := &fakeConn{}

	s.Require().NoError(s.coordinator.Join(s.ctx, conn, "alice", "g1", true))

	sess := s.registry.Snapshot("g1")
	s.Equal(model.PlayerID("alice"), sess.White)
	s.False(sess.Observers["alice"])
}

func (s *CoordinatorSuite) TestJoinUnknownGame() {
	err := s.coordinator.Join(s.ctx, &fakeConn{}, "alice", "missing", false)
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *CoordinatorSuite) TestMoveRelayedToWholeRoom() {
	s.saveGame(&model.Game{ID: "g1", WhitePlayer: "alice", BlackPlayer: "bob", Status: model.GameStatusActive})
	white, black, watcher := &fakeConn{}, &fakeConn{}, &fakeConn{}
	s.join(white, "alice", "g1")
	s.join(black, "bob", "g1")
	s.Require().NoError(s.coordinator.Join(s.ctx, watcher, "carol", "g1", true))

	s.Require().NoError(s.coordinator.Move(s.ctx, "alice", "g1", "e4"))

	for _, conn := range []*fakeConn{white, black, watcher} {
		moves := conn.ofType(EventMoveBroadcast)
		s.Require().Len(moves, 1)
		payload := moves[0].Payload.(MoveBroadcastPayload)
		s.Equal("e4", payload.Move)
		s.Equal("e4", payload.Moves)
		s.Equal(model.PlayerID("alice"), payload.PlayerID)
	}

	stored, err := s.storage.GetGame(s.ctx, "g1")
	s.Require().NoError(err)
	s.Equal("e4", stored.Moves)
}

func (s *CoordinatorSuite) TestMoveAlternatesTurns() {
	s.saveGame(&model.Game{ID: "g1", WhitePlayer: "alice", BlackPlayer: "bob", Status: model.GameStatusActive})

	s.ErrorIs(s.coordinator.Move(s.ctx, "bob", "g1", "e5"), model.ErrOutOfTurn)
	s.Require().NoError(s.coordinator.Move(s.ctx, "alice", "g1", "e4"))
	s.ErrorIs(s.coordinator.Move(s.ctx, "alice", "g1", "d4"), model.ErrOutOfTurn)
	s.Require().NoError(s.coordinator.Move(s.ctx, "bob", "g1", "e5"))

	stored, err := s.storage.GetGame(s.ctx, "g1")
	s.Require().NoError(err)
	s.Equal("e4 e5", stored.Moves)
}

func (s *CoordinatorSuite) TestMoveRejectsNonPlayer() {
	s.saveGame(&model.Game{ID: "g1", WhitePlayer: "alice", BlackPlayer: "bob", Status: model.GameStatusActive})
	s.ErrorIs(s.coordinator.Move(s.ctx, "carol", "g1", "e4"), model.ErrNotAPlayer)
}

func (s *CoordinatorSuite) TestMoveRejectsEmptyToken() {
	s.ErrorIs(s.coordinator.Move(s.ctx, "alice", "g1", ""), model.ErrEmptyMove)
}

func (s *CoordinatorSuite) TestMoveUnknownGame() {
	s.ErrorIs(s.coordinator.Move(s.ctx, "alice", "missing", "e4"), model.ErrGameNotFound)
}

func (s *CoordinatorSuite) TestMoveRejectsFinishedGame() {
	s.saveGame(&model.Game{
		ID: "g1", WhitePlayer: "alice", BlackPlayer: "bob",
		Status: model.GameStatusCompleted, Result: model.OutcomeDraw,
	})
	s.ErrorIs(s.coordinator.Move(s.ctx, "alice", "g1", "e4"), model.ErrGameFinished)
}

func (s *CoordinatorSuite) TestMoveConflictOnConcurrentAppend() {
	game := s.saveGame(&model.Game{ID: "g1", WhitePlayer: "alice", BlackPlayer: "bob", Status: model.GameStatusActive})
	stale := *game
	_, err := s.storage.AppendMove(s.ctx, "g1", "d4", 0)
	s.Require().NoError(err)

	racy := &staleReadStorage{Storage: s.storage, stale: &stale}
	coordinator := NewCoordinator(racy, s.registry, s.relay, s.clock, testutil.NopLogger())

	s.ErrorIs(coordinator.Move(s.ctx, "alice", "g1", "e4"), model.ErrMoveConflict)

	stored, err := s.storage.GetGame(s.ctx, "g1")
	s.Require().NoError(err)
	s.Equal("d4", stored.Moves)
}

func (s *CoordinatorSuite) TestTerminateAppliesStatsAndEndsSession() {
	s.savePlayer("alice")
	s.savePlayer("bob")
	s.saveGame(&model.Game{ID: "g1", WhitePlayer: "alice", BlackPlayer: "bob", Status: model.GameStatusActive})
	white, black := &fakeConn{}, &fakeConn{}
	s.join(white, "alice", "g1")
	s.join(black, "bob", "g1")

	s.Require().NoError(s.coordinator.Terminate(s.ctx, "alice", "g1", model.OutcomeWhiteWins))

	for _, conn := range []*fakeConn{white, black} {
		ended := conn.ofType(EventSessionEnded)
		s.Require().Len(ended, 1)
		s.Equal(model.OutcomeWhiteWins, ended[0].Payload.(SessionEndedPayload).Outcome)
	}

	stored, err := s.storage.GetGame(s.ctx, "g1")
	s.Require().NoError(err)
	s.Equal(model.GameStatusCompleted, stored.Status)
	s.Equal(model.OutcomeWhiteWins, stored.Result)

	alice, err := s.storage.GetPlayer(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(1, alice.Wins)
	s.Equal(model.InitialRating+25, alice.Rating)

	bob, err := s.storage.GetPlayer(s.ctx, "bob")
	s.Require().NoError(err)
	s.Equal(1, bob.Losses)
	s.Equal(model.InitialRating-15, bob.Rating)

	s.Nil(s.registry.Snapshot("g1"))
}

func (s *CoordinatorSuite) TestTerminateDrawGivesBothFivePoints() {
	s.savePlayer("alice")
	s.savePlayer("bob")
	s.saveGame(&model.Game{ID: "g1", WhitePlayer: "alice", BlackPlayer: "bob", Status: model.GameStatusActive})

	s.Require().NoError(s.coordinator.Terminate(s.ctx, "bob", "g1", model.OutcomeDraw))

	for _, id := range []model.PlayerID{"alice", "bob"} {
		p, err := s.storage.GetPlayer(s.ctx, id)
		s.Require().NoError(err)
		s.Equal(1, p.Draws)
		s.Equal(model.InitialRating+5, p.Rating)
	}
}

func (s *CoordinatorSuite) TestTerminateAbandonedLeavesStatsAlone() {
	s.savePlayer("alice")
	s.savePlayer("bob")
	s.saveGame(&model.Game{ID: "g1", WhitePlayer: "alice", BlackPlayer: "bob", Status: model.GameStatusActive})

	s.Require().NoError(s.coordinator.Terminate(s.ctx, "alice", "g1", model.OutcomeAbandoned))

	for _, id := range []model.PlayerID{"alice", "bob"} {
		p, err := s.storage.GetPlayer(s.ctx, id)
		s.Require().NoError(err)
		s.Zero(p.TotalGames())
		s.Equal(model.InitialRating, p.Rating)
	}

	stored, err := s.storage.GetGame(s.ctx, "g1")
	s.Require().NoError(err)
	s.Equal(model.GameStatusAbandoned, stored.Status)
}

func (s *CoordinatorSuite) TestTerminateWaitingGameSkipsStats() {
	s.savePlayer("alice")
	s.saveGame(&model.Game{ID: "g1", WhitePlayer: "alice"})

	s.Require().NoError(s.coordinator.Terminate(s.ctx, "alice", "g1", model.OutcomeAbandoned))

	p, err := s.storage.GetPlayer(s.ctx, "alice")
	s.Require().NoError(err)
	s.Zero(p.TotalGames())
}

func (s *CoordinatorSuite) TestTerminateRejectsBadOutcome() {
	s.ErrorIs(s.coordinator.Terminate(s.ctx, "alice", "g1", "rage_quit"), model.ErrBadOutcome)
}

func (s *CoordinatorSuite) TestTerminateRejectsNonPlayer() {
	s.saveGame(&model.Game{ID: "g1", WhitePlayer: "alice", BlackPlayer: "bob", Status: model.GameStatusActive})
	s.ErrorIs(s.coordinator.Terminate(s.ctx, "carol", "g1", model.OutcomeDraw), model.ErrNotAPlayer)
}

func (s *CoordinatorSuite) TestTerminateTwiceFails() {
	s.savePlayer("alice")
	s.savePlayer("bob")
	s.saveGame(&model.Game{ID: "g1", WhitePlayer: "alice", BlackPlayer: "bob", Status: model.GameStatusActive})

	s.Require().NoError(s.coordinator.Terminate(s.ctx, "alice", "g1", model.OutcomeWhiteWins))
	s.ErrorIs(s.coordinator.Terminate(s.ctx, "bob", "g1", model.OutcomeBlackWins), model.ErrGameFinished)

	// Stats from the first termination stand
	alice, err := s.storage.GetPlayer(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(1, alice.Wins)
	s.Equal(0, alice.Losses)
}

func (s *CoordinatorSuite) TestChatReachesWholeRoomWithServerTimestamp() {
	s.saveGame(&model.Game{ID: "g1", WhitePlayer: "alice", BlackPlayer: "bob", Status: model.GameStatusActive})
	white, black := &fakeConn{}, &fakeConn{}
	s.join(white, "alice", "g1")
	s.join(black, "bob", "g1")

	s.coordinator.Chat("alice", "g1", "good luck")

	for _, conn := range []*fakeConn{white, black} {
		chats := conn.ofType(EventChatBroadcast)
		s.Require().Len(chats, 1)
		payload := chats[0].Payload.(ChatBroadcastPayload)
		s.Equal("good luck", payload.Text)
		s.Equal(model.PlayerID("alice"), payload.SenderID)
		s.Equal(s.clock.CurrentTime, payload.Timestamp)
	}
}

func (s *CoordinatorSuite) TestDisconnectNotifiesRoomAndKeepsSeat() {
	s.saveGame(&model.Game{ID: "g1", WhitePlayer: "alice", BlackPlayer: "bob", Status: model.GameStatusActive})
	white, black := &fakeConn{}, &fakeConn{}
	s.join(white, "alice", "g1")
	s.join(black, "bob", "g1")

	s.coordinator.Disconnect(s.ctx, white, "alice")

	gone := black.ofType(EventPlayerDisconnected)
	s.Require().Len(gone, 1)
	payload := gone[0].Payload.(PlayerDisconnectedPayload)
	s.Equal(model.PlayerID("alice"), payload.PlayerID)
	s.Equal(model.SideWhite, payload.Side)

	// The seat survives for reconnection
	s.Equal(model.PlayerID("alice"), s.registry.Snapshot("g1").White)
	s.Empty(white.ofType(EventPlayerDisconnected))
}

func (s *CoordinatorSuite) TestDisconnectDropsObserverQuietly() {
	s.saveGame(&model.Game{ID: "g1", WhitePlayer: "alice", BlackPlayer: "bob", Status: model.GameStatusActive})
	white, watcher := &fakeConn{}, &fakeConn{}
	s.join(white, "alice", "g1")
	s.Require().NoError(s.coordinator.Join(s.ctx, watcher, "carol", "g1", true))

	s.coordinator.Disconnect(s.ctx, watcher, "carol")

	s.Empty(white.ofType(EventPlayerDisconnected))
	s.False(s.registry.Snapshot("g1").Observers["carol"])
}

func (s *CoordinatorSuite) TestDisconnectUnauthenticatedIsNoOp() {
	s.coordinator.Disconnect(s.ctx, &fakeConn{}, "")
}
