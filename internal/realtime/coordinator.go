package realtime

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jmallard/chessrelay/internal/dependencies/clock"
	"github.com/jmallard/chessrelay/internal/model"
	"github.com/jmallard/chessrelay/internal/storage"
)

// Conn is one participant connection. Send must not block the caller;
// the websocket client buffers behind a channel.
type Conn interface {
	Send(event ServerEvent)
}

// Relay fans events out to session rooms. The hub implements it over
// websockets; tests implement it in memory.
type Relay interface {
	JoinRoom(c Conn, id model.GameID)
	LeaveRoom(c Conn, id model.GameID)
	ToRoom(id model.GameID, event ServerEvent)
	ToRoomExcept(id model.GameID, except Conn, event ServerEvent)
}

// Coordinator drives the session protocol: joins, role assignment,
// turn-gated move relay, termination, chat, and disconnects. It owns
// no transport; connections arrive as Conn and fan-out goes through
// the Relay.
type Coordinator struct {
	storage  storage.Storage
	registry *Registry
	relay    Relay
	clock    clock.Clock
	logger   *slog.Logger
}

func NewCoordinator(store storage.Storage, registry *Registry, relay Relay, clk clock.Clock, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		storage:  store,
		registry: registry,
		relay:    relay,
		clock:    clk,
		logger:   logger,
	}
}

// Join admits a connection to a session and resolves its role.
// Seated players reattach to their side; the first stranger to arrive
// while the game is waiting claims the black seat; everyone else
// observes. Losing the seat race demotes to observer rather than
// failing the join.
func (c *Coordinator) Join(ctx context.Context, conn Conn, playerID model.PlayerID, gameID model.GameID, asObserver bool) error {
	game, err := c.storage.GetGame(ctx, gameID)
	if err != nil {
		return err
	}

	c.relay.JoinRoom(conn, gameID)

	var role Role
	switch {
	case !asObserver && game.WhitePlayer == playerID:
		c.registry.AssignSide(gameID, game.WhitePlayer, game.BlackPlayer, playerID, model.SideWhite)
		role = RoleWhite

	case !asObserver && game.BlackPlayer == playerID:
		c.registry.AssignSide(gameID, game.WhitePlayer, game.BlackPlayer, playerID, model.SideBlack)
		role = RoleBlack

	case !asObserver && game.BlackPlayer == "" && game.Status == model.GameStatusWaiting:
		claimed, err := c.storage.ClaimBlackSeat(ctx, gameID, playerID)
		switch {
		case err == nil:
			game = claimed
			c.registry.AssignSide(gameID, game.WhitePlayer, game.BlackPlayer, playerID, model.SideBlack)
			role = RoleBlack
			c.relay.ToRoomExcept(gameID, conn, ServerEvent{
				Type:    EventOpponentJoined,
				Payload: OpponentJoinedPayload{GameID: gameID, PlayerID: playerID},
			})
			c.logger.InfoContext(ctx, "black seat claimed",
				slog.String("game_id", string(gameID)),
				slog.String("player_id", string(playerID)))
		case errors.Is(err, model.ErrSlotTaken):
			// Another claimant won the race; rejoin the updated record
			// as an observer.
			game, err = c.storage.GetGame(ctx, gameID)
			if err != nil {
				c.relay.LeaveRoom(conn, gameID)
				return err
			}
			c.registry.AddObserver(gameID, game.WhitePlayer, game.BlackPlayer, playerID)
			role = RoleObserver
		default:
			c.relay.LeaveRoom(conn, gameID)
			return err
		}

	default:
		c.registry.AddObserver(gameID, game.WhitePlayer, game.BlackPlayer, playerID)
		role = RoleObserver
	}

	conn.Send(ServerEvent{
		Type: EventJoined,
		Payload: JoinedPayload{
			GameID:     gameID,
			Role:       role,
			Game:       SnapshotFromGame(game),
			SideToMove: model.SideToMove(game.Moves),
		},
	})
	c.relay.ToRoomExcept(gameID, conn, ServerEvent{
		Type:    EventParticipantConnected,
		Payload: ParticipantConnectedPayload{GameID: gameID, PlayerID: playerID},
	})
	return nil
}

// Move appends a move for playerID if it is their turn, then fans the
// accepted move out to the whole room, the mover included.
func (c *Coordinator) Move(ctx context.Context, playerID model.PlayerID, gameID model.GameID, token string) error {
	if token == "" {
		return model.ErrEmptyMove
	}

	game, err := c.storage.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	if !game.HasPlayer(playerID) {
		return model.ErrNotAPlayer
	}
	if game.Status == model.GameStatusCompleted || game.Status == model.GameStatusAbandoned {
		return model.ErrGameFinished
	}
	if model.SideToMove(game.Moves) != game.SideOf(playerID) {
		return model.ErrOutOfTurn
	}

	updated, err := c.storage.AppendMove(ctx, gameID, token, model.MoveCount(game.Moves))
	if err != nil {
		return err
	}

	c.relay.ToRoom(gameID, ServerEvent{
		Type: EventMoveBroadcast,
		Payload: MoveBroadcastPayload{
			GameID:   gameID,
			Move:     token,
			Moves:    updated.Moves,
			PlayerID: playerID,
		},
	})
	return nil
}

// Terminate ends a game with the given outcome, applies stats for
// decided games, announces the end to the room, and retires the live
// session. Abandoned games leave both players' stats untouched.
func (c *Coordinator) Terminate(ctx context.Context, playerID model.PlayerID, gameID model.GameID, outcome model.Outcome) error {
	if !outcome.Valid() {
		return model.ErrBadOutcome
	}

	game, err := c.storage.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	if !game.HasPlayer(playerID) {
		return model.ErrNotAPlayer
	}
	if game.Status == model.GameStatusCompleted || game.Status == model.GameStatusAbandoned {
		return model.ErrGameFinished
	}

	updated, err := c.storage.SetResult(ctx, gameID, outcome)
	if err != nil {
		return err
	}

	if updated.BlackPlayer != "" && outcome != model.OutcomeAbandoned {
		whiteResult, blackResult := resultsFor(outcome)
		c.applyStats(ctx, updated.WhitePlayer, whiteResult)
		c.applyStats(ctx, updated.BlackPlayer, blackResult)
	}

	c.relay.ToRoom(gameID, ServerEvent{
		Type:    EventSessionEnded,
		Payload: SessionEndedPayload{GameID: gameID, Outcome: outcome},
	})
	c.registry.Remove(gameID)

	c.logger.InfoContext(ctx, "game terminated",
		slog.String("game_id", string(gameID)),
		slog.String("outcome", string(outcome)),
		slog.String("by", string(playerID)))
	return nil
}

// Chat relays a message to everyone in the room, sender included,
// stamped with the server clock. Messages are not persisted.
func (c *Coordinator) Chat(playerID model.PlayerID, gameID model.GameID, text string) {
	c.relay.ToRoom(gameID, ServerEvent{
		Type: EventChatBroadcast,
		Payload: ChatBroadcastPayload{
			GameID:    gameID,
			SenderID:  playerID,
			Text:      text,
			Timestamp: c.clock.Now(),
		},
	})
}

// Disconnect handles a dropped connection. Rooms holding the player's
// seat are told; the seat itself stays assigned so a reconnect resumes
// the same side. Observer memberships are simply dropped.
func (c *Coordinator) Disconnect(ctx context.Context, conn Conn, playerID model.PlayerID) {
	if playerID == "" {
		return
	}

	for _, seat := range c.registry.SeatsOf(playerID) {
		c.relay.ToRoomExcept(seat.GameID, conn, ServerEvent{
			Type: EventPlayerDisconnected,
			Payload: PlayerDisconnectedPayload{
				GameID:   seat.GameID,
				PlayerID: playerID,
				Side:     seat.Side,
			},
		})
		c.logger.InfoContext(ctx, "seated player disconnected",
			slog.String("game_id", string(seat.GameID)),
			slog.String("player_id", string(playerID)),
			slog.String("side", string(seat.Side)))
	}

	for _, gameID := range c.registry.ObservedBy(playerID) {
		c.registry.RemoveObserver(gameID, playerID)
	}
}

// applyStats records one player's share of a decided outcome. Stats are
// best-effort after the result is persisted; a failure is logged and
// does not unwind the termination.
func (c *Coordinator) applyStats(ctx context.Context, playerID model.PlayerID, result model.StatsResult) {
	if err := c.storage.ApplyStatsDelta(ctx, playerID, result); err != nil {
		c.logger.ErrorContext(ctx, "failed to apply stats",
			slog.String("player_id", string(playerID)),
			slog.String("result", string(result)),
			slog.String("error", err.Error()))
	}
}

// resultsFor splits a decided outcome into per-side stats results
func resultsFor(outcome model.Outcome) (white, black model.StatsResult) {
	switch outcome {
	case model.OutcomeWhiteWins:
		return model.StatsWin, model.StatsLoss
	case model.OutcomeBlackWins:
		return model.StatsLoss, model.StatsWin
	default:
		return model.StatsDraw, model.StatsDraw
	}
}
