package realtime

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/jmallard/chessrelay/internal/model"
	"github.com/jmallard/chessrelay/internal/services/auth"
)

// EventType identifies a realtime event on the wire
type EventType string

// Inbound event types
const (
	EventAuthenticate EventType = "authenticate"
	EventJoin         EventType = "join"
	EventMove         EventType = "move"
	EventTerminate    EventType = "terminate"
	EventChat         EventType = "chat"
)

// Outbound event types
const (
	EventAuthFailed           EventType = "auth_failed"
	EventJoined               EventType = "joined"
	EventParticipantConnected EventType = "participant_connected"
	EventOpponentJoined       EventType = "opponent_joined"
	EventMoveBroadcast        EventType = "move"
	EventSessionEnded         EventType = "session_ended"
	EventChatBroadcast        EventType = "chat"
	EventPlayerDisconnected   EventType = "player_disconnected"
	EventError                EventType = "error"
)

// ClientEvent is the envelope for inbound events. The payload stays raw
// until the dispatch loop knows the type.
type ClientEvent struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ServerEvent is the envelope for outbound events
type ServerEvent struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload,omitempty"`
}

// Inbound payloads

// AuthenticatePayload carries the bearer credential
type AuthenticatePayload struct {
	Token string `json:"token"`
}

// JoinPayload asks to join a session, optionally as an observer
type JoinPayload struct {
	GameID     model.GameID `json:"game_id"`
	AsObserver bool         `json:"as_observer,omitempty"`
}

// MovePayload submits a move token
type MovePayload struct {
	GameID model.GameID `json:"game_id"`
	Move   string       `json:"move"`
}

// TerminatePayload ends a game with an outcome
type TerminatePayload struct {
	GameID  model.GameID  `json:"game_id"`
	Outcome model.Outcome `json:"outcome"`
}

// ChatPayload posts a free-text message to a session room
type ChatPayload struct {
	GameID model.GameID `json:"game_id"`
	Text   string       `json:"text"`
}

// Outbound payloads

// GameSnapshot is the wire form of a persisted game
type GameSnapshot struct {
	ID          model.GameID     `json:"id"`
	WhitePlayer model.PlayerID   `json:"white_player"`
	BlackPlayer model.PlayerID   `json:"black_player,omitempty"`
	Status      model.GameStatus `json:"status"`
	Result      model.Outcome    `json:"result,omitempty"`
	Moves       string           `json:"moves"`
}

// SnapshotFromGame converts a game record for the wire
func SnapshotFromGame(g *model.Game) GameSnapshot {
	return GameSnapshot{
		ID:          g.ID,
		WhitePlayer: g.WhitePlayer,
		BlackPlayer: g.BlackPlayer,
		Status:      g.Status,
		Result:      g.Result,
		Moves:       g.Moves,
	}
}

// JoinedPayload confirms a join to the joining connection only
type JoinedPayload struct {
	GameID     model.GameID `json:"game_id"`
	Role       Role         `json:"role"`
	Game       GameSnapshot `json:"game"`
	SideToMove model.Side   `json:"side_to_move"`
}

// ParticipantConnectedPayload announces any new room member
type ParticipantConnectedPayload struct {
	GameID   model.GameID   `json:"game_id"`
	PlayerID model.PlayerID `json:"player_id"`
}

// OpponentJoinedPayload announces that the black seat was claimed
type OpponentJoinedPayload struct {
	GameID   model.GameID   `json:"game_id"`
	PlayerID model.PlayerID `json:"player_id"`
}

// MoveBroadcastPayload fans an accepted move out to the whole room,
// the mover included
type MoveBroadcastPayload struct {
	GameID   model.GameID   `json:"game_id"`
	Move     string         `json:"move"`
	Moves    string         `json:"moves"`
	PlayerID model.PlayerID `json:"player_id"`
}

// SessionEndedPayload announces a terminated game
type SessionEndedPayload struct {
	GameID  model.GameID  `json:"game_id"`
	Outcome model.Outcome `json:"outcome"`
}

// ChatBroadcastPayload relays a chat message verbatim
type ChatBroadcastPayload struct {
	GameID    model.GameID   `json:"game_id"`
	SenderID  model.PlayerID `json:"sender_id"`
	Text      string         `json:"text"`
	Timestamp time.Time      `json:"timestamp"`
}

// PlayerDisconnectedPayload tells a room a seated player dropped;
// their seat stays assigned for reconnection
type PlayerDisconnectedPayload struct {
	GameID   model.GameID   `json:"game_id"`
	PlayerID model.PlayerID `json:"player_id"`
	Side     model.Side     `json:"side"`
}

// ErrorPayload reports a failed operation to the originating connection
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Wire error codes
const (
	CodeNotAuthenticated   = "NOT_AUTHENTICATED"
	CodeAuthFailed         = "AUTH_FAILED"
	CodeGameNotFound       = "GAME_NOT_FOUND"
	CodeNotAuthorized      = "NOT_AUTHORIZED"
	CodeOutOfTurn          = "OUT_OF_TURN"
	CodeConflict           = "CONFLICT"
	CodeGameFinished       = "GAME_FINISHED"
	CodeInvalidEvent       = "INVALID_EVENT"
	CodePersistenceFailure = "PERSISTENCE_FAILURE"
)

// ErrorEvent builds an error event for err, mapping known errors to
// stable wire codes. Unknown errors become persistence failures and
// keep their detail out of the payload.
func ErrorEvent(err error) ServerEvent {
	payload := ErrorPayload{Code: CodePersistenceFailure, Message: "operation did not apply"}

	switch {
	case errors.Is(err, model.ErrNotAuthenticated):
		payload = ErrorPayload{CodeNotAuthenticated, "authenticate first"}
	case errors.Is(err, model.ErrGameNotFound):
		payload = ErrorPayload{CodeGameNotFound, "game not found"}
	case errors.Is(err, model.ErrNotAPlayer):
		payload = ErrorPayload{CodeNotAuthorized, "you are not a player in this game"}
	case errors.Is(err, model.ErrOutOfTurn):
		payload = ErrorPayload{CodeOutOfTurn, "not your turn"}
	case errors.Is(err, model.ErrMoveConflict):
		payload = ErrorPayload{CodeConflict, "a concurrent move landed first, retry"}
	case errors.Is(err, model.ErrGameFinished):
		payload = ErrorPayload{CodeGameFinished, "game is already finished"}
	case errors.Is(err, model.ErrEmptyMove), errors.Is(err, model.ErrBadOutcome):
		payload = ErrorPayload{CodeInvalidEvent, err.Error()}
	case errors.Is(err, auth.ErrInvalidSession):
		payload = ErrorPayload{CodeAuthFailed, "invalid or expired credential"}
	}

	return ServerEvent{Type: EventError, Payload: payload}
}
