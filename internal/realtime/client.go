package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jmallard/chessrelay/internal/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 32
)

// Identity resolves a bearer credential to a player id
type Identity interface {
	Verify(credential string) (model.PlayerID, error)
}

// Client is one websocket participant. The read pump dispatches events
// sequentially, so per-connection state like playerID needs no lock.
type Client struct {
	hub         *Hub
	ws          *websocket.Conn
	send        chan ServerEvent
	coordinator *Coordinator
	identity    Identity
	logger      *slog.Logger

	// playerID is empty until an authenticate event succeeds. Only the
	// read pump touches it.
	playerID model.PlayerID
}

func newClient(hub *Hub, ws *websocket.Conn, coordinator *Coordinator, identity Identity, logger *slog.Logger) *Client {
	return &Client{
		hub:         hub,
		ws:          ws,
		send:        make(chan ServerEvent, sendBuffer),
		coordinator: coordinator,
		identity:    identity,
		logger:      logger,
	}
}

// Send queues an event for delivery. A connection that cannot drain
// its buffer loses events rather than stalling room broadcasts.
func (c *Client) Send(event ServerEvent) {
	select {
	case c.send <- event:
	default:
		c.logger.Warn("dropping event for slow connection",
			slog.String("type", string(event.Type)),
			slog.String("player_id", string(c.playerID)))
	}
}

// readPump reads inbound events until the connection drops, then runs
// the disconnect protocol
func (c *Client) readPump() {
	ctx := context.Background()
	defer func() {
		c.coordinator.Disconnect(ctx, c, c.playerID)
		c.hub.dropFromAllRooms(c)
		close(c.send)
		c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read failed",
					slog.String("player_id", string(c.playerID)),
					slog.String("error", err.Error()))
			}
			return
		}

		var event ClientEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			c.Send(ServerEvent{
				Type:    EventError,
				Payload: ErrorPayload{Code: CodeInvalidEvent, Message: "malformed event"},
			})
			continue
		}
		c.dispatch(ctx, event)
	}
}

// writePump drains the send buffer onto the socket and keeps the
// connection alive with pings
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dispatch routes one inbound event. Every event except authenticate
// requires an established identity.
func (c *Client) dispatch(ctx context.Context, event ClientEvent) {
	if event.Type == EventAuthenticate {
		c.handleAuthenticate(event.Payload)
		return
	}

	if c.playerID == "" {
		c.Send(ErrorEvent(model.ErrNotAuthenticated))
		return
	}

	switch event.Type {
	case EventJoin:
		var p JoinPayload
		if !c.decode(event.Payload, &p) {
			return
		}
		if err := c.coordinator.Join(ctx, c, c.playerID, p.GameID, p.AsObserver); err != nil {
			c.Send(ErrorEvent(err))
		}

	case EventMove:
		var p MovePayload
		if !c.decode(event.Payload, &p) {
			return
		}
		if err := c.coordinator.Move(ctx, c.playerID, p.GameID, p.Move); err != nil {
			c.Send(ErrorEvent(err))
		}

	case EventTerminate:
		var p TerminatePayload
		if !c.decode(event.Payload, &p) {
			return
		}
		if err := c.coordinator.Terminate(ctx, c.playerID, p.GameID, p.Outcome); err != nil {
			c.Send(ErrorEvent(err))
		}

	case EventChat:
		var p ChatPayload
		if !c.decode(event.Payload, &p) {
			return
		}
		c.coordinator.Chat(c.playerID, p.GameID, p.Text)

	default:
		c.Send(ServerEvent{
			Type:    EventError,
			Payload: ErrorPayload{Code: CodeInvalidEvent, Message: "unknown event type"},
		})
	}
}

func (c *Client) handleAuthenticate(payload json.RawMessage) {
	var p AuthenticatePayload
	if !c.decode(payload, &p) {
		return
	}

	playerID, err := c.identity.Verify(p.Token)
	if err != nil {
		c.Send(ServerEvent{
			Type:    EventAuthFailed,
			Payload: ErrorPayload{Code: CodeAuthFailed, Message: "invalid or expired credential"},
		})
		return
	}
	c.playerID = playerID
}

func (c *Client) decode(raw json.RawMessage, into any) bool {
	if err := json.Unmarshal(raw, into); err != nil {
		c.Send(ServerEvent{
			Type:    EventError,
			Payload: ErrorPayload{Code: CodeInvalidEvent, Message: "malformed payload"},
		})
		return false
	}
	return true
}
