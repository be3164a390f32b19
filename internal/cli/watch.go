package cli

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	var (
		observer   bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "watch <game-id>",
		Short: "Join a game session and stream its events",
		Long: `Connect to the websocket endpoint, authenticate with the saved
session token, join the game and stream events in real-time.

Events include:
  - joined: Your join was accepted, with your role and a game snapshot
  - participant_connected: Someone joined the session
  - opponent_joined: The black seat was claimed
  - move: A move was accepted and relayed
  - chat: A chat message
  - player_disconnected: A seated player dropped
  - session_ended: The game was terminated

Press Ctrl+C to disconnect.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Token == "" {
				return fmt.Errorf("no session token: login or register first")
			}
			return watchGame(args[0], observer, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&observer, "observer", false, "Join as an observer even if a seat is open")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output events as JSON lines")

	return cmd
}

// wireEvent mirrors the realtime wire envelope
type wireEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func watchGame(gameID string, observer, jsonOutput bool) error {
	wsURL, err := websocketURL(cfg.ServerURL)
	if err != nil {
		return err
	}

	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = ws.Close() }()

	// Identity is in-band: authenticate, then join
	if err := writeEvent(ws, "authenticate", map[string]string{"token": cfg.Token}); err != nil {
		return err
	}
	if err := writeEvent(ws, "join", map[string]any{
		"game_id":     gameID,
		"as_observer": observer,
	}); err != nil {
		return err
	}

	// Close the socket on interrupt; the read loop unblocks with an error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	interrupted := false
	go func() {
		<-sigCh
		interrupted = true
		_ = ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = ws.Close()
	}()

	if !jsonOutput {
		fmt.Printf("Connected to game %s\n", gameID)
	}

	for {
		var event wireEvent
		if err := ws.ReadJSON(&event); err != nil {
			if interrupted || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				if !jsonOutput {
					fmt.Println("\nDisconnected")
				}
				return nil
			}
			return fmt.Errorf("stream error: %w", err)
		}

		if event.Type == "auth_failed" {
			return fmt.Errorf("authentication rejected: token may be expired")
		}
		printWireEvent(event, jsonOutput)
	}
}

func writeEvent(ws *websocket.Conn, eventType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return ws.WriteJSON(wireEvent{Type: eventType, Payload: raw})
}

func websocketURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/ws"
	return u.String(), nil
}

func printWireEvent(event wireEvent, jsonOutput bool) {
	now := time.Now()

	if jsonOutput {
		line, _ := json.Marshal(map[string]any{
			"time":    now,
			"type":    event.Type,
			"payload": json.RawMessage(event.Payload),
		})
		fmt.Println(string(line))
		return
	}

	display := string(event.Payload)
	display = strings.ReplaceAll(display, "\n", " ")
	if len(display) > 100 {
		display = display[:100] + "..."
	}
	fmt.Printf("[%s] %s %s\n", now.Format("2006-01-02 15:04:05"), event.Type, display)
}
