package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Player:
		o.printPlayer(v)
	case AuthResult:
		o.printAuthResult(v)
	case Stats:
		o.printStats(v)
	case []LeaderboardEntry:
		o.printLeaderboard(v)
	case Game:
		o.printGame(v)
	case GameList:
		o.printGameList(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Player response type (matches API)
type Player struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Rating   int    `json:"rating"`
}

// AuthResult combines player and token
type AuthResult struct {
	Player       Player `json:"player"`
	SessionToken string `json:"session_token"`
}

// Stats response type
type Stats struct {
	PlayerID   string `json:"player_id"`
	Username   string `json:"username"`
	Wins       int    `json:"wins"`
	Losses     int    `json:"losses"`
	Draws      int    `json:"draws"`
	Rating     int    `json:"rating"`
	TotalGames int    `json:"total_games"`
}

// LeaderboardEntry response type
type LeaderboardEntry struct {
	Rank       int    `json:"rank"`
	PlayerID   string `json:"player_id"`
	Username   string `json:"username"`
	Wins       int    `json:"wins"`
	Losses     int    `json:"losses"`
	Draws      int    `json:"draws"`
	Rating     int    `json:"rating"`
	TotalGames int    `json:"total_games"`
}

// Game response type
type Game struct {
	ID          string    `json:"id"`
	WhitePlayer string    `json:"white_player"`
	BlackPlayer string    `json:"black_player,omitempty"`
	Status      string    `json:"status"`
	Result      string    `json:"result,omitempty"`
	Moves       string    `json:"moves"`
	MoveCount   int       `json:"move_count"`
	SideToMove  string    `json:"side_to_move"`
	CreatedAt   time.Time `json:"created_at"`
}

// GameList response type
type GameList struct {
	Games []Game `json:"games"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printPlayer(p Player) {
	fmt.Printf("Player: %s (%s)\n", p.Username, p.ID)
	fmt.Printf("Rating: %d\n", p.Rating)
	if p.Email != "" {
		fmt.Printf("Email: %s\n", p.Email)
	}
}

func (o *Output) printAuthResult(a AuthResult) {
	o.printPlayer(a.Player)
	fmt.Printf("Token: %s\n", a.SessionToken)
}

func (o *Output) printStats(s Stats) {
	fmt.Printf("Player: %s (%s)\n", s.Username, s.PlayerID)
	fmt.Printf("Rating: %d\n", s.Rating)
	fmt.Printf("Record: %dW / %dL / %dD (%d games)\n", s.Wins, s.Losses, s.Draws, s.TotalGames)
}

func (o *Output) printLeaderboard(entries []LeaderboardEntry) {
	if len(entries) == 0 {
		fmt.Println("No ranked players yet")
		return
	}
	fmt.Printf("%-5s %-20s %-7s %s\n", "Rank", "Player", "Rating", "Record")
	for _, e := range entries {
		fmt.Printf("%-5d %-20s %-7d %dW/%dL/%dD\n",
			e.Rank, e.Username, e.Rating, e.Wins, e.Losses, e.Draws)
	}
}

func (o *Output) printGame(g Game) {
	fmt.Printf("Game: %s\n", g.ID)
	fmt.Printf("Status: %s\n", g.Status)
	fmt.Printf("White: %s\n", g.WhitePlayer)
	if g.BlackPlayer != "" {
		fmt.Printf("Black: %s\n", g.BlackPlayer)
	} else {
		fmt.Println("Black: (open seat)")
	}
	if g.Result != "" {
		fmt.Printf("Result: %s\n", g.Result)
	}
	fmt.Printf("Moves (%d): %s\n", g.MoveCount, g.Moves)
	fmt.Printf("To move: %s\n", g.SideToMove)
}

func (o *Output) printGameList(l GameList) {
	if len(l.Games) == 0 {
		fmt.Println("No games")
		return
	}
	for _, g := range l.Games {
		opponent := g.BlackPlayer
		if opponent == "" {
			opponent = "(open seat)"
		}
		fmt.Printf("%s  %s  %s vs %s  %d moves\n",
			g.ID, g.Status, g.WhitePlayer, opponent, g.MoveCount)
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Printf("Status: %s\n", h.Status)
}
