package response

import (
	"time"

	"github.com/jmallard/chessrelay/internal/model"
	"github.com/jmallard/chessrelay/internal/services/auth"
)

// Player represents a player in API responses
type Player struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Rating   int    `json:"rating"`
}

// PlayerFromModel converts a model.Player to a response Player
func PlayerFromModel(p *model.Player) Player {
	return Player{
		ID:       string(p.ID),
		Username: p.Username,
		Email:    p.Email,
		Rating:   p.Rating,
	}
}

// AuthResponse is the response for authentication endpoints
type AuthResponse struct {
	Player       Player `json:"player"`
	SessionToken string `json:"session_token"`
}

// AuthResponseFromSession creates an AuthResponse from a session
func AuthResponseFromSession(s *auth.Session) AuthResponse {
	return AuthResponse{
		Player:       PlayerFromModel(&s.Player),
		SessionToken: s.Token,
	}
}

// Stats is a player's record and rating
type Stats struct {
	PlayerID   string `json:"player_id"`
	Username   string `json:"username"`
	Wins       int    `json:"wins"`
	Losses     int    `json:"losses"`
	Draws      int    `json:"draws"`
	Rating     int    `json:"rating"`
	TotalGames int    `json:"total_games"`
}

// StatsFromModel converts a model.Player to a response Stats
func StatsFromModel(p *model.Player) Stats {
	return Stats{
		PlayerID:   string(p.ID),
		Username:   p.Username,
		Wins:       p.Wins,
		Losses:     p.Losses,
		Draws:      p.Draws,
		Rating:     p.Rating,
		TotalGames: p.TotalGames(),
	}
}

// LeaderboardEntry is one row of the leaderboard
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

// LeaderboardFromModel converts leaderboard entries, assigning ranks
// from their order
func LeaderboardFromModel(entries []model.LeaderboardEntry) []LeaderboardEntry {
	out := make([]LeaderboardEntry, len(entries))
	for i, e := range entries {
		out[i] = LeaderboardEntry{
			Rank:       i + 1,
			PlayerID:   string(e.PlayerID),
			Username:   e.Username,
			Wins:       e.Wins,
			Losses:     e.Losses,
			Draws:      e.Draws,
			Rating:     e.Rating,
			TotalGames: e.TotalGames,
		}
	}
	return out
}

// Game represents a game in API responses
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
	UpdatedAt   time.Time `json:"updated_at"`
}

// GameFromModel converts a model.Game to a response Game
func GameFromModel(g *model.Game) Game {
	return Game{
		ID:          string(g.ID),
		WhitePlayer: string(g.WhitePlayer),
		BlackPlayer: string(g.BlackPlayer),
		Status:      string(g.Status),
		Result:      string(g.Result),
		Moves:       g.Moves,
		MoveCount:   model.MoveCount(g.Moves),
		SideToMove:  string(model.SideToMove(g.Moves)),
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
}

// GameList wraps a list of games
type GameList struct {
	Games []Game `json:"games"`
}

// GameListFromModel converts a slice of games
func GameListFromModel(games []*model.Game) GameList {
	out := make([]Game, len(games))
	for i, g := range games {
		out[i] = GameFromModel(g)
	}
	return GameList{Games: out}
}
