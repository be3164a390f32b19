package model

import "time"

// PlayerID uniquely identifies a player across the system
type PlayerID string

// InitialRating is the rating assigned to every new player
const InitialRating = 1200

// Player represents a registered participant
type Player struct {
	ID        PlayerID
	Username  string
	Email     string
	Wins      int
	Losses    int
	Draws     int
	Rating    int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TotalGames returns the number of completed games this player has recorded
func (p *Player) TotalGames() int {
	return p.Wins + p.Losses + p.Draws
}

// Credentials holds a player's authentication data
// Stored separately so the password hash never travels with the player record
type Credentials struct {
	PlayerID     PlayerID
	Username     string // login username (immutable)
	PasswordHash string // bcrypt hash
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// StatsResult is the per-player outcome of a finished game,
// used to select which stats delta to apply
type StatsResult string

const (
	StatsWin  StatsResult = "win"
	StatsLoss StatsResult = "loss"
	StatsDraw StatsResult = "draw"
)

// RatingDelta returns the rating adjustment for a result
func (r StatsResult) RatingDelta() int {
	switch r {
	case StatsWin:
		return 25
	case StatsLoss:
		return -15
	case StatsDraw:
		return 5
	default:
		return 0
	}
}

// LeaderboardEntry is a player's standing on the leaderboard
type LeaderboardEntry struct {
	PlayerID   PlayerID
	Username   string
	Wins       int
	Losses     int
	Draws      int
	Rating     int
	TotalGames int
}
