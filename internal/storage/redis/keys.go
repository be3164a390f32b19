package redis

import (
	"fmt"

	"github.com/jmallard/chessrelay/internal/model"
)

// Key prefix for all chessrelay data
const keyPrefix = "chessrelay"

// playerKey returns the Redis key for a Player
func playerKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:player:%s", keyPrefix, id)
}

// credentialsKey returns the Redis key for a player's Credentials
func credentialsKey(playerID model.PlayerID) string {
	return fmt.Sprintf("%s:credentials:%s", keyPrefix, playerID)
}

// usernameIndexKey returns the Redis key for the username -> player_id index
func usernameIndexKey(username string) string {
	return fmt.Sprintf("%s:idx:username:%s", keyPrefix, username)
}

// gameKey returns the Redis key for a Game
func gameKey(id model.GameID) string {
	return fmt.Sprintf("%s:game:%s", keyPrefix, id)
}

// availableGamesKey returns the Redis key for the SET of waiting game ids
func availableGamesKey() string {
	return fmt.Sprintf("%s:idx:available_games", keyPrefix)
}

// playerGamesKey returns the Redis key for the SET of a player's game ids
func playerGamesKey(playerID model.PlayerID) string {
	return fmt.Sprintf("%s:idx:player_games:%s", keyPrefix, playerID)
}

// ratingIndexKey returns the Redis key for the rating ZSET backing the leaderboard
func ratingIndexKey() string {
	return fmt.Sprintf("%s:idx:rating", keyPrefix)
}
