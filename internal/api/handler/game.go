package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/jmallard/chessrelay/internal/api/middleware"
	"github.com/jmallard/chessrelay/internal/api/response"
	"github.com/jmallard/chessrelay/internal/model"
	"github.com/jmallard/chessrelay/internal/services/game"
)

// GameHandler handles game-related endpoints
type GameHandler struct {
	gameService *game.Service
}

// NewGameHandler creates a new game handler
func NewGameHandler(gameService *game.Service) *GameHandler {
	return &GameHandler{
		gameService: gameService,
	}
}

// Create handles POST /api/v1/games
// The creator takes the white seat; the game waits for an opponent to
// claim black over the realtime connection.
func (h *GameHandler) Create(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	created, err := h.gameService.CreateGame(r.Context(), player.ID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.GameFromModel(created))
}

// Get handles GET /api/v1/games/{game_id}
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	gameID := model.GameID(mux.Vars(r)["game_id"])

	found, err := h.gameService.GetGame(r.Context(), gameID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.GameFromModel(found))
}

// ListAvailable handles GET /api/v1/games/available
func (h *GameHandler) ListAvailable(w http.ResponseWriter, r *http.Request) {
	games, err := h.gameService.AvailableGames(r.Context(), queryLimit(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.GameListFromModel(games))
}

// ListMine handles GET /api/v1/games/mine
func (h *GameHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	games, err := h.gameService.PlayerGames(r.Context(), player.ID, queryLimit(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.GameListFromModel(games))
}

// queryLimit parses an optional ?limit= parameter; zero means the
// service default
func queryLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}
