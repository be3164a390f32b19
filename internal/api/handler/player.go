package handler

import (
	"encoding/json"
	"net/http"

	"github.com/jmallard/chessrelay/internal/api/middleware"
	"github.com/jmallard/chessrelay/internal/api/request"
	"github.com/jmallard/chessrelay/internal/api/response"
	"github.com/jmallard/chessrelay/internal/services/auth"
	"github.com/jmallard/chessrelay/internal/services/game"
)

// PlayerHandler handles player-related endpoints
type PlayerHandler struct {
	authService *auth.Service
	gameService *game.Service
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(authService *auth.Service, gameService *game.Service) *PlayerHandler {
	return &PlayerHandler{
		authService: authService,
		gameService: gameService,
	}
}

// Register handles POST /api/v1/players/register
func (h *PlayerHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if req.Username == "" {
		WriteError(w, NewInvalidRequestError("username is required"))
		return
	}
	if req.Password == "" {
		WriteError(w, NewInvalidRequestError("password is required"))
		return
	}

	session, err := h.authService.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.AuthResponseFromSession(session))
}

// Login handles POST /api/v1/players/login
func (h *PlayerHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if req.Username == "" {
		WriteError(w, NewInvalidRequestError("username is required"))
		return
	}
	if req.Password == "" {
		WriteError(w, NewInvalidRequestError("password is required"))
		return
	}

	session, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.AuthResponseFromSession(session))
}

// GetMe handles GET /api/v1/players/me
func (h *PlayerHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())
	response.JSON(w, http.StatusOK, response.PlayerFromModel(player))
}

// GetMyStats handles GET /api/v1/players/me/stats
func (h *PlayerHandler) GetMyStats(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	// Re-read the record so stats reflect games finished after login
	current, err := h.gameService.PlayerStats(r.Context(), player.ID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.StatsFromModel(current))
}

// Leaderboard handles GET /api/v1/players/leaderboard
func (h *PlayerHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.gameService.Leaderboard(r.Context(), queryLimit(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.LeaderboardFromModel(entries))
}
