package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/jmallard/chessrelay/internal/api/handler"
	"github.com/jmallard/chessrelay/internal/api/middleware"
	"github.com/jmallard/chessrelay/internal/realtime"
	"github.com/jmallard/chessrelay/internal/services/auth"
	"github.com/jmallard/chessrelay/internal/services/game"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger      *slog.Logger
	AuthService *auth.Service
	GameService *game.Service
	Hub         *realtime.Hub
	Coordinator *realtime.Coordinator
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	playerHandler := handler.NewPlayerHandler(cfg.AuthService, cfg.GameService)
	gameHandler := handler.NewGameHandler(cfg.GameService)

	authMiddleware := middleware.Auth(cfg.AuthService)
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// Player routes (no auth required for registering/logging in)
	api.HandleFunc("/players/register", playerHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/players/login", playerHandler.Login).Methods(http.MethodPost)
	api.HandleFunc("/players/leaderboard", playerHandler.Leaderboard).Methods(http.MethodGet)

	// Protected player routes
	playerProtected := api.PathPrefix("/players").Subrouter()
	playerProtected.Use(authMiddleware)
	playerProtected.HandleFunc("/me", playerHandler.GetMe).Methods(http.MethodGet)
	playerProtected.HandleFunc("/me/stats", playerHandler.GetMyStats).Methods(http.MethodGet)

	// Game routes
	games := api.PathPrefix("/games").Subrouter()
	games.Use(authMiddleware)
	games.HandleFunc("", gameHandler.Create).Methods(http.MethodPost)
	games.HandleFunc("/available", gameHandler.ListAvailable).Methods(http.MethodGet)
	games.HandleFunc("/mine", gameHandler.ListMine).Methods(http.MethodGet)
	games.HandleFunc("/{game_id}", gameHandler.Get).Methods(http.MethodGet)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	// Realtime endpoint on the root router: the upgrade hijacks the
	// connection, which the logging response wrapper cannot carry, and
	// identity is established in-band rather than by middleware
	r.HandleFunc("/ws", cfg.Hub.ServeWS(cfg.Coordinator, cfg.AuthService)).Methods(http.MethodGet)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
