package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jmallard/chessrelay/internal/model"
	"github.com/jmallard/chessrelay/internal/services/auth"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodePlayerNotFound     = "PLAYER_NOT_FOUND"
	CodeGameNotFound       = "GAME_NOT_FOUND"
	CodeNotAPlayer         = "NOT_A_PLAYER"
	CodeOutOfTurn          = "OUT_OF_TURN"
	CodeSlotTaken          = "SLOT_TAKEN"
	CodeGameFinished       = "GAME_FINISHED"
	CodeConflict           = "CONFLICT"
	CodeUsernameExists     = "USERNAME_EXISTS"
	CodeWeakPassword       = "WEAK_PASSWORD"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInternalError      = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	// Map model errors
	switch {
	case errors.Is(err, model.ErrPlayerNotFound):
		return &httpError{http.StatusNotFound, APIError{CodePlayerNotFound, "Player not found"}}
	case errors.Is(err, model.ErrGameNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeGameNotFound, "Game not found"}}
	case errors.Is(err, model.ErrNotAPlayer):
		return &httpError{http.StatusForbidden, APIError{CodeNotAPlayer, "You are not a player in this game"}}
	case errors.Is(err, model.ErrOutOfTurn):
		return &httpError{http.StatusForbidden, APIError{CodeOutOfTurn, "Not your turn"}}
	case errors.Is(err, model.ErrSlotTaken):
		return &httpError{http.StatusConflict, APIError{CodeSlotTaken, "Seat already taken"}}
	case errors.Is(err, model.ErrGameFinished):
		return &httpError{http.StatusConflict, APIError{CodeGameFinished, "Game is already finished"}}
	case errors.Is(err, model.ErrMoveConflict):
		return &httpError{http.StatusConflict, APIError{CodeConflict, "A concurrent update landed first"}}
	case errors.Is(err, model.ErrEmptyMove), errors.Is(err, model.ErrBadOutcome):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, err.Error()}}

	// Map auth errors
	case errors.Is(err, auth.ErrInvalidCredentials):
		return &httpError{http.StatusUnauthorized, APIError{CodeInvalidCredentials, "Invalid username or password"}}
	case errors.Is(err, auth.ErrInvalidSession), errors.Is(err, model.ErrNotAuthenticated):
		return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Invalid or expired session"}}
	case errors.Is(err, auth.ErrUsernameExists):
		return &httpError{http.StatusConflict, APIError{CodeUsernameExists, "Username already exists"}}
	case errors.Is(err, auth.ErrWeakPassword):
		return &httpError{http.StatusBadRequest, APIError{CodeWeakPassword, "Password is too short"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
