package realtime

import (
	"sync"

	"github.com/jmallard/chessrelay/internal/model"
)

// Role is a participant's capacity within a live session
type Role string

const (
	RoleWhite    Role = "white"
	RoleBlack    Role = "black"
	RoleObserver Role = "observer"
)

// SessionState is the live roster for one game: at most one player per
// seat plus any number of observers. A player id never holds a seat and
// observer membership at the same time.
type SessionState struct {
	White     model.PlayerID
	Black     model.PlayerID
	Observers map[model.PlayerID]bool
}

// Seat is a registry listing of one seat a player holds
type Seat struct {
	GameID model.GameID
	Side   model.Side
}

// Registry tracks the live sessions this process is coordinating. It is
// an in-memory view over connected participants, distinct from the
// persisted game records.
type Registry struct {
	mu       sync.RWMutex
	sessions map[model.GameID]*SessionState
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[model.GameID]*SessionState),
	}
}

// getOrCreate returns the session entry, seeding seats from the
// persisted record on first sight. Callers must hold r.mu.
func (r *Registry) getOrCreate(id model.GameID, white, black model.PlayerID) *SessionState {
	sess, ok := r.sessions[id]
	if !ok {
		sess = &SessionState{
			White:     white,
			Black:     black,
			Observers: make(map[model.PlayerID]bool),
		}
		r.sessions[id] = sess
	}
	return sess
}

// AssignSide seats a player, seeding the session from the persisted
// record if it is not yet live. Seating evicts any observer membership
// the player held in the same session.
func (r *Registry) AssignSide(id model.GameID, white, black model.PlayerID, playerID model.PlayerID, side model.Side) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess := r.getOrCreate(id, white, black)
	if side == model.SideWhite {
		sess.White = playerID
	} else {
		sess.Black = playerID
	}
	delete(sess.Observers, playerID)
}

// AddObserver records an observer. Seated players are left alone so a
// player never holds two roles in one session.
func (r *Registry) AddObserver(id model.GameID, white, black model.PlayerID, playerID model.PlayerID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess := r.getOrCreate(id, white, black)
	if sess.White == playerID || sess.Black == playerID {
		return
	}
	sess.Observers[playerID] = true
}

// RemoveObserver drops an observer membership. Unknown sessions and
// non-members are a no-op.
func (r *Registry) RemoveObserver(id model.GameID, playerID model.PlayerID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sess, ok := r.sessions[id]; ok {
		delete(sess.Observers, playerID)
	}
}

// Remove discards a session's live state entirely
func (r *Registry) Remove(id model.GameID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// SeatsOf lists every live session where the player holds a seat
func (r *Registry) SeatsOf(playerID model.PlayerID) []Seat {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var seats []Seat
	for id, sess := range r.sessions {
		switch playerID {
		case sess.White:
			seats = append(seats, Seat{GameID: id, Side: model.SideWhite})
		case sess.Black:
			seats = append(seats, Seat{GameID: id, Side: model.SideBlack})
		}
	}
	return seats
}

// ObservedBy lists every live session the player is observing
func (r *Registry) ObservedBy(playerID model.PlayerID) []model.GameID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []model.GameID
	for id, sess := range r.sessions {
		if sess.Observers[playerID] {
			ids = append(ids, id)
		}
	}
	return ids
}

// Snapshot returns a copy of a session's roster, or nil if it is not live
func (r *Registry) Snapshot(id model.GameID) *SessionState {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.sessions[id]
	if !ok {
		return nil
	}
	observers := make(map[model.PlayerID]bool, len(sess.Observers))
	for pid := range sess.Observers {
		observers[pid] = true
	}
	return &SessionState{
		White:     sess.White,
		Black:     sess.Black,
		Observers: observers,
	}
}
