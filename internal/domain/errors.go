package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned when an exam session does not exist.
	ErrSessionNotFound = errors.New("exam session not found")
	// ErrSessionEnded is returned when acting on a session that has already
	// been submitted or has expired.
	ErrSessionEnded = errors.New("exam session already ended")
	// ErrQuestionNotFound indicates a submitted question ID is not part of
	// the session's paper.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrRoomNotFound is returned when a battle room has not been created.
	ErrRoomNotFound = errors.New("battle room not found")
	// ErrParticipantNotFound is returned when a user acts before joining a room.
	ErrParticipantNotFound = errors.New("participant not found in room")
	// ErrAlreadyAnswered rejects a second answer for the same battle question.
	ErrAlreadyAnswered = errors.New("question already answered")
	// ErrResultNotFound indicates an unknown result identifier.
	ErrResultNotFound = errors.New("result not found")
	// ErrCorrectOptionMissing flags a question whose stored correct-answer
	// text matches none of its options. Treated as a data error, never
	// silently coerced.
	ErrCorrectOptionMissing = errors.New("correct option not present among question options")
)

// InventoryError reports that the question bank cannot satisfy the requested
// paper size. Callers must surface the shortfall rather than serve a short
// paper as if it were complete.
type InventoryError struct {
	Requested int
	Available int
}

func (e *InventoryError) Error() string {
	return fmt.Sprintf("insufficient question inventory: requested %d, available %d", e.Requested, e.Available)
}

// IsInsufficientInventory reports whether err carries an InventoryError and
// returns it when so.
func IsInsufficientInventory(err error) (*InventoryError, bool) {
	var ie *InventoryError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}
