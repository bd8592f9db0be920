package app

import "github.com/dkeye/Focus/internal/domain"

// ReservationResult codes returned by a reservation backend.
type ReservationResult int

const (
	ReservationOK ReservationResult = iota + 1
	ReservationNotAllowed
	ReservationConflict
	ReservationInternalError
)

// ReservationSystem verifies that a user may create a room before a
// conference is brought up, and owns the decision of when a reserved
// conference expires. No implementation lives in this module.
type ReservationSystem interface {
	// CreateConference validates the reservation for the room on behalf
	// of its owner. The string carries an error message to show the
	// user when the result is not ReservationOK.
	CreateConference(owner domain.JID, room domain.RoomName) (ReservationResult, string)
}
