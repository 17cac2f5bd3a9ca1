// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// booking service and handlers to distinguish between different failure
// scenarios without string matching. For example, ErrCapacityExceeded
// signals that an occupancy increment would push an occurrence past the
// session's seat capacity, while ErrInvalidState signals a decrement on
// an already-empty occurrence.
package repository

import "errors"

// ErrSessionNotFound indicates that a class session was not located.
var ErrSessionNotFound = errors.New("session not found")

// ErrReservationNotFound indicates that a reservation was not located.
var ErrReservationNotFound = errors.New("reservation not found")

// ErrCapacityExceeded is returned by OccurrenceRepo.IncrementTx when
// the occurrence is already at the session's capacity. The guarded
// UPDATE makes this the authoritative capacity check: it is how a
// booking learns the capacity shrank between its pre-read and the
// increment, and it protects the counter against any path that skips
// the occurrence row lock.
var ErrCapacityExceeded = errors.New("occurrence capacity exceeded")

// ErrInvalidState is returned by OccurrenceRepo.DecrementTx when the
// occupied counter is already zero. Hitting it means a seat release was
// attempted for a seat that was never counted, which indicates a bug
// in the calling transaction rather than a user error.
var ErrInvalidState = errors.New("occupied counter already zero")
