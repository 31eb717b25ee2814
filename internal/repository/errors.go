package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrDuplicate indicates a unique constraint rejected the write
	// (e.g. a booking reference collision).
	ErrDuplicate = errors.New("repository: duplicate")
	// ErrInsufficientSeats indicates the conditional seat decrement matched no
	// row because the requested count exceeds current availability.
	ErrInsufficientSeats = errors.New("repository: insufficient seats")
	// ErrAlreadyCancelled indicates the conditional status flip matched no row
	// because the booking is already cancelled.
	ErrAlreadyCancelled = errors.New("repository: booking already cancelled")
)
