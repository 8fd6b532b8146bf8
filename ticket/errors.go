package ticket

import "errors"

var (
	// ErrDuplicateTicket: the requester already has an open ticket.
	ErrDuplicateTicket = errors.New("requester already has an open ticket")

	// ErrAlreadyClaimed: the ticket is claimed and cannot be reclaimed
	// while open.
	ErrAlreadyClaimed = errors.New("ticket already claimed")

	// ErrUnauthorized: the actor lacks the required capability.
	ErrUnauthorized = errors.New("actor not authorized")

	// ErrNotFound: no open ticket matches the channel.
	ErrNotFound = errors.New("ticket not found")

	// ErrInvalidCategory: the category is not in the recognized set.
	ErrInvalidCategory = errors.New("invalid ticket category")

	// ErrInvalidName: a channel name that sanitizes to nothing.
	ErrInvalidName = errors.New("invalid channel name")
)
