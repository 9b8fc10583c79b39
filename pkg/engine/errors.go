package engine

import "errors"

var (
	// ErrIllegalMove is returned when an agent chooses a play outside the
	// legal set for the current roll.
	ErrIllegalMove = errors.New("illegal move")

	// ErrMalformedMove is returned when move text cannot be parsed.
	ErrMalformedMove = errors.New("malformed move")

	// ErrInvariant signals a board that breaks checker conservation or
	// point exclusivity. It indicates an engine bug.
	ErrInvariant = errors.New("board invariant violated")

	// ErrWrongPhase is returned when a game operation is called out of turn order.
	ErrWrongPhase = errors.New("operation not allowed in current phase")
)
