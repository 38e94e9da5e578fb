package services

import "errors"

var (
	// ErrAlreadySpun — the fortune spin for today was already consumed.
	ErrAlreadySpun = errors.New("already spun today")
	// ErrAlreadyVerified — today's prediction was already confirmed; points
	// are granted exactly once.
	ErrAlreadyVerified = errors.New("prediction already verified")
	// ErrInvalidCode — the submitted verification code does not match the
	// issued one.
	ErrInvalidCode = errors.New("invalid verification code")
)
