package model

import "errors"

// Sentinel errors used across layers.
var (
	// ErrInvalidAmount rejects events whose raw or hydration amount is not a
	// finite number.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrUnknownDrink is returned when a drink id is not in the catalog.
	ErrUnknownDrink = errors.New("unknown drink")

	// ErrInvalidSettings wraps settings that fail schema validation.
	ErrInvalidSettings = errors.New("invalid settings")

	// ErrInvalidGoal rejects a non-positive daily goal.
	ErrInvalidGoal = errors.New("goal must be positive")
)
