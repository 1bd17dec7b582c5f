package model

// Version constants for the persisted state layout and the application.
const (
	// StateVersion is the persisted AppState layout version. Anything lower
	// (or missing) is treated as the legacy flat shape and migrated.
	StateVersion = 2

	// AppVersion is the givemewater release this core belongs to.
	AppVersion = "v0.21.0"
)
