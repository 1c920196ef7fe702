package detective

import "fmt"

var (
	// ErrNotLive is returned for actions that require the LIVE phase.
	ErrNotLive = fmt.Errorf("cycle is not live")
	// ErrNotRegistration is returned when registering outside the window.
	ErrNotRegistration = fmt.Errorf("registration is closed")
	// ErrCapacityExceeded is returned when the registry is full.
	ErrCapacityExceeded = fmt.Errorf("registry full")
	// ErrUnknownPlayer is returned for fids that never registered this cycle.
	ErrUnknownPlayer = fmt.Errorf("unknown player")
	// ErrAlreadyMatched is returned when a fid's one match this cycle is spent.
	ErrAlreadyMatched = fmt.Errorf("already matched this cycle")
	// ErrMatchNotFound is returned for referential misses on match ids.
	ErrMatchNotFound = fmt.Errorf("match not found")
	// ErrMatchEnded is returned for writes after a match expired or finalized.
	ErrMatchEnded = fmt.Errorf("match ended")
)
