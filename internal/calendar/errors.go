package calendar

import "errors"

// Sentinel errors returned by calendar construction and queries. Callers
// match them with errors.Is; wrapped messages carry the offending input.
var (
	// ErrRange reports an inverted or otherwise invalid start/end bound.
	ErrRange = errors.New("calendar: invalid date range")

	// ErrInvalidSchedule reports a definition that resolves to an
	// internally inconsistent schedule for some session. Raised at build
	// time; fatal to that build.
	ErrInvalidSchedule = errors.New("calendar: invalid schedule")

	// ErrLookup reports an argument that was expected to be a session or
	// trading minute but is not.
	ErrLookup = errors.New("calendar: not a session")

	// ErrBoundary reports a navigation query that would need a session or
	// minute outside the constructed range. This is a limit of the built
	// range, not a statement about the exchange.
	ErrBoundary = errors.New("calendar: out of calendar bounds")
)
