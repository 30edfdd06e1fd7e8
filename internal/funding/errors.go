package funding

import "errors"

// ErrNoData is returned when a requested window contains no samples for a
// symbol. Callers treat it as "exclude from output", not as a failure.
var ErrNoData = errors.New("no funding data in window")
