package repository

import "errors"

// Engine error taxonomy. "No data" conditions are ordinary results, not
// failures; these sentinels cover the cases callers must branch on.
var (
	ErrNoData           = errors.New("no data in requested range")
	ErrNotLoaded        = errors.New("series not loaded")
	ErrInvalidTimeframe = errors.New("unrecognized timeframe")
	ErrEndOfReplay      = errors.New("no more data to step through")
)
