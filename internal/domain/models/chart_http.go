package models

// Requests for chart HTTP endpoints. Defined in domain for consistency and reuse.

type LoadInitialRequest struct {
	TF           string `query:"tf" json:"tf" default:"1m" validate:"oneof=1m 2m 3m 5m 15m 30m 1h 4h"`
	VisibleCount int    `query:"count" json:"count" default:"200" validate:"gte=1,lte=5000"`
}

type GetRangeRequest struct {
	TF       string `query:"tf" json:"tf" default:"1m" validate:"oneof=1m 2m 3m 5m 15m 30m 1h 4h"`
	From     int64  `query:"from" json:"from" validate:"gte=0"`
	To       int64  `query:"to" json:"to" validate:"gte=0"`
	MaxCount int    `query:"max" json:"max" default:"1000" validate:"gte=1,lte=10000"`
}

type GoToDateRequest struct {
	Date         string `query:"date" json:"date" validate:"required,datetime=2006-01-02"`
	VisibleCount int    `query:"count" json:"count" default:"200" validate:"gte=1,lte=5000"`
}

type SkipForwardRequest struct {
	TF string `query:"tf" json:"tf" default:"1m" validate:"oneof=1m 2m 3m 5m 15m 30m 1h 4h"`
}

type SetSpeedRequest struct {
	Speed float64 `query:"speed" json:"speed" validate:"required,gt=0"`
}

// SkipOutcome wraps a step result; EndOfData is set when the replay ran
// out of bars instead.
type SkipOutcome struct {
	Step      *StepResult `json:"step,omitempty"`
	EndOfData bool        `json:"end_of_data,omitempty"`
}

// SessionState is the read-only snapshot exposed to the UI.
type SessionState struct {
	VirtualTime     int64   `json:"virtual_time"`
	ActiveTimeframe string  `json:"active_timeframe"`
	Playing         bool    `json:"playing"`
	Speed           float64 `json:"speed"`
	CacheHits       uint64  `json:"cache_hits"`
	CacheMisses     uint64  `json:"cache_misses"`
}
