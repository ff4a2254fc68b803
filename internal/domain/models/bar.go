package models

import (
	"math"
	"time"
)

// Bar represents one OHLCV sample for a fixed time bucket.
// OpenTime is epoch seconds aligned to the bucket start.
type Bar struct {
	OpenTime int64   `json:"open_time"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Volume   int64   `json:"volume"`
}

// Valid reports whether the bar satisfies the OHLC invariant
// (low <= min(open,close) <= max(open,close) <= high) with finite
// numbers and non-negative volume.
func (b Bar) Valid() bool {
	for _, v := range [4]float64{b.Open, b.High, b.Low, b.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	if b.Volume < 0 {
		return false
	}
	lo := math.Min(b.Open, b.Close)
	hi := math.Max(b.Open, b.Close)
	return b.Low <= lo && hi <= b.High
}

// Time returns the bar open time as time.Time in UTC.
func (b Bar) Time() time.Time {
	return time.Unix(b.OpenTime, 0).UTC()
}

// BarKind distinguishes closed candles from ones still accumulating.
type BarKind string

const (
	BarComplete   BarKind = "complete"
	BarIncomplete BarKind = "incomplete"
)

// BarWindow is the normalized result envelope every chart operation returns.
type BarWindow struct {
	Bars       []Bar  `json:"bars"`
	Timeframe  string `json:"timeframe"`
	RangeStart int64  `json:"range_start"`
	RangeEnd   int64  `json:"range_end"`
	Success    bool   `json:"success"`
	Reason     string `json:"reason,omitempty"`
	Dropped    int    `json:"dropped,omitempty"`
}

// StepResult is the outcome of a single replay step. Candle is the
// current bucket's candle; Closed additionally carries an earlier
// bucket's candle when a data gap closed it in the same step.
type StepResult struct {
	Candle    Bar     `json:"candle"`
	Kind      BarKind `json:"kind"`
	Closed    *Bar    `json:"closed,omitempty"`
	Timeframe string  `json:"timeframe"`
}
