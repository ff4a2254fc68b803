package repository

import "time"

// Timeframe represents candle resolution buckets.
type Timeframe string

const (
	TF1m  Timeframe = "1m"
	TF2m  Timeframe = "2m"
	TF3m  Timeframe = "3m"
	TF5m  Timeframe = "5m"
	TF15m Timeframe = "15m"
	TF30m Timeframe = "30m"
	TF1h  Timeframe = "1h"
	TF4h  Timeframe = "4h"
)

// CacheTier decides which cache tier a timeframe's windows live in.
type CacheTier int

const (
	TierHot CacheTier = iota
	TierWarm
)

type tfSpec struct {
	minutes int
	tier    CacheTier
}

// Closed table: every supported timeframe maps to a bucket width and a
// cache tier. Small, frequently-switched timeframes are hot.
var tfSpecs = map[Timeframe]tfSpec{
	TF1m:  {1, TierHot},
	TF2m:  {2, TierHot},
	TF3m:  {3, TierHot},
	TF5m:  {5, TierHot},
	TF15m: {15, TierWarm},
	TF30m: {30, TierWarm},
	TF1h:  {60, TierWarm},
	TF4h:  {240, TierWarm},
}

// AllTimeframes lists the supported timeframes in ascending bucket width.
var AllTimeframes = []Timeframe{TF1m, TF2m, TF3m, TF5m, TF15m, TF30m, TF1h, TF4h}

// IsValidTimeframe returns true if tf is a supported timeframe.
func IsValidTimeframe(tf Timeframe) bool {
	_, ok := tfSpecs[tf]
	return ok
}

// DefaultTimeframe returns the default timeframe.
func DefaultTimeframe() Timeframe { return TF1m }

// NormalizeTimeframe converts raw string to a valid timeframe (or default).
func NormalizeTimeframe(s string) Timeframe {
	if s == "" {
		return DefaultTimeframe()
	}
	tf := Timeframe(s)
	if IsValidTimeframe(tf) {
		return tf
	}
	return DefaultTimeframe()
}

// BucketSeconds returns the bucket width of tf in seconds.
func (tf Timeframe) BucketSeconds() int64 {
	return int64(tfSpecs[tf].minutes) * 60
}

// BucketDuration returns the bucket width of tf as a time.Duration.
func (tf Timeframe) BucketDuration() time.Duration {
	return time.Duration(tfSpecs[tf].minutes) * time.Minute
}

// Tier returns the cache tier assigned to tf.
func (tf Timeframe) Tier() CacheTier {
	return tfSpecs[tf].tier
}

// BucketStart aligns an epoch-seconds timestamp down to the start of
// the tf bucket containing it. Coarser buckets are exact unions of
// 1-minute buckets sharing the start instant, so aggregation can rely
// on this tiling.
func (tf Timeframe) BucketStart(ts int64) int64 {
	w := tf.BucketSeconds()
	return ts - ts%w
}

// LastMinute reports whether a 1-minute bar opening at ts is the final
// minute of its tf bucket.
func (tf Timeframe) LastMinute(ts int64) bool {
	return ts+60 == tf.BucketStart(ts)+tf.BucketSeconds()
}
