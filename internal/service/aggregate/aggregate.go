// Package aggregate reduces ordered 1-minute bars into coarser
// timeframe candles. All operations are pure; callers own locking.
package aggregate

import (
	"ChartReplay/internal/domain/models"
	domrepo "ChartReplay/internal/domain/repository"
)

// Range groups ordered 1-minute bars by timeframe bucket and reduces
// each group to one candle: open from the first bar, close from the
// last, extremes and summed volume across the group. Empty buckets are
// never synthesized. Because grouping keys on the bucket start alone,
// the result is identical whether a range is reduced whole or as
// sub-ranges split at bucket boundaries.
func Range(bars []models.Bar, tf domrepo.Timeframe) []models.Bar {
	if len(bars) == 0 {
		return nil
	}

	out := make([]models.Bar, 0, len(bars)/int(tf.BucketSeconds()/60)+1)
	cur := models.Bar{OpenTime: -1}

	for _, b := range bars {
		bucket := tf.BucketStart(b.OpenTime)
		if bucket != cur.OpenTime {
			if cur.OpenTime >= 0 {
				out = append(out, cur)
			}
			cur = models.Bar{
				OpenTime: bucket,
				Open:     b.Open,
				High:     b.High,
				Low:      b.Low,
				Close:    b.Close,
				Volume:   b.Volume,
			}
			continue
		}
		if b.High > cur.High {
			cur.High = b.High
		}
		if b.Low < cur.Low {
			cur.Low = b.Low
		}
		cur.Close = b.Close
		cur.Volume += b.Volume
	}
	if cur.OpenTime >= 0 {
		out = append(out, cur)
	}
	return out
}

// FoldMinute folds one 1-minute bar into an in-progress candle for tf.
// When the incomplete candle is nil or its bucket no longer contains
// the minute, a fresh bucket starts from the minute and the previous
// candle is returned as closed. isNowComplete is true exactly when the
// minute is the last one of its bucket.
func FoldMinute(incomplete *models.Bar, minute models.Bar, tf domrepo.Timeframe) (closed *models.Bar, updated models.Bar, isNowComplete bool) {
	bucket := tf.BucketStart(minute.OpenTime)

	if incomplete == nil || incomplete.OpenTime != bucket {
		closed = incomplete
		updated = models.Bar{
			OpenTime: bucket,
			Open:     minute.Open,
			High:     minute.High,
			Low:      minute.Low,
			Close:    minute.Close,
			Volume:   minute.Volume,
		}
		return closed, updated, tf.LastMinute(minute.OpenTime)
	}

	updated = *incomplete
	if minute.High > updated.High {
		updated.High = minute.High
	}
	if minute.Low < updated.Low {
		updated.Low = minute.Low
	}
	updated.Close = minute.Close
	updated.Volume += minute.Volume
	return nil, updated, tf.LastMinute(minute.OpenTime)
}
