package engine_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/meridian/tour-office/engine"
)

func d(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

// =============================================================================
// BUCKET CLASSIFICATION
// =============================================================================

func TestClassifyDays_Boundaries(t *testing.T) {
	tests := []struct {
		days int
		want engine.Bucket
	}{
		{0, engine.BucketCurrent},
		{10, engine.BucketCurrent},
		{14, engine.BucketCurrent},
		{15, engine.Bucket30},
		{20, engine.Bucket30},
		{30, engine.Bucket30},
		{31, engine.Bucket60},
		{60, engine.Bucket60},
		{61, engine.Bucket90Plus}, // 90+ bucket opens at 61; label is historical
		{90, engine.Bucket90Plus},
		{365, engine.Bucket90Plus},
		{-5, engine.BucketCurrent}, // future-dated
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, engine.ClassifyDays(tt.days), "days=%d", tt.days)
	}
}

func TestClassifyDays_TotalPartition(t *testing.T) {
	// Every non-negative day count maps to exactly one bucket.
	for days := 0; days <= 400; days++ {
		got := engine.ClassifyDays(days)
		count := 0
		for _, b := range engine.Buckets() {
			if b == got {
				count++
			}
		}
		assert.Equal(t, 1, count, "days=%d classified into %d buckets", days, count)
	}
}

func TestClassify_FromDates(t *testing.T) {
	ref := day(2024, time.June, 30)

	// 20 days outstanding -> 15-30 bucket, overdue
	assert.Equal(t, engine.Bucket30, engine.Classify(ref, day(2024, time.June, 10)))
	assert.True(t, engine.IsOverdue(engine.DaysBetween(day(2024, time.June, 10), ref)))

	// 10 days outstanding -> current, not overdue
	assert.Equal(t, engine.BucketCurrent, engine.Classify(ref, day(2024, time.June, 20)))
	assert.False(t, engine.IsOverdue(engine.DaysBetween(day(2024, time.June, 20), ref)))
}

func TestClassify_IgnoresTimeOfDay(t *testing.T) {
	ref := time.Date(2024, time.June, 30, 1, 0, 0, 0, time.UTC)
	tx := time.Date(2024, time.June, 15, 23, 0, 0, 0, time.UTC)

	// 15 calendar days regardless of clock times
	assert.Equal(t, engine.Bucket30, engine.Classify(ref, tx))
}

func TestBucketLabels(t *testing.T) {
	assert.Equal(t, "Current", engine.BucketCurrent.Label())
	assert.Equal(t, "15-30 Days", engine.Bucket30.Label())
	assert.Equal(t, "31-60 Days", engine.Bucket60.Label())
	assert.Equal(t, "90+ Days", engine.Bucket90Plus.Label())
}

// =============================================================================
// AGING TOTALS
// =============================================================================

func TestAgingTotals_SumEqualsGrandTotal(t *testing.T) {
	var totals engine.AgingTotals
	amounts := map[engine.Bucket][]float64{
		engine.BucketCurrent: {100.10, 20.05},
		engine.Bucket30:      {50},
		engine.Bucket60:      {75.25},
		engine.Bucket90Plus:  {10, 0.60},
	}

	grand := decimal.Zero
	for b, vals := range amounts {
		for _, v := range vals {
			totals.Add(b, d(v))
			grand = grand.Add(d(v))
		}
	}

	assert.True(t, totals.Total().Equal(grand),
		"bucket sum %s != grand total %s", totals.Total(), grand)
	assert.True(t, totals.Overdue().Equal(d(135.85)))
	assert.True(t, totals.Get(engine.Bucket60).Equal(d(75.25)))
}

func TestAgingTotals_ZeroValueReady(t *testing.T) {
	var totals engine.AgingTotals
	assert.True(t, totals.Total().IsZero())
	assert.True(t, totals.Overdue().IsZero())
}
