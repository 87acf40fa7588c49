// Package reduce down-samples time series before they are charted.
package reduce

import (
	"math"

	"github.com/pkg/errors"
	"github.com/san-kum/labplay/internal/sample"
	"github.com/shopspring/decimal"
)

// ErrNoPositiveStep indicates a series without any strictly positive timestamp,
// so no native step can be derived from it.
var ErrNoPositiveStep = errors.New("reduce: no strictly positive timestamp")

// Threshold is the finest time step charted without coarsening.
var Threshold = decimal.New(1, -1)

// Result is a possibly shortened series and the step between its samples.
type Result[T any] struct {
	Samples []T
	Step    decimal.Decimal
	Every   int
}

// NativeStep returns the first strictly positive timestamp. Unparseable
// timestamps are ignored.
func NativeStep[T sample.Record](samples []T) (decimal.Decimal, error) {
	for _, s := range samples {
		t, err := sample.ParseTime(s.TimeText())
		if err != nil {
			continue
		}
		if t.IsPositive() {
			return t, nil
		}
	}
	return decimal.Zero, ErrNoPositiveStep
}

// ForGraph keeps the input unchanged when its native step is at least
// Threshold. Otherwise n is the smallest count of native steps whose sum
// reaches the threshold, every n-th sample is kept and the sum becomes the
// step. Every never exceeds len(samples).
func ForGraph[T sample.Record](samples []T) (Result[T], error) {
	step, err := NativeStep(samples)
	if err != nil {
		return Result[T]{}, err
	}
	if step.GreaterThanOrEqual(Threshold) {
		return Result[T]{Samples: samples, Step: step, Every: 1}, nil
	}

	// Div rounds, so settle the quotient exactly against the products.
	one := decimal.NewFromInt(1)
	q := Threshold.Div(step).Ceil()
	if step.Mul(q).LessThan(Threshold) {
		q = q.Add(one)
	}
	if q.GreaterThan(one) && step.Mul(q.Sub(one)).GreaterThanOrEqual(Threshold) {
		q = q.Sub(one)
	}
	acc := step.Mul(q)

	// past the end only the first sample is kept, whatever n is
	n := max(len(samples), 1)
	if q.LessThan(decimal.NewFromInt(int64(n))) {
		n = int(q.IntPart())
	}

	reduced := make([]T, 0, len(samples)/n+1)
	for i, s := range samples {
		if i%n == 0 {
			reduced = append(reduced, s)
		}
	}
	return Result[T]{Samples: reduced, Step: acc, Every: n}, nil
}

// Split partitions items into round(span/interval) consecutive batches of
// equal size (the last may be shorter). The batch count is clamped to
// [1, len(items)].
func Split[T any](items []T, span, interval decimal.Decimal) [][]T {
	if len(items) == 0 {
		return nil
	}
	n := 1
	if interval.IsPositive() {
		n = int(span.Div(interval).Round(0).IntPart())
	}
	if n < 1 {
		n = 1
	}
	if n > len(items) {
		n = len(items)
	}

	size := int(math.Ceil(float64(len(items)) / float64(n)))
	batches := make([][]T, 0, n)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[start:end])
	}
	return batches
}
