// Copyright 2025 samber.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// https://github.com/samber/ro/blob/main/licenses/LICENSE.apache.md
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ro

import (
	"context"
	"math"
	"math/big"

	"github.com/flowkit/ro/internal/constraints"
)

// maxPow10Chunk is the largest decimal exponent n for which 10^n fits in a
// float64 (IEEE-754). math.Pow10(308) == 1e308 is finite; math.Pow10(309)
// overflows to +Inf. Keeping the step <= 308 prevents creating +Inf/NaN from
// math.Pow10 before moving to big.Float arithmetic.
const maxPow10Chunk = 308

// maxPow10ChunkCount caps the number of 308-digit chunks processed when
// emulating arbitrary-precision ceil operations. 32 chunks (~9856 decimal
// digits) keep allocations bounded while covering far more precision than
// realistic callers need.
const maxPow10ChunkCount = 32

// aggregateSubscriber backs the aggregate operators below (Average, Count,
// Sum, Min, Max): all of them consume the whole source and emit exactly one
// value on completion, so they share one passthrough-subscription shape and
// differ only in onNext/finish. State (onNextFn's closure) is created fresh
// per subscription by the factory below, never shared across Subscribe calls.
type aggregateSubscriber[T, R any] struct {
	dest     Subscriber[R]
	onNextFn func(value T)
	finish   func(ctx context.Context, dest Subscriber[R])
	done     bool
}

func (s *aggregateSubscriber[T, R]) OnSubscribe(ctx context.Context, subscription Subscription) {
	s.dest.OnSubscribe(ctx, subscription)
}

func (s *aggregateSubscriber[T, R]) OnNext(ctx context.Context, value T) {
	if !s.done {
		s.onNextFn(value)
	}
}

func (s *aggregateSubscriber[T, R]) OnError(ctx context.Context, err error) {
	if !s.done {
		s.done = true
		s.dest.OnError(ctx, err)
	}
}

func (s *aggregateSubscriber[T, R]) OnComplete(ctx context.Context) {
	if !s.done {
		s.done = true
		s.finish(ctx, s.dest)
	}
}

// newAggregateOperator builds an Operator[T, R] from a per-subscription state
// factory: newState is invoked once per Subscribe call, returning the onNext
// and finish closures for that subscription's lifetime.
func newAggregateOperator[T, R any](newState func() (onNextFn func(value T), finish func(ctx context.Context, dest Subscriber[R]))) Operator[T, R] {
	return func(source Observable[T]) Observable[R] {
		return NewObservable(func(ctx context.Context, subscriber Subscriber[R]) Disposable {
			onNextFn, finish := newState()

			return source.SubscribeWithContext(ctx, &aggregateSubscriber[T, R]{
				dest:     subscriber,
				onNextFn: onNextFn,
				finish:   finish,
			})
		})
	}
}

// Average emits the arithmetic mean of every source value on completion. An
// empty source emits NaN.
func Average[T constraints.Numeric]() Operator[T, float64] {
	return newAggregateOperator[T, float64](func() (func(T), func(context.Context, Subscriber[float64])) {
		sum := 0.0
		count := int64(0)

		return func(value T) {
				sum += float64(value)
				count++
			}, func(ctx context.Context, dest Subscriber[float64]) {
				if count == 0 {
					dest.OnNext(ctx, math.NaN())
				} else {
					dest.OnNext(ctx, sum/float64(count))
				}

				dest.OnComplete(ctx)
			}
	})
}

// Count emits the number of values the source emitted, on completion.
func Count[T any]() Operator[T, int64] {
	return newAggregateOperator[T, int64](func() (func(T), func(context.Context, Subscriber[int64])) {
		count := int64(0)

		return func(value T) {
				count++
			}, func(ctx context.Context, dest Subscriber[int64]) {
				dest.OnNext(ctx, count)
				dest.OnComplete(ctx)
			}
	})
}

// Sum emits the sum of every source value on completion.
func Sum[T constraints.Numeric]() Operator[T, T] {
	return newAggregateOperator[T, T](func() (func(T), func(context.Context, Subscriber[T])) {
		var sum T

		return func(value T) {
				sum += value
			}, func(ctx context.Context, dest Subscriber[T]) {
				dest.OnNext(ctx, sum)
				dest.OnComplete(ctx)
			}
	})
}

// Min emits the smallest value the source emitted, on completion. An empty
// source completes without emitting.
func Min[T constraints.Numeric]() Operator[T, T] {
	return newAggregateOperator[T, T](func() (func(T), func(context.Context, Subscriber[T])) {
		var minVal T

		seen := false

		return func(value T) {
				if !seen || value < minVal {
					minVal = value
					seen = true
				}
			}, func(ctx context.Context, dest Subscriber[T]) {
				if seen {
					dest.OnNext(ctx, minVal)
				}

				dest.OnComplete(ctx)
			}
	})
}

// Max emits the largest value the source emitted, on completion. An empty
// source completes without emitting.
func Max[T constraints.Numeric]() Operator[T, T] {
	return newAggregateOperator[T, T](func() (func(T), func(context.Context, Subscriber[T])) {
		var maxVal T

		seen := false

		return func(value T) {
				if !seen || value > maxVal {
					maxVal = value
					seen = true
				}
			}, func(ctx context.Context, dest Subscriber[T]) {
				if seen {
					dest.OnNext(ctx, maxVal)
				}

				dest.OnComplete(ctx)
			}
	})
}

// Round maps every value to math.Round(value).
func Round() Operator[float64, float64] {
	return Map(math.Round)
}

// Abs maps every value to math.Abs(value).
func Abs() Operator[float64, float64] {
	return Map(math.Abs)
}

// Floor maps every value to math.Floor(value).
func Floor() Operator[float64, float64] {
	return Map(math.Floor)
}

// Trunc maps every value to math.Trunc(value).
func Trunc() Operator[float64, float64] {
	return Map(math.Trunc)
}

// Ceil maps every value to math.Ceil(value).
func Ceil() Operator[float64, float64] {
	return Map(math.Ceil)
}

// Clamp maps every value into the inclusive [lower, upper] range. Panics
// immediately (at pipeline construction, not per item) if lower > upper.
func Clamp[T constraints.Numeric](lower, upper T) Operator[T, T] {
	if lower > upper {
		panic(newProtocolError("Clamp: lower must be <= upper"))
	}

	return Map(func(value T) T {
		switch {
		case value < lower:
			return lower
		case value > upper:
			return upper
		default:
			return value
		}
	})
}

// CeilWithPrecision maps every value to its ceiling at the given decimal
// precision. Positive precisions apply the ceiling to that many digits to
// the right of the decimal point; negative precisions round up to powers of
// ten. Precisions whose 10^n would over/underflow float64 fall back to
// arbitrary-precision big.Float arithmetic instead of silently saturating.
func CeilWithPrecision(places int) Operator[float64, float64] {
	return Map(ceilFuncWithPrecision(places))
}

func ceilFuncWithPrecision(places int) func(float64) float64 {
	if places < 0 {
		if places == math.MinInt {
			return ceilInfiniteNegativePrecision
		}

		negPlaces := -places
		if negPlaces < 0 {
			return ceilInfiniteNegativePrecision
		}

		if negPlaces > maxPow10Chunk {
			return ceilLargeNegativePrecision(negPlaces)
		}
	}

	if places > maxPow10Chunk {
		return ceilLargePositivePrecision(places)
	}

	factor := math.Pow10(places)

	if factor == 0 {
		return math.Ceil
	}

	if places > 0 && math.IsInf(factor, 0) {
		return ceilLargePositivePrecision(places)
	}

	inverseFactor := 1 / factor
	if math.IsInf(inverseFactor, 0) {
		if places < 0 {
			negPlaces := -places
			if negPlaces < 0 {
				return ceilInfiniteNegativePrecision
			}

			return ceilLargeNegativePrecision(negPlaces)
		}

		return math.Ceil
	}

	var ceilWithBigFactor func(float64) float64

	var ceilWithSmallFactor func(float64) float64

	if places > 0 {
		ceilWithBigFactor = makeCeilWithBigFactor(factor)
	} else if places < 0 {
		ceilWithSmallFactor = makeCeilWithSmallFactor(factor)
	}

	return func(value float64) float64 {
		scaled := value * factor
		if math.IsInf(scaled, 0) {
			if ceilWithBigFactor != nil {
				return ceilWithBigFactor(value)
			}

			return math.Ceil(value)
		}

		if places < 0 && scaled == 0 && value > 0 && !math.IsNaN(value) && !math.IsInf(value, 0) {
			if ceilWithSmallFactor != nil {
				return ceilWithSmallFactor(value)
			}

			return math.Ceil(value)
		}

		ceiled := math.Ceil(scaled)
		result := ceiled * inverseFactor

		if math.IsInf(result, 0) || math.IsNaN(result) {
			if places < 0 && !math.IsNaN(value) && !math.IsInf(value, 0) && value > 0 {
				if ceilWithSmallFactor != nil {
					return ceilWithSmallFactor(value)
				}

				return math.Inf(1)
			}

			if ceilWithBigFactor != nil {
				return ceilWithBigFactor(value)
			}

			return math.Ceil(value)
		}

		return result
	}
}

func ceilInfiniteNegativePrecision(value float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return math.Ceil(value)
	}

	if value > 0 {
		return math.Inf(1)
	}

	return 0
}

func ceilLargePositivePrecision(places int) func(float64) float64 {
	if places >= math.MaxInt-(maxPow10Chunk-1) {
		return func(value float64) float64 { return value }
	}

	chunkCount := (places + maxPow10Chunk - 1) / maxPow10Chunk
	if chunkCount > maxPow10ChunkCount {
		return func(value float64) float64 { return value }
	}

	chunkFactors := make([]*big.Float, 0, chunkCount)

	for remaining := places; remaining > 0; {
		step := remaining
		if step > maxPow10Chunk {
			step = maxPow10Chunk
		}

		factor := math.Pow10(step)
		chunkFactors = append(chunkFactors, new(big.Float).SetPrec(256).SetFloat64(factor))
		remaining -= step
	}

	return func(value float64) float64 {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return math.Ceil(value)
		}

		scaled := new(big.Float).SetPrec(256).SetFloat64(value)
		for _, factor := range chunkFactors {
			scaled.Mul(scaled, factor)
		}

		ceiled := ceilBigFloat(scaled)

		for i := len(chunkFactors) - 1; i >= 0; i-- {
			ceiled.Quo(ceiled, chunkFactors[i])
		}

		result, _ := ceiled.Float64()
		if math.IsInf(result, 0) || math.IsNaN(result) {
			return math.Ceil(value)
		}

		return result
	}
}

func ceilLargeNegativePrecision(places int) func(float64) float64 {
	if places >= math.MaxInt-(maxPow10Chunk-1) {
		return ceilInfiniteNegativePrecision
	}

	chunkCount := (places + maxPow10Chunk - 1) / maxPow10Chunk
	if chunkCount > maxPow10ChunkCount {
		return ceilInfiniteNegativePrecision
	}

	chunkFactors := make([]*big.Float, 0, chunkCount)

	for remaining := places; remaining > 0; {
		step := remaining
		if step > maxPow10Chunk {
			step = maxPow10Chunk
		}

		factor := math.Pow10(step)
		chunkFactors = append(chunkFactors, new(big.Float).SetPrec(256).SetFloat64(factor))
		remaining -= step
	}

	return func(value float64) float64 {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return math.Ceil(value)
		}

		scaled := new(big.Float).SetPrec(256).SetFloat64(value)
		for _, factor := range chunkFactors {
			scaled.Quo(scaled, factor)
		}

		ceiled := ceilBigFloat(scaled)

		for i := len(chunkFactors) - 1; i >= 0; i-- {
			ceiled.Mul(ceiled, chunkFactors[i])
		}

		result, _ := ceiled.Float64()

		return result
	}
}

func ceilBigFloat(x *big.Float) *big.Float {
	prec := x.Prec()

	integer := new(big.Int)
	x.Int(integer)

	result := new(big.Float).SetPrec(prec).SetInt(integer)

	if x.Sign() > 0 {
		fractional := new(big.Float).SetPrec(prec)
		fractional.Sub(x, result)

		if fractional.Sign() > 0 {
			integer.Add(integer, big.NewInt(1))
			result.SetInt(integer)
		}
	}

	return result
}

func makeCeilWithBigFactor(factor float64) func(float64) float64 {
	bigFactor := new(big.Float).SetPrec(256).SetFloat64(factor)

	return func(value float64) float64 {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return math.Ceil(value)
		}

		scaled := new(big.Float).SetPrec(256).SetFloat64(value)
		scaled.Mul(scaled, bigFactor)

		ceiled := ceilBigFloat(scaled)
		ceiled.Quo(ceiled, bigFactor)

		result, _ := ceiled.Float64()
		if math.IsInf(result, 0) || math.IsNaN(result) {
			return math.Ceil(value)
		}

		return result
	}
}

func makeCeilWithSmallFactor(factor float64) func(float64) float64 {
	smallFactor := new(big.Float).SetPrec(256).SetFloat64(factor)

	return func(value float64) float64 {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return math.Ceil(value)
		}

		scaled := new(big.Float).SetPrec(256).SetFloat64(value)
		scaled.Mul(scaled, smallFactor)

		ceiled := ceilBigFloat(scaled)
		ceiled.Quo(ceiled, smallFactor)

		result, _ := ceiled.Float64()
		if math.IsInf(result, 0) || math.IsNaN(result) {
			if value > 0 {
				return math.Inf(1)
			}

			return math.Ceil(value)
		}

		return result
	}
}

// ReduceIndexed applies accumulator over the source along with each value's
// zero-based index, emitting the final result on completion. Unlike Reduce
// (operator_reduce.go) the accumulator also sees the index.
func ReduceIndexed[T, R any](seed R, accumulator func(acc R, value T, index int64) R) Operator[T, R] {
	return newAggregateOperator[T, R](func() (func(T), func(context.Context, Subscriber[R])) {
		acc := seed
		index := int64(0)

		return func(value T) {
				acc = accumulator(acc, value, index)
				index++
			}, func(ctx context.Context, dest Subscriber[R]) {
				dest.OnNext(ctx, acc)
				dest.OnComplete(ctx)
			}
	})
}
