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
	"math"
	"sync/atomic"
)

// MaxDemand is the sentinel value meaning "unbounded demand" (spec §3). It
// is the maximum representable positive int64, and disables the per-
// emission decrement that bounded demand would otherwise require.
const MaxDemand = int64(math.MaxInt64)

// AddCap adds a and b, saturating at MaxDemand instead of overflowing into
// negative territory.
func AddCap(a, b int64) int64 {
	if a == MaxDemand || b == MaxDemand {
		return MaxDemand
	}

	r := a + b
	if r < 0 || r > MaxDemand {
		return MaxDemand
	}

	return r
}

// MultiplyCap multiplies a and b, saturating at MaxDemand instead of
// overflowing.
func MultiplyCap(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}

	if a == MaxDemand || b == MaxDemand {
		return MaxDemand
	}

	r := a * b
	if r/b != a || r < 0 || r > MaxDemand {
		return MaxDemand
	}

	return r
}

// AtomicAddDemand atomically adds n (n > 0) to the demand counter at *field
// using a CAS loop over AddCap, and returns the pre-image (the value before
// the add). Once *field reaches MaxDemand it is sticky: further adds are
// no-ops and the pre-image returned is MaxDemand.
func AtomicAddDemand(field *int64, n int64) int64 {
	for {
		cur := atomic.LoadInt64(field)
		if cur == MaxDemand {
			return MaxDemand
		}

		next := AddCap(cur, n)
		if atomic.CompareAndSwapInt64(field, cur, next) {
			return cur
		}
	}
}

// AtomicSubDemand atomically subtracts n (an emitted count) from the demand
// counter at *field and returns the value after subtraction. If *field holds
// MaxDemand, emission never decrements it (spec: "the sentinel... disables
// decrement on emission") and MaxDemand is returned unchanged.
func AtomicSubDemand(field *int64, n int64) int64 {
	for {
		cur := atomic.LoadInt64(field)
		if cur == MaxDemand {
			return MaxDemand
		}

		next := cur - n
		if next < 0 {
			next = 0
		}

		if atomic.CompareAndSwapInt64(field, cur, next) {
			return next
		}
	}
}
