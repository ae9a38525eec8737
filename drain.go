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

import "sync/atomic"

// wip is the single-consumer drain-serialization primitive (spec §4.3).
// Any number of producer goroutines may call enter() after publishing work
// (enqueueing a value, flagging a terminal state, bumping demand); exactly
// the one that observes the zero->one transition becomes the drain owner
// and is responsible for running the drain loop until every contribution,
// including ones that arrived mid-loop, has been accounted for. This
// guarantees at most one goroutine is ever inside an operator's
// downstream-emission section at a time.
type wip struct {
	n int32
}

// enter records a contribution and reports whether the caller became the
// drain owner.
func (w *wip) enter() bool {
	return atomic.AddInt32(&w.n, 1) == 1
}

// leave subtracts the number of loop iterations performed since the last
// leave (or since becoming owner) and reports the counter's new value. A
// non-zero result means contributions arrived while the owner was draining,
// so the owner must loop again instead of exiting.
func (w *wip) leave(done int32) int32 {
	return atomic.AddInt32(&w.n, -done)
}

// drain runs fn repeatedly, once per unit of ownership, until no further
// contributions remain. fn itself performs one "pass" of emission; it is
// never invoked concurrently with itself through this helper.
func (w *wip) drain(fn func()) {
	missed := int32(1)

	for {
		fn()

		missed = w.leave(missed)
		if missed == 0 {
			return
		}
	}
}

// schedule increments the indicator and, if the caller became owner, runs
// drain(fn) synchronously on the calling goroutine. Operators that must run
// their drain loop on a specific worker (observe-on) instead call enter()
// directly and hand w.drain(fn) to that worker.
func (w *wip) schedule(fn func()) {
	if w.enter() {
		w.drain(fn)
	}
}
