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

// completedBit / demandMask split a 64-bit field into a 1-bit "source
// completed" flag and a 63-bit outstanding-demand counter (spec §4.4),
// used by buffering operators (Buffer) whose source may complete while
// buffered items remain and downstream demand is insufficient to drain them
// immediately.
const (
	completedBit   = int64(1) << 63
	maxPostDemand  = completedBit - 1
	demandMaskBits = maxPostDemand
)

// postCompleteDemand is the demand-with-completion field of spec §4.4.
type postCompleteDemand struct {
	state int64
}

// request adds n to outstanding demand, saturating at maxPostDemand. There
// is no separate path for unbounded demand: MaxDemand is added like any
// other amount. The return value reports whether the pre-image was {completed, demand==0}; in
// that case the caller must itself drive a drain instead of forwarding this
// Request upstream, since there is no upstream left to ask.
func (p *postCompleteDemand) request(n int64) (driveInline bool) {
	for {
		cur := atomic.LoadInt64(&p.state)
		completed := cur&completedBit != 0
		demand := cur &^ completedBit

		nextDemand := demand + n
		if nextDemand < 0 || nextDemand > maxPostDemand {
			nextDemand = maxPostDemand
		}

		next := nextDemand
		if completed {
			next |= completedBit
		}

		if atomic.CompareAndSwapInt64(&p.state, cur, next) {
			return completed && demand == 0
		}
	}
}

// complete marks the source as completed and reports whether a drain should
// be driven immediately (there was already nonzero outstanding demand, so a
// future Request is not guaranteed to arrive and replay the buffer).
func (p *postCompleteDemand) complete() (driveNow bool) {
	for {
		cur := atomic.LoadInt64(&p.state)
		demand := cur &^ completedBit
		next := cur | completedBit

		if atomic.CompareAndSwapInt64(&p.state, cur, next) {
			return demand != 0
		}
	}
}

// consume subtracts emitted from outstanding demand after a drain batch and
// returns the remaining demand together with whether the source has
// completed.
func (p *postCompleteDemand) consume(emitted int64) (remaining int64, completed bool) {
	for {
		cur := atomic.LoadInt64(&p.state)
		completed = cur&completedBit != 0
		demand := cur &^ completedBit

		next := demand - emitted
		if next < 0 {
			next = 0
		}

		nextState := next
		if completed {
			nextState |= completedBit
		}

		if atomic.CompareAndSwapInt64(&p.state, cur, nextState) {
			return next, completed
		}
	}
}

func (p *postCompleteDemand) isCompleted() bool {
	return atomic.LoadInt64(&p.state)&completedBit != 0
}

func (p *postCompleteDemand) outstanding() int64 {
	return atomic.LoadInt64(&p.state) &^ completedBit
}
