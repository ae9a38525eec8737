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
	"sync"
)

// Buffer collects consecutive source values into slices of at most count
// elements, starting a new slice every skip elements, and emits one slice
// per full batch plus a final short batch (if non-empty) when the source
// completes. skip == count gives the exact, non-overlapping chunking
// (consumes elements once, one buffer open at a time); skip > count drops
// the elements between the end of one buffer and the start of the next
// (skipping mode, no buffer open during the gap); skip < count keeps more
// than one buffer open at once so consecutive batches overlap (skip <= 0 is
// treated as skip == count). Downstream demand is counted in batches, not
// raw source items; since the source may complete while a short batch is
// waiting on demand that hasn't arrived yet, outstanding batch demand and
// source completion are tracked together in a single packed field
// (postCompleteDemand) instead of two racing booleans.
func Buffer[T any](count int, skip int) Operator[T, []T] {
	if skip <= 0 {
		skip = count
	}

	return func(source Observable[T]) Observable[[]T] {
		return NewObservable(func(ctx context.Context, subscriber Subscriber[[]T]) Disposable {
			bs := &bufferSubscriber[T]{ctx: ctx, dest: subscriber, count: count, skip: skip}

			return source.SubscribeWithContext(ctx, bs)
		})
	}
}

type bufferSubscriber[T any] struct {
	ctx          context.Context
	dest         Subscriber[[]T]
	count        int
	skip         int
	subscription Subscription

	mu             sync.Mutex
	open           [][]T
	untilNextStart int
	ready          [][]T

	demand postCompleteDemand
	w      wip
	failed bool
}

func (b *bufferSubscriber[T]) OnSubscribe(ctx context.Context, subscription Subscription) {
	b.subscription = subscription
	b.dest.OnSubscribe(ctx, &bufferSubscription[T]{state: b})
	subscription.Request(1)
}

func (b *bufferSubscriber[T]) OnNext(ctx context.Context, value T) {
	b.mu.Lock()

	if b.untilNextStart == 0 {
		b.open = append(b.open, make([]T, 0, b.count))
		b.untilNextStart = b.skip
	}
	b.untilNextStart--

	for i := range b.open {
		b.open[i] = append(b.open[i], value)
	}

	remaining := b.open[:0]
	closedAny := false

	for _, buf := range b.open {
		if len(buf) >= b.count {
			b.ready = append(b.ready, buf)
			closedAny = true
		} else {
			remaining = append(remaining, buf)
		}
	}

	b.open = remaining
	b.mu.Unlock()

	if closedAny {
		b.trigger()
	}

	if b.subscription != nil {
		b.subscription.Request(1)
	}
}

func (b *bufferSubscriber[T]) OnError(ctx context.Context, err error) {
	if !b.failed {
		b.failed = true
		b.dest.OnError(ctx, err)
	}
}

func (b *bufferSubscriber[T]) OnComplete(ctx context.Context) {
	b.mu.Lock()
	for _, buf := range b.open {
		if len(buf) > 0 {
			b.ready = append(b.ready, buf)
		}
	}
	b.open = nil
	b.mu.Unlock()

	b.demand.complete()
	b.trigger()
}

func (b *bufferSubscriber[T]) trigger() {
	b.w.schedule(b.drainPass)
}

func (b *bufferSubscriber[T]) drainPass() {
	for {
		b.mu.Lock()
		if len(b.ready) == 0 {
			b.mu.Unlock()

			if b.demand.isCompleted() {
				b.dest.OnComplete(b.ctx)
			}

			return
		}

		if b.demand.outstanding() == 0 {
			b.mu.Unlock()
			return
		}

		batch := b.ready[0]
		b.ready = b.ready[1:]
		b.mu.Unlock()

		b.demand.consume(1)
		b.dest.OnNext(b.ctx, batch)
	}
}

type bufferSubscription[T any] struct {
	state *bufferSubscriber[T]
}

func (s *bufferSubscription[T]) Request(n int64) {
	if n <= 0 {
		ValidateRequest(s.state.ctx, n)
		return
	}

	s.state.demand.request(n)
	s.state.trigger()
}

func (s *bufferSubscription[T]) Cancel() {
	if s.state.subscription != nil {
		s.state.subscription.Cancel()
	}
}
