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
	"sync/atomic"
)

// ConcatArray subscribes to sources strictly one at a time, in order,
// moving to the next only once the current one completes. Unlike FlatMap/
// Merge there is no queueing and no concurrency: exactly one source is ever
// subscribed at a time, and outstanding downstream demand carries over from
// one source to the next.
func ConcatArray[T any](sources ...Observable[T]) Observable[T] {
	return ConcatIterable(func(i int) (Observable[T], bool) {
		if i >= len(sources) {
			return nil, false
		}

		return sources[i], true
	})
}

// ConcatIterable is ConcatArray generalized over a lazily produced sequence
// of sources: next(i) returns the i-th source (0-based) and whether it
// exists. Sources are requested from next only as the previous one
// completes, so an infinite iterable never causes unbounded prefetch.
func ConcatIterable[T any](next func(i int) (source Observable[T], ok bool)) Observable[T] {
	return NewObservable(func(ctx context.Context, subscriber Subscriber[T]) Disposable {
		cc := &concatState[T]{ctx: ctx, dest: subscriber, next: next}

		subscriber.OnSubscribe(ctx, &concatSubscription[T]{state: cc})
		cc.advance()

		return NewDisposable(func() { cc.cancel() })
	})
}

type concatState[T any] struct {
	ctx  context.Context
	dest Subscriber[T]
	next func(i int) (Observable[T], bool)

	mu         sync.Mutex
	idx        int
	current    Subscription
	disposable Disposable
	outstanding int64
	cancelled  atomic.Bool
	done       bool
}

func (c *concatState[T]) cancel() {
	c.cancelled.Store(true)

	c.mu.Lock()
	if c.current != nil {
		c.current.Cancel()
	}
	c.mu.Unlock()
}

// advance subscribes to the next source in sequence, or completes
// downstream once the sequence is exhausted.
func (c *concatState[T]) advance() {
	if c.cancelled.Load() {
		return
	}

	c.mu.Lock()
	i := c.idx
	c.idx++
	c.mu.Unlock()

	source, ok := c.next(i)
	if !ok {
		if c.cancelled.CompareAndSwap(false, true) {
			c.dest.OnComplete(c.ctx)
		}

		return
	}

	d := source.SubscribeWithContext(c.ctx, &concatInnerSubscriber[T]{state: c})

	c.mu.Lock()
	c.disposable = d
	c.mu.Unlock()
}

type concatInnerSubscriber[T any] struct {
	state *concatState[T]
}

func (s *concatInnerSubscriber[T]) OnSubscribe(ctx context.Context, subscription Subscription) {
	st := s.state

	st.mu.Lock()
	st.current = subscription
	outstanding := atomic.LoadInt64(&st.outstanding)
	st.mu.Unlock()

	if outstanding > 0 {
		subscription.Request(outstanding)
	}
}

func (s *concatInnerSubscriber[T]) OnNext(ctx context.Context, value T) {
	st := s.state

	if st.cancelled.Load() {
		return
	}

	AtomicSubDemand(&st.outstanding, 1)
	st.dest.OnNext(ctx, value)
}

func (s *concatInnerSubscriber[T]) OnError(ctx context.Context, err error) {
	st := s.state

	if st.cancelled.CompareAndSwap(false, true) {
		st.dest.OnError(ctx, err)
	}
}

func (s *concatInnerSubscriber[T]) OnComplete(ctx context.Context) {
	s.state.advance()
}

// concatSubscription is the Subscription exposed to the downstream
// Subscriber; Request accumulates outstanding demand and forwards it to
// whichever source is presently active.
type concatSubscription[T any] struct {
	state *concatState[T]
}

func (s *concatSubscription[T]) Request(n int64) {
	if n <= 0 {
		ValidateRequest(s.state.ctx, n)
		return
	}

	AtomicAddDemand(&s.state.outstanding, n)

	s.state.mu.Lock()
	cur := s.state.current
	s.state.mu.Unlock()

	if cur != nil {
		cur.Request(n)
	}
}

func (s *concatSubscription[T]) Cancel() {
	s.state.cancel()
}
