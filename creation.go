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
	"sync/atomic"

	"github.com/flowkit/ro/internal/queue"
)

/**********
 * Range  *
 **********/

// Range emits the count consecutive int64 values starting at start, honoring
// downstream demand synchronously: every Request(n) emits up to n items on
// the calling goroutine before returning.
func Range(start, count int64) Observable[int64] {
	return RangeWithMode(ConcurrencyModeSafe, start, count)
}

// RangeWithMode is Range with an explicit ConcurrencyMode for the downstream
// Subscriber wrapper; use ConcurrencyModeUnsafe when the caller is known to
// drive Request from a single goroutine, to skip the locking overhead.
func RangeWithMode(mode ConcurrencyMode, start, count int64) Observable[int64] {
	return NewObservableWithMode(mode, func(ctx context.Context, subscriber Subscriber[int64]) Disposable {
		if count < 0 {
			subscriber.OnSubscribe(ctx, EmptySubscription)
			subscriber.OnError(ctx, newProtocolError("Range: negative count"))
			return NewDisposable(func() {})
		}

		rs := &rangeSubscription{
			ctx:   ctx,
			sub:   subscriber,
			idx:   start,
			end:   start + count,
		}

		subscriber.OnSubscribe(ctx, rs)

		return NewDisposable(func() { rs.Cancel() })
	})
}

type rangeSubscription struct {
	ctx       context.Context
	sub       Subscriber[int64]
	idx       int64
	end       int64
	requested int64
	cancelled int32
	w         wip
}

func (r *rangeSubscription) Request(n int64) {
	if n <= 0 {
		ValidateRequest(r.ctx, n)
		return
	}

	AtomicAddDemand(&r.requested, n)
	r.w.schedule(r.drainPass)
}

func (r *rangeSubscription) Cancel() {
	atomic.StoreInt32(&r.cancelled, 1)
}

func (r *rangeSubscription) drainPass() {
	for {
		if atomic.LoadInt32(&r.cancelled) == 1 {
			return
		}

		if r.idx >= r.end {
			atomic.StoreInt32(&r.cancelled, 1)
			r.sub.OnComplete(r.ctx)
			return
		}

		cur := atomic.LoadInt64(&r.requested)
		if cur == 0 {
			return
		}

		v := r.idx
		r.idx++

		if cur != MaxDemand {
			AtomicSubDemand(&r.requested, 1)
		}

		r.sub.OnNext(r.ctx, v)
	}
}

/*************
 * FromSlice *
 *************/

// FromSlice emits the elements of items in order, honoring downstream
// demand synchronously like Range.
func FromSlice[T any](items []T) Observable[T] {
	return NewObservable(func(ctx context.Context, subscriber Subscriber[T]) Disposable {
		fs := &sliceSubscription[T]{ctx: ctx, sub: subscriber, items: items}
		subscriber.OnSubscribe(ctx, fs)

		return NewDisposable(func() { fs.Cancel() })
	})
}

type sliceSubscription[T any] struct {
	ctx       context.Context
	sub       Subscriber[T]
	items     []T
	idx       int
	requested int64
	cancelled int32
	w         wip
}

func (s *sliceSubscription[T]) Request(n int64) {
	if n <= 0 {
		ValidateRequest(s.ctx, n)
		return
	}

	AtomicAddDemand(&s.requested, n)
	s.w.schedule(s.drainPass)
}

func (s *sliceSubscription[T]) Cancel() {
	atomic.StoreInt32(&s.cancelled, 1)
}

func (s *sliceSubscription[T]) drainPass() {
	for {
		if atomic.LoadInt32(&s.cancelled) == 1 {
			return
		}

		if s.idx >= len(s.items) {
			atomic.StoreInt32(&s.cancelled, 1)
			s.sub.OnComplete(s.ctx)
			return
		}

		cur := atomic.LoadInt64(&s.requested)
		if cur == 0 {
			return
		}

		v := s.items[s.idx]
		s.idx++

		if cur != MaxDemand {
			AtomicSubDemand(&s.requested, 1)
		}

		s.sub.OnNext(s.ctx, v)
	}
}

/*********
 * Empty *
 *********/

// Empty completes immediately without emitting any value. Completion is not
// subject to backpressure, so no Request is required to observe it.
func Empty[T any]() Observable[T] {
	return NewObservable(func(ctx context.Context, subscriber Subscriber[T]) Disposable {
		subscriber.OnSubscribe(ctx, EmptySubscription)
		subscriber.OnComplete(ctx)

		return NewDisposable(func() {})
	})
}

/*********
 * Never *
 *********/

// Never emits no signal at all, ever. Its Subscription is EmptySubscription,
// so Request and Cancel have no effect.
func Never[T any]() Observable[T] {
	return NewObservable(func(ctx context.Context, subscriber Subscriber[T]) Disposable {
		subscriber.OnSubscribe(ctx, EmptySubscription)

		return NewDisposable(func() {})
	})
}

/*********
 * Throw *
 *********/

// Throw immediately signals err and nothing else.
func Throw[T any](err error) Observable[T] {
	return NewObservable(func(ctx context.Context, subscriber Subscriber[T]) Disposable {
		subscriber.OnSubscribe(ctx, EmptySubscription)
		subscriber.OnError(ctx, err)

		return NewDisposable(func() {})
	})
}

/**********
 * Create *
 **********/

// Emitter is handed to the callback passed to Create; it is the producer
// side of a backpressure-aware source whose values originate from outside
// the demand-driven call graph (a channel, a callback API, a background
// goroutine).
type Emitter[T any] interface {
	// Next enqueues value for delivery and reports whether it was accepted;
	// false means the subscription is cancelled or the internal buffer is
	// full, and the caller should apply its own backpressure (e.g. block, or
	// drop).
	Next(value T) bool
	Error(err error)
	Complete()
	IsCancelled() bool
}

// Create builds an Observable around a producer callback invoked once per
// subscription on its own goroutine. The callback receives the subscription
// context and an Emitter. Values offered through the Emitter are queued in a
// bounded buffer and drained to the downstream Subscriber; a value drained
// while downstream has no outstanding demand is dropped and reported via
// OnDroppedNotification.
func Create[T any](bufferCapacity int, produce func(ctx context.Context, emitter Emitter[T])) Observable[T] {
	return NewObservable(func(ctx context.Context, subscriber Subscriber[T]) Disposable {
		cs := &createSubscription[T]{
			ctx:   ctx,
			sub:   subscriber,
			queue: queue.NewSPSC[createItem[T]](bufferCapacity),
		}

		subscriber.OnSubscribe(ctx, cs)

		go produce(ctx, cs)

		return NewDisposable(func() { cs.Cancel() })
	})
}

type createItem[T any] struct {
	kind  Kind
	value T
	err   error
}

type createSubscription[T any] struct {
	ctx       context.Context
	sub       Subscriber[T]
	queue     *queue.SPSC[createItem[T]]
	requested int64
	cancelled int32
	w         wip
}

func (c *createSubscription[T]) Request(n int64) {
	if n <= 0 {
		ValidateRequest(c.ctx, n)
		return
	}

	AtomicAddDemand(&c.requested, n)
	c.w.schedule(c.drainPass)
}

func (c *createSubscription[T]) Cancel() {
	atomic.StoreInt32(&c.cancelled, 1)
}

func (c *createSubscription[T]) IsCancelled() bool {
	return atomic.LoadInt32(&c.cancelled) == 1
}

func (c *createSubscription[T]) Next(value T) bool {
	if c.IsCancelled() {
		return false
	}

	ok := c.queue.Offer(createItem[T]{kind: KindNext, value: value})
	if ok {
		c.w.schedule(c.drainPass)
	}

	return ok
}

func (c *createSubscription[T]) Error(err error) {
	c.queue.Offer(createItem[T]{kind: KindError, err: err})
	c.w.schedule(c.drainPass)
}

func (c *createSubscription[T]) Complete() {
	c.queue.Offer(createItem[T]{kind: KindComplete})
	c.w.schedule(c.drainPass)
}

func (c *createSubscription[T]) drainPass() {
	for {
		if atomic.LoadInt32(&c.cancelled) == 1 {
			c.queue.Clear()
			return
		}

		item, ok := c.queue.Poll()
		if !ok {
			return
		}

		switch item.kind {
		case KindNext:
			cur := atomic.LoadInt64(&c.requested)
			if cur == 0 {
				// No demand: drop and report, matching the dropped-
				// notification contract instead of blocking the producer.
				OnDroppedNotification(c.ctx, NewNotificationNext(item.value))
				continue
			}

			if cur != MaxDemand {
				AtomicSubDemand(&c.requested, 1)
			}

			c.sub.OnNext(c.ctx, item.value)
		case KindError:
			atomic.StoreInt32(&c.cancelled, 1)
			c.sub.OnError(c.ctx, item.err)
			return
		case KindComplete:
			atomic.StoreInt32(&c.cancelled, 1)
			c.sub.OnComplete(c.ctx)
			return
		}
	}
}
