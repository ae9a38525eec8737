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

// ObserveOn moves notification delivery onto scheduler, decoupling the
// thread the source emits on from the thread the downstream Subscriber
// observes on (spec's async-boundary operator family). Upstream is windowed
// to bufferCapacity outstanding items at a time via a bounded SPSC queue
// instead of being allowed to run arbitrarily far ahead of the consumer.
// delayError controls what happens to an already-queued, not-yet-delivered
// batch when the source errors: true drains it first and emits the error
// last; false discards it and emits the error immediately.
func ObserveOn[T any](scheduler Scheduler, bufferCapacity int, delayError bool) Operator[T, T] {
	return func(source Observable[T]) Observable[T] {
		return NewObservable(func(ctx context.Context, subscriber Subscriber[T]) Disposable {
			oo := &observeOnSubscriber[T]{
				ctx:        ctx,
				dest:       subscriber,
				scheduler:  scheduler,
				prefetch:   int64(bufferCapacity),
				queue:      queue.NewSPSC[observeOnItem[T]](bufferCapacity),
				delayError: delayError,
			}

			d := source.SubscribeWithContext(ctx, oo)
			oo.upstreamDisposable = d

			return NewDisposable(func() {
				oo.cancelled.Store(true)
				d.Dispose()
			})
		})
	}
}

type observeOnItem[T any] struct {
	kind  Kind
	value T
	err   error
}

type observeOnSubscriber[T any] struct {
	ctx                context.Context
	dest               Subscriber[T]
	scheduler          Scheduler
	queue              *queue.SPSC[observeOnItem[T]]
	subscription       Subscription
	upstreamDisposable Disposable

	prefetch   int64
	consumed   int64
	requested  int64
	cancelled  atomic.Bool
	terminated atomic.Bool

	delayError        bool
	hasImmediateError atomic.Bool
	immediateError    error

	w wip
}

func (o *observeOnSubscriber[T]) OnSubscribe(ctx context.Context, subscription Subscription) {
	o.subscription = subscription
	o.dest.OnSubscribe(ctx, &observeOnSubscription[T]{inner: o})

	if o.prefetch > 0 {
		subscription.Request(o.prefetch)
	}
}

func (o *observeOnSubscriber[T]) OnNext(ctx context.Context, value T) {
	if o.cancelled.Load() {
		return
	}

	if !o.queue.Offer(observeOnItem[T]{kind: KindNext, value: value}) {
		o.cancelled.Store(true)

		if o.subscription != nil {
			o.subscription.Cancel()
		}

		o.queue.Offer(observeOnItem[T]{kind: KindError, err: newOverflowError("ObserveOn")})
	}

	o.trigger()
}

func (o *observeOnSubscriber[T]) OnError(ctx context.Context, err error) {
	if !o.terminated.CompareAndSwap(false, true) {
		return
	}

	if !o.delayError {
		o.immediateError = err
		o.hasImmediateError.Store(true)
		o.trigger()
		return
	}

	o.queue.Offer(observeOnItem[T]{kind: KindError, err: err})
	o.trigger()
}

func (o *observeOnSubscriber[T]) OnComplete(ctx context.Context) {
	if o.terminated.CompareAndSwap(false, true) {
		o.queue.Offer(observeOnItem[T]{kind: KindComplete})
		o.trigger()
	}
}

func (o *observeOnSubscriber[T]) trigger() {
	if o.w.enter() {
		o.scheduler.Schedule(func() { o.w.drain(o.drainPass) })
	}
}

func (o *observeOnSubscriber[T]) drainPass() {
	emittedSinceRefill := int64(0)

	for {
		if o.cancelled.Load() {
			o.queue.Clear()
			return
		}

		if o.hasImmediateError.Load() {
			o.cancelled.Store(true)
			o.queue.Clear()

			if emittedSinceRefill > 0 && o.subscription != nil {
				o.subscription.Request(emittedSinceRefill)
			}

			o.dest.OnError(o.ctx, o.immediateError)

			return
		}

		item, ok := o.queue.Poll()
		if !ok {
			if emittedSinceRefill > 0 && o.subscription != nil {
				o.subscription.Request(emittedSinceRefill)
			}

			return
		}

		switch item.kind {
		case KindNext:
			cur := atomic.LoadInt64(&o.requested)
			if cur == 0 {
				OnDroppedNotification(o.ctx, NewNotificationNext(item.value))
				continue
			}

			if cur != MaxDemand {
				AtomicSubDemand(&o.requested, 1)
			}

			o.dest.OnNext(o.ctx, item.value)
			emittedSinceRefill++
		case KindError:
			o.cancelled.Store(true)

			if emittedSinceRefill > 0 && o.subscription != nil {
				o.subscription.Request(emittedSinceRefill)
			}

			o.dest.OnError(o.ctx, item.err)

			return
		case KindComplete:
			o.cancelled.Store(true)

			if emittedSinceRefill > 0 && o.subscription != nil {
				o.subscription.Request(emittedSinceRefill)
			}

			o.dest.OnComplete(o.ctx)

			return
		}
	}
}

// observeOnSubscription is exposed to the downstream Subscriber; Request
// only grows the counter drain consults before forwarding items already
// sitting in the queue. Cancel propagates to the source.
type observeOnSubscription[T any] struct {
	inner *observeOnSubscriber[T]
}

func (s *observeOnSubscription[T]) Request(n int64) {
	if n <= 0 {
		ValidateRequest(s.inner.ctx, n)
		return
	}

	AtomicAddDemand(&s.inner.requested, n)
	s.inner.trigger()
}

func (s *observeOnSubscription[T]) Cancel() {
	s.inner.cancelled.Store(true)

	if s.inner.subscription != nil {
		s.inner.subscription.Cancel()
	}
}
