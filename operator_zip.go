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

// zipQueueCapacity bounds each source's per-row buffer; a source that races
// too far ahead of its slowest sibling overflows instead of buffering
// without limit.
const zipQueueCapacity = 128

// zipSource is the shared per-input bookkeeping used by Zip2/Zip3: a bounded
// queue of not-yet-combined values, the Subscription used to request more
// of them, and whether the source has completed (a completed source with an
// empty queue ends the whole zip, since no further row can ever be formed).
type zipSource[T any] struct {
	queue        *queue.SPSC[T]
	subscription Subscription
	done         bool
}

func newZipSource[T any]() *zipSource[T] {
	return &zipSource[T]{queue: queue.NewSPSC[T](zipQueueCapacity)}
}

type zipSourceSubscriber[T any] struct {
	src     *zipSource[T]
	trigger func()
	fail    func(error)
}

func (s *zipSourceSubscriber[T]) OnSubscribe(ctx context.Context, subscription Subscription) {
	s.src.subscription = subscription
	subscription.Request(int64(zipQueueCapacity))
}

func (s *zipSourceSubscriber[T]) OnNext(ctx context.Context, value T) {
	if !s.src.queue.Offer(value) {
		s.fail(newOverflowError("Zip"))
		return
	}

	s.trigger()
}

func (s *zipSourceSubscriber[T]) OnError(ctx context.Context, err error) {
	s.fail(err)
}

func (s *zipSourceSubscriber[T]) OnComplete(ctx context.Context) {
	s.src.done = true
	s.trigger()
}

// Zip2 combines corresponding values from a and b pairwise: the i-th output
// is combiner(a[i], b[i]). It completes as soon as either source completes
// and its buffer is exhausted, and errors immediately if either source
// errors, cancelling the other.
func Zip2[A, B, R any](a Observable[A], b Observable[B], combiner func(A, B) R) Observable[R] {
	return NewObservable(func(ctx context.Context, subscriber Subscriber[R]) Disposable {
		srcA := newZipSource[A]()
		srcB := newZipSource[B]()

		var w wip

		var requested int64

		var cancelled atomic.Bool

		fail := func(err error) {
			if cancelled.CompareAndSwap(false, true) {
				if srcA.subscription != nil {
					srcA.subscription.Cancel()
				}

				if srcB.subscription != nil {
					srcB.subscription.Cancel()
				}

				subscriber.OnError(ctx, err)
			}
		}

		trigger := func() {
			w.schedule(func() {
				for {
					if cancelled.Load() {
						return
					}

					cur := atomic.LoadInt64(&requested)
					if cur == 0 {
						return
					}

					if srcA.queue.IsEmpty() || srcB.queue.IsEmpty() {
						if (srcA.done && srcA.queue.IsEmpty()) || (srcB.done && srcB.queue.IsEmpty()) {
							if cancelled.CompareAndSwap(false, true) {
								if srcA.subscription != nil {
									srcA.subscription.Cancel()
								}

								if srcB.subscription != nil {
									srcB.subscription.Cancel()
								}

								subscriber.OnComplete(ctx)
							}
						}

						return
					}

					va, _ := srcA.queue.Poll()
					vb, _ := srcB.queue.Poll()

					if cur != MaxDemand {
						AtomicSubDemand(&requested, 1)
					}

					subscriber.OnNext(ctx, combiner(va, vb))

					if srcA.subscription != nil {
						srcA.subscription.Request(1)
					}

					if srcB.subscription != nil {
						srcB.subscription.Request(1)
					}
				}
			})
		}

		subscriber.OnSubscribe(ctx, &zipReqSubscription{
			requested: &requested,
			cancel: func() {
				cancelled.Store(true)

				if srcA.subscription != nil {
					srcA.subscription.Cancel()
				}

				if srcB.subscription != nil {
					srcB.subscription.Cancel()
				}
			},
			trigger: trigger,
		})

		da := a.SubscribeWithContext(ctx, &zipSourceSubscriber[A]{src: srcA, trigger: trigger, fail: fail})
		db := b.SubscribeWithContext(ctx, &zipSourceSubscriber[B]{src: srcB, trigger: trigger, fail: fail})

		return NewDisposable(func() {
			cancelled.Store(true)
			da.Dispose()
			db.Dispose()
		})
	})
}

// Zip3 is Zip2 generalized to three sources.
func Zip3[A, B, C, R any](a Observable[A], b Observable[B], c Observable[C], combiner func(A, B, C) R) Observable[R] {
	pairs := Zip2(a, b, func(va A, vb B) lo2[A, B] { return lo2[A, B]{va, vb} })

	return Zip2(pairs, c, func(p lo2[A, B], vc C) R { return combiner(p.a, p.b, vc) })
}

type lo2[A, B any] struct {
	a A
	b B
}

// zipReqSubscription is the Subscription exposed to the downstream
// Subscriber of Zip2/Zip3; Request accumulates demand and re-triggers the
// combine loop, Cancel tears down both sources.
type zipReqSubscription struct {
	requested *int64
	cancel    func()
	trigger   func()
}

func (z *zipReqSubscription) Request(n int64) {
	if n <= 0 {
		ValidateRequest(context.Background(), n)
		return
	}

	AtomicAddDemand(z.requested, n)
	z.trigger()
}

func (z *zipReqSubscription) Cancel() {
	z.cancel()
}
