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
	"time"
)

// cancelHandleSlot resolves the race between cancelling a timer/interval
// subscription and the scheduler handing back the Cancellable that would
// stop it: whichever of install/cancel runs first determines the outcome,
// with null/installed/cancelled as the three states a CAS walks between.
type cancelHandleSlot struct {
	state  int32 // 0 none, 1 installed, 2 cancelled
	handle Cancellable
}

func (c *cancelHandleSlot) install(h Cancellable) {
	if atomic.CompareAndSwapInt32(&c.state, 0, 1) {
		c.handle = h
		return
	}

	// cancel() already ran before we could install; the handle we just got
	// back from the scheduler must be stopped immediately.
	h.Cancel()
}

func (c *cancelHandleSlot) cancel() {
	for {
		switch atomic.LoadInt32(&c.state) {
		case 2:
			return
		case 0:
			if atomic.CompareAndSwapInt32(&c.state, 0, 2) {
				return
			}
		case 1:
			if atomic.CompareAndSwapInt32(&c.state, 1, 2) {
				if c.handle != nil {
					c.handle.Cancel()
				}

				return
			}
		}
	}
}

/*********
 * Timer *
 *********/

// Timer emits value once, after delay, then completes.
func Timer[T any](scheduler Scheduler, delay time.Duration, value T) Observable[T] {
	return NewObservable(func(ctx context.Context, subscriber Subscriber[T]) Disposable {
		ts := &timerSubscription{}

		subscriber.OnSubscribe(ctx, ts)

		h := scheduler.ScheduleAfter(func() {
			if ts.cancelled() {
				return
			}

			subscriber.OnNext(ctx, value)
			subscriber.OnComplete(ctx)
		}, delay)

		ts.slot.install(h)

		return NewDisposable(func() { ts.Cancel() })
	})
}

type timerSubscription struct {
	slot cancelHandleSlot
}

func (t *timerSubscription) Request(n int64) {}

func (t *timerSubscription) Cancel() {
	t.slot.cancel()
}

func (t *timerSubscription) cancelled() bool {
	return atomic.LoadInt32(&t.slot.state) == 2
}

/************
 * Interval *
 ************/

// Interval emits 0, 1, 2, ... every period, indefinitely, until cancelled.
// Demand is tracked but not enforced by slowing the ticker: a live clock
// cannot be paused to wait for a slow consumer, so a tick that arrives with
// no outstanding demand error-signals the subscriber with a DemandLagError
// and stops the ticker, rather than buffering or silently dropping it.
func Interval(scheduler TimeScheduler, period time.Duration) Observable[int64] {
	return NewObservable(func(ctx context.Context, subscriber Subscriber[int64]) Disposable {
		is := &intervalSubscription{ctx: ctx}

		subscriber.OnSubscribe(ctx, is)

		h := scheduler.ScheduleEvery(func() {
			if is.cancelled() {
				return
			}

			n := atomic.AddInt64(&is.count, 1) - 1

			cur := atomic.LoadInt64(&is.requested)
			if cur == 0 {
				OnDroppedNotification(ctx, NewNotificationNext(n))

				if is.errored.CompareAndSwap(false, true) {
					is.slot.cancel()
					subscriber.OnError(ctx, newDemandLagError(n))
				}

				return
			}

			if cur != MaxDemand {
				AtomicSubDemand(&is.requested, 1)
			}

			subscriber.OnNext(ctx, n)
		}, period)

		is.slot.install(h)

		return NewDisposable(func() { is.Cancel() })
	})
}

type intervalSubscription struct {
	ctx       context.Context
	slot      cancelHandleSlot
	count     int64
	requested int64
	errored   atomic.Bool
}

func (i *intervalSubscription) Request(n int64) {
	if n <= 0 {
		ValidateRequest(i.ctx, n)
		return
	}

	AtomicAddDemand(&i.requested, n)
}

func (i *intervalSubscription) Cancel() {
	i.slot.cancel()
}

func (i *intervalSubscription) cancelled() bool {
	return atomic.LoadInt32(&i.slot.state) == 2
}
