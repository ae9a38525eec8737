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

	"github.com/samber/lo"

	"github.com/flowkit/ro/internal/queue"
)

// innerQueueCapacity bounds the per-inner-source buffer used by FlatMap and
// Merge alike; a source that outruns this without downstream demand
// draining it is reported as an OverflowError rather than growing without
// bound.
const innerQueueCapacity = 256

// FlatMap maps each source value to an inner Observable and merges their
// emissions into a single output sequence, running up to maxConcurrency
// inner Observables at once (0 means unbounded) and prefetching up to
// prefetch items from each active inner (0 means request MaxDemand, i.e. no
// prefetch windowing). Errors from any inner or from the outer source cancel
// everything still running and propagate immediately; see
// FlatMapDelayErrors for the delay-errors variant.
func FlatMap[T, R any](mapper func(value T) Observable[R], maxConcurrency int, prefetch int) Operator[T, R] {
	return newFlatMap(mapper, maxConcurrency, prefetch, false)
}

// FlatMapDelayErrors is FlatMap but accumulates errors from every inner (and
// the outer) into a CompositeError (or the error itself when only one
// occurred) delivered only once everything still running has terminated, instead of cancelling the others on the first
// error.
func FlatMapDelayErrors[T, R any](mapper func(value T) Observable[R], maxConcurrency int, prefetch int) Operator[T, R] {
	return newFlatMap(mapper, maxConcurrency, prefetch, true)
}

func newFlatMap[T, R any](mapper func(value T) Observable[R], maxConcurrency int, prefetch int, delayErrors bool) Operator[T, R] {
	return func(source Observable[T]) Observable[R] {
		return NewObservable(func(ctx context.Context, subscriber Subscriber[R]) Disposable {
			fm := &flatMapState[T, R]{
				ctx:            ctx,
				dest:           subscriber,
				mapper:         mapper,
				maxConcurrency: maxConcurrency,
				prefetch:       prefetch,
				delayErrors:    delayErrors,
			}

			d := source.SubscribeWithContext(ctx, &flatMapOuterSubscriber[T, R]{state: fm})
			fm.outerDisposable = d

			return NewDisposable(func() {
				fm.cancel()
				d.Dispose()
			})
		})
	}
}

type flatMapInnerItem[R any] struct {
	kind  Kind
	value R
	err   error
}

type flatMapInner[R any] struct {
	id           int64
	queue        *queue.SPSC[flatMapInnerItem[R]]
	subscription Subscription
	done         bool
	errored      error
}

type flatMapState[T, R any] struct {
	ctx             context.Context
	dest            Subscriber[R]
	mapper          func(T) Observable[R]
	maxConcurrency  int
	prefetch        int
	delayErrors     bool
	outerDisposable Disposable

	mu         sync.Mutex
	inners     []*flatMapInner[R]
	pending    []T
	nextID     int64
	outerDone  bool
	outerErr   error
	errs       []error
	cancelled  atomic.Bool
	outerSub   Subscription
	requested  int64
	w          wip
}

// innerQueueCapacity is the per-inner buffer size: the user-supplied
// prefetch when given, falling back to the package default when prefetch is
// unbounded (<=0, i.e. request MaxDemand with no windowing).
func (fm *flatMapState[T, R]) innerQueueCapacity() int {
	if fm.prefetch > 0 {
		return fm.prefetch
	}

	return innerQueueCapacity
}

// innerInitialRequest is the demand requested from a freshly-subscribed
// inner: prefetch items, or MaxDemand when prefetch is unbounded.
func (fm *flatMapState[T, R]) innerInitialRequest() int64 {
	if fm.prefetch > 0 {
		return int64(fm.prefetch)
	}

	return MaxDemand
}

func (fm *flatMapState[T, R]) cancel() {
	fm.cancelled.Store(true)

	fm.mu.Lock()
	if fm.outerSub != nil {
		fm.outerSub.Cancel()
	}

	for _, in := range fm.inners {
		if in.subscription != nil {
			in.subscription.Cancel()
		}
	}
	fm.mu.Unlock()
}

func (fm *flatMapState[T, R]) trigger() {
	if fm.w.enter() {
		fm.w.drain(fm.drainPass)
	}
}

// activateMore subscribes queued pending outer values until maxConcurrency
// active inners are running, or requests one more outer value if nothing is
// pending and there is headroom.
func (fm *flatMapState[T, R]) activateMore() {
	fm.mu.Lock()

	for fm.maxConcurrency <= 0 || len(fm.inners) < fm.maxConcurrency {
		if len(fm.pending) == 0 {
			if fm.maxConcurrency > 0 && fm.outerSub != nil && !fm.outerDone {
				fm.outerSub.Request(1)
			}

			break
		}

		v := fm.pending[0]
		fm.pending = fm.pending[1:]
		fm.mu.Unlock()
		fm.subscribeInner(v)
		fm.mu.Lock()
	}

	fm.mu.Unlock()
}

func (fm *flatMapState[T, R]) subscribeInner(value T) {
	if fm.cancelled.Load() {
		return
	}

	var inner Observable[R]

	panicked := false

	lo.TryCatchWithErrorValue(
		func() error {
			inner = fm.mapper(value)
			return nil
		},
		func(e any) {
			panicked = true
			fm.reportError(newMapperError(recoverValueToError(e)))
		},
	)

	if inner == nil {
		if !panicked {
			fm.reportError(newNullValueError("FlatMap mapper"))
		}

		return
	}

	state := &flatMapInner[R]{
		id:    atomic.AddInt64(&fm.nextID, 1),
		queue: queue.NewSPSC[flatMapInnerItem[R]](fm.innerQueueCapacity()),
	}

	fm.mu.Lock()
	fm.inners = append(fm.inners, state)
	fm.mu.Unlock()

	d := inner.SubscribeWithContext(fm.ctx, &flatMapInnerSubscriber[T, R]{state: fm, inner: state})
	_ = d
}

func (fm *flatMapState[T, R]) reportError(err error) {
	if fm.delayErrors {
		fm.mu.Lock()
		fm.errs = append(fm.errs, err)
		fm.mu.Unlock()
		fm.trigger()

		return
	}

	if fm.cancelled.CompareAndSwap(false, true) {
		fm.cancel()
		fm.dest.OnError(fm.ctx, err)
	}
}

// drainPass round-robins the active inner queues, emitting items downstream
// while requested demand allows, and retires/reactivates inners as they
// drain and complete.
func (fm *flatMapState[T, R]) drainPass() {
	for {
		if fm.cancelled.Load() && !fm.delayErrors {
			return
		}

		fm.mu.Lock()
		inners := append([]*flatMapInner[R]{}, fm.inners...)
		fm.mu.Unlock()

		progressed := false
		finishedAny := false

		for _, in := range inners {
			itemsSinceRefill := int64(0)

			for {
				cur := atomic.LoadInt64(&fm.requested)
				if cur == 0 {
					break
				}

				item, ok := in.queue.Poll()
				if !ok {
					break
				}

				switch item.kind {
				case KindNext:
					if cur != MaxDemand {
						AtomicSubDemand(&fm.requested, 1)
					}

					fm.dest.OnNext(fm.ctx, item.value)
					progressed = true
					itemsSinceRefill++
				case KindError:
					in.done = true
					fm.reportError(item.err)
					finishedAny = true
				case KindComplete:
					in.done = true
					finishedAny = true
				}

				if item.kind != KindNext {
					break
				}
			}

			if itemsSinceRefill > 0 && in.subscription != nil {
				in.subscription.Request(itemsSinceRefill)
			}
		}

		if finishedAny {
			fm.mu.Lock()
			kept := fm.inners[:0]

			for _, in := range fm.inners {
				if in.done && in.queue.IsEmpty() {
					continue
				}

				kept = append(kept, in)
			}

			fm.inners = kept
			fm.mu.Unlock()

			fm.activateMore()
		}

		if fm.outerDoneSnapshot() && fm.allInnersIdle() {
			fm.finish()
			return
		}

		if !progressed && !finishedAny {
			return
		}
	}
}

func (fm *flatMapState[T, R]) outerDoneSnapshot() bool {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	return fm.outerDone && len(fm.pending) == 0
}

func (fm *flatMapState[T, R]) allInnersIdle() bool {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	return len(fm.inners) == 0
}

func (fm *flatMapState[T, R]) finish() {
	if !fm.cancelled.CompareAndSwap(false, true) {
		return
	}

	fm.mu.Lock()
	errs := fm.errs
	outerErr := fm.outerErr
	fm.mu.Unlock()

	if outerErr != nil {
		errs = append(errs, outerErr)
	}

	if len(errs) > 0 {
		fm.dest.OnError(fm.ctx, newCompositeError(errs))
		return
	}

	fm.dest.OnComplete(fm.ctx)
}

/*****************
 * Outer subscriber
 *****************/

type flatMapOuterSubscriber[T, R any] struct {
	state *flatMapState[T, R]
}

func (s *flatMapOuterSubscriber[T, R]) OnSubscribe(ctx context.Context, subscription Subscription) {
	s.state.mu.Lock()
	s.state.outerSub = subscription
	s.state.mu.Unlock()

	s.state.dest.OnSubscribe(ctx, &flatMapOuterSubscription[T, R]{state: s.state})

	initial := int64(s.state.maxConcurrency)
	if initial <= 0 {
		initial = MaxDemand
	}

	subscription.Request(initial)
}

func (s *flatMapOuterSubscriber[T, R]) OnNext(ctx context.Context, value T) {
	st := s.state

	st.mu.Lock()
	atCapacity := st.maxConcurrency > 0 && len(st.inners) >= st.maxConcurrency
	if atCapacity {
		st.pending = append(st.pending, value)
	}
	st.mu.Unlock()

	if !atCapacity {
		st.subscribeInner(value)
	}

	st.trigger()
}

func (s *flatMapOuterSubscriber[T, R]) OnError(ctx context.Context, err error) {
	st := s.state

	st.mu.Lock()
	st.outerDone = true
	st.outerErr = err
	st.mu.Unlock()

	if !st.delayErrors {
		st.reportError(err)
		return
	}

	st.trigger()
}

func (s *flatMapOuterSubscriber[T, R]) OnComplete(ctx context.Context) {
	st := s.state

	st.mu.Lock()
	st.outerDone = true
	st.mu.Unlock()

	st.trigger()
}

type flatMapOuterSubscription[T, R any] struct {
	state *flatMapState[T, R]
}

func (s *flatMapOuterSubscription[T, R]) Request(n int64) {
	if n <= 0 {
		ValidateRequest(s.state.ctx, n)
		return
	}

	AtomicAddDemand(&s.state.requested, n)
	s.state.trigger()
}

func (s *flatMapOuterSubscription[T, R]) Cancel() {
	s.state.cancel()
}

/*****************
 * Inner subscriber
 *****************/

type flatMapInnerSubscriber[T, R any] struct {
	state *flatMapState[T, R]
	inner *flatMapInner[R]
}

func (s *flatMapInnerSubscriber[T, R]) OnSubscribe(ctx context.Context, subscription Subscription) {
	s.inner.subscription = subscription
	subscription.Request(s.state.innerInitialRequest())
}

func (s *flatMapInnerSubscriber[T, R]) OnNext(ctx context.Context, value R) {
	if !s.inner.queue.Offer(flatMapInnerItem[R]{kind: KindNext, value: value}) {
		s.inner.queue.Offer(flatMapInnerItem[R]{kind: KindError, err: newOverflowError("FlatMap inner")})
	}

	s.state.trigger()
}

func (s *flatMapInnerSubscriber[T, R]) OnError(ctx context.Context, err error) {
	s.inner.queue.Offer(flatMapInnerItem[R]{kind: KindError, err: err})
	s.state.trigger()
}

func (s *flatMapInnerSubscriber[T, R]) OnComplete(ctx context.Context) {
	s.inner.queue.Offer(flatMapInnerItem[R]{kind: KindComplete})
	s.state.trigger()
}
