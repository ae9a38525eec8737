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
	"fmt"
	"sync/atomic"

	"github.com/samber/lo"
)

// Context key used to opt out of panic capture for a specific subscription.
type observerPanicCaptureDisabledKeyType struct{}

var observerPanicCaptureDisabledKey observerPanicCaptureDisabledKeyType

// WithObserverPanicCaptureDisabled returns a derived context that disables
// wrapping leaf-Subscriber callbacks with panic-capture for the subscription
// using this context. Intended for benchmarking or ultra-low-latency
// pipelines; panic-capture is on by default.
func WithObserverPanicCaptureDisabled(ctx context.Context) context.Context {
	return context.WithValue(ctx, observerPanicCaptureDisabledKey, true)
}

func isObserverPanicCaptureDisabled(ctx context.Context) bool {
	v := ctx.Value(observerPanicCaptureDisabledKey)
	b, ok := v.(bool)

	return ok && b
}

// Subscriber is the downstream half of the signal contract (spec §2, §3
// "Operator subscriber"): OnSubscribe is delivered exactly once, before any
// other signal, carrying the Subscription the Subscriber drives with
// Request/Cancel. OnNext may be called any number of times. At most one of
// OnError/OnComplete is ever delivered, at most once; no signal follows it.
// Implementations must tolerate concurrent calls to OnNext/OnError/
// OnComplete from the producer's point of view, but the producer guarantees
// those calls are never made concurrently with each other (serial
// observation, spec §5).
type Subscriber[T any] interface {
	OnSubscribe(ctx context.Context, subscription Subscription)
	OnNext(ctx context.Context, value T)
	OnError(ctx context.Context, err error)
	OnComplete(ctx context.Context)
}

var _ Subscriber[int] = (*leafSubscriber[int])(nil)

// NewObserver creates a leaf Subscriber from plain callbacks. On OnSubscribe
// it immediately requests MaxDemand: it is the terminal consumer at the end
// of a pipeline and has nowhere further to propagate backpressure to.
func NewObserver[T any](onNext func(value T), onError func(err error), onComplete func()) Subscriber[T] {
	return NewObserverWithContext(
		func(ctx context.Context, v T) { onNext(v) },
		func(ctx context.Context, err error) { onError(err) },
		func(ctx context.Context) { onComplete() },
	)
}

// NewObserverWithContext is like NewObserver, but callbacks receive the
// subscription's context.
func NewObserverWithContext[T any](onNext func(ctx context.Context, value T), onError func(ctx context.Context, err error), onComplete func(ctx context.Context)) Subscriber[T] {
	return &leafSubscriber[T]{
		capturePanics: true,
		onNext:        onNext,
		onError:       onError,
		onComplete:    onComplete,
	}
}

// NewUnsafeObserver is like NewObserver but does NOT wrap callbacks with
// panic-capture: a panicking callback propagates to the caller's goroutine
// instead of being converted into an OnError signal. Use only when the
// caller guarantees no panics, or wants them to crash loudly.
func NewUnsafeObserver[T any](onNext func(value T), onError func(err error), onComplete func()) Subscriber[T] {
	return &leafSubscriber[T]{
		capturePanics: false,
		onNext:        func(ctx context.Context, v T) { onNext(v) },
		onError:       func(ctx context.Context, err error) { onError(err) },
		onComplete:    func(ctx context.Context) { onComplete() },
	}
}

type leafSubscriber[T any] struct {
	status        int32 // 0 active, 1 errored, 2 completed
	capturePanics bool
	onNext        func(context.Context, T)
	onError       func(context.Context, error)
	onComplete    func(context.Context)
}

func (o *leafSubscriber[T]) OnSubscribe(ctx context.Context, subscription Subscription) {
	subscription.Request(MaxDemand)
}

func (o *leafSubscriber[T]) OnNext(ctx context.Context, value T) {
	if o.onNext == nil || atomic.LoadInt32(&o.status) != 0 {
		OnDroppedNotification(ctx, NewNotificationNext(value))
		return
	}

	o.tryNext(ctx, value)
}

func (o *leafSubscriber[T]) OnError(ctx context.Context, err error) {
	if o.onError == nil || !atomic.CompareAndSwapInt32(&o.status, 0, 1) {
		OnDroppedNotification(ctx, NewNotificationError[T](err))
		return
	}

	o.tryError(ctx, err)
}

func (o *leafSubscriber[T]) OnComplete(ctx context.Context) {
	if o.onComplete == nil || !atomic.CompareAndSwapInt32(&o.status, 0, 2) {
		OnDroppedNotification(ctx, NewNotificationComplete[T]())
		return
	}

	o.tryComplete(ctx)
}

func (o *leafSubscriber[T]) tryNext(ctx context.Context, value T) {
	if !o.capturePanics || isObserverPanicCaptureDisabled(ctx) {
		o.onNext(ctx, value)
		return
	}

	lo.TryCatchWithErrorValue(
		func() error {
			o.onNext(ctx, value)
			return nil
		},
		func(e any) {
			err := newObserverError(recoverValueToError(e))
			if o.onError == nil {
				OnUnhandledError(ctx, err)
			} else {
				o.tryError(ctx, err)
			}
		},
	)
}

func (o *leafSubscriber[T]) tryError(ctx context.Context, err error) {
	if !o.capturePanics || isObserverPanicCaptureDisabled(ctx) {
		o.onError(ctx, err)
		return
	}

	lo.TryCatchWithErrorValue(
		func() error {
			o.onError(ctx, err)
			return nil
		},
		func(e any) {
			OnUnhandledError(ctx, newObserverError(recoverValueToError(e)))
		},
	)
}

func (o *leafSubscriber[T]) tryComplete(ctx context.Context) {
	if !o.capturePanics || isObserverPanicCaptureDisabled(ctx) {
		o.onComplete(ctx)
		return
	}

	lo.TryCatchWithErrorValue(
		func() error {
			o.onComplete(ctx)
			return nil
		},
		func(e any) {
			OnUnhandledError(ctx, newObserverError(recoverValueToError(e)))
		},
	)
}

/*********************
 * Partial Observers *
 *********************/

// OnNext is a partial Subscriber with only OnNext implemented. Errors and
// completion are silently dropped.
func OnNext[T any](onNext func(value T)) Subscriber[T] {
	return NewObserver(onNext, func(err error) {}, func() {})
}

// OnError is a partial Subscriber with only OnError implemented.
func OnError[T any](onError func(err error)) Subscriber[T] {
	return NewObserver(func(value T) {}, onError, func() {})
}

// OnComplete is a partial Subscriber with only OnComplete implemented.
func OnComplete[T any](onComplete func()) Subscriber[T] {
	return NewObserver(func(value T) {}, func(err error) {}, onComplete)
}

// NoopObserver is a Subscriber that does nothing and requests unbounded
// demand, useful for draining a source purely for its side effects.
func NoopObserver[T any]() Subscriber[T] {
	return NewObserver(func(value T) {}, func(err error) {}, func() {})
}

// PrintObserver dumps notifications to stdout for debugging.
func PrintObserver[T any]() Subscriber[T] {
	return NewObserver(
		func(value T) { fmt.Printf("Next: %v\n", value) },
		func(err error) { fmt.Printf("Error: %s\n", err.Error()) },
		func() { fmt.Printf("Completed\n") },
	)
}
