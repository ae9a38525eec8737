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

import "context"

// Observable is the upstream half of the signal contract (spec §2): a
// producer that, for each Subscribe call, delivers exactly one OnSubscribe
// followed by zero or more OnNext, followed by at most one of OnError or
// OnComplete. Each call to Subscribe starts an independent subscription;
// Observables hold no state shared across subscribers unless built on top
// of a multicast Processor.
type Observable[T any] interface {
	Subscribe(subscriber Subscriber[T]) Disposable
	SubscribeWithContext(ctx context.Context, subscriber Subscriber[T]) Disposable
}

type observableImpl[T any] struct {
	mode        ConcurrencyMode
	onSubscribe func(ctx context.Context, subscriber Subscriber[T]) Disposable
}

func (o *observableImpl[T]) Subscribe(subscriber Subscriber[T]) Disposable {
	return o.SubscribeWithContext(context.Background(), subscriber)
}

func (o *observableImpl[T]) SubscribeWithContext(ctx context.Context, subscriber Subscriber[T]) Disposable {
	wrapped := newConcurrencySubscriber(o.mode, subscriber)
	return o.onSubscribe(ctx, wrapped)
}

// NewObservableWithMode builds an Observable from a raw subscribe function,
// serializing calls into the resulting Subscriber according to mode. The
// operators in this package go through NewObservable (ConcurrencyModeSafe);
// RangeWithMode is the one caller that passes a mode of its own.
func NewObservableWithMode[T any](mode ConcurrencyMode, onSubscribe func(ctx context.Context, subscriber Subscriber[T]) Disposable) Observable[T] {
	return &observableImpl[T]{mode: mode, onSubscribe: onSubscribe}
}

// NewObservable builds an Observable whose subscriber is protected by a real
// mutex (ConcurrencyModeSafe), correct regardless of how many goroutines the
// subscribe function ends up calling OnNext/OnError/OnComplete from.
func NewObservable[T any](onSubscribe func(ctx context.Context, subscriber Subscriber[T]) Disposable) Observable[T] {
	return NewObservableWithMode(ConcurrencyModeSafe, onSubscribe)
}

// NewUnsafeObservable is like NewObservable but performs no locking at all
// around the downstream Subscriber. Only correct when the subscribe
// function is known to call it from a single goroutine at a time.
func NewUnsafeObservable[T any](onSubscribe func(ctx context.Context, subscriber Subscriber[T]) Disposable) Observable[T] {
	return NewObservableWithMode(ConcurrencyModeUnsafe, onSubscribe)
}

// NewEventuallySafeObservable uses a TryLock-first strategy: cheap in the
// common single-producer case; an OnNext that loses the TryLock to a second
// goroutine is dropped and reported via OnDroppedNotification, while
// OnError/OnComplete always take the lock.
func NewEventuallySafeObservable[T any](onSubscribe func(ctx context.Context, subscriber Subscriber[T]) Disposable) Observable[T] {
	return NewObservableWithMode(ConcurrencyModeEventuallySafe, onSubscribe)
}

// NewSingleProducerObservable asserts a single producer goroutine and panics
// with a ProtocolError if that assumption is ever violated, rather than
// silently racing.
func NewSingleProducerObservable[T any](onSubscribe func(ctx context.Context, subscriber Subscriber[T]) Disposable) Observable[T] {
	return NewObservableWithMode(ConcurrencyModeSingleProducer, onSubscribe)
}
