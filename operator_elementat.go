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
)

// ElementAt emits only the value at the given zero-based index and then
// completes, cancelling the source as soon as it has what it needs. If the
// source completes with fewer than index+1 values, a ProtocolError is
// raised instead.
func ElementAt[T any](index int64) Operator[T, T] {
	return func(source Observable[T]) Observable[T] {
		return NewObservable(func(ctx context.Context, subscriber Subscriber[T]) Disposable {
			eas := &elementAtSubscriber[T]{ctx: ctx, dest: subscriber, index: index}

			return source.SubscribeWithContext(ctx, eas)
		})
	}
}

type elementAtSubscriber[T any] struct {
	ctx          context.Context
	dest         Subscriber[T]
	index        int64
	count        int64
	subscription Subscription
	done         bool
}

func (s *elementAtSubscriber[T]) OnSubscribe(ctx context.Context, subscription Subscription) {
	s.subscription = subscription
	s.dest.OnSubscribe(ctx, &elementAtSubscription[T]{inner: s})
}

func (s *elementAtSubscriber[T]) OnNext(ctx context.Context, value T) {
	if s.done {
		return
	}

	if s.count == s.index {
		s.done = true

		if s.subscription != nil {
			s.subscription.Cancel()
		}

		s.dest.OnNext(ctx, value)
		s.dest.OnComplete(ctx)

		return
	}

	s.count++

	if s.subscription != nil {
		s.subscription.Request(1)
	}
}

func (s *elementAtSubscriber[T]) OnError(ctx context.Context, err error) {
	if !s.done {
		s.done = true
		s.dest.OnError(ctx, err)
	}
}

func (s *elementAtSubscriber[T]) OnComplete(ctx context.Context) {
	if !s.done {
		s.done = true
		s.dest.OnError(ctx, newProtocolError("ElementAt: index out of range"))
	}
}

// elementAtSubscription is the Subscription handed to the downstream
// Subscriber; it lazily drives the single initial Request(1) upstream
// instead of forwarding arbitrary downstream demand, since ElementAt only
// ever needs one value at a time from its source.
type elementAtSubscription[T any] struct {
	inner   *elementAtSubscriber[T]
	started int32
}

func (e *elementAtSubscription[T]) Request(n int64) {
	if n <= 0 {
		ValidateRequest(e.inner.ctx, n)
		return
	}

	if atomic.CompareAndSwapInt32(&e.started, 0, 1) && e.inner.subscription != nil {
		e.inner.subscription.Request(1)
	}
}

func (e *elementAtSubscription[T]) Cancel() {
	if e.inner.subscription != nil {
		e.inner.subscription.Cancel()
	}
}
