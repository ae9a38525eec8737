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

// DistinctUntilChanged drops a value equal (per equals) to the immediately
// preceding emitted value. Every dropped value re-requests 1 from upstream,
// same replenishment rule as Filter.
func DistinctUntilChanged[T any](equals func(a, b T) bool) Operator[T, T] {
	return func(source Observable[T]) Observable[T] {
		return NewObservable(func(ctx context.Context, subscriber Subscriber[T]) Disposable {
			return source.SubscribeWithContext(ctx, &distinctSubscriber[T]{
				ctx:    ctx,
				dest:   subscriber,
				equals: equals,
			})
		})
	}
}

type distinctSubscriber[T any] struct {
	ctx          context.Context
	dest         Subscriber[T]
	equals       func(a, b T) bool
	subscription Subscription
	has          bool
	last         T
	done         bool
}

func (s *distinctSubscriber[T]) OnSubscribe(ctx context.Context, subscription Subscription) {
	s.subscription = subscription
	s.dest.OnSubscribe(ctx, subscription)
}

func (s *distinctSubscriber[T]) OnNext(ctx context.Context, value T) {
	if s.has && s.equals(s.last, value) {
		if s.subscription != nil {
			s.subscription.Request(1)
		}

		return
	}

	s.has = true
	s.last = value
	s.dest.OnNext(ctx, value)
}

func (s *distinctSubscriber[T]) OnError(ctx context.Context, err error) {
	if !s.done {
		s.done = true
		s.dest.OnError(ctx, err)
	}
}

func (s *distinctSubscriber[T]) OnComplete(ctx context.Context) {
	if !s.done {
		s.done = true
		s.dest.OnComplete(ctx)
	}
}
