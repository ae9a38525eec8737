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

// Skip drops the first n values from source, re-requesting 1 from upstream
// for each one dropped.
func Skip[T any](n int64) Operator[T, T] {
	return func(source Observable[T]) Observable[T] {
		return NewObservable(func(ctx context.Context, subscriber Subscriber[T]) Disposable {
			return source.SubscribeWithContext(ctx, &skipSubscriber[T]{
				ctx:       ctx,
				dest:      subscriber,
				remaining: n,
			})
		})
	}
}

type skipSubscriber[T any] struct {
	ctx          context.Context
	dest         Subscriber[T]
	remaining    int64
	subscription Subscription
	done         bool
}

func (s *skipSubscriber[T]) OnSubscribe(ctx context.Context, subscription Subscription) {
	s.subscription = subscription
	s.dest.OnSubscribe(ctx, subscription)
}

func (s *skipSubscriber[T]) OnNext(ctx context.Context, value T) {
	if s.remaining > 0 {
		s.remaining--

		if s.subscription != nil {
			s.subscription.Request(1)
		}

		return
	}

	s.dest.OnNext(ctx, value)
}

func (s *skipSubscriber[T]) OnError(ctx context.Context, err error) {
	if !s.done {
		s.done = true
		s.dest.OnError(ctx, err)
	}
}

func (s *skipSubscriber[T]) OnComplete(ctx context.Context) {
	if !s.done {
		s.done = true
		s.dest.OnComplete(ctx)
	}
}
