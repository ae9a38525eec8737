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

	"github.com/samber/lo"
)

// Scan emits the running accumulation of accumulator applied left to right
// over the source, starting from seed. Unlike Reduce it emits every
// intermediate value, 1:1 with the source.
func Scan[T, R any](seed R, accumulator func(acc R, value T) R) Operator[T, R] {
	return func(source Observable[T]) Observable[R] {
		return NewObservable(func(ctx context.Context, subscriber Subscriber[R]) Disposable {
			return source.SubscribeWithContext(ctx, &scanSubscriber[T, R]{
				ctx:         ctx,
				dest:        subscriber,
				accumulator: accumulator,
				acc:         seed,
			})
		})
	}
}

type scanSubscriber[T, R any] struct {
	ctx          context.Context
	dest         Subscriber[R]
	accumulator  func(R, T) R
	acc          R
	subscription Subscription
	done         bool
}

func (s *scanSubscriber[T, R]) OnSubscribe(ctx context.Context, subscription Subscription) {
	s.subscription = subscription
	s.dest.OnSubscribe(ctx, subscription)
}

func (s *scanSubscriber[T, R]) OnNext(ctx context.Context, value T) {
	lo.TryCatchWithErrorValue(
		func() error {
			s.acc = s.accumulator(s.acc, value)
			return nil
		},
		func(e any) {
			s.fail(ctx, newMapperError(recoverValueToError(e)))
		},
	)

	if !s.done {
		s.dest.OnNext(ctx, s.acc)
	}
}

func (s *scanSubscriber[T, R]) OnError(ctx context.Context, err error) {
	if !s.done {
		s.done = true
		s.dest.OnError(ctx, err)
	}
}

func (s *scanSubscriber[T, R]) OnComplete(ctx context.Context) {
	if !s.done {
		s.done = true
		s.dest.OnComplete(ctx)
	}
}

func (s *scanSubscriber[T, R]) fail(ctx context.Context, err error) {
	if !s.done {
		s.done = true

		if s.subscription != nil {
			s.subscription.Cancel()
		}

		s.dest.OnError(ctx, err)
	}
}
