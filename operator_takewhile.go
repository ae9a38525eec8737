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

// TakeWhile emits values while predicate holds and completes as soon as it
// returns false, cancelling the upstream instead of waiting for it to
// terminate on its own.
func TakeWhile[T any](predicate func(value T) bool) Operator[T, T] {
	return func(source Observable[T]) Observable[T] {
		return NewObservable(func(ctx context.Context, subscriber Subscriber[T]) Disposable {
			return source.SubscribeWithContext(ctx, &takeWhileSubscriber[T]{
				ctx:       ctx,
				dest:      subscriber,
				predicate: predicate,
			})
		})
	}
}

type takeWhileSubscriber[T any] struct {
	ctx          context.Context
	dest         Subscriber[T]
	predicate    func(T) bool
	subscription Subscription
	done         bool
}

func (s *takeWhileSubscriber[T]) OnSubscribe(ctx context.Context, subscription Subscription) {
	s.subscription = subscription
	s.dest.OnSubscribe(ctx, subscription)
}

func (s *takeWhileSubscriber[T]) OnNext(ctx context.Context, value T) {
	if s.done {
		return
	}

	var keep bool

	lo.TryCatchWithErrorValue(
		func() error {
			keep = s.predicate(value)
			return nil
		},
		func(e any) {
			s.done = true

			if s.subscription != nil {
				s.subscription.Cancel()
			}

			s.dest.OnError(ctx, newMapperError(recoverValueToError(e)))
		},
	)

	if s.done {
		return
	}

	if !keep {
		s.done = true

		if s.subscription != nil {
			s.subscription.Cancel()
		}

		s.dest.OnComplete(ctx)
		return
	}

	s.dest.OnNext(ctx, value)
}

func (s *takeWhileSubscriber[T]) OnError(ctx context.Context, err error) {
	if !s.done {
		s.done = true
		s.dest.OnError(ctx, err)
	}
}

func (s *takeWhileSubscriber[T]) OnComplete(ctx context.Context) {
	if !s.done {
		s.done = true
		s.dest.OnComplete(ctx)
	}
}
