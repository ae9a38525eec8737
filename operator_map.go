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

// Map transforms each value with mapper. Demand passes through 1:1: Map
// never changes how many items downstream has to request, so it forwards
// the upstream Subscription unchanged instead of wrapping it.
func Map[T, R any](mapper func(value T) R) Operator[T, R] {
	return func(source Observable[T]) Observable[R] {
		return NewObservable(func(ctx context.Context, subscriber Subscriber[R]) Disposable {
			return source.SubscribeWithContext(ctx, &mapSubscriber[T, R]{
				ctx:    ctx,
				dest:   subscriber,
				mapper: mapper,
			})
		})
	}
}

type mapSubscriber[T, R any] struct {
	ctx          context.Context
	dest         Subscriber[R]
	mapper       func(T) R
	subscription Subscription
	done         int32
}

func (s *mapSubscriber[T, R]) OnSubscribe(ctx context.Context, subscription Subscription) {
	s.subscription = subscription
	s.dest.OnSubscribe(ctx, subscription)
}

func (s *mapSubscriber[T, R]) OnNext(ctx context.Context, value T) {
	var out R

	lo.TryCatchWithErrorValue(
		func() error {
			out = s.mapper(value)
			return nil
		},
		func(e any) {
			s.fail(ctx, newMapperError(recoverValueToError(e)))
		},
	)

	if s.failed() {
		return
	}

	s.dest.OnNext(ctx, out)
}

func (s *mapSubscriber[T, R]) OnError(ctx context.Context, err error) {
	if s.markDone() {
		s.dest.OnError(ctx, err)
	}
}

func (s *mapSubscriber[T, R]) OnComplete(ctx context.Context) {
	if s.markDone() {
		s.dest.OnComplete(ctx)
	}
}

func (s *mapSubscriber[T, R]) fail(ctx context.Context, err error) {
	if s.markDone() {
		if s.subscription != nil {
			s.subscription.Cancel()
		}

		s.dest.OnError(ctx, err)
	}
}

func (s *mapSubscriber[T, R]) failed() bool {
	return s.done != 0
}

// markDone performs a plain (non-atomic) check-and-set: Map relies on the
// serial-observation guarantee (spec §5) that upstream never calls
// OnNext/OnError/OnComplete concurrently with itself, so no CAS is needed
// here.
func (s *mapSubscriber[T, R]) markDone() bool {
	if s.done != 0 {
		return false
	}

	s.done = 1

	return true
}
