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
	"testing"

	"github.com/stretchr/testify/assert"
)

func emitThreeAndComplete[T any](a, b, c T) func(ctx context.Context, subscriber Subscriber[T]) Disposable {
	return func(ctx context.Context, subscriber Subscriber[T]) Disposable {
		subscriber.OnSubscribe(ctx, EmptySubscription)
		subscriber.OnNext(ctx, a)
		subscriber.OnNext(ctx, b)
		subscriber.OnNext(ctx, c)
		subscriber.OnComplete(ctx)

		return NewDisposable(func() {})
	}
}

func TestNewUnsafeObservable(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	var values []int
	obs := NewUnsafeObservable(emitThreeAndComplete(1, 2, 3))

	obs.Subscribe(NewObserver(
		func(value int) { values = append(values, value) },
		func(err error) { t.Fatalf("unexpected error: %v", err) },
		func() {},
	))

	is.Equal([]int{1, 2, 3}, values)
}

func TestNewEventuallySafeObservable(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	var values []int
	obs := NewEventuallySafeObservable(emitThreeAndComplete(1, 2, 3))

	obs.Subscribe(NewObserver(
		func(value int) { values = append(values, value) },
		func(err error) { t.Fatalf("unexpected error: %v", err) },
		func() {},
	))

	is.Equal([]int{1, 2, 3}, values)
}

func TestNewSingleProducerObservable(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	var values []int
	obs := NewSingleProducerObservable(emitThreeAndComplete(1, 2, 3))

	obs.Subscribe(NewObserver(
		func(value int) { values = append(values, value) },
		func(err error) { t.Fatalf("unexpected error: %v", err) },
		func() {},
	))

	is.Equal([]int{1, 2, 3}, values)
}

func TestNewSingleProducerObservableWithContext(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	var values []int
	var ctxReceived context.Context
	obs := NewSingleProducerObservable(func(ctx context.Context, subscriber Subscriber[int]) Disposable {
		ctxReceived = ctx
		subscriber.OnSubscribe(ctx, EmptySubscription)
		subscriber.OnNext(ctx, 1)
		subscriber.OnNext(ctx, 2)
		subscriber.OnNext(ctx, 3)
		subscriber.OnComplete(ctx)

		return NewDisposable(func() {})
	})

	ctx := context.WithValue(context.Background(), testCtxKey, "value")
	obs.SubscribeWithContext(ctx, NewObserver(
		func(value int) { values = append(values, value) },
		func(err error) { t.Fatalf("unexpected error: %v", err) },
		func() {},
	))

	is.Equal([]int{1, 2, 3}, values)
	is.NotNil(ctxReceived)
	is.Equal("value", ctxReceived.Value(testCtxKey))
}

func TestNewEventuallySafeObservableWithContext(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	var values []int
	var ctxReceived context.Context
	obs := NewEventuallySafeObservable(func(ctx context.Context, subscriber Subscriber[int]) Disposable {
		ctxReceived = ctx
		subscriber.OnSubscribe(ctx, EmptySubscription)
		subscriber.OnNext(ctx, 1)
		subscriber.OnNext(ctx, 2)
		subscriber.OnNext(ctx, 3)
		subscriber.OnComplete(ctx)

		return NewDisposable(func() {})
	})

	ctx := context.WithValue(context.Background(), testCtxKey, "value")
	obs.SubscribeWithContext(ctx, NewObserver(
		func(value int) { values = append(values, value) },
		func(err error) { t.Fatalf("unexpected error: %v", err) },
		func() {},
	))

	is.Equal([]int{1, 2, 3}, values)
	is.NotNil(ctxReceived)
	is.Equal("value", ctxReceived.Value(testCtxKey))
}
