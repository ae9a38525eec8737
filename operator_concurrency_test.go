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
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestObserveOn_immediateSchedulerPreservesValues(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	var got []int
	var completed bool

	Pipe1(FromSlice([]int{1, 2, 3}), ObserveOn[int](ImmediateScheduler, 4, true)).Subscribe(NewObserver(
		func(v int) { got = append(got, v) },
		func(err error) { t.Fatalf("unexpected error: %v", err) },
		func() { completed = true },
	))

	is.Equal([]int{1, 2, 3}, got)
	is.True(completed)
}

func TestObserveOn_goroutineSchedulerEventuallyDelivers(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	var mu sync.Mutex
	var got []int
	done := make(chan struct{})

	Pipe1(FromSlice([]int{1, 2, 3}), ObserveOn[int](GoroutineScheduler, 4, true)).Subscribe(NewObserver(
		func(v int) {
			mu.Lock()
			got = append(got, v)
			if len(got) == 3 {
				close(done)
			}
			mu.Unlock()
		},
		func(err error) { t.Fatalf("unexpected error: %v", err) },
		func() {},
	))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for ObserveOn to deliver via GoroutineScheduler")
	}

	mu.Lock()
	defer mu.Unlock()
	is.Equal([]int{1, 2, 3}, got)
}

// queueingScheduler never runs a task until runAll is called, so a test can
// pile up scheduled drain passes and inspect state before any of them run.
type queueingScheduler struct {
	mu    sync.Mutex
	tasks []func()
}

func (s *queueingScheduler) Schedule(task func()) Cancellable {
	s.mu.Lock()
	s.tasks = append(s.tasks, task)
	s.mu.Unlock()

	return &cancelFunc{fn: task}
}

func (s *queueingScheduler) ScheduleAfter(task func(), delay time.Duration) Cancellable {
	return s.Schedule(task)
}

func (s *queueingScheduler) runAll() {
	s.mu.Lock()
	tasks := s.tasks
	s.tasks = nil
	s.mu.Unlock()

	for _, task := range tasks {
		task()
	}
}

func TestObserveOn_delayErrorFalseDiscardsQueuedValues(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	boom := assert.AnError
	source := NewObservable(func(ctx context.Context, subscriber Subscriber[int]) Disposable {
		subscriber.OnSubscribe(ctx, EmptySubscription)
		subscriber.OnNext(ctx, 1)
		subscriber.OnNext(ctx, 2)
		subscriber.OnError(ctx, boom)

		return NewDisposable(func() {})
	})

	sched := &queueingScheduler{}
	var got []int
	var gotErr error

	Pipe1(source, ObserveOn[int](sched, 8, false)).Subscribe(NewObserver(
		func(v int) { got = append(got, v) },
		func(err error) { gotErr = err },
		func() { t.Fatalf("unexpected completion") },
	))

	sched.runAll()

	is.Empty(got)
	is.ErrorIs(gotErr, boom)
}

func TestObserveOn_delayErrorTrueDrainsQueuedValuesBeforeError(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	boom := assert.AnError
	source := NewObservable(func(ctx context.Context, subscriber Subscriber[int]) Disposable {
		subscriber.OnSubscribe(ctx, EmptySubscription)
		subscriber.OnNext(ctx, 1)
		subscriber.OnNext(ctx, 2)
		subscriber.OnError(ctx, boom)

		return NewDisposable(func() {})
	})

	sched := &queueingScheduler{}
	var got []int
	var gotErr error

	Pipe1(source, ObserveOn[int](sched, 8, true)).Subscribe(NewObserver(
		func(v int) { got = append(got, v) },
		func(err error) { gotErr = err },
		func() { t.Fatalf("unexpected completion") },
	))

	sched.runAll()

	is.Equal([]int{1, 2}, got)
	is.ErrorIs(gotErr, boom)
}

func TestFlatMap_mergesInnerObservables(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	var got []int
	var completed bool

	mapper := func(v int) Observable[int] {
		return FromSlice([]int{v, v * 10})
	}

	Pipe1(FromSlice([]int{1, 2}), FlatMap(mapper, 0, 0)).Subscribe(NewObserver(
		func(v int) { got = append(got, v) },
		func(err error) { t.Fatalf("unexpected error: %v", err) },
		func() { completed = true },
	))

	sort.Ints(got)
	is.Equal([]int{1, 2, 10, 20}, got)
	is.True(completed)
}

func TestFlatMap_innerErrorPropagates(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	boom := assert.AnError
	mapper := func(v int) Observable[int] {
		if v == 2 {
			return Throw[int](boom)
		}

		return FromSlice([]int{v})
	}

	var gotErr error

	Pipe1(FromSlice([]int{1, 2, 3}), FlatMap(mapper, 0, 0)).Subscribe(NewObserver(
		func(v int) {},
		func(err error) { gotErr = err },
		func() {},
	))

	is.ErrorIs(gotErr, boom)
}

func TestFlatMap_lowPrefetchStillDeliversEveryInnerValue(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	var got []int
	var completed bool

	mapper := func(v int) Observable[int] {
		return FromSlice([]int{v, v * 10, v * 100})
	}

	Pipe1(FromSlice([]int{1, 2, 3}), FlatMap(mapper, 0, 1)).Subscribe(NewObserver(
		func(v int) { got = append(got, v) },
		func(err error) { t.Fatalf("unexpected error: %v", err) },
		func() { completed = true },
	))

	sort.Ints(got)
	is.Equal([]int{1, 2, 3, 10, 20, 30, 100, 200, 300}, got)
	is.True(completed)
}

func TestMerge_interleavesAllSources(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	var got []int
	var completed bool

	Merge(FromSlice([]int{1, 2}), FromSlice([]int{3, 4})).Subscribe(NewObserver(
		func(v int) { got = append(got, v) },
		func(err error) { t.Fatalf("unexpected error: %v", err) },
		func() { completed = true },
	))

	sort.Ints(got)
	is.Equal([]int{1, 2, 3, 4}, got)
	is.True(completed)
}

func TestConcatArray_runsSourcesInOrder(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	var got []int
	var completed bool

	ConcatArray(FromSlice([]int{1, 2}), FromSlice([]int{3, 4})).Subscribe(NewObserver(
		func(v int) { got = append(got, v) },
		func(err error) { t.Fatalf("unexpected error: %v", err) },
		func() { completed = true },
	))

	is.Equal([]int{1, 2, 3, 4}, got)
	is.True(completed)
}

func TestZip2_combinesPairwise(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	type pair struct {
		a int
		b string
	}

	var got []pair
	var completed bool
	done := make(chan struct{})

	Zip2(FromSlice([]int{1, 2, 3}), FromSlice([]string{"a", "b", "c"}), func(a int, b string) pair {
		return pair{a, b}
	}).SubscribeWithContext(context.Background(), NewObserver(
		func(v pair) { got = append(got, v) },
		func(err error) { t.Fatalf("unexpected error: %v", err) },
		func() { completed = true; close(done) },
	))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for Zip2 to complete")
	}

	is.Equal([]pair{{1, "a"}, {2, "b"}, {3, "c"}}, got)
	is.True(completed)
}

type trackingCancelSubscription struct {
	cancelled *atomic.Bool
}

func (s *trackingCancelSubscription) Request(n int64) {}

func (s *trackingCancelSubscription) Cancel() {
	s.cancelled.Store(true)
}

func TestZip2_exhaustingOneSourceCancelsTheOther(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	// stillRunning supplies a matching pair for every value FromSlice below
	// emits, so its queue drains in lockstep, but never calls OnComplete
	// itself — modelling a sibling source still running after the other
	// side has been fully consumed.
	var stillRunningCancelled atomic.Bool
	stillRunning := NewObservable(func(ctx context.Context, subscriber Subscriber[int]) Disposable {
		subscriber.OnSubscribe(ctx, &trackingCancelSubscription{cancelled: &stillRunningCancelled})
		subscriber.OnNext(ctx, 10)
		subscriber.OnNext(ctx, 20)

		return NewDisposable(func() {})
	})

	var got []int
	var completed bool

	Zip2(FromSlice([]int{1, 2}), stillRunning, func(a int, b int) int { return a + b }).SubscribeWithContext(
		context.Background(),
		NewObserver(
			func(v int) { got = append(got, v) },
			func(err error) { t.Fatalf("unexpected error: %v", err) },
			func() { completed = true },
		),
	)

	is.Equal([]int{11, 22}, got)
	is.True(completed)
	is.True(stillRunningCancelled.Load(), "the still-running sibling must be cancelled once the other source is exhausted")
}

func TestBuffer_groupsIntoFullAndTrailingBatches(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	var got [][]int

	Pipe1(FromSlice([]int{1, 2, 3, 4, 5}), Buffer[int](2, 2)).Subscribe(
		OnNext(func(v []int) { got = append(got, v) }),
	)

	is.Equal([][]int{{1, 2}, {3, 4}, {5}}, got)
}

func TestBuffer_skipLessThanCountOverlaps(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	var got [][]int

	Pipe1(FromSlice([]int{1, 2, 3, 4, 5}), Buffer[int](3, 1)).Subscribe(
		OnNext(func(v []int) { got = append(got, v) }),
	)

	is.Equal([][]int{{1, 2, 3}, {2, 3, 4}, {3, 4, 5}, {4, 5}, {5}}, got)
}

func TestBuffer_skipGreaterThanCountDropsGaps(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	var got [][]int

	Pipe1(FromSlice([]int{1, 2, 3, 4, 5, 6, 7}), Buffer[int](2, 3)).Subscribe(
		OnNext(func(v []int) { got = append(got, v) }),
	)

	is.Equal([][]int{{1, 2}, {4, 5}, {7}}, got)
}

func TestPublishProcessor_multicastsToAllSubscribers(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	p := NewPublishProcessor[int]()

	var gotA, gotB []int
	p.Subscribe(NewObserver(
		func(v int) { gotA = append(gotA, v) },
		func(err error) {},
		func() {},
	))
	p.Subscribe(NewObserver(
		func(v int) { gotB = append(gotB, v) },
		func(err error) {},
		func() {},
	))

	ctx := context.Background()
	p.OnSubscribe(ctx, EmptySubscription)
	p.OnNext(ctx, 1)
	p.OnNext(ctx, 2)
	p.OnComplete(ctx)

	is.Equal([]int{1, 2}, gotA)
	is.Equal([]int{1, 2}, gotB)
}

func TestPublishProcessor_lackOfRequestsIsolatesOnlyThatSubscriber(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	p := NewPublishProcessor[int]()

	var starvedErr error
	starved := &zeroDemandSubscriber[int]{onError: func(err error) { starvedErr = err }}
	p.Subscribe(starved)

	var healthy []int
	p.Subscribe(NewObserver(
		func(v int) { healthy = append(healthy, v) },
		func(err error) { t.Fatalf("unexpected error on healthy subscriber: %v", err) },
		func() {},
	))

	ctx := context.Background()
	p.OnSubscribe(ctx, EmptySubscription)
	p.OnNext(ctx, 1)
	p.OnComplete(ctx)

	is.Error(starvedErr)
	is.Equal([]int{1}, healthy)
}

// zeroDemandSubscriber never requests anything; used to prove a Processor
// isolates a starved downstream instead of stalling the others.
type zeroDemandSubscriber[T any] struct {
	onError func(err error)
}

func (s *zeroDemandSubscriber[T]) OnSubscribe(ctx context.Context, subscription Subscription) {}
func (s *zeroDemandSubscriber[T]) OnNext(ctx context.Context, value T)                        {}
func (s *zeroDemandSubscriber[T]) OnError(ctx context.Context, err error)                     { s.onError(err) }
func (s *zeroDemandSubscriber[T]) OnComplete(ctx context.Context)                              {}
