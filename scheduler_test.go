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
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestImmediateScheduler_runsSynchronously(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	ran := false
	ImmediateScheduler.Schedule(func() { ran = true })

	is.True(ran)
}

func TestGoroutineScheduler_runsEventually(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	done := make(chan struct{})
	GoroutineScheduler.Schedule(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for GoroutineScheduler task")
	}

	is.True(true)
}

func TestCancellable_cancelPreventsLateRun(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	var ran int32
	c := GoroutineScheduler.ScheduleAfter(func() { atomic.AddInt32(&ran, 1) }, 50*time.Millisecond)
	c.Cancel()

	time.Sleep(100 * time.Millisecond)
	is.Equal(int32(0), atomic.LoadInt32(&ran))
}

func TestBoundedScheduler_capsConcurrency(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	sched := NewBoundedScheduler(2)

	var current, maxSeen int32
	var wg sync.WaitGroup
	const tasks = 10

	for i := 0; i < tasks; i++ {
		wg.Add(1)
		sched.Schedule(func() {
			defer wg.Done()

			n := atomic.AddInt32(&current, 1)
			for {
				old := atomic.LoadInt32(&maxSeen)
				if n <= old || atomic.CompareAndSwapInt32(&maxSeen, old, n) {
					break
				}
			}

			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&current, -1)
		})
	}

	wg.Wait()
	is.LessOrEqual(atomic.LoadInt32(&maxSeen), int32(2))
}

func TestTrampolineScheduler_runsReentrantWorkWithoutRecursing(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	var order []int
	var depth int32

	trampoline := TrampolineScheduler
	trampoline.Schedule(func() {
		is.Equal(int32(1), atomic.AddInt32(&depth, 1))
		order = append(order, 1)

		trampoline.Schedule(func() {
			order = append(order, 2)
		})

		order = append(order, 3)
		atomic.AddInt32(&depth, -1)
	})

	is.Equal([]int{1, 3, 2}, order)
}

func TestExecutorScheduler_runsTasksInSubmissionOrder(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	sched := NewExecutorScheduler()
	defer sched.Stop()

	var mu sync.Mutex
	var order []int
	done := make(chan struct{})

	for i := 1; i <= 3; i++ {
		i := i
		sched.Schedule(func() {
			mu.Lock()
			order = append(order, i)
			if len(order) == 3 {
				close(done)
			}
			mu.Unlock()
		})
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for ExecutorScheduler tasks")
	}

	mu.Lock()
	defer mu.Unlock()
	is.Equal([]int{1, 2, 3}, order)
}

func TestTimer_emitsOnceAfterDelay(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	var got int
	var completed bool
	done := make(chan struct{})

	Timer(ImmediateScheduler, 0, 42).Subscribe(NewObserver(
		func(v int) { got = v },
		func(err error) { t.Fatalf("unexpected error: %v", err) },
		func() { completed = true; close(done) },
	))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for Timer to complete")
	}

	is.Equal(42, got)
	is.True(completed)
}

// manualTickScheduler is a TimeScheduler whose ScheduleEvery never runs on
// its own; the test drives ticks directly via tick(), so Interval's
// demand-lag behavior can be exercised without racing a real clock.
type manualTickScheduler struct {
	task func()
}

func (s *manualTickScheduler) Schedule(task func()) Cancellable {
	task()
	return &cancelFunc{fn: task}
}

func (s *manualTickScheduler) ScheduleAfter(task func(), delay time.Duration) Cancellable {
	return s.Schedule(task)
}

func (s *manualTickScheduler) ScheduleEvery(task func(), period time.Duration) Cancellable {
	s.task = task
	return &cancelFunc{fn: task}
}

func (s *manualTickScheduler) tick() {
	s.task()
}

// recordingIntervalSubscriber captures what Interval delivers without
// auto-requesting MaxDemand, so the test can control demand one tick at a
// time.
type recordingIntervalSubscriber struct {
	t            *testing.T
	subscription Subscription
	got          []int64
	err          error
}

func (s *recordingIntervalSubscriber) OnSubscribe(ctx context.Context, subscription Subscription) {
	s.subscription = subscription
}
func (s *recordingIntervalSubscriber) OnNext(ctx context.Context, value int64) { s.got = append(s.got, value) }
func (s *recordingIntervalSubscriber) OnError(ctx context.Context, err error)  { s.err = err }
func (s *recordingIntervalSubscriber) OnComplete(ctx context.Context) {
	s.t.Fatalf("unexpected completion")
}

func TestInterval_tickWithNoDemandErrorsTheSubscriber(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	sched := &manualTickScheduler{}
	rec := &recordingIntervalSubscriber{t: t}

	Interval(sched, time.Millisecond).SubscribeWithContext(context.Background(), rec)

	rec.subscription.Request(1)
	sched.tick()
	sched.tick()

	is.Equal([]int64{0}, rec.got)
	is.Error(rec.err)

	var lagErr *DemandLagError
	is.ErrorAs(rec.err, &lagErr)
	is.Equal(int64(1), lagErr.Tick)
}
