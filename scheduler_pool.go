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
	"time"

	"golang.org/x/sync/semaphore"
)

// boundedScheduler caps the number of tasks running concurrently using a
// weighted semaphore, so an observe-on boundary or a flood of timers cannot
// spawn unbounded goroutines under load.
type boundedScheduler struct {
	sem *semaphore.Weighted
	ctx context.Context
}

// NewBoundedScheduler returns a Scheduler that runs up to maxConcurrency
// tasks at once; further Schedule calls block the caller's goroutine until
// a slot frees up. ScheduleAfter acquires its slot only once delay elapses.
func NewBoundedScheduler(maxConcurrency int64) Scheduler {
	return &boundedScheduler{
		sem: semaphore.NewWeighted(maxConcurrency),
		ctx: context.Background(),
	}
}

func (b *boundedScheduler) Schedule(task func()) Cancellable {
	c := &cancelFunc{fn: task}

	if err := b.sem.Acquire(b.ctx, 1); err != nil {
		return c
	}

	go func() {
		defer b.sem.Release(1)
		c.run()
	}()

	return c
}

func (b *boundedScheduler) ScheduleAfter(task func(), delay time.Duration) Cancellable {
	c := &cancelFunc{fn: task}

	timer := time.AfterFunc(delay, func() {
		if err := b.sem.Acquire(b.ctx, 1); err != nil {
			return
		}

		defer b.sem.Release(1)
		c.run()
	})

	return &timerCancellable{timer: timer, inner: c}
}
