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
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
)

// gocronScheduler adapts a gocron.Scheduler into the TimeScheduler
// interface, backing the interval/timer sources with a real cron-capable
// scheduler instead of a hand-rolled timer wheel.
type gocronScheduler struct {
	s gocron.Scheduler
}

// NewGocronTimeScheduler starts a gocron-backed TimeScheduler. The returned
// TimeScheduler gives no access to the underlying gocron scheduler and has
// no method to shut it down; ro keeps no global registry of schedulers.
func NewGocronTimeScheduler() (TimeScheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	s.Start()

	return &gocronScheduler{s: s}, nil
}

func (g *gocronScheduler) Schedule(task func()) Cancellable {
	return g.ScheduleAfter(task, 0)
}

func (g *gocronScheduler) ScheduleAfter(task func(), delay time.Duration) Cancellable {
	if delay < 0 {
		delay = 0
	}

	job, err := g.s.NewJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(time.Now().Add(delay))),
		gocron.NewTask(task),
	)
	if err != nil {
		c := &cancelFunc{fn: task}
		c.run()

		return c
	}

	return &gocronCancellable{s: g.s, id: job.ID()}
}

func (g *gocronScheduler) ScheduleEvery(task func(), period time.Duration) Cancellable {
	job, err := g.s.NewJob(
		gocron.DurationJob(period),
		gocron.NewTask(task),
	)
	if err != nil {
		return &cancelFunc{}
	}

	return &gocronCancellable{s: g.s, id: job.ID()}
}

type gocronCancellable struct {
	s  gocron.Scheduler
	id uuid.UUID
}

func (g *gocronCancellable) Cancel() {
	_ = g.s.RemoveJob(g.id)
}
