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
)

// Processor is a multicast Subscriber/Observable: a single upstream
// subscription broadcasting to any number of downstream subscribers, each
// tracked with its own outstanding demand. A downstream that has no
// outstanding demand when a value arrives is not stalled for the others: it
// alone is dropped with a LackOfRequestsError while every other subscriber
// keeps receiving values. A value published before any subscriber attaches
// is not delivered to anyone; Processor does not replay history.
type Processor[T any] interface {
	Observable[T]
	Subscriber[T]
}

// NewPublishProcessor creates a Processor with no replay semantics: late
// subscribers only observe values emitted after they subscribe.
func NewPublishProcessor[T any]() Processor[T] {
	return &publishProcessor[T]{}
}

type processorSubscriber[T any] struct {
	dest      Subscriber[T]
	requested int64
	cancelled atomic.Bool
}

type publishProcessor[T any] struct {
	mu          sync.Mutex
	subscribers []*processorSubscriber[T] // copy-on-write: replaced only under mu, read via snapshot() under mu
	terminated  bool
	terminalErr error
	completed   bool
	upstream    Subscription
}

/*************************
 * Implements Subscriber *
 *************************/

func (p *publishProcessor[T]) OnSubscribe(ctx context.Context, subscription Subscription) {
	p.mu.Lock()
	p.upstream = subscription
	p.mu.Unlock()

	subscription.Request(MaxDemand)
}

func (p *publishProcessor[T]) OnNext(ctx context.Context, value T) {
	for _, sub := range p.snapshot() {
		if sub.cancelled.Load() {
			continue
		}

		cur := atomic.LoadInt64(&sub.requested)
		if cur == 0 {
			sub.cancelled.Store(true)
			p.remove(sub)
			sub.dest.OnError(ctx, newLackOfRequestsError())

			continue
		}

		if cur != MaxDemand {
			AtomicSubDemand(&sub.requested, 1)
		}

		sub.dest.OnNext(ctx, value)
	}
}

func (p *publishProcessor[T]) OnError(ctx context.Context, err error) {
	subs, ok := p.terminate(err, false)
	if !ok {
		OnDroppedNotification(ctx, NewNotificationError[T](err))
		return
	}

	for _, sub := range subs {
		sub.dest.OnError(ctx, err)
	}
}

func (p *publishProcessor[T]) OnComplete(ctx context.Context) {
	subs, ok := p.terminate(nil, true)
	if !ok {
		OnDroppedNotification(ctx, NewNotificationComplete[T]())
		return
	}

	for _, sub := range subs {
		sub.dest.OnComplete(ctx)
	}
}

func (p *publishProcessor[T]) terminate(err error, completed bool) ([]*processorSubscriber[T], bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.terminated {
		return nil, false
	}

	p.terminated = true
	p.terminalErr = err
	p.completed = completed
	subs := p.subscribers
	p.subscribers = nil

	return subs, true
}

/*************************
 * Implements Observable *
 *************************/

func (p *publishProcessor[T]) Subscribe(subscriber Subscriber[T]) Disposable {
	return p.SubscribeWithContext(context.Background(), subscriber)
}

func (p *publishProcessor[T]) SubscribeWithContext(ctx context.Context, subscriber Subscriber[T]) Disposable {
	p.mu.Lock()

	if p.terminated {
		err, completed := p.terminalErr, p.completed
		p.mu.Unlock()

		subscriber.OnSubscribe(ctx, EmptySubscription)

		if err != nil {
			subscriber.OnError(ctx, err)
		} else if completed {
			subscriber.OnComplete(ctx)
		}

		return NewDisposable(func() {})
	}

	sub := &processorSubscriber[T]{dest: subscriber}
	p.subscribers = append(copySubscribers(p.subscribers), sub)
	p.mu.Unlock()

	subscriber.OnSubscribe(ctx, &processorSubscription[T]{sub: sub})

	return NewDisposable(func() {
		sub.cancelled.Store(true)
		p.remove(sub)
	})
}

func (p *publishProcessor[T]) snapshot() []*processorSubscriber[T] {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.subscribers
}

func (p *publishProcessor[T]) remove(target *processorSubscriber[T]) {
	p.mu.Lock()
	defer p.mu.Unlock()

	kept := make([]*processorSubscriber[T], 0, len(p.subscribers))

	for _, sub := range p.subscribers {
		if sub != target {
			kept = append(kept, sub)
		}
	}

	p.subscribers = kept
}

func copySubscribers[T any](in []*processorSubscriber[T]) []*processorSubscriber[T] {
	out := make([]*processorSubscriber[T], len(in))
	copy(out, in)

	return out
}

// processorSubscription is handed to each downstream subscriber of a
// Processor. Per spec, cancelling one downstream subscriber never cancels
// the upstream subscription shared by the others.
type processorSubscription[T any] struct {
	sub *processorSubscriber[T]
}

func (s *processorSubscription[T]) Request(n int64) {
	if n <= 0 {
		ValidateRequest(context.Background(), n)
		return
	}

	AtomicAddDemand(&s.sub.requested, n)
}

func (s *processorSubscription[T]) Cancel() {
	s.sub.cancelled.Store(true)
}
