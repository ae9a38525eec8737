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
	"sync/atomic"

	"github.com/flowkit/ro/internal/xsync"
)

// ConcurrencyMode picks the locking strategy used to guarantee serial
// observation (spec §5) when wrapping a downstream Subscriber that a
// producer might otherwise call concurrently from more than one goroutine.
// This is the cheap, general-purpose mechanism for simple pass-through
// operators (Map, Filter, ...); operators with genuine multi-producer
// fan-in (observe-on, flat-map, merge, zip, buffer) additionally serialize
// their own emission with the dedicated wip drain-serialization primitive,
// and the multicast Processor broadcasts from a mutex-guarded snapshot of
// its subscribers.
type ConcurrencyMode uint8

const (
	// ConcurrencyModeSafe wraps the downstream Subscriber with a real mutex:
	// correct under any number of concurrent callers, at the cost of a lock
	// per signal. The default.
	ConcurrencyModeSafe ConcurrencyMode = iota

	// ConcurrencyModeUnsafe performs no locking at all. Only correct when
	// the caller can prove the upstream never calls concurrently.
	ConcurrencyModeUnsafe

	// ConcurrencyModeEventuallySafe is safe for concurrent use, but a value
	// that arrives while another call is already in flight is dropped
	// (reported via OnDroppedNotification) rather than queued or blocked
	// on; OnError/OnComplete always block-Lock regardless, since a
	// terminal signal is never safe to drop.
	ConcurrencyModeEventuallySafe

	// ConcurrencyModeSingleProducer asserts, like Unsafe, that there is
	// exactly one producer goroutine, but keeps a lightweight guard that
	// panics with a ProtocolError if that assumption is ever violated,
	// instead of silently corrupting state.
	ConcurrencyModeSingleProducer
)

// concurrencySubscriber wraps a destination Subscriber[T] with the locking
// behavior selected by a ConcurrencyMode, serializing OnNext/OnError/
// OnComplete calls before forwarding them downstream.
type concurrencySubscriber[T any] struct {
	lock      xsync.Mutex
	dest      Subscriber[T]
	dropOnHot bool // ConcurrencyModeEventuallySafe: TryLock on OnNext, drop on contention
}

func newConcurrencySubscriber[T any](mode ConcurrencyMode, dest Subscriber[T]) Subscriber[T] {
	switch mode {
	case ConcurrencyModeUnsafe:
		return dest
	case ConcurrencyModeEventuallySafe:
		return &concurrencySubscriber[T]{lock: xsync.NewMutexWithLock(), dest: dest, dropOnHot: true}
	case ConcurrencyModeSingleProducer:
		return &singleProducerSubscriber[T]{dest: dest}
	default:
		return &concurrencySubscriber[T]{lock: xsync.NewMutexWithLock(), dest: dest}
	}
}

func (s *concurrencySubscriber[T]) OnSubscribe(ctx context.Context, subscription Subscription) {
	s.dest.OnSubscribe(ctx, subscription)
}

// OnNext is the only signal ConcurrencyModeEventuallySafe ever drops: on
// contention it TryLocks, and a value that loses the race is reported via
// OnDroppedNotification instead of blocking the caller.
func (s *concurrencySubscriber[T]) OnNext(ctx context.Context, value T) {
	if s.dropOnHot {
		if !s.lock.TryLock() {
			OnDroppedNotification(ctx, NewNotificationNext(value))
			return
		}
	} else {
		s.lock.Lock()
	}
	defer s.lock.Unlock()

	s.dest.OnNext(ctx, value)
}

func (s *concurrencySubscriber[T]) OnError(ctx context.Context, err error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.dest.OnError(ctx, err)
}

func (s *concurrencySubscriber[T]) OnComplete(ctx context.Context) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.dest.OnComplete(ctx)
}

// singleProducerSubscriber backs ConcurrencyModeSingleProducer: a guard flag
// catches accidental concurrent use instead of silently racing.
type singleProducerSubscriber[T any] struct {
	busy int32
	dest Subscriber[T]
}

func (s *singleProducerSubscriber[T]) enter() {
	if !atomic.CompareAndSwapInt32(&s.busy, 0, 1) {
		panic(newProtocolError("single-producer subscriber called concurrently"))
	}
}

func (s *singleProducerSubscriber[T]) leave() {
	atomic.StoreInt32(&s.busy, 0)
}

// OnSubscribe is not guarded: a downstream that requests inside OnSubscribe
// makes a synchronous source call OnNext re-entrantly on the same goroutine.
func (s *singleProducerSubscriber[T]) OnSubscribe(ctx context.Context, subscription Subscription) {
	s.dest.OnSubscribe(ctx, subscription)
}

func (s *singleProducerSubscriber[T]) OnNext(ctx context.Context, value T) {
	s.enter()
	defer s.leave()

	s.dest.OnNext(ctx, value)
}

func (s *singleProducerSubscriber[T]) OnError(ctx context.Context, err error) {
	s.enter()
	defer s.leave()

	s.dest.OnError(ctx, err)
}

func (s *singleProducerSubscriber[T]) OnComplete(ctx context.Context) {
	s.enter()
	defer s.leave()

	s.dest.OnComplete(ctx)
}
