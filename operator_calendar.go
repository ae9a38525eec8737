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
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

// Serialize marshals each value to its JSON representation. A marshal
// failure errors the pipeline through the same panic-capture path Map uses,
// rather than a bespoke error type.
func Serialize[T any]() Operator[T, string] {
	return Map(func(value T) string {
		b, err := json.Marshal(value)
		if err != nil {
			panic(err)
		}

		return string(b)
	})
}

// Unserialize parses each JSON string into T.
func Unserialize[T any]() Operator[string, T] {
	return Map(func(value string) T {
		var out T

		if err := json.Unmarshal([]byte(value), &out); err != nil {
			panic(err)
		}

		return out
	})
}

// Validate runs validator against every value and its context, forwarding
// only values it accepts; a non-nil error terminates the pipeline with that
// error instead of simply dropping the value, since a validator failure
// signals a malformed item rather than one the consumer should skip.
func Validate[T any](validator func(ctx context.Context, value T) (context.Context, error)) Operator[T, T] {
	return func(source Observable[T]) Observable[T] {
		return NewObservable(func(ctx context.Context, subscriber Subscriber[T]) Disposable {
			return source.SubscribeWithContext(ctx, &validateSubscriber[T]{
				ctx:       ctx,
				dest:      subscriber,
				validator: validator,
			})
		})
	}
}

type validateSubscriber[T any] struct {
	ctx          context.Context
	dest         Subscriber[T]
	validator    func(context.Context, T) (context.Context, error)
	subscription Subscription
	done         bool
}

func (s *validateSubscriber[T]) OnSubscribe(ctx context.Context, subscription Subscription) {
	s.subscription = subscription
	s.dest.OnSubscribe(ctx, subscription)
}

func (s *validateSubscriber[T]) OnNext(ctx context.Context, value T) {
	if s.done {
		return
	}

	newCtx, err := s.validator(ctx, value)
	if err != nil {
		s.done = true

		if s.subscription != nil {
			s.subscription.Cancel()
		}

		s.dest.OnError(newCtx, err)

		return
	}

	s.dest.OnNext(newCtx, value)
}

func (s *validateSubscriber[T]) OnError(ctx context.Context, err error) {
	if !s.done {
		s.done = true
		s.dest.OnError(ctx, err)
	}
}

func (s *validateSubscriber[T]) OnComplete(ctx context.Context) {
	if !s.done {
		s.done = true
		s.dest.OnComplete(ctx)
	}
}

// FilterByParticipant forwards only payloads containing participant as a
// substring. An empty participant matches everything.
func FilterByParticipant(participant string) Operator[string, string] {
	return Filter(func(value string) bool {
		return participant == "" || strings.Contains(value, participant)
	})
}

// FilterByTimeWindow forwards only payloads that contain at least one
// RFC3339 timestamp falling within [start, end].
func FilterByTimeWindow(start, end time.Time) Operator[string, string] {
	return Filter(func(value string) bool {
		return timeWindowMatch(value, start, end)
	})
}

func timeWindowMatch(s string, start, end time.Time) bool {
	// RFC3339 timestamps range from 20 bytes ("2006-01-02T15:04:05Z") to 35
	// (nanosecond fraction plus a numeric offset).
	const minLen, maxLen = 20, 35

	for i := 0; i+minLen <= len(s); i++ {
		for j := i + minLen; j <= len(s) && j <= i+maxLen; j++ {
			t, err := time.Parse(time.RFC3339, s[i:j])
			if err != nil {
				continue
			}

			if !t.Before(start) && !t.After(end) {
				return true
			}
		}
	}

	return false
}

// Dedup forwards only payloads whose sha256 digest has not been seen before
// on this subscription, unlike DistinctUntilChanged which only compares
// against the immediately preceding value.
func Dedup() Operator[string, string] {
	return func(source Observable[string]) Observable[string] {
		return NewObservable(func(ctx context.Context, subscriber Subscriber[string]) Disposable {
			return source.SubscribeWithContext(ctx, &dedupSubscriber{
				ctx:  ctx,
				dest: subscriber,
				seen: map[string]struct{}{},
			})
		})
	}
}

type dedupSubscriber struct {
	ctx          context.Context
	dest         Subscriber[string]
	seen         map[string]struct{}
	subscription Subscription
}

func (s *dedupSubscriber) OnSubscribe(ctx context.Context, subscription Subscription) {
	s.subscription = subscription
	s.dest.OnSubscribe(ctx, subscription)
}

func (s *dedupSubscriber) OnNext(ctx context.Context, value string) {
	digest := sha256.Sum256([]byte(value))
	key := hex.EncodeToString(digest[:])

	if _, ok := s.seen[key]; ok {
		if s.subscription != nil {
			s.subscription.Request(1)
		}

		return
	}

	s.seen[key] = struct{}{}
	s.dest.OnNext(ctx, value)
}

func (s *dedupSubscriber) OnError(ctx context.Context, err error) {
	s.dest.OnError(ctx, err)
}

func (s *dedupSubscriber) OnComplete(ctx context.Context) {
	s.dest.OnComplete(ctx)
}
