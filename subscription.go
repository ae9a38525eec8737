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
	"fmt"
)

// Subscription is the handle a Subscriber receives via OnSubscribe. It is
// the only way a downstream signals demand (Request) or disinterest
// (Cancel) to the upstream that produced it. This is the "subscription
// handle" of spec §3: non-nil from OnSubscribe until termination, and any
// number of concurrent Request calls are legal.
type Subscription interface {
	// Request adds n to outstanding demand. n must be > 0; a non-positive n
	// is a protocol violation, reported to the error sink, and ignored.
	Request(n int64)
	// Cancel stops further signals from being observed. Idempotent, and
	// eventually propagates upstream exactly once.
	Cancel()
}

// ValidateRequest reports whether n is a legal Request amount (§4.1). If
// not, the violation is reported to the process-wide error sink and false is
// returned; callers must not apply n to their demand counter in that case.
func ValidateRequest(ctx context.Context, n int64) bool {
	if n > 0 {
		return true
	}

	OnUnhandledError(ctx, newProtocolError(fmt.Sprintf("request amount must be > 0, got %d", n)))

	return false
}

// ValidateSubscribe reports whether an operator may accept `incoming` as its
// upstream Subscription. If `current` (the slot already stored by a prior
// OnSubscribe) is non-nil, this is a double-subscribe: `incoming` is
// cancelled, the violation is reported, and false is returned. Otherwise
// true is returned and the caller should store `incoming`.
func ValidateSubscribe(ctx context.Context, current Subscription, incoming Subscription) bool {
	if current == nil {
		return true
	}

	if incoming != nil {
		incoming.Cancel()
	}

	OnUnhandledError(ctx, newProtocolError("subscription already set (double subscribe)"))

	return false
}

// EmptySubscription is a Subscription with no upstream to drive: Request is
// a no-op and Cancel is a no-op. Used by sources that complete/error
// synchronously before any demand can matter (Empty, Throw) and by tests.
var EmptySubscription Subscription = emptySubscription{}

type emptySubscription struct{}

func (emptySubscription) Request(int64) {}
func (emptySubscription) Cancel()        {}

// CancelledSubscription behaves exactly like EmptySubscription (Request and
// Cancel are both no-ops). Used by operators that must hand out a
// Subscription after having already observed cancellation, so the identity
// of the type documents intent at the call site even though the behavior is
// identical to EmptySubscription.
var CancelledSubscription Subscription = cancelledSubscription{}

type cancelledSubscription struct{}

func (cancelledSubscription) Request(int64) {}
func (cancelledSubscription) Cancel()        {}

// subscriptionFunc adapts two plain functions into a Subscription. Handy for
// operators whose request/cancel logic doesn't warrant a dedicated type.
type subscriptionFunc struct {
	request func(int64)
	cancel  func()
}

func (s subscriptionFunc) Request(n int64) {
	if s.request != nil {
		s.request(n)
	}
}

func (s subscriptionFunc) Cancel() {
	if s.cancel != nil {
		s.cancel()
	}
}

// NewSubscription builds a Subscription from a request and a cancel
// function, either of which may be nil.
func NewSubscription(request func(n int64), cancel func()) Subscription {
	return subscriptionFunc{request: request, cancel: cancel}
}
