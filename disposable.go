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

	"github.com/samber/lo"

	"github.com/flowkit/ro/internal/xerrors"
)

// Teardown is a function that cleans up resources, such as closing a file or
// a network connection, or cancelling an upstream Subscription. It is called
// at most once, when the owning Disposable is disposed.
type Teardown func()
type TeardownWithContext func(ctx context.Context)

// Disposable represents a resource that is released exactly once. Operators
// use it to register upstream-cancellation and resource-cleanup callbacks
// alongside the backpressure Subscription (see subscription.go) they hand to
// a downstream Subscriber: the Subscription carries Request/Cancel, the
// Disposable carries everything else that needs tearing down.
type Disposable interface {
	Dispose()
	DisposeWithContext(ctx context.Context)
	IsDisposed() bool

	Add(teardown Teardown)
	AddWithContext(teardown TeardownWithContext)
	AddDisposable(d Disposable)

	Wait() // Note: using .Wait() is not recommended.
}

type disposableImpl struct {
	done          bool
	mu            sync.Mutex
	finalizers    []Teardown
	ctxFinalizers []TeardownWithContext
}

var _ Disposable = (*disposableImpl)(nil)

// NewDisposable creates a new Disposable. When `teardown` is nil, nothing is
// added.
func NewDisposable(teardown Teardown) Disposable {
	d := &disposableImpl{}
	if teardown != nil {
		d.finalizers = append(d.finalizers, teardown)
	}

	return d
}

// NewDisposableWithContext is like NewDisposable but the teardown receives a
// context at dispose time.
func NewDisposableWithContext(teardown TeardownWithContext) Disposable {
	d := &disposableImpl{}
	if teardown != nil {
		d.ctxFinalizers = append(d.ctxFinalizers, teardown)
	}

	return d
}

// Add registers a finalizer to run on Dispose.
func (d *disposableImpl) Add(teardown Teardown) {
	if teardown == nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.done {
		_ = execFinalizer(teardown)
		return
	}

	d.finalizers = append(d.finalizers, teardown)
}

// AddWithContext registers a context-aware finalizer to run on Dispose.
func (d *disposableImpl) AddWithContext(teardown TeardownWithContext) {
	if teardown == nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.done {
		_ = execFinalizerWithContext(teardown, context.Background())
		return
	}

	d.ctxFinalizers = append(d.ctxFinalizers, teardown)
}

// AddDisposable merges another Disposable into this one: disposing this one
// will also dispose `d`. Does nothing if `other` is nil.
func (d *disposableImpl) AddDisposable(other Disposable) {
	if other == nil {
		return
	}

	d.Add(other.Dispose)
}

// Dispose releases every registered teardown: plain teardowns first, in
// registration order, then context-aware ones, in registration order. Safe
// for concurrent and repeated calls; only the first call runs teardowns.
func (d *disposableImpl) Dispose() {
	d.DisposeWithContext(context.Background())
}

// DisposeWithContext is like Dispose, but forwards ctx to every context-aware
// teardown.
func (d *disposableImpl) DisposeWithContext(ctx context.Context) {
	d.mu.Lock()

	if d.done {
		d.mu.Unlock()
		return
	}

	d.done = true
	finals := d.finalizers
	ctxFinals := d.ctxFinalizers
	d.finalizers = nil
	d.ctxFinalizers = nil
	d.mu.Unlock()

	var errs []error

	for _, f := range finals {
		if err := execFinalizer(f); err != nil {
			errs = append(errs, err)
		}
	}

	for _, f := range ctxFinals {
		if err := execFinalizerWithContext(f, ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		panic(xerrors.Join(errs...))
	}
}

// IsDisposed reports whether Dispose has run (or is running).
func (d *disposableImpl) IsDisposed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.done
}

// Wait blocks until the Disposable is disposed. Rarely appropriate outside
// tests: reactive pipelines should be driven by signals, not blocking waits.
func (d *disposableImpl) Wait() {
	ch := make(chan struct{}, 1)

	d.Add(func() {
		ch <- struct{}{}
	})

	<-ch
	close(ch)
}

func execFinalizer(finalizer Teardown) (err error) {
	lo.TryCatchWithErrorValue(
		func() error {
			finalizer()
			return nil
		},
		func(e any) {
			err = newUnsubscriptionError(recoverValueToError(e))
		},
	)

	return err
}

func execFinalizerWithContext(finalizer TeardownWithContext, ctx context.Context) (err error) {
	lo.TryCatchWithErrorValue(
		func() error {
			finalizer(ctx)
			return nil
		},
		func(e any) {
			err = newUnsubscriptionError(recoverValueToError(e))
		},
	)

	return err
}
