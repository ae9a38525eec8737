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

func TestLeafSubscriber_tryNext_withCapture(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	var errorCaught error
	sub := &leafSubscriber[int]{
		capturePanics: true,
		onNext: func(ctx context.Context, value int) {
			panic("next panic")
		},
		onError: func(ctx context.Context, err error) {
			errorCaught = err
		},
		onComplete: func(ctx context.Context) {},
	}

	sub.tryNext(context.Background(), 42)
	is.Error(errorCaught)
	is.Contains(errorCaught.Error(), "next panic")
}

func TestLeafSubscriber_tryNext_withoutCapture(t *testing.T) {
	t.Parallel()

	sub := &leafSubscriber[int]{
		capturePanics: false,
		onNext: func(ctx context.Context, value int) {
			panic("next panic")
		},
		onError:    func(ctx context.Context, err error) {},
		onComplete: func(ctx context.Context) {},
	}

	recovered := false

	func() {
		defer func() {
			if r := recover(); r != nil {
				recovered = true
			}
		}()
		sub.tryNext(context.Background(), 42)
	}()

	if !recovered {
		t.Fatalf("expected panic to propagate when capturePanics=false")
	}
}

func TestLeafSubscriber_tryError_withCapture(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	var unhandledError error
	prev := GetOnUnhandledError()
	SetOnUnhandledError(func(ctx context.Context, err error) {
		unhandledError = err
	})
	defer SetOnUnhandledError(prev)

	sub := &leafSubscriber[int]{
		capturePanics: true,
		onNext:        func(ctx context.Context, value int) {},
		onError: func(ctx context.Context, err error) {
			panic("error panic")
		},
		onComplete: func(ctx context.Context) {},
	}

	sub.tryError(context.Background(), assert.AnError)
	is.Error(unhandledError)
	is.Contains(unhandledError.Error(), "error panic")
}

func TestLeafSubscriber_tryError_withoutCapture(t *testing.T) {
	t.Parallel()

	sub := &leafSubscriber[int]{
		capturePanics: false,
		onNext:        func(ctx context.Context, value int) {},
		onError: func(ctx context.Context, err error) {
			panic("error panic")
		},
		onComplete: func(ctx context.Context) {},
	}

	recovered := false

	func() {
		defer func() {
			if r := recover(); r != nil {
				recovered = true
			}
		}()
		sub.tryError(context.Background(), assert.AnError)
	}()

	if !recovered {
		t.Fatalf("expected panic to propagate when capturePanics=false")
	}
}

func TestLeafSubscriber_tryComplete_withCapture(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	var unhandledError error
	prev := GetOnUnhandledError()
	SetOnUnhandledError(func(ctx context.Context, err error) {
		unhandledError = err
	})
	defer SetOnUnhandledError(prev)

	sub := &leafSubscriber[int]{
		capturePanics: true,
		onNext:        func(ctx context.Context, value int) {},
		onError:       func(ctx context.Context, err error) {},
		onComplete: func(ctx context.Context) {
			panic("complete panic")
		},
	}

	sub.tryComplete(context.Background())
	is.Error(unhandledError)
	is.Contains(unhandledError.Error(), "complete panic")
}

func TestLeafSubscriber_tryComplete_withoutCapture(t *testing.T) {
	t.Parallel()

	sub := &leafSubscriber[int]{
		capturePanics: false,
		onNext:        func(ctx context.Context, value int) {},
		onError:       func(ctx context.Context, err error) {},
		onComplete: func(ctx context.Context) {
			panic("complete panic")
		},
	}

	recovered := false

	func() {
		defer func() {
			if r := recover(); r != nil {
				recovered = true
			}
		}()
		sub.tryComplete(context.Background())
	}()

	if !recovered {
		t.Fatalf("expected panic to propagate when capturePanics=false")
	}
}

func TestObserverPanicCaptureDisabledContext(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	is.False(isObserverPanicCaptureDisabled(context.Background()))

	ctx := WithObserverPanicCaptureDisabled(context.Background())
	is.True(isObserverPanicCaptureDisabled(ctx))
}

func TestNewObserver_capturesOnNextPanic(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	var caught error
	sub := NewObserver(
		func(value int) { panic("boom") },
		func(err error) { caught = err },
		func() {},
	)

	sub.OnSubscribe(context.Background(), EmptySubscription)
	sub.OnNext(context.Background(), 1)

	is.Error(caught)
	is.Contains(caught.Error(), "boom")
}
