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
	"sync"
	"testing"
)

// droppedNotificationMu serializes test-time overrides of the process-wide
// dropped-notification handler so tests do not concurrently replace it and
// race with each other. Tests that need to temporarily install their own
// handler should use WithDroppedNotification instead of calling
// SetOnDroppedNotification directly.
var droppedNotificationMu sync.Mutex

// WithDroppedNotification temporarily installs handler as the dropped-
// notification handler while fn runs, restoring the previous handler
// afterward (even if fn panics).
func WithDroppedNotification(t *testing.T, handler func(ctx context.Context, notification fmt.Stringer), fn func()) {
	t.Helper()

	droppedNotificationMu.Lock()
	prev := GetOnDroppedNotification()
	SetOnDroppedNotification(handler)

	defer func() {
		SetOnDroppedNotification(prev)
		droppedNotificationMu.Unlock()
	}()

	fn()
}

// WithUnhandledError temporarily installs handler as the unhandled-error
// handler while fn runs, restoring the previous handler afterward.
func WithUnhandledError(t *testing.T, handler func(ctx context.Context, err error), fn func()) {
	t.Helper()

	droppedNotificationMu.Lock()
	prev := GetOnUnhandledError()
	SetOnUnhandledError(handler)

	defer func() {
		SetOnUnhandledError(prev)
		droppedNotificationMu.Unlock()
	}()

	fn()
}
