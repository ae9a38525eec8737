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
	"io"
	"net/http"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchBufferCapacity bounds the number of pending file/URL snapshots a slow
// consumer can fall behind by before the source starts dropping.
const watchBufferCapacity = 16

// WatchFile emits the current contents of path immediately, then again every
// time fsnotify reports a Write/Create event on it, until cancelled. Unlike
// the teacher's polling implementation this reacts to filesystem events
// directly instead of re-reading on a fixed tick.
func WatchFile(path string) Observable[string] {
	return Create[string](watchBufferCapacity, func(ctx context.Context, emitter Emitter[string]) {
		if b, err := os.ReadFile(path); err == nil {
			if !emitter.Next(string(b)) {
				OnDroppedNotification(ctx, NewNotificationNext(string(b)))
			}
		}

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			emitter.Error(err)
			return
		}
		defer watcher.Close()

		if err := watcher.Add(path); err != nil {
			emitter.Error(err)
			return
		}

		for {
			select {
			case <-ctx.Done():
				emitter.Complete()
				return
			case event, ok := <-watcher.Events:
				if !ok {
					emitter.Complete()
					return
				}

				if emitter.IsCancelled() {
					return
				}

				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}

				b, err := os.ReadFile(path)
				if err != nil {
					if os.IsNotExist(err) {
						continue
					}

					emitter.Error(err)

					return
				}

				if !emitter.Next(string(b)) {
					OnDroppedNotification(ctx, NewNotificationNext(string(b)))
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					emitter.Complete()
					return
				}

				emitter.Error(err)

				return
			}
		}
	})
}

// WatchURL polls url every interval and emits the response body as a string
// whenever it differs from the previous fetch, including an initial fetch on
// subscribe. There is no ecosystem push-notification mechanism for plain
// HTTP, so this stays polling (unlike WatchFile).
func WatchURL(url string, interval time.Duration) Observable[string] {
	return Create[string](watchBufferCapacity, func(ctx context.Context, emitter Emitter[string]) {
		client := &http.Client{Timeout: 10 * time.Second}

		var last string

		fetch := func() (string, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return "", err
			}

			resp, err := client.Do(req)
			if err != nil {
				return "", err
			}
			defer resp.Body.Close()

			b, err := io.ReadAll(resp.Body)
			if err != nil {
				return "", err
			}

			return string(b), nil
		}

		if body, err := fetch(); err == nil {
			last = body

			if !emitter.Next(body) {
				OnDroppedNotification(ctx, NewNotificationNext(body))
			}
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				emitter.Complete()
				return
			case <-ticker.C:
				if emitter.IsCancelled() {
					return
				}

				body, err := fetch()
				if err != nil {
					emitter.Error(err)
					return
				}

				if body != last {
					last = body

					if !emitter.Next(body) {
						OnDroppedNotification(ctx, NewNotificationNext(body))
					}
				}
			}
		}
	})
}
