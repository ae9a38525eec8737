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
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// collectSync subscribes to a synchronous source (FromSlice-backed pipelines
// complete before Subscribe returns) and reports the values it saw plus the
// terminal error, if any.
func collectSync[T any](source Observable[T]) ([]T, error) {
	var values []T
	var terminalErr error

	source.Subscribe(NewObserver(
		func(value T) { values = append(values, value) },
		func(err error) { terminalErr = err },
		func() {},
	))

	return values, terminalErr
}

func TestWriteToFileAndDedup(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	tmp, err := os.CreateTemp("", "ro_test_*.txt")
	is.NoError(err)
	outPath := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(outPath)

	values, err := collectSync(Pipe1(FromSlice([]string{"a", "b", "a"}), WriteToFile(outPath, false, 0o644)))
	is.NoError(err)
	is.Equal([]string{"a", "b", "a"}, values)

	b, err := os.ReadFile(outPath)
	is.NoError(err)
	is.Contains(string(b), "a")

	deduped, err := collectSync(Pipe1(FromSlice([]string{"x", "y", "x"}), Dedup()))
	is.NoError(err)
	is.Equal([]string{"x", "y"}, deduped)
}

func TestWatchFile(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	tmp, err := os.CreateTemp("", "ro_test_*.ics")
	is.NoError(err)
	path := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(path)

	is.NoError(os.WriteFile(path, []byte("BEGIN:VCALENDAR\nUID:1\nEND:VCALENDAR"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var values []string
	done := make(chan struct{})

	WatchFile(path).SubscribeWithContext(ctx, NewObserver(
		func(value string) {
			values = append(values, value)
			if len(values) >= 2 {
				close(done)
			}
		},
		func(err error) {},
		func() {},
	))

	time.Sleep(20 * time.Millisecond)
	is.NoError(os.WriteFile(path, []byte("BEGIN:VCALENDAR\nUID:2\nEND:VCALENDAR"), 0o644))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for WatchFile to observe the write")
	}

	is.GreaterOrEqual(len(values), 2)
}

func TestWatchURL(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"uid":"u1","ts":"2020-01-01T00:00:00Z"}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan string, 1)

	WatchURL(srv.URL, 20*time.Millisecond).SubscribeWithContext(ctx, NewObserver(
		func(value string) {
			select {
			case done <- value:
			default:
			}
		},
		func(err error) {},
		func() {},
	))

	select {
	case got := <-done:
		is.Contains(got, "u1")
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for WatchURL's initial fetch")
	}
}

type calendarItem struct {
	UID string `json:"uid"`
}

func TestSerializeUnserialize(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	items, err := collectSync(Pipe2(FromSlice([]calendarItem{{UID: "u"}}), Serialize[calendarItem](), Unserialize[calendarItem]()))
	is.NoError(err)
	is.Equal([]calendarItem{{UID: "u"}}, items)
}

func TestValidate(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	errInvalidCalendar := errors.New("invalid calendar item")

	validator := func(ctx context.Context, it calendarItem) (context.Context, error) {
		if it.UID != "u" {
			return ctx, errInvalidCalendar
		}

		return ctx, nil
	}

	values, err := collectSync(Pipe1(FromSlice([]calendarItem{{UID: "u"}, {UID: "z"}}), Validate(validator)))
	is.ErrorIs(err, errInvalidCalendar)
	is.Equal([]calendarItem{{UID: "u"}}, values)
}

func TestFilterByParticipant(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	values, err := collectSync(Pipe1(FromSlice([]string{"attendee:alice@example.com", "other"}), FilterByParticipant("alice@example.com")))
	is.NoError(err)
	is.Equal([]string{"attendee:alice@example.com"}, values)
}

func TestFilterByTimeWindow(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	now := time.Now().UTC()
	start := now.Add(-time.Hour)
	end := now.Add(time.Hour)
	payload := "some text " + now.Format(time.RFC3339)

	values, err := collectSync(Pipe1(FromSlice([]string{payload, "no timestamp here"}), FilterByTimeWindow(start, end)))
	is.NoError(err)
	is.Equal([]string{payload}, values)
}
