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
	"os"
)

// WriteToFile appends each string emitted by the source to path (one line
// per value, newline-terminated) and forwards the value downstream
// unchanged. The file is opened lazily on the first value so a source that
// never emits never touches the filesystem, and closed on completion or
// error. appendMode true opens with O_APPEND; false truncates on open.
func WriteToFile(path string, appendMode bool, perm os.FileMode) Operator[string, string] {
	return func(source Observable[string]) Observable[string] {
		return NewObservable(func(ctx context.Context, subscriber Subscriber[string]) Disposable {
			return source.SubscribeWithContext(ctx, &writeToFileSubscriber{
				ctx:        ctx,
				dest:       subscriber,
				path:       path,
				appendMode: appendMode,
				perm:       perm,
			})
		})
	}
}

type writeToFileSubscriber struct {
	ctx          context.Context
	dest         Subscriber[string]
	path         string
	appendMode   bool
	perm         os.FileMode
	subscription Subscription
	file         *os.File
	failed       bool
}

func (s *writeToFileSubscriber) OnSubscribe(ctx context.Context, subscription Subscription) {
	s.subscription = subscription
	s.dest.OnSubscribe(ctx, subscription)
}

func (s *writeToFileSubscriber) OnNext(ctx context.Context, value string) {
	if s.failed {
		return
	}

	if err := s.ensureOpen(); err != nil {
		s.fail(ctx, err)
		return
	}

	if _, err := s.file.WriteString(value + "\n"); err != nil {
		s.fail(ctx, err)
		return
	}

	s.dest.OnNext(ctx, value)
}

func (s *writeToFileSubscriber) OnError(ctx context.Context, err error) {
	if !s.failed {
		s.failed = true
		s.closeFile()
		s.dest.OnError(ctx, err)
	}
}

func (s *writeToFileSubscriber) OnComplete(ctx context.Context) {
	if !s.failed {
		s.failed = true
		s.closeFile()
		s.dest.OnComplete(ctx)
	}
}

func (s *writeToFileSubscriber) ensureOpen() error {
	if s.file != nil {
		return nil
	}

	flag := os.O_CREATE | os.O_WRONLY
	if s.appendMode {
		flag |= os.O_APPEND
	} else {
		flag |= os.O_TRUNC
	}

	f, err := os.OpenFile(s.path, flag, s.perm)
	if err != nil {
		return err
	}

	s.file = f

	return nil
}

func (s *writeToFileSubscriber) closeFile() {
	if s.file != nil {
		_ = s.file.Close()
	}
}

func (s *writeToFileSubscriber) fail(ctx context.Context, err error) {
	s.failed = true
	s.closeFile()

	if s.subscription != nil {
		s.subscription.Cancel()
	}

	s.dest.OnError(ctx, err)
}
