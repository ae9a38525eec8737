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

// Package xsync provides a Mutex interface that lets the same call-site
// shape (Lock/Unlock/TryLock) be backed by either a real sync.Mutex or a
// no-op implementation. The ro package uses only NewMutexWithLock;
// ConcurrencyModeUnsafe skips the wrapper entirely and
// ConcurrencyModeSingleProducer uses its own guard.
package xsync

import "sync"

// Mutex is the minimal locking surface operators need.
type Mutex interface {
	Lock()
	Unlock()
	TryLock() bool
}

// NewMutexWithLock returns a Mutex backed by a real sync.Mutex.
func NewMutexWithLock() Mutex {
	return &realMutex{}
}

// NewMutexWithoutLock returns a Mutex whose methods are no-ops. Safe only
// when the caller otherwise guarantees single-producer access.
func NewMutexWithoutLock() Mutex {
	return noopMutex{}
}

type realMutex struct {
	mu sync.Mutex
}

func (m *realMutex) Lock()         { m.mu.Lock() }
func (m *realMutex) Unlock()       { m.mu.Unlock() }
func (m *realMutex) TryLock() bool { return m.mu.TryLock() }

type noopMutex struct{}

func (noopMutex) Lock()         {}
func (noopMutex) Unlock()       {}
func (noopMutex) TryLock() bool { return true }
