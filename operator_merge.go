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

// Merge subscribes to every source concurrently and interleaves their
// emissions into a single sequence, completing once all of them have
// completed. It is a fixed-set instance of FlatMap: the sources are fed
// through FlatMap's fan-in core via the identity mapper, so both operators
// share the same drain/queue-serialization machinery instead of duplicating
// it.
func Merge[T any](sources ...Observable[T]) Observable[T] {
	identity := func(o Observable[T]) Observable[T] { return o }

	return FlatMap(identity, 0, 0)(FromSlice(sources))
}

// MergeDelayErrors is Merge but collects errors from every source into a
// CompositeError (or the error itself when only one occurred) delivered
// only after all sources have terminated, instead
// of cancelling the others on the first error.
func MergeDelayErrors[T any](sources ...Observable[T]) Observable[T] {
	identity := func(o Observable[T]) Observable[T] { return o }

	return FlatMapDelayErrors(identity, 0, 0)(FromSlice(sources))
}
