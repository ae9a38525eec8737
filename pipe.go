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

// Operator is a function transforming one Observable into another; every
// stateless and stateful transformation in this package is built to have
// this shape so it composes with Pipe1..Pipe5.
type Operator[T, R any] func(source Observable[T]) Observable[R]

// Pipe1 applies a single Operator. Trivial, but kept for symmetry with
// Pipe2..Pipe5 so call sites can switch arity without restructuring.
func Pipe1[T, A any](source Observable[T], op1 Operator[T, A]) Observable[A] {
	return op1(source)
}

// Pipe2 threads source through two operators left to right.
func Pipe2[T, A, B any](source Observable[T], op1 Operator[T, A], op2 Operator[A, B]) Observable[B] {
	return op2(op1(source))
}

// Pipe3 threads source through three operators left to right.
func Pipe3[T, A, B, C any](source Observable[T], op1 Operator[T, A], op2 Operator[A, B], op3 Operator[B, C]) Observable[C] {
	return op3(op2(op1(source)))
}

// Pipe4 threads source through four operators left to right.
func Pipe4[T, A, B, C, D any](source Observable[T], op1 Operator[T, A], op2 Operator[A, B], op3 Operator[B, C], op4 Operator[C, D]) Observable[D] {
	return op4(op3(op2(op1(source))))
}

// Pipe5 threads source through five operators left to right.
func Pipe5[T, A, B, C, D, E any](source Observable[T], op1 Operator[T, A], op2 Operator[A, B], op3 Operator[B, C], op4 Operator[C, D], op5 Operator[D, E]) Observable[E] {
	return op5(op4(op3(op2(op1(source)))))
}
