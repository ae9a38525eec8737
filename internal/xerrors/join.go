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

// Package xerrors is a thin wrapper kept as its own import path (rather than
// calling errors.Join inline everywhere) so the rest of the module has one
// place to change if composite-error formatting ever needs to differ from
// the standard library's.
package xerrors

import "errors"

// Join composes multiple errors into one, dropping nils, exactly like
// errors.Join. Used wherever more than one teardown/inner error must be
// surfaced as a single composite error (spec's "Composite" error kind).
func Join(errs ...error) error {
	return errors.Join(errs...)
}
