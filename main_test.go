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
	"testing"

	"go.uber.org/goleak"
)

// TestMain runs every test in the package under a leak check: the
// concurrency-hazard operator families (observe-on, flat-map, merge/concat,
// zip, the multicast Processor) all spin up goroutines via a Scheduler, and
// a goroutine a test forgets to let drain is exactly the kind of bug a
// single assertion at the end of the run catches that no individual test
// would.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
