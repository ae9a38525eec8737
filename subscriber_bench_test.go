package ro

import (
	"context"
	"testing"
)

// BenchmarkSubscriberNextPath compares the hot-path cost of routing OnNext
// through each concurrency wrapper:
//   - Safe: real mutex
//   - Unsafe: no wrapper at all, destination called directly
//   - EventuallySafe: TryLock fast path
//   - SingleProducer: atomic CAS guard, no mutex
func BenchmarkSubscriberNextPath(b *testing.B) {
	ctx := WithObserverPanicCaptureDisabled(context.Background())

	cases := []struct {
		name string
		mode ConcurrencyMode
	}{
		{"Safe", ConcurrencyModeSafe},
		{"Unsafe", ConcurrencyModeUnsafe},
		{"EventuallySafe", ConcurrencyModeEventuallySafe},
		{"SingleProducer", ConcurrencyModeSingleProducer},
	}

	for _, c := range cases {
		c := c
		b.Run(c.name, func(b *testing.B) {
			sub := newConcurrencySubscriber[int](c.mode, NoopObserver[int]())
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				sub.OnNext(ctx, i)
			}
		})
	}
}

// BenchmarkSubscriberPanicCapture measures the overhead the panic-recovering
// leaf subscriber adds over a plain unsafe one, with capture enabled versus
// disabled via the per-context override.
func BenchmarkSubscriberPanicCapture(b *testing.B) {
	for _, capture := range []bool{false, true} {
		capture := capture
		b.Run(map[bool]string{true: "captured", false: "uncaptured"}[capture], func(b *testing.B) {
			ctx := context.Background()
			if !capture {
				ctx = WithObserverPanicCaptureDisabled(ctx)
			}

			sub := NewObserver[int](func(value int) {}, func(err error) {}, func() {})
			sub.OnSubscribe(ctx, EmptySubscription)

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				sub.OnNext(ctx, i)
			}
		})
	}
}
