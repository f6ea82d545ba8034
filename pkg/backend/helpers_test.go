package backend

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const waitTimeout = 2 * time.Second

// next skips messages until one of type T arrives.
func next[T Message](t *testing.T, ch <-chan Message) T {
	t.Helper()
	timeout := time.After(waitTimeout)
	for {
		select {
		case msg, ok := <-ch:
			require.True(t, ok, "channel closed")
			if m, ok := msg.(T); ok {
				return m
			}
		case <-timeout:
			var zero T
			t.Fatalf("timed out waiting for %T", zero)
			return zero
		}
	}
}

func nextStatus(t *testing.T, ch <-chan Message, status Status) UpdateAudioStatus {
	t.Helper()
	timeout := time.After(waitTimeout)
	for {
		select {
		case msg, ok := <-ch:
			require.True(t, ok, "channel closed")
			if m, ok := msg.(UpdateAudioStatus); ok && m.Status == status {
				return m
			}
		case <-timeout:
			t.Fatalf("timed out waiting for status %s", status)
			return UpdateAudioStatus{}
		}
	}
}

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(waitTimeout):
		var zero T
		t.Fatalf("timed out waiting for %T", zero)
		return zero
	}
}

func loud(n, sampleRate int) []float32 {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate)))
	}
	return samples
}
