package audio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTrackerAttack(t *testing.T) {
	for _, prior := range []time.Duration{0, 100 * time.Millisecond, time.Second} {
		tracker := NewTracker(6)
		tracker.Step(7, 0)
		tracker.Step(0, prior)

		sensitivity, _ := tracker.Step(7, prior)
		require.Equal(t, float32(1), sensitivity, "after decaying for %s", prior)
	}
}

func TestTrackerRelease(t *testing.T) {
	tracker := NewTracker(6)
	tracker.Step(50, 0)

	sensitivity, changed := tracker.Step(6, 100*time.Millisecond)
	require.True(t, changed)
	require.InDelta(t, 0.7, sensitivity, 1e-6)

	sensitivity, changed = tracker.Step(3, 200*time.Millisecond)
	require.True(t, changed)
	require.InDelta(t, 0.1, sensitivity, 1e-6)
	require.True(t, tracker.Speaking())

	sensitivity, changed = tracker.Step(0, 10*time.Second)
	require.True(t, changed)
	require.Equal(t, float32(0), sensitivity)
	require.False(t, tracker.Speaking())

	sensitivity, changed = tracker.Step(0, time.Second)
	require.False(t, changed)
	require.Equal(t, float32(0), sensitivity)
}

func TestTrackerNeverNegative(t *testing.T) {
	tracker := NewTracker(6)
	for _, delta := range []time.Duration{0, time.Millisecond, time.Hour, -time.Second} {
		sensitivity, _ := tracker.Step(0, delta)
		require.GreaterOrEqual(t, sensitivity, float32(0))
	}
}

func TestTrackerIdempotentAtZeroDelta(t *testing.T) {
	tests := []struct {
		magnitude   int32
		firstChange bool
	}{
		{magnitude: 20, firstChange: true},
		{magnitude: 6, firstChange: false},
		{magnitude: 0, firstChange: false},
	}
	for _, test := range tests {
		tracker := NewTracker(6)
		_, changed := tracker.Step(test.magnitude, 0)
		require.Equal(t, test.firstChange, changed, "first step with magnitude %d", test.magnitude)
		_, changed = tracker.Step(test.magnitude, 0)
		require.False(t, changed, "second step with magnitude %d", test.magnitude)
	}
}

func TestTrackerProcessUsesElapsedTime(t *testing.T) {
	tracker := NewTracker(6)
	start := time.Unix(1000, 0)

	sensitivity, changed := tracker.Process(10, start)
	require.True(t, changed)
	require.Equal(t, float32(1), sensitivity)

	sensitivity, _ = tracker.Process(0, start.Add(250*time.Millisecond))
	require.InDelta(t, 0.25, sensitivity, 1e-6)
}

func TestTrackerSilence(t *testing.T) {
	tracker := NewTracker(6)
	tracker.Step(10, 0)
	tracker.Silence()
	require.Equal(t, float32(0), tracker.Sensitivity())

	_, changed := tracker.Step(0, 0)
	require.False(t, changed)
}
