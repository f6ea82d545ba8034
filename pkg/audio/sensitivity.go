package audio

import (
	"sync"
	"time"
)

// ReleaseRate is how fast sensitivity decays, in units per second, once the
// magnitude drops to or below the threshold.
const ReleaseRate = 3.0

// Tracker keeps the decaying "speaking" signal for one stream.
// It is shared by the data and error callbacks of that stream; the lock is
// only held for the arithmetic, never across a send.
type Tracker struct {
	Threshold int32

	mu           sync.Mutex
	lastTime     time.Time
	sensitivity  float32
	lastReported float32
}

func NewTracker(threshold int32) *Tracker {
	return &Tracker{Threshold: threshold}
}

// Process feeds one magnitude observed at now, using the time elapsed since
// the previous call as the decay step.
func (t *Tracker) Process(magnitude int32, now time.Time) (sensitivity float32, changed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var delta time.Duration
	if !t.lastTime.IsZero() {
		delta = now.Sub(t.lastTime)
	}
	t.lastTime = now
	return t.step(magnitude, delta)
}

// Step feeds one magnitude with an explicit elapsed time.
// changed reports whether the result differs from the last reported value.
func (t *Tracker) Step(magnitude int32, delta time.Duration) (sensitivity float32, changed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.step(magnitude, delta)
}

func (t *Tracker) step(magnitude int32, delta time.Duration) (float32, bool) {
	if delta < 0 {
		delta = 0
	}
	if magnitude > t.Threshold {
		t.sensitivity = 1.0
	} else {
		t.sensitivity = max(0, t.sensitivity-ReleaseRate*float32(delta.Seconds()))
	}
	if t.sensitivity == t.lastReported {
		return t.sensitivity, false
	}
	t.lastReported = t.sensitivity
	return t.sensitivity, true
}

// Silence drops the signal to zero, e.g. after a stream error, and records
// zero as reported.
func (t *Tracker) Silence() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sensitivity = 0
	t.lastReported = 0
}

func (t *Tracker) Sensitivity() float32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sensitivity
}

// Speaking reports whether any sensitivity is left.
func (t *Tracker) Speaking() bool {
	return t.Sensitivity() > 0
}
