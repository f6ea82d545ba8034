package backend

import (
	"time"

	"github.com/algo-boyz/rotatar/pkg/config"
)

// PointerInterval is how often the cursor is polled.
const PointerInterval = 100 * time.Millisecond

// Pointer reports the global cursor position.
type Pointer interface {
	Position() (config.TwoInts, error)
}

// PointerTracker turns cursor movement into CurrentImageChanged messages.
type PointerTracker struct {
	Pointer  Pointer
	Grid     Grid
	Modifier config.TwoInts
	Interval time.Duration
}

// Run polls until the bus closes. current is the index already shown, so
// only real changes are sent. Failed position reads are skipped.
func (t PointerTracker) Run(b *Bus, current int) {
	interval := t.Interval
	if interval <= 0 {
		interval = PointerInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-b.Done():
			return
		case <-ticker.C:
		}
		pos, err := t.Pointer.Position()
		if err != nil {
			continue
		}
		index := t.Grid.Index(pos.Add(t.Modifier))
		if index == current {
			continue
		}
		current = index
		if err := b.Send(CurrentImageChanged{Index: index}); err != nil {
			return
		}
	}
}
