// Package pointer reads the global cursor position.
package pointer

import (
	"github.com/go-vgo/robotgo"

	"github.com/algo-boyz/rotatar/pkg/config"
)

// Cursor reads the cursor position from the desktop session.
type Cursor struct{}

func (Cursor) Position() (config.TwoInts, error) {
	x, y := robotgo.Location()
	return config.TwoInts{X: x, Y: y}, nil
}

// Fixed always reports the same position. It stands in for the cursor when
// no desktop session is available.
type Fixed config.TwoInts

func (f Fixed) Position() (config.TwoInts, error) {
	return config.TwoInts(f), nil
}
