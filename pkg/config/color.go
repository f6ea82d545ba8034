package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Color is an RGB colour. On the command line it is written "r g b", in
// JSON as a three element array.
type Color struct {
	R, G, B uint8
}

// ParseColor reads three whitespace separated components in 0..255.
func ParseColor(s string) (Color, error) {
	parts := strings.Fields(s)
	if len(parts) != 3 {
		return Color{}, fmt.Errorf("invalid color %q, should be \"r g b\"", s)
	}
	var rgb [3]uint8
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 10, 8)
		if err != nil {
			return Color{}, fmt.Errorf("invalid color %q, should be \"r g b\": %w", s, err)
		}
		rgb[i] = uint8(v)
	}
	return Color{R: rgb[0], G: rgb[1], B: rgb[2]}, nil
}

func (c Color) String() string {
	return fmt.Sprintf("%d %d %d", c.R, c.G, c.B)
}

// Set and Type make *Color usable as a pflag.Value.
func (c *Color) Set(s string) error {
	parsed, err := ParseColor(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (c *Color) Type() string {
	return "color"
}

func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]uint8{c.R, c.G, c.B})
}

func (c *Color) UnmarshalJSON(b []byte) error {
	var rgb [3]uint8
	if err := json.Unmarshal(b, &rgb); err != nil {
		return fmt.Errorf("expected [r, g, b]: %w", err)
	}
	c.R, c.G, c.B = rgb[0], rgb[1], rgb[2]
	return nil
}
