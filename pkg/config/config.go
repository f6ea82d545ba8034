// Package config loads the rotatar JSON configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Defaults applied to keys missing from the config file.
const (
	DefaultMagnitudeThreshold = 6
	DefaultMaxMagnitude       = 50
	DefaultCurrentDevice      = 0
)

// DefaultDeviceName as device_name selects the first device whose name
// contains "default".
const DefaultDeviceName = "default"

var validate = validator.New(validator.WithRequiredStructEnabled())

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("configuration file is invalid")

// TwoInts is an (x, y) pair, written as a two element JSON array.
type TwoInts struct {
	X int
	Y int
}

func (t TwoInts) Add(o TwoInts) TwoInts {
	return TwoInts{X: t.X + o.X, Y: t.Y + o.Y}
}

func (t TwoInts) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{t.X, t.Y})
}

func (t *TwoInts) UnmarshalJSON(b []byte) error {
	var pair [2]int
	if err := json.Unmarshal(b, &pair); err != nil {
		return fmt.Errorf("expected [x, y]: %w", err)
	}
	t.X, t.Y = pair[0], pair[1]
	return nil
}

// AudioConfig holds the voice activity settings. It does not change during
// an audio session.
type AudioConfig struct {
	MagnitudeThreshold int32  `json:"magnitude_threshold" validate:"gte=0"`
	MaxMagnitude       int32  `json:"max_magnitude" validate:"gt=0"`
	CurrentDevice      int    `json:"current_device" validate:"gte=0"`
	DeviceName         string `json:"device_name"`
}

func DefaultAudio() AudioConfig {
	return AudioConfig{
		MagnitudeThreshold: DefaultMagnitudeThreshold,
		MaxMagnitude:       DefaultMaxMagnitude,
		CurrentDevice:      DefaultCurrentDevice,
	}
}

// ScreenInformation describes the screen the cursor moves on. Modifiers are
// per-OS offsets added to every cursor position, keyed by GOOS.
type ScreenInformation struct {
	Size      TwoInts            `json:"size"`
	Modifiers map[string]TwoInts `json:"modifiers"`
}

// Modifier returns the offset for os, or zero.
func (s ScreenInformation) Modifier(os string) TwoInts {
	return s.Modifiers[os]
}

type Config struct {
	Audio             AudioConfig       `json:"audio"`
	Sections          TwoInts           `json:"sections"`
	IdleImages        []string          `json:"idle_images" validate:"min=1,dive,required"`
	SpeakingImages    []string          `json:"speaking_images" validate:"min=1,dive,required"`
	ScreenInformation ScreenInformation `json:"screen_information"`
	// Background is the overlay colour. Nil leaves it transparent.
	Background *Color `json:"background,omitempty"`
}

// Default is the configuration every file is decoded on top of.
func Default() Config {
	return Config{Audio: DefaultAudio()}
}

// Load reads, decodes and validates the config file at path.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return Parse(b)
}

func Parse(b []byte) (Config, error) {
	cfg := Default()
	if err := json.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("could not parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) TotalSections() int {
	return c.Sections.X * c.Sections.Y
}

func (c Config) ImageCount() int {
	return len(c.IdleImages)
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) {
			msgs := make([]string, len(fieldErrors))
			for i, fe := range fieldErrors {
				msgs[i] = fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag())
			}
			return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Sections.X <= 0 || c.Sections.Y <= 0 {
		return fmt.Errorf("%w: sections must be positive, got [%d, %d]", ErrInvalid, c.Sections.X, c.Sections.Y)
	}
	size := c.ScreenInformation.Size
	if size.X < c.Sections.X || size.Y < c.Sections.Y {
		return fmt.Errorf("%w: screen size [%d, %d] is smaller than the section grid", ErrInvalid, size.X, size.Y)
	}
	if c.ImageCount() < c.TotalSections() {
		return fmt.Errorf("%w: you cannot have less images than you have sections. You only have %d images while you have %d sections",
			ErrInvalid, c.ImageCount(), c.TotalSections())
	}
	if len(c.SpeakingImages) != len(c.IdleImages) {
		return fmt.Errorf("%w: %d speaking images for %d idle images", ErrInvalid, len(c.SpeakingImages), len(c.IdleImages))
	}
	return nil
}
