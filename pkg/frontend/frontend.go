// Package frontend holds what every presentation layer shares: the backend
// capability set and the event vocabulary pushed to consumers.
package frontend

import (
	"context"
	"errors"

	"github.com/algo-boyz/rotatar/pkg/backend"
	"github.com/algo-boyz/rotatar/pkg/config"
)

// Frontend names accepted on the command line.
const (
	Web     = "web"
	Tauri   = "tauri"
	Console = "console"
	Native  = "native"
)

var ErrUnknown = errors.New("unknown frontend")

// Backend is what a frontend may ask of the core.
type Backend interface {
	Listen(ctx context.Context) (<-chan backend.Message, error)
	Unlisten(ch <-chan backend.Message)
	State() backend.Snapshot
	SetAudioDevice(ctx context.Context, name string) error
	StopAudio(ctx context.Context) error
}

// Frontend presents the avatar. Run blocks until ctx is done or the
// backend shuts down.
type Frontend interface {
	Run(ctx context.Context, cfg config.Config, b Backend) error
}

// Event names pushed to frontends.
const (
	EventSensitivityChanged  = "sensitivity-changed"
	EventMagnitudeChanged    = "magnitude-changed"
	EventCurrentImageChanged = "current-image-changed"
	EventAudioStatusChanged  = "audio-status-changed"
	EventAudioDevicesChanged = "audio-devices-changed"
)

type Event struct {
	Name    string `json:"event"`
	Payload any    `json:"payload"`
}

type AudioStatusPayload struct {
	Status backend.Status `json:"status"`
	Reason string         `json:"reason,omitempty"`
}

// EventFor maps a bus message to the event frontends see. Messages that are
// internal to the backend map to nothing.
func EventFor(msg backend.Message) (Event, bool) {
	switch m := msg.(type) {
	case backend.SensitivityChanged:
		return Event{Name: EventSensitivityChanged, Payload: m.Sensitivity}, true
	case backend.MagnitudeChanged:
		return Event{Name: EventMagnitudeChanged, Payload: m.Magnitude}, true
	case backend.CurrentImageChanged:
		return Event{Name: EventCurrentImageChanged, Payload: m.Index}, true
	case backend.AudioDevicesChanged:
		return Event{Name: EventAudioDevicesChanged, Payload: m.Devices}, true
	case backend.UpdateAudioStatus:
		payload := AudioStatusPayload{Status: m.Status}
		if m.Reason != nil {
			payload.Reason = m.Reason.Error()
		}
		return Event{Name: EventAudioStatusChanged, Payload: payload}, true
	default:
		return Event{}, false
	}
}

// Sprite returns the image path for a grid cell.
func Sprite(cfg config.Config, index int, speaking bool) (string, bool) {
	images := cfg.IdleImages
	if speaking {
		images = cfg.SpeakingImages
	}
	if index < 0 || index >= len(images) {
		return "", false
	}
	return images[index], true
}
