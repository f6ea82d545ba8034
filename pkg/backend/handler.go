package backend

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/algo-boyz/rotatar/pkg/audio"
	"github.com/algo-boyz/rotatar/pkg/config"
)

// Handler is the device manager. It enumerates input devices, binds one of
// them and runs its capture stream.
//
// A Handler is owned by one goroutine at a time; it travels between the
// dispatcher and session goroutines inside messages and is never shared.
type Handler struct {
	host     audio.Host
	bus      *Bus
	commands <-chan Command
	audio    config.AudioConfig
	now      func() time.Time

	devices      []audio.Device
	currentIndex int
	streamConfig *audio.StreamConfig
	target       Target
}

// NewHandler creates a handler that reports on b. control may be nil when
// nothing needs to stop or switch devices.
func NewHandler(host audio.Host, b *Bus, control *Controller, cfg config.AudioConfig) *Handler {
	h := &Handler{
		host:   host,
		bus:    b,
		audio:  cfg,
		now:    time.Now,
		target: TargetFor(cfg),
	}
	if control != nil {
		h.commands = control.Commands()
	}
	return h
}

func (h *Handler) Bus() *Bus { return h.bus }

func (h *Handler) Target() Target { return h.target }

// Retarget changes the device the next session binds.
func (h *Handler) Retarget(t Target) { h.target = t }

func (h *Handler) CurrentIndex() int { return h.currentIndex }

// StreamConfig returns the config bound by the last successful selection.
func (h *Handler) StreamConfig() (audio.StreamConfig, bool) {
	if h.streamConfig == nil {
		return audio.StreamConfig{}, false
	}
	return *h.streamConfig, true
}

// UpdateInputDevices refreshes the device list. When the host cannot be
// queried the previous list is kept. The resulting names are always
// reported with AudioDevicesChanged.
func (h *Handler) UpdateInputDevices() []string {
	if devices, err := h.host.InputDevices(); err != nil {
		slog.Warn("failed to enumerate input devices, keeping previous list", "error", err, "devices", len(h.devices))
	} else {
		h.devices = devices
	}
	names := h.DeviceNames()
	_ = h.bus.Send(AudioDevicesChanged{Devices: names})
	return names
}

// DeviceNames lists the names of the known devices, skipping devices that
// can no longer report one.
func (h *Handler) DeviceNames() []string {
	names := make([]string, 0, len(h.devices))
	for _, device := range h.devices {
		if name, err := device.Name(); err == nil {
			names = append(names, name)
		}
	}
	return names
}

// SelectDefault selects the first device whose name contains "default",
// ignoring case. Nothing changes when no device matches.
func (h *Handler) SelectDefault() bool {
	for i, device := range h.devices {
		name, err := device.Name()
		if err != nil {
			continue
		}
		if strings.Contains(strings.ToLower(name), config.DefaultDeviceName) {
			return h.Select(i)
		}
	}
	return false
}

// Select binds the device at index and its first supported config at the
// maximum sample rate. An index outside the list changes nothing; a device
// without a usable config clears the bound config.
func (h *Handler) Select(index int) bool {
	if index < 0 || index >= len(h.devices) {
		return false
	}
	h.currentIndex = index
	device := h.devices[index]
	ranges, err := device.SupportedInputConfigs()
	if err != nil || len(ranges) == 0 {
		slog.Debug("device has no supported input config", "index", index, "error", err)
		h.streamConfig = nil
		return false
	}
	cfg := ranges[0].WithMaxSampleRate()
	h.streamConfig = &cfg
	name, _ := device.Name()
	slog.Info("audio device selected", "index", index, "device", name, "sample_rate", cfg.SampleRate)
	return true
}

// SelectByName selects the device whose name is exactly name.
func (h *Handler) SelectByName(name string) error {
	for i, device := range h.devices {
		if n, err := device.Name(); err == nil && n == name {
			if !h.Select(i) {
				return fmt.Errorf("%w: %s", audio.ErrNoSupportedConfig, name)
			}
			return nil
		}
	}
	return fmt.Errorf("%w: %s", audio.ErrNoInputDevice, name)
}

func (h *Handler) selectTarget() bool {
	switch {
	case h.target.Name != "":
		if err := h.SelectByName(h.target.Name); err != nil {
			slog.Debug("audio device not selected", "target", h.target, "error", err)
			return false
		}
		return true
	case h.target.Default:
		return h.SelectDefault()
	default:
		return h.Select(h.target.Index)
	}
}

// Play opens a stream on the bound device and blocks until the session ends.
// The returned error is never nil: ErrClosed when the bus closed,
// ErrStopped or ErrSwitched after a control command, otherwise the failure.
// The stream is released before Play returns.
func (h *Handler) Play() error {
	if h.streamConfig == nil || h.currentIndex >= len(h.devices) {
		return audio.ErrNoSupportedConfig
	}
	cfg := *h.streamConfig
	device := h.devices[h.currentIndex]

	analyzer := audio.NewAnalyzer(h.audio.MaxMagnitude)
	tracker := audio.NewTracker(h.audio.MagnitudeThreshold)
	failed := make(chan error, 1)

	onData := func(samples []float32) {
		peak := analyzer.Peak(samples, cfg.SampleRate)
		// Sends fail only once the bus is closed, and then the session is
		// already on its way out.
		_ = h.bus.Send(MagnitudeChanged{Magnitude: analyzer.Clamp(peak)})
		if sensitivity, changed := tracker.Process(peak, h.now()); changed {
			_ = h.bus.Send(SensitivityChanged{Sensitivity: sensitivity})
		}
	}
	onError := func(err error) {
		tracker.Silence()
		_ = h.bus.Send(SensitivityChanged{})
		select {
		case failed <- err:
		default:
		}
	}

	stream, err := device.OpenInputStream(cfg, onData, onError)
	if err != nil {
		if errors.Is(err, audio.ErrDeviceNotAvailable) || errors.Is(err, audio.ErrBuildStream) {
			return err
		}
		return fmt.Errorf("%w: %v", audio.ErrBuildStream, err)
	}
	defer func() {
		if err := stream.Close(); err != nil {
			slog.Warn("failed to close audio stream", "error", err)
		}
	}()
	if err := stream.Start(); err != nil {
		if errors.Is(err, audio.ErrPlay) {
			return err
		}
		return fmt.Errorf("%w: %v", audio.ErrPlay, err)
	}
	_ = h.bus.Send(UpdateAudioStatus{Status: StatusReady})

	for {
		select {
		case <-h.bus.Done():
			return audio.ErrClosed
		case err := <-failed:
			return err
		case cmd := <-h.commands:
			switch cmd.Kind {
			case CommandStop:
				return audio.ErrStopped
			case CommandSwitch:
				h.target = cmd.Target
				return audio.ErrSwitched
			}
		}
	}
}
