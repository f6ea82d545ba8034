package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
	"go.uber.org/multierr"
)

// Sample rates probed when asking PortAudio what a device supports.
var standardSampleRates = []float64{8000, 11025, 16000, 22050, 32000, 44100, 48000, 88200, 96000, 192000}

// PortAudioHost lists and opens live input devices through PortAudio.
//
// PortAudio snapshots the device list when it is initialised, so the host
// re-initialises the library on enumeration whenever no stream is open.
// Handles from an older snapshot report ErrDeviceNotAvailable.
type PortAudioHost struct {
	FramesPerBuffer int

	mu         sync.Mutex
	generation int
	open       int
}

// NewPortAudioHost initialises PortAudio. Call Close to terminate it.
func NewPortAudioHost(framesPerBuffer int) (*PortAudioHost, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio.Initialize: %w", err)
	}
	if framesPerBuffer <= 0 {
		framesPerBuffer = DefaultFramesPerBuffer
	}
	slog.Debug("portaudio initialised", "version", portaudio.VersionText(), "frames_per_buffer", framesPerBuffer)
	return &PortAudioHost{FramesPerBuffer: framesPerBuffer}, nil
}

func (h *PortAudioHost) Close() error {
	return portaudio.Terminate()
}

func (h *PortAudioHost) InputDevices() ([]Device, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.open == 0 {
		if err := multierr.Combine(portaudio.Terminate(), portaudio.Initialize()); err != nil {
			return nil, fmt.Errorf("portaudio refresh: %w", err)
		}
		h.generation++
	}
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("portaudio.Devices: %w", err)
	}
	var devices []Device
	for _, info := range infos {
		if info.MaxInputChannels <= 0 {
			continue
		}
		devices = append(devices, &paDevice{host: h, info: info, generation: h.generation})
	}
	return devices, nil
}

func (h *PortAudioHost) valid(generation int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.generation == generation
}

type paDevice struct {
	host       *PortAudioHost
	info       *portaudio.DeviceInfo
	generation int
}

func (d *paDevice) Name() (string, error) {
	if !d.host.valid(d.generation) {
		return "", ErrDeviceNotAvailable
	}
	return d.info.Name, nil
}

func (d *paDevice) params(cfg StreamConfig) portaudio.StreamParameters {
	params := portaudio.LowLatencyParameters(d.info, nil)
	params.Input.Channels = cfg.Channels
	params.Output.Device = nil
	params.Output.Channels = 0
	params.SampleRate = float64(cfg.SampleRate)
	params.FramesPerBuffer = d.host.FramesPerBuffer
	return params
}

// SupportedInputConfigs returns a single mono range spanning the probed
// sample rates the device accepts.
func (d *paDevice) SupportedInputConfigs() ([]SupportedConfigRange, error) {
	if !d.host.valid(d.generation) {
		return nil, ErrDeviceNotAvailable
	}
	if d.info.MaxInputChannels <= 0 {
		return nil, nil
	}
	var lo, hi int
	probe := make([]float32, d.host.FramesPerBuffer)
	for _, rate := range standardSampleRates {
		cfg := StreamConfig{SampleRate: int(rate), Channels: 1}
		if err := portaudio.IsFormatSupported(d.params(cfg), probe); err != nil {
			continue
		}
		if lo == 0 {
			lo = int(rate)
		}
		hi = int(rate)
	}
	if hi == 0 {
		// Some host APIs refuse every probe but still open at their default rate.
		lo, hi = int(d.info.DefaultSampleRate), int(d.info.DefaultSampleRate)
	}
	if hi <= 0 {
		return nil, nil
	}
	return []SupportedConfigRange{{Channels: 1, MinSampleRate: lo, MaxSampleRate: hi}}, nil
}

func (d *paDevice) OpenInputStream(cfg StreamConfig, onData func([]float32), onError func(error)) (Stream, error) {
	if !d.host.valid(d.generation) {
		return nil, ErrDeviceNotAvailable
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	buffer := make([]float32, d.host.FramesPerBuffer*cfg.Channels)
	stream, err := portaudio.OpenStream(d.params(cfg), buffer)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBuildStream, d.info.Name, err)
	}
	d.host.mu.Lock()
	d.host.open++
	d.host.mu.Unlock()
	return &paStream{
		host:     d.host,
		stream:   stream,
		buffer:   buffer,
		mono:     make([]float32, d.host.FramesPerBuffer),
		channels: cfg.Channels,
		onData:   onData,
		onError:  onError,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// paStream pumps blocking reads on its own goroutine, which plays the role
// of the audio callback thread.
type paStream struct {
	host     *PortAudioHost
	stream   *portaudio.Stream
	buffer   []float32
	mono     []float32
	channels int
	onData   func([]float32)
	onError  func(error)

	started   bool
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func (s *paStream) Start() error {
	if err := s.stream.Start(); err != nil {
		return fmt.Errorf("%w: %v", ErrPlay, err)
	}
	s.started = true
	go s.pump()
	return nil
}

func (s *paStream) pump() {
	defer close(s.done)
	for {
		select {
		case <-s.stop:
			return
		default:
		}
		if err := s.stream.Read(); err != nil {
			if errors.Is(err, portaudio.InputOverflowed) {
				continue
			}
			select {
			case <-s.stop:
			default:
				s.onError(classifyPortAudio(err))
			}
			return
		}
		s.onData(downmix(s.mono, s.buffer, s.channels))
	}
}

func (s *paStream) Close() (err error) {
	s.closeOnce.Do(func() {
		close(s.stop)
		if s.started {
			// Abort unblocks a pending Read.
			err = multierr.Combine(err, s.stream.Abort())
			<-s.done
		}
		err = multierr.Combine(err, s.stream.Close())
		s.host.mu.Lock()
		s.host.open--
		s.host.mu.Unlock()
	})
	return err
}

// classifyPortAudio maps a failed read to a stream error. Unplugging a
// device mid-stream surfaces as a host error or a timeout on most backends,
// so those count as the device going away and the session retries.
func classifyPortAudio(err error) error {
	var hostErr portaudio.UnanticipatedHostError
	switch {
	case errors.Is(err, portaudio.DeviceUnavailable),
		errors.Is(err, portaudio.InvalidDevice),
		errors.Is(err, portaudio.TimedOut),
		errors.As(err, &hostErr):
		return fmt.Errorf("%w: %v", ErrDeviceNotAvailable, err)
	}
	return fmt.Errorf("%w: %v", ErrStream, err)
}
