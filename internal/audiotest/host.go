// Package audiotest provides an in-memory audio host for tests.
package audiotest

import (
	"errors"
	"sync"

	"github.com/algo-boyz/rotatar/pkg/audio"
)

// Host is a scripted audio.Host. Devices can be swapped while sessions run.
type Host struct {
	mu      sync.Mutex
	devices []*Device
	err     error
}

func NewHost(devices ...*Device) *Host {
	return &Host{devices: devices}
}

func (h *Host) SetDevices(devices ...*Device) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.devices = devices
}

// FailEnumeration makes InputDevices return err until called with nil.
func (h *Host) FailEnumeration(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}

func (h *Host) InputDevices() ([]audio.Device, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return nil, h.err
	}
	devices := make([]audio.Device, len(h.devices))
	for i, d := range h.devices {
		devices[i] = d
	}
	return devices, nil
}

// Device is a fake input device. The error fields are read on every call
// and must be set before the device is handed to a session.
type Device struct {
	name    string
	Configs []audio.SupportedConfigRange

	NameErr   error
	ConfigErr error
	OpenErr   error
	StartErr  error

	opened chan *Stream
}

// NewDevice returns a mono device that supports sampleRate only.
func NewDevice(name string, sampleRate int) *Device {
	return &Device{
		name:    name,
		Configs: []audio.SupportedConfigRange{{Channels: 1, MinSampleRate: sampleRate, MaxSampleRate: sampleRate}},
		opened:  make(chan *Stream, 16),
	}
}

func (d *Device) Name() (string, error) {
	if d.NameErr != nil {
		return "", d.NameErr
	}
	return d.name, nil
}

func (d *Device) SupportedInputConfigs() ([]audio.SupportedConfigRange, error) {
	if d.ConfigErr != nil {
		return nil, d.ConfigErr
	}
	return d.Configs, nil
}

func (d *Device) OpenInputStream(cfg audio.StreamConfig, onData func([]float32), onError func(error)) (audio.Stream, error) {
	if d.OpenErr != nil {
		return nil, d.OpenErr
	}
	s := &Stream{
		Config:   cfg,
		onData:   onData,
		onError:  onError,
		startErr: d.StartErr,
		started:  make(chan struct{}),
		closed:   make(chan struct{}),
	}
	d.opened <- s
	return s, nil
}

// Opened yields every stream opened on the device, in order.
func (d *Device) Opened() <-chan *Stream {
	return d.opened
}

var errStreamClosed = errors.New("audiotest: stream closed")

// Stream delivers whatever the test feeds it.
type Stream struct {
	Config audio.StreamConfig

	mu       sync.Mutex
	onData   func([]float32)
	onError  func(error)
	startErr error
	started  chan struct{}
	closed   chan struct{}
	once     sync.Once
}

func (s *Stream) Start() error {
	if s.startErr != nil {
		return s.startErr
	}
	close(s.started)
	return nil
}

func (s *Stream) Close() error {
	s.once.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		close(s.closed)
	})
	return nil
}

// Feed runs the data callback with samples, as a capture thread would.
func (s *Stream) Feed(samples []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.closed:
		return errStreamClosed
	default:
	}
	s.onData(samples)
	return nil
}

// Fail runs the error callback with err.
func (s *Stream) Fail(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.closed:
		return errStreamClosed
	default:
	}
	s.onError(err)
	return nil
}

func (s *Stream) Started() <-chan struct{} { return s.started }

func (s *Stream) Closed() <-chan struct{} { return s.closed }
