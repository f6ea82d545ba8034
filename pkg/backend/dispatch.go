package backend

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/algo-boyz/rotatar/pkg/audio"
)

// Dispatcher is the single consumer of the application bus. It applies
// every message to State, starts and retries audio sessions, answers
// listener handshakes and forwards value messages to subscribers.
type Dispatcher struct {
	bus     *Bus
	state   *State
	control *Controller

	// parked holds the handler while no session runs, e.g. after a stop.
	parked *Handler
	wg     sync.WaitGroup
}

func NewDispatcher(b *Bus, state *State, control *Controller) *Dispatcher {
	return &Dispatcher{bus: b, state: state, control: control}
}

func (d *Dispatcher) State() *State { return d.state }

// Run drains the bus until it is closed and every session has ended.
func (d *Dispatcher) Run() {
	defer d.wg.Wait()
	for {
		// Device commands go to the running session; only a parked handler
		// makes them ours.
		var commands <-chan Command
		if d.parked != nil && d.control != nil {
			commands = d.control.Commands()
		}
		select {
		case msg, ok := <-d.bus.Receive():
			if !ok {
				return
			}
			d.handle(msg)
		case cmd := <-commands:
			d.resume(cmd)
		}
	}
}

func (d *Dispatcher) handle(msg Message) {
	switch m := msg.(type) {
	case SetupAudio:
		d.setup(m.Handler)
		return
	case UpdateAudioStatus:
		d.state.SetAudioStatus(m.Status)
		slog.Debug("audio status changed", "status", m.Status)
		if m.Handler != nil {
			d.adopt(m)
		}
		// Handlers never leave the backend.
		d.bus.Publish(UpdateAudioStatus{Status: m.Status, Reason: m.Reason})
		return
	case OutsideListenerReady:
		sub := d.bus.Subscribe()
		select {
		case m.Reply <- sub:
		default:
			slog.Warn("outside listener did not leave room for a reply")
			d.bus.Unsubscribe(sub)
		}
		return
	case SensitivityChanged:
		d.state.SetSensitivity(m.Sensitivity)
	case MagnitudeChanged:
		d.state.SetMagnitude(m.Magnitude)
	case AudioDevicesChanged:
		d.state.SetAudioDevices(m.Devices)
	case CurrentImageChanged:
		if !d.state.SetCurrentImage(m.Index) {
			return
		}
	}
	d.bus.Publish(msg)
}

func (d *Dispatcher) setup(h *Handler) {
	if h == nil {
		return
	}
	d.spawn(func() Message {
		h.UpdateInputDevices()
		return HandleAudio(h)
	})
}

// adopt takes ownership of the handler carried by a status message.
func (d *Dispatcher) adopt(m UpdateAudioStatus) {
	h := m.Handler
	switch {
	case m.Status == StatusPolling:
		d.spawn(func() Message { return WaitForAudio(h) })
	case errors.Is(m.Reason, audio.ErrStopped):
		slog.Info("audio input stopped")
		d.parked = h
	case audio.Recoverable(m.Reason):
		slog.Info("audio input closed, waiting for device", "reason", m.Reason)
		d.spawn(func() Message { return WaitForAudio(h) })
	default:
		slog.Error("audio session aborted", "error", m.Reason, "target", h.Target())
		d.parked = h
	}
}

func (d *Dispatcher) resume(cmd Command) {
	if cmd.Kind != CommandSwitch {
		return
	}
	h := d.parked
	d.parked = nil
	h.Retarget(cmd.Target)
	slog.Info("switching audio device", "target", cmd.Target)
	d.setup(h)
}

func (d *Dispatcher) spawn(session func() Message) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if msg := session(); msg != nil {
			if err := d.bus.Send(msg); err != nil {
				slog.Debug("dropping audio session result", "error", err)
			}
		}
	}()
}
