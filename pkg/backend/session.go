package backend

import (
	"errors"
	"time"

	"github.com/algo-boyz/rotatar/pkg/audio"
)

// PollInterval is how long a polling session waits before it looks for
// devices again.
const PollInterval = 75 * time.Millisecond

// HandleAudio runs one session on h and returns the message that hands h on:
//
//   - selection failed: UpdateAudioStatus Polling, so the caller retries;
//   - a device switch: SetupAudio, after the old stream is released;
//   - any other end: UpdateAudioStatus Closed with the reason.
//
// When the bus closed it returns nil; there is nobody left to tell.
func HandleAudio(h *Handler) Message {
	if !h.selectTarget() {
		return UpdateAudioStatus{Status: StatusPolling, Handler: h}
	}
	err := h.Play()
	switch {
	case errors.Is(err, audio.ErrClosed):
		return nil
	case errors.Is(err, audio.ErrSwitched):
		_ = h.bus.Send(UpdateAudioStatus{Status: StatusClosed})
		return SetupAudio{Handler: h}
	default:
		return UpdateAudioStatus{Status: StatusClosed, Handler: h, Reason: err}
	}
}

// WaitForAudio waits PollInterval, refreshes the device list and runs
// HandleAudio again. A switch command cuts the wait short; a stop command
// ends the retry.
func WaitForAudio(h *Handler) Message {
	timer := time.NewTimer(PollInterval)
	defer timer.Stop()
	select {
	case <-h.bus.Done():
		return nil
	case cmd := <-h.commands:
		if cmd.Kind == CommandStop {
			return UpdateAudioStatus{Status: StatusClosed, Handler: h, Reason: audio.ErrStopped}
		}
		h.target = cmd.Target
	case <-timer.C:
	}
	h.UpdateInputDevices()
	return HandleAudio(h)
}
