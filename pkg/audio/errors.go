package audio

import (
	"errors"
)

var (
	// ErrNoInputDevice means no device matched the requested index or name.
	ErrNoInputDevice = errors.New("no input device with that name or index")
	// ErrNoSupportedConfig means the device offered no usable input configuration.
	ErrNoSupportedConfig = errors.New("no supported input config for device")
	// ErrDeviceNotAvailable means the device was most likely disconnected while or before it was used.
	ErrDeviceNotAvailable = errors.New("device not available")
	// ErrBuildStream means the backend rejected the stream parameters.
	ErrBuildStream = errors.New("failed to build audio input stream")
	// ErrStream is a backend specific failure while the stream was running.
	ErrStream = errors.New("audio stream error")
	// ErrPlay means the stream was built but could not be started.
	ErrPlay = errors.New("failed to start audio input stream")
	// ErrClosed is returned when the owning message channel closed. It is not a failure.
	ErrClosed = errors.New("audio session closed")
	// ErrStopped is returned when a stop command ended the session.
	ErrStopped = errors.New("audio session stopped")
	// ErrSwitched is returned when a device switch command ended the session.
	ErrSwitched = errors.New("audio device switched")
)

// Recoverable reports whether a session ending with err may be set up again
// automatically.
func Recoverable(err error) bool {
	return err == nil || errors.Is(err, ErrClosed) || errors.Is(err, ErrDeviceNotAvailable)
}
