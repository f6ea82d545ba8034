package backend

import (
	"github.com/algo-boyz/rotatar/pkg/bus"
)

// Bus is the application mailbox.
type Bus = bus.Bus[Message]

// NewBus creates an empty application mailbox.
func NewBus() *Bus {
	return bus.New[Message]()
}

// Message is anything that travels over the application bus. Messages are
// never mutated after they are sent.
type Message interface {
	message()
}

// SetupAudio hands a handler to the dispatcher so it re-enumerates devices
// and starts a session. Ownership of Handler moves with the message.
type SetupAudio struct {
	Handler *Handler
}

// UpdateAudioStatus reports a session transition. For Polling and Closed the
// message may carry the handler, which then belongs to whoever processes the
// message. Reason explains why a session closed; nil means a clean close.
type UpdateAudioStatus struct {
	Status  Status
	Handler *Handler
	Reason  error
}

type SensitivityChanged struct {
	Sensitivity float32
}

type MagnitudeChanged struct {
	Magnitude int32
}

type AudioDevicesChanged struct {
	Devices []string
}

type CurrentImageChanged struct {
	Index int
}

// OutsideListenerReady asks the dispatcher for a subscription to every
// future message. Reply must have room for one value.
type OutsideListenerReady struct {
	Reply chan<- (<-chan Message)
}

func (SetupAudio) message()           {}
func (UpdateAudioStatus) message()    {}
func (SensitivityChanged) message()   {}
func (MagnitudeChanged) message()     {}
func (AudioDevicesChanged) message()  {}
func (CurrentImageChanged) message()  {}
func (OutsideListenerReady) message() {}
