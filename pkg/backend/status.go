package backend

import (
	"encoding/json"
	"fmt"
)

// Status is the state of the audio session.
type Status int

const (
	// StatusClosed means no stream is open; the session may be set up again.
	StatusClosed Status = iota
	// StatusReady means a stream is open and healthy.
	StatusReady
	// StatusPolling means device selection is being retried.
	StatusPolling
)

func (s Status) String() string {
	switch s {
	case StatusClosed:
		return "Closed"
	case StatusReady:
		return "Ready"
	case StatusPolling:
		return "Polling"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}
