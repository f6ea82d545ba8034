package audio

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gordonklaus/portaudio"
	"github.com/stretchr/testify/require"
)

func TestClassifyPortAudio(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		want        error
		recoverable bool
	}{
		{name: "device unavailable", err: portaudio.DeviceUnavailable, want: ErrDeviceNotAvailable, recoverable: true},
		{name: "invalid device", err: portaudio.InvalidDevice, want: ErrDeviceNotAvailable, recoverable: true},
		{name: "timed out", err: portaudio.TimedOut, want: ErrDeviceNotAvailable, recoverable: true},
		{
			name:        "host error on unplug",
			err:         portaudio.UnanticipatedHostError{Code: -9999, Text: "snd_pcm_readi: No such device"},
			want:        ErrDeviceNotAvailable,
			recoverable: true,
		},
		{
			name:        "wrapped host error",
			err:         fmt.Errorf("read: %w", portaudio.UnanticipatedHostError{Text: "device removed"}),
			want:        ErrDeviceNotAvailable,
			recoverable: true,
		},
		{name: "internal error", err: portaudio.InternalError, want: ErrStream},
		{name: "unknown", err: errors.New("boom"), want: ErrStream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyPortAudio(tt.err)
			require.ErrorIs(t, got, tt.want)
			require.Contains(t, got.Error(), tt.err.Error())
			require.Equal(t, tt.recoverable, Recoverable(got))
		})
	}
}
