package backend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/algo-boyz/rotatar/internal/audiotest"
	"github.com/algo-boyz/rotatar/pkg/audio"
	"github.com/algo-boyz/rotatar/pkg/config"
)

func runSession(h *Handler, session func(*Handler) Message) <-chan Message {
	done := make(chan Message, 1)
	go func() { done <- session(h) }()
	return done
}

func TestHandleAudioPollsWithoutDevices(t *testing.T) {
	h, _ := newTestHandler(t, audiotest.NewHost())
	h.UpdateInputDevices()

	msg := HandleAudio(h)
	require.Equal(t, UpdateAudioStatus{Status: StatusPolling, Handler: h}, msg)
}

func TestHandleAudioStreamsUntilDeviceLost(t *testing.T) {
	mic := audiotest.NewDevice("Default Mic", 48000)
	h, b := newTestHandler(t, audiotest.NewHost(mic))
	h.UpdateInputDevices()

	done := runSession(h, HandleAudio)
	stream := recv(t, mic.Opened())
	recv(t, stream.Started())
	nextStatus(t, b.Receive(), StatusReady)

	require.NoError(t, stream.Feed(loud(1024, 48000)))
	require.Equal(t, config.DefaultMaxMagnitude, int(next[MagnitudeChanged](t, b.Receive()).Magnitude))
	require.Equal(t, float32(1), next[SensitivityChanged](t, b.Receive()).Sensitivity)

	require.NoError(t, stream.Fail(audio.ErrDeviceNotAvailable))
	require.Equal(t, float32(0), next[SensitivityChanged](t, b.Receive()).Sensitivity)

	msg := recv(t, done)
	status, ok := msg.(UpdateAudioStatus)
	require.True(t, ok)
	require.Equal(t, StatusClosed, status.Status)
	require.Same(t, h, status.Handler)
	require.ErrorIs(t, status.Reason, audio.ErrDeviceNotAvailable)
	recv(t, stream.Closed())
}

func TestPlayReportsEveryBlock(t *testing.T) {
	mic := audiotest.NewDevice("Default Mic", 48000)
	h, b := newTestHandler(t, audiotest.NewHost(mic))
	h.UpdateInputDevices()

	done := runSession(h, HandleAudio)
	stream := recv(t, mic.Opened())
	recv(t, stream.Started())
	nextStatus(t, b.Receive(), StatusReady)

	quiet := make([]float32, 1024)
	for _, block := range [][]float32{quiet, quiet, loud(1024, 48000), loud(1024, 48000)} {
		require.NoError(t, stream.Feed(block))
	}
	end := CurrentImageChanged{Index: -1}
	require.NoError(t, b.Send(end))

	var magnitudes []int32
	var sensitivities []float32
	for msg := recv(t, b.Receive()); msg != end; msg = recv(t, b.Receive()) {
		switch m := msg.(type) {
		case MagnitudeChanged:
			magnitudes = append(magnitudes, m.Magnitude)
		case SensitivityChanged:
			sensitivities = append(sensitivities, m.Sensitivity)
		}
	}
	// Silence still peaks at 1: every bin carries a +1 offset.
	top := int32(config.DefaultMaxMagnitude)
	require.Equal(t, []int32{1, 1, top, top}, magnitudes)
	require.Equal(t, []float32{1}, sensitivities)

	b.Close()
	require.Nil(t, recv(t, done))
}

func TestHandleAudioFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*audiotest.Device)
		want  error
	}{
		{
			name:  "stream rejected",
			setup: func(d *audiotest.Device) { d.OpenErr = errors.New("unsupported format") },
			want:  audio.ErrBuildStream,
		},
		{
			name:  "device gone before open",
			setup: func(d *audiotest.Device) { d.OpenErr = audio.ErrDeviceNotAvailable },
			want:  audio.ErrDeviceNotAvailable,
		},
		{
			name:  "start fails",
			setup: func(d *audiotest.Device) { d.StartErr = errors.New("device busy") },
			want:  audio.ErrPlay,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mic := audiotest.NewDevice("Default Mic", 48000)
			tt.setup(mic)
			h, _ := newTestHandler(t, audiotest.NewHost(mic))
			h.UpdateInputDevices()

			status, ok := HandleAudio(h).(UpdateAudioStatus)
			require.True(t, ok)
			require.Equal(t, StatusClosed, status.Status)
			require.Same(t, h, status.Handler)
			require.ErrorIs(t, status.Reason, tt.want)
		})
	}
}

func TestHandleAudioReturnsNilWhenBusCloses(t *testing.T) {
	mic := audiotest.NewDevice("Default Mic", 48000)
	h, b := newTestHandler(t, audiotest.NewHost(mic))
	h.UpdateInputDevices()

	done := runSession(h, HandleAudio)
	stream := recv(t, mic.Opened())
	recv(t, stream.Started())
	b.Close()

	require.Nil(t, recv(t, done))
	recv(t, stream.Closed())
}

func TestHandleAudioControlCommands(t *testing.T) {
	mic := audiotest.NewDevice("Default Mic", 48000)
	usb := audiotest.NewDevice("USB Mic", 44100)
	b := NewBus()
	t.Cleanup(b.Close)
	ctl := NewController()
	h := NewHandler(audiotest.NewHost(mic, usb), b, ctl, config.DefaultAudio())
	h.UpdateInputDevices()
	ctx := context.Background()

	done := runSession(h, HandleAudio)
	stream := recv(t, mic.Opened())
	nextStatus(t, b.Receive(), StatusReady)

	require.NoError(t, ctl.Switch(ctx, DeviceName("USB Mic")))
	require.Equal(t, SetupAudio{Handler: h}, recv(t, done))
	recv(t, stream.Closed())
	closed := nextStatus(t, b.Receive(), StatusClosed)
	require.Nil(t, closed.Handler)
	require.Equal(t, DeviceName("USB Mic"), h.Target())

	done = runSession(h, HandleAudio)
	stream = recv(t, usb.Opened())
	require.Equal(t, 44100, stream.Config.SampleRate)
	nextStatus(t, b.Receive(), StatusReady)

	require.NoError(t, ctl.Stop(ctx))
	status, ok := recv(t, done).(UpdateAudioStatus)
	require.True(t, ok)
	require.ErrorIs(t, status.Reason, audio.ErrStopped)
	recv(t, stream.Closed())
}

func TestWaitForAudio(t *testing.T) {
	t.Run("retries after the poll interval", func(t *testing.T) {
		host := audiotest.NewHost()
		h, b := newTestHandler(t, host)
		mic := audiotest.NewDevice("Default Mic", 48000)
		host.SetDevices(mic)

		start := time.Now()
		done := runSession(h, WaitForAudio)
		recv(t, mic.Opened())
		require.GreaterOrEqual(t, time.Since(start), PollInterval)
		require.Equal(t, []string{"Default Mic"}, next[AudioDevicesChanged](t, b.Receive()).Devices)
		b.Close()
		require.Nil(t, recv(t, done))
	})

	t.Run("stop ends polling", func(t *testing.T) {
		b := NewBus()
		t.Cleanup(b.Close)
		ctl := NewController()
		h := NewHandler(audiotest.NewHost(), b, ctl, config.DefaultAudio())
		require.NoError(t, ctl.Stop(context.Background()))

		status, ok := WaitForAudio(h).(UpdateAudioStatus)
		require.True(t, ok)
		require.Equal(t, StatusClosed, status.Status)
		require.ErrorIs(t, status.Reason, audio.ErrStopped)
	})

	t.Run("switch retargets", func(t *testing.T) {
		b := NewBus()
		t.Cleanup(b.Close)
		ctl := NewController()
		h := NewHandler(audiotest.NewHost(), b, ctl, config.DefaultAudio())
		require.NoError(t, ctl.Switch(context.Background(), DeviceName("USB Mic")))

		require.Equal(t, UpdateAudioStatus{Status: StatusPolling, Handler: h}, WaitForAudio(h))
		require.Equal(t, DeviceName("USB Mic"), h.Target())
	})

	t.Run("returns nil once the bus closed", func(t *testing.T) {
		h, b := newTestHandler(t, audiotest.NewHost())
		b.Close()
		require.Nil(t, WaitForAudio(h))
	})
}
