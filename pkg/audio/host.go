package audio

// DefaultFramesPerBuffer is the block size used when a host is not told otherwise.
const DefaultFramesPerBuffer = 1024

// Host is an audio subsystem that can list input devices.
type Host interface {
	InputDevices() ([]Device, error)
}

// Device is an input device handle. It may disappear at any time, so every
// method can fail even right after enumeration.
type Device interface {
	Name() (string, error)
	SupportedInputConfigs() ([]SupportedConfigRange, error)
	// OpenInputStream builds a stream that, once started, calls onData with
	// each block of mono samples and onError once when the stream fails.
	// The samples slice is only valid for the duration of the call.
	OpenInputStream(cfg StreamConfig, onData func(samples []float32), onError func(err error)) (Stream, error)
}

// Stream is an open input stream.
type Stream interface {
	Start() error
	// Close stops the stream and releases the device. No callback runs after
	// Close returns.
	Close() error
}

// SupportedConfigRange is a channel count with the sample rates a device
// accepts for it.
type SupportedConfigRange struct {
	Channels      int
	MinSampleRate int
	MaxSampleRate int
}

// WithMaxSampleRate picks the highest sample rate of the range.
func (r SupportedConfigRange) WithMaxSampleRate() StreamConfig {
	return StreamConfig{SampleRate: r.MaxSampleRate, Channels: r.Channels}
}

type StreamConfig struct {
	SampleRate int
	Channels   int
}

// downmix averages interleaved frames into dst, which must hold
// len(src)/channels samples.
func downmix(dst, src []float32, channels int) []float32 {
	if channels <= 1 {
		return src
	}
	for i := range dst {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += src[i*channels+c]
		}
		dst[i] = sum / float32(channels)
	}
	return dst
}
