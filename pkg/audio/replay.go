package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"go.uber.org/multierr"
)

// ReplayPrefix starts the name of every replay device.
const ReplayPrefix = "replay: "

// Clip is a decoded mono recording.
type Clip struct {
	Samples    []float32
	SampleRate int
}

// Load decodes a WAV, MP3 or Ogg Vorbis file into a mono clip.
func Load(filePath string) (Clip, error) {
	switch ext := strings.ToLower(filepath.Ext(filePath)); ext {
	case ".mp3":
		return loadMP3(filePath)
	case ".wav":
		return loadWAV(filePath)
	case ".ogg", ".oga":
		return loadOgg(filePath)
	default:
		return Clip{}, fmt.Errorf("unsupported audio file extension: %s", ext)
	}
}

func loadMP3(filePath string) (clip Clip, err error) {
	audioFile, err := os.Open(filePath)
	if err != nil {
		return Clip{}, fmt.Errorf("error opening MP3 file: %w", err)
	}
	defer func() {
		err = multierr.Combine(err, audioFile.Close())
	}()
	decoder, err := mp3.NewDecoder(audioFile)
	if err != nil {
		return Clip{}, fmt.Errorf("error creating MP3 decoder: %w", err)
	}
	// go-mp3 always yields 16-bit little endian stereo.
	b, err := io.ReadAll(decoder)
	if err != nil {
		return Clip{}, fmt.Errorf("error reading MP3 data: %w", err)
	}
	interleaved := make([]float32, len(b)/2)
	for i := range interleaved {
		interleaved[i] = float32(int16(binary.LittleEndian.Uint16(b[i*2:]))) / 32768.0
	}
	return Clip{
		Samples:    downmix(make([]float32, len(interleaved)/2), interleaved, 2),
		SampleRate: decoder.SampleRate(),
	}, nil
}

func loadWAV(filePath string) (clip Clip, err error) {
	audioFile, err := os.Open(filePath)
	if err != nil {
		return Clip{}, fmt.Errorf("error opening WAV file: %w", err)
	}
	defer func() {
		err = multierr.Combine(err, audioFile.Close())
	}()
	decoder := wav.NewDecoder(audioFile)
	if !decoder.IsValidFile() {
		return Clip{}, fmt.Errorf("invalid WAV file: %s", filePath)
	}
	buffer, err := decoder.FullPCMBuffer()
	if err != nil {
		return Clip{}, fmt.Errorf("error decoding WAV file: %w", err)
	}
	channels := max(buffer.Format.NumChannels, 1)
	scale := float32(int64(1) << (max(int(decoder.BitDepth), 8) - 1))
	interleaved := make([]float32, len(buffer.Data))
	for i, sample := range buffer.Data {
		interleaved[i] = float32(sample) / scale
	}
	return Clip{
		Samples:    downmix(make([]float32, len(interleaved)/channels), interleaved, channels),
		SampleRate: buffer.Format.SampleRate,
	}, nil
}

func loadOgg(filePath string) (clip Clip, err error) {
	audioFile, err := os.Open(filePath)
	if err != nil {
		return Clip{}, fmt.Errorf("error opening Ogg file: %w", err)
	}
	defer func() {
		err = multierr.Combine(err, audioFile.Close())
	}()
	interleaved, format, err := oggvorbis.ReadAll(audioFile)
	if err != nil {
		return Clip{}, fmt.Errorf("error decoding Ogg file: %w", err)
	}
	channels := max(format.Channels, 1)
	return Clip{
		Samples:    downmix(make([]float32, len(interleaved)/channels), interleaved, channels),
		SampleRate: format.SampleRate,
	}, nil
}

// ReplayHost exposes audio files as input devices. Each file is decoded on
// first use and played back in a loop, paced like a live microphone.
type ReplayHost struct {
	FramesPerBuffer int

	mu      sync.Mutex
	devices []*replayDevice
}

func NewReplayHost(framesPerBuffer int, paths ...string) *ReplayHost {
	if framesPerBuffer <= 0 {
		framesPerBuffer = DefaultFramesPerBuffer
	}
	h := &ReplayHost{FramesPerBuffer: framesPerBuffer}
	for _, p := range paths {
		h.devices = append(h.devices, &replayDevice{host: h, path: p})
	}
	return h
}

func (h *ReplayHost) InputDevices() ([]Device, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	devices := make([]Device, len(h.devices))
	for i, d := range h.devices {
		devices[i] = d
	}
	return devices, nil
}

type replayDevice struct {
	host *ReplayHost
	path string

	once sync.Once
	clip Clip
	err  error
}

func (d *replayDevice) load() (Clip, error) {
	d.once.Do(func() {
		d.clip, d.err = Load(d.path)
		if d.err == nil && (d.clip.SampleRate <= 0 || len(d.clip.Samples) == 0) {
			d.err = fmt.Errorf("%w: %s is empty", ErrNoSupportedConfig, d.path)
		}
	})
	return d.clip, d.err
}

func (d *replayDevice) Name() (string, error) {
	return ReplayPrefix + filepath.Base(d.path), nil
}

func (d *replayDevice) SupportedInputConfigs() ([]SupportedConfigRange, error) {
	clip, err := d.load()
	if err != nil {
		return nil, err
	}
	return []SupportedConfigRange{{Channels: 1, MinSampleRate: clip.SampleRate, MaxSampleRate: clip.SampleRate}}, nil
}

func (d *replayDevice) OpenInputStream(cfg StreamConfig, onData func([]float32), onError func(error)) (Stream, error) {
	clip, err := d.load()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBuildStream, err)
	}
	if cfg.SampleRate != clip.SampleRate {
		return nil, fmt.Errorf("%w: %s plays at %d Hz, not %d Hz", ErrBuildStream, d.path, clip.SampleRate, cfg.SampleRate)
	}
	return &replayStream{
		clip:   clip,
		block:  make([]float32, d.host.FramesPerBuffer),
		onData: onData,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}, nil
}

type replayStream struct {
	clip   Clip
	block  []float32
	onData func([]float32)

	started   bool
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func (s *replayStream) Start() error {
	s.started = true
	go s.pump()
	return nil
}

func (s *replayStream) pump() {
	defer close(s.done)
	period := time.Duration(float64(time.Second) * float64(len(s.block)) / float64(s.clip.SampleRate))
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	var pos int
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
		}
		for i := range s.block {
			s.block[i] = s.clip.Samples[pos]
			pos = (pos + 1) % len(s.clip.Samples)
		}
		s.onData(s.block)
	}
}

func (s *replayStream) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		if s.started {
			<-s.done
		}
	})
	return nil
}
