package backend

import (
	"slices"
	"sync"

	"github.com/algo-boyz/rotatar/pkg/config"
)

// Grid maps screen positions to sprite indices, row-major.
type Grid struct {
	SectionSize config.TwoInts
	XSections   int
	YSections   int
}

func NewGrid(screen, sections config.TwoInts) Grid {
	return Grid{
		SectionSize: config.TwoInts{X: screen.X / sections.X, Y: screen.Y / sections.Y},
		XSections:   sections.X,
		YSections:   sections.Y,
	}
}

func (g Grid) Cells() int {
	return g.XSections * g.YSections
}

// Index returns the cell under p. Positions off the screen map to the
// nearest edge cell, so the result is always below Cells.
func (g Grid) Index(p config.TwoInts) int {
	col := clamp(p.X/max(g.SectionSize.X, 1), 0, g.XSections-1)
	row := clamp(p.Y/max(g.SectionSize.Y, 1), 0, g.YSections-1)
	return row*g.XSections + col
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// State is what the presentation layer renders from. Only the dispatcher
// mutates it; everyone else reads snapshots.
type State struct {
	mu           sync.Mutex
	grid         Grid
	currentImage int
	sensitivity  float32
	magnitude    int32
	audioStatus  Status
	audioDevices []string
}

// NewState starts with the image under the middle of the first section.
func NewState(grid Grid) *State {
	s := &State{grid: grid, audioStatus: StatusClosed}
	s.currentImage = grid.Index(config.TwoInts{X: grid.SectionSize.X / 2, Y: grid.SectionSize.Y / 2})
	return s
}

func (s *State) Grid() Grid { return s.grid }

func (s *State) CurrentImage() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentImage
}

// SetCurrentImage reports whether the image changed. Equal or out of range
// indices change nothing.
func (s *State) SetCurrentImage(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index == s.currentImage || index < 0 || index >= s.grid.Cells() {
		return false
	}
	s.currentImage = index
	return true
}

// SetCurrentImageXY selects the image under a screen position.
func (s *State) SetCurrentImageXY(p config.TwoInts) bool {
	return s.SetCurrentImage(s.grid.Index(p))
}

func (s *State) Sensitivity() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sensitivity
}

func (s *State) SetSensitivity(sensitivity float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sensitivity = sensitivity
}

func (s *State) IsSpeaking() bool {
	return s.Sensitivity() > 0
}

func (s *State) SetMagnitude(magnitude int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.magnitude = magnitude
}

func (s *State) AudioStatus() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.audioStatus
}

func (s *State) SetAudioStatus(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audioStatus = status
}

func (s *State) SetAudioDevices(devices []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audioDevices = slices.Clone(devices)
}

// Snapshot is a serialisable copy of State.
type Snapshot struct {
	CurrentImage int            `json:"current_image"`
	Sensitivity  float32        `json:"sensitivity"`
	Magnitude    int32          `json:"magnitude"`
	Speaking     bool           `json:"speaking"`
	AudioStatus  Status         `json:"audio_status"`
	AudioDevices []string       `json:"audio_devices"`
	SectionSize  config.TwoInts `json:"section_size"`
	XSections    int            `json:"x_sections"`
	YSections    int            `json:"y_sections"`
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		CurrentImage: s.currentImage,
		Sensitivity:  s.sensitivity,
		Magnitude:    s.magnitude,
		Speaking:     s.sensitivity > 0,
		AudioStatus:  s.audioStatus,
		AudioDevices: slices.Clone(s.audioDevices),
		SectionSize:  s.grid.SectionSize,
		XSections:    s.grid.XSections,
		YSections:    s.grid.YSections,
	}
}
