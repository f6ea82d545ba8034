package main

import (
	"github.com/algo-boyz/rotatar/pkg/audio"
	"github.com/algo-boyz/rotatar/pkg/backend"
	"github.com/algo-boyz/rotatar/pkg/config"
	"github.com/algo-boyz/rotatar/pkg/frontend"
	"github.com/algo-boyz/rotatar/pkg/state"
)

type Options struct {
	Config   config.Config
	Host     audio.Host
	Frontend frontend.Frontend
	Pointer  backend.Pointer
	// OS selects the screen modifier, usually runtime.GOOS.
	OS string
}

// Rotatar wires the audio backend, the cursor and one frontend together.
type Rotatar struct {
	ctx      state.Context
	cfg      config.Config
	bus      *backend.Bus
	state    *backend.State
	surface  *backend.Surface
	handler  *backend.Handler
	tracker  backend.PointerTracker
	frontend frontend.Frontend
	done     chan struct{}
}

// NewRotatar starts the dispatcher. The audio session and cursor tracking
// start with Run.
func NewRotatar(ctx state.Context, opts Options) *Rotatar {
	cfg := opts.Config
	grid := backend.NewGrid(cfg.ScreenInformation.Size, cfg.Sections)
	b := backend.NewBus()
	st := backend.NewState(grid)
	control := backend.NewController()

	r := &Rotatar{
		ctx:     ctx,
		cfg:     cfg,
		bus:     b,
		state:   st,
		surface: backend.NewSurface(b, st, control),
		handler: backend.NewHandler(opts.Host, b, control, cfg.Audio),
		tracker: backend.PointerTracker{
			Pointer:  opts.Pointer,
			Grid:     grid,
			Modifier: cfg.ScreenInformation.Modifier(opts.OS),
			Interval: backend.PointerInterval,
		},
		frontend: opts.Frontend,
		done:     make(chan struct{}),
	}
	dispatcher := backend.NewDispatcher(b, st, control)
	go func() {
		defer close(r.done)
		dispatcher.Run()
	}()
	return r
}

// Run sets up audio, follows the cursor and blocks in the frontend until the
// context is done. Close is deferred on the context.
func (r *Rotatar) Run() error {
	r.ctx.Defer(r.Close)
	if err := r.bus.Send(backend.SetupAudio{Handler: r.handler}); err != nil {
		return err
	}
	if r.tracker.Pointer != nil {
		go r.tracker.Run(r.bus, r.state.CurrentImage())
	}
	return r.frontend.Run(r.ctx, r.cfg, r.surface)
}

// Close stops the backend and waits until the audio stream is released.
func (r *Rotatar) Close() {
	r.bus.Close()
	<-r.done
}

func (r *Rotatar) Snapshot() backend.Snapshot {
	return r.state.Snapshot()
}
