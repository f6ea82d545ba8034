// Package state ties the process lifetime to a context. Closers registered
// with Defer run once the process is asked to exit.
package state

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT}

// NewContext combines the context interface with a graceful exit
func NewContext() Context {
	bg, cancel := context.WithCancel(context.Background())
	return &ctx{
		Context: bg,
		cancel:  cancel,
		exited:  make(chan struct{}),
	}
}

type Context interface {
	context.Context
	// Defer registers fn to run on exit. Closers run one after another,
	// last registered first.
	Defer(fn func())
	// Exit cancels the context and waits for the registered closers.
	// A second interrupt force quits.
	Exit()
	// AwaitExit blocks until a shutdown signal is received or Exit is called.
	AwaitExit()
}

type ctx struct {
	context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	closers []func()
	once    sync.Once
	exited  chan struct{}
}

func (ctx *ctx) Defer(fn func()) {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	ctx.closers = append(ctx.closers, fn)
}

// Exit triggers the ctx.Done chan, thereby releasing any goroutines waiting on chan
func (ctx *ctx) Exit() {
	ctx.once.Do(func() {
		defer close(ctx.exited)
		ctx.cancel()

		closed := make(chan struct{})
		go func() {
			defer close(closed)
			ctx.mu.Lock()
			closers := ctx.closers
			ctx.closers = nil
			ctx.mu.Unlock()
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		}()

		// press Ctrl_C again to force quit
		force := make(chan os.Signal, 1)
		signal.Notify(force, shutdownSignals...)
		defer signal.Stop(force)
		select {
		case <-force:
			slog.Warn("force quitting")
		case <-closed:
			slog.Debug("gracefully quit")
		}
	})
	<-ctx.exited
}

// AwaitExit blocks till an interrupt is received or context closed
func (ctx *ctx) AwaitExit() {
	exit, done := signal.NotifyContext(ctx, shutdownSignals...)
	defer done()
	<-exit.Done()
	ctx.Exit()
}
