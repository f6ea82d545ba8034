package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync/atomic"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/pflag"

	"github.com/algo-boyz/rotatar/pkg/audio"
	"github.com/algo-boyz/rotatar/pkg/config"
	"github.com/algo-boyz/rotatar/pkg/frontend"
	"github.com/algo-boyz/rotatar/pkg/frontend/console"
	"github.com/algo-boyz/rotatar/pkg/frontend/web"
	"github.com/algo-boyz/rotatar/pkg/pointer"
	"github.com/algo-boyz/rotatar/pkg/state"
)

// configEnv names the config file when --config is not given.
const configEnv = "ROTATAR_CONFIG"

const defaultConfigPath = "config.json"

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

var (
	ctx                                               = state.NewContext()
	configPath, frontendName, addr, envFile, logLevel string
	replay                                            []string
	frames                                            int
	background                                        config.Color
	exitCode                                          atomic.Int32
)

func init() {
	pflag.StringVarP(&configPath, "config", "c", "", "config file path (default $"+configEnv+" or "+defaultConfigPath+")")
	pflag.StringVarP(&frontendName, "frontend", "f", frontend.Web, "frontend: web, tauri, console or native")
	pflag.StringVar(&addr, "addr", web.DefaultAddr, "web frontend listen address")
	pflag.StringSliceVar(&replay, "replay", nil, "audio files exposed as input devices instead of the microphones")
	pflag.StringVarP(&envFile, "env", "e", ".env", "env file path")
	pflag.StringVarP(&logLevel, "log", "l", "info", "log level: debug, info, warn or error")
	pflag.IntVar(&frames, "frames", audio.DefaultFramesPerBuffer, "frames per audio block")
	pflag.Var(&background, "background", `overlay background colour as "r g b" (default transparent)`)
}

func main() {
	pflag.Parse()
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: logLevels[logLevel],
	})))
	if err := godotenv.Load(envFile); err != nil {
		slog.Debug("no env file loaded", "path", envFile, "error", err)
	}

	go func() {
		if err := run(ctx); err != nil {
			slog.Error("rotatar failed", "error", err)
			exitCode.Store(1)
		}
		ctx.Exit()
	}()
	ctx.AwaitExit()
	os.Exit(int(exitCode.Load()))
}

func run(ctx state.Context) error {
	cfg, err := config.Load(resolveConfigPath(configPath))
	if err != nil {
		return err
	}
	applyBackground(&cfg, pflag.CommandLine)
	fe, err := newFrontend(frontendName, addr)
	if err != nil {
		return err
	}
	host, err := newHost(ctx, frames, replay)
	if err != nil {
		return err
	}
	return NewRotatar(ctx, Options{
		Config:   cfg,
		Host:     host,
		Frontend: fe,
		Pointer:  pointer.Cursor{},
		OS:       runtime.GOOS,
	}).Run()
}

// applyBackground lets --background override the config file.
func applyBackground(cfg *config.Config, flags *pflag.FlagSet) {
	if !flags.Changed("background") {
		return
	}
	if bg, ok := flags.Lookup("background").Value.(*config.Color); ok {
		c := *bg
		cfg.Background = &c
	}
}

func resolveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if path := os.Getenv(configEnv); path != "" {
		return path
	}
	return defaultConfigPath
}

func newFrontend(name, addr string) (frontend.Frontend, error) {
	switch name {
	case frontend.Web, frontend.Tauri:
		return web.New(addr), nil
	case frontend.Console, frontend.Native:
		return console.New(), nil
	default:
		return nil, fmt.Errorf("%w: %q", frontend.ErrUnknown, name)
	}
}

func newHost(ctx state.Context, frames int, replay []string) (audio.Host, error) {
	if len(replay) > 0 {
		slog.Info("replaying audio files as input devices", "files", replay)
		return audio.NewReplayHost(frames, replay...), nil
	}
	host, err := audio.NewPortAudioHost(frames)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise audio host: %w", err)
	}
	ctx.Defer(func() {
		if err := host.Close(); err != nil {
			slog.Warn("failed to terminate audio host", "error", err)
		}
	})
	return host, nil
}
