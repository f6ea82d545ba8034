// Package console is the terminal frontend. It logs what an overlay would
// draw.
package console

import (
	"context"
	"log/slog"

	"github.com/algo-boyz/rotatar/pkg/backend"
	"github.com/algo-boyz/rotatar/pkg/config"
	"github.com/algo-boyz/rotatar/pkg/frontend"
)

type Console struct {
	cfg      config.Config
	image    int
	speaking bool
}

func New() *Console {
	return &Console{}
}

func (c *Console) Run(ctx context.Context, cfg config.Config, b frontend.Backend) error {
	msgs, err := b.Listen(ctx)
	if err != nil {
		return err
	}
	defer b.Unlisten(msgs)

	snap := b.State()
	c.cfg = cfg
	c.image = snap.CurrentImage
	c.speaking = snap.Speaking
	slog.Info("console frontend started", "status", snap.AudioStatus, "devices", snap.AudioDevices)
	c.show()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			c.apply(msg)
		}
	}
}

func (c *Console) apply(msg backend.Message) {
	switch m := msg.(type) {
	case backend.CurrentImageChanged:
		c.image = m.Index
		c.show()
	case backend.SensitivityChanged:
		if speaking := m.Sensitivity > 0; speaking != c.speaking {
			c.speaking = speaking
			c.show()
		}
	case backend.MagnitudeChanged:
		slog.Debug("magnitude", "value", m.Magnitude)
	case backend.AudioDevicesChanged:
		slog.Info("audio devices", "devices", m.Devices)
	case backend.UpdateAudioStatus:
		if m.Reason != nil {
			slog.Info("audio status", "status", m.Status, "reason", m.Reason)
			return
		}
		slog.Info("audio status", "status", m.Status)
	}
}

func (c *Console) show() {
	sprite, ok := frontend.Sprite(c.cfg, c.image, c.speaking)
	if !ok {
		slog.Warn("no sprite for image", "image", c.image, "speaking", c.speaking)
		return
	}
	slog.Info("sprite", "image", c.image, "speaking", c.speaking, "path", sprite)
}

// Sprite is the sprite the console currently shows.
func (c *Console) Sprite() (string, bool) {
	return frontend.Sprite(c.cfg, c.image, c.speaking)
}
