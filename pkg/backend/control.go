package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/algo-boyz/rotatar/pkg/config"
)

// ControlCapacity bounds the device control channel. A full channel blocks
// the sender; device commands are never dropped.
const ControlCapacity = 5

// Target says which device a session should bind.
type Target struct {
	// Default selects the first device whose name contains "default".
	Default bool
	// Name selects a device by exact name. It wins over Index.
	Name  string
	Index int
}

func DeviceIndex(index int) Target { return Target{Index: index} }

func DeviceName(name string) Target { return Target{Name: name} }

func DefaultDevice() Target { return Target{Default: true} }

// TargetFor derives the initial target from the audio config.
func TargetFor(cfg config.AudioConfig) Target {
	switch {
	case strings.EqualFold(cfg.DeviceName, config.DefaultDeviceName):
		return DefaultDevice()
	case cfg.DeviceName != "":
		return DeviceName(cfg.DeviceName)
	default:
		return DeviceIndex(cfg.CurrentDevice)
	}
}

func (t Target) String() string {
	switch {
	case t.Default:
		return "default"
	case t.Name != "":
		return fmt.Sprintf("%q", t.Name)
	default:
		return fmt.Sprintf("#%d", t.Index)
	}
}

type CommandKind int

const (
	CommandStop CommandKind = iota
	CommandSwitch
)

// Command is a device control request.
type Command struct {
	Kind   CommandKind
	Target Target
}

// Controller is the device control surface. Commands are consumed by the
// running session, or by the dispatcher while no session runs.
type Controller struct {
	commands chan Command
}

func NewController() *Controller {
	return &Controller{commands: make(chan Command, ControlCapacity)}
}

// Stop releases the current stream.
func (c *Controller) Stop(ctx context.Context) error {
	return c.send(ctx, Command{Kind: CommandStop})
}

// Switch releases the current stream and binds target instead.
func (c *Controller) Switch(ctx context.Context, target Target) error {
	return c.send(ctx, Command{Kind: CommandSwitch, Target: target})
}

func (c *Controller) send(ctx context.Context, cmd Command) error {
	select {
	case c.commands <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) Commands() <-chan Command {
	return c.commands
}
