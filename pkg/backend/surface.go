package backend

import (
	"context"

	"github.com/algo-boyz/rotatar/pkg/bus"
)

// Surface is the part of the backend a presentation layer talks to.
type Surface struct {
	bus     *Bus
	state   *State
	control *Controller
}

func NewSurface(b *Bus, state *State, control *Controller) *Surface {
	return &Surface{bus: b, state: state, control: control}
}

// Listen subscribes to every message sent from now on, using the
// OutsideListenerReady handshake with the dispatcher. The channel closes
// when the bus closes.
func (s *Surface) Listen(ctx context.Context) (<-chan Message, error) {
	reply := make(chan (<-chan Message), 1)
	if err := s.bus.Send(OutsideListenerReady{Reply: reply}); err != nil {
		return nil, err
	}
	select {
	case ch := <-reply:
		return ch, nil
	case <-ctx.Done():
		// The dispatcher still answers; drop the subscription it hands out.
		go func() {
			select {
			case ch := <-reply:
				s.bus.Unsubscribe(ch)
			case <-s.bus.Done():
			}
		}()
		return nil, ctx.Err()
	case <-s.bus.Done():
		return nil, bus.ErrClosed
	}
}

// Unlisten ends a subscription returned by Listen.
func (s *Surface) Unlisten(ch <-chan Message) {
	s.bus.Unsubscribe(ch)
}

func (s *Surface) State() Snapshot {
	return s.state.Snapshot()
}

// SetAudioDevice switches to the device called name. It blocks while the
// control channel is full.
func (s *Surface) SetAudioDevice(ctx context.Context, name string) error {
	return s.control.Switch(ctx, DeviceName(name))
}

func (s *Surface) SetAudioDeviceIndex(ctx context.Context, index int) error {
	return s.control.Switch(ctx, DeviceIndex(index))
}

// StopAudio releases the current stream without opening another one.
func (s *Surface) StopAudio(ctx context.Context) error {
	return s.control.Stop(ctx)
}
