// Package channel adapts messaging surfaces to the message bus.
package channel

import (
	"context"

	"github.com/softlyai/maya/internal/bus"
)

type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
	Send(msg bus.OutboundMessage) error
}

type BaseChannel struct {
	name string
	bus  *bus.MessageBus
}

func NewBaseChannel(name string, b *bus.MessageBus) BaseChannel {
	return BaseChannel{name: name, bus: b}
}

func (c *BaseChannel) Name() string {
	return c.name
}
