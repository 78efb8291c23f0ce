package bus

import (
	"context"
	"log"
	"sync"
	"time"
)

// InboundMessage is a channel-native event normalized to the
// orchestrator's call signature.
type InboundMessage struct {
	Channel    string
	SenderID   string
	ChatID     string
	SenderName string
	Content    string
	Timestamp  time.Time
}

// OutboundMessage is a reply or proactive message routed back to the
// channel that owns the chat.
type OutboundMessage struct {
	Channel string
	ChatID  string
	Content string
}

// MessageBus decouples channels from the gateway loop. Channels push to
// Inbound; the gateway and background jobs push to Outbound, which is
// dispatched to the per-channel subscriber.
type MessageBus struct {
	Inbound  chan InboundMessage
	Outbound chan OutboundMessage

	mu          sync.RWMutex
	subscribers map[string]func(OutboundMessage)
}

func NewMessageBus(size int) *MessageBus {
	return &MessageBus{
		Inbound:     make(chan InboundMessage, size),
		Outbound:    make(chan OutboundMessage, size),
		subscribers: make(map[string]func(OutboundMessage)),
	}
}

func (b *MessageBus) SubscribeOutbound(channel string, fn func(OutboundMessage)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[channel] = fn
}

// DispatchOutbound delivers outbound messages until ctx is done. A send
// failure is the subscriber's problem; a missing subscriber is logged
// and the message dropped.
func (b *MessageBus) DispatchOutbound(ctx context.Context) {
	for {
		select {
		case msg := <-b.Outbound:
			b.mu.RLock()
			fn := b.subscribers[msg.Channel]
			b.mu.RUnlock()
			if fn == nil {
				log.Printf("[bus] no subscriber for channel %s, dropping message", msg.Channel)
				continue
			}
			fn(msg)
		case <-ctx.Done():
			return
		}
	}
}
