package channel

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/softlyai/maya/internal/bus"
	"github.com/softlyai/maya/internal/config"
)

type Manager struct {
	channels map[string]Channel
	bus      *bus.MessageBus
}

func NewManager(cfg config.ChannelsConfig, b *bus.MessageBus) (*Manager, error) {
	m := &Manager{
		channels: make(map[string]Channel),
		bus:      b,
	}

	if cfg.Telegram.Enabled {
		ch, err := NewTelegramChannel(cfg.Telegram, b)
		if err != nil {
			return nil, fmt.Errorf("init telegram channel: %w", err)
		}
		m.add(ch)
	}

	if cfg.WhatsApp.Enabled {
		ch, err := NewWhatsAppChannel(cfg.WhatsApp, b)
		if err != nil {
			return nil, fmt.Errorf("init whatsapp channel: %w", err)
		}
		m.add(ch)
	}

	return m, nil
}

// add registers the channel and routes its outbound traffic. A failed
// send is logged and dropped so one user's failure never aborts a batch.
func (m *Manager) add(ch Channel) {
	m.channels[ch.Name()] = ch
	m.bus.SubscribeOutbound(ch.Name(), func(msg bus.OutboundMessage) {
		if err := ch.Send(msg); err != nil {
			log.Printf("[channel-mgr] send to %s failed: %v", ch.Name(), err)
		}
	})
}

func (m *Manager) StartAll(ctx context.Context) error {
	var wg sync.WaitGroup
	errCh := make(chan error, len(m.channels))

	for name, ch := range m.channels {
		wg.Add(1)
		go func(name string, ch Channel) {
			defer wg.Done()
			log.Printf("[channel-mgr] starting %s", name)
			if err := ch.Start(ctx); err != nil {
				errCh <- fmt.Errorf("%s: %w", name, err)
			}
		}(name, ch)
	}

	wg.Wait()
	close(errCh)

	for err := range errCh {
		return err
	}
	return nil
}

func (m *Manager) StopAll() error {
	for name, ch := range m.channels {
		log.Printf("[channel-mgr] stopping %s", name)
		if err := ch.Stop(); err != nil {
			log.Printf("[channel-mgr] error stopping %s: %v", name, err)
		}
	}
	return nil
}

func (m *Manager) EnabledChannels() []string {
	names := make([]string, 0, len(m.channels))
	for name := range m.channels {
		names = append(names, name)
	}
	return names
}
