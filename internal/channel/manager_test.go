package channel

import (
	"context"
	"testing"
	"time"

	"github.com/softlyai/maya/internal/bus"
	"github.com/softlyai/maya/internal/config"
)

func TestNewManager_NoChannelsEnabled(t *testing.T) {
	m, err := NewManager(config.ChannelsConfig{}, bus.NewMessageBus(1))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if len(m.EnabledChannels()) != 0 {
		t.Errorf("enabled = %v, want none", m.EnabledChannels())
	}
}

func TestNewManager_EnabledWithoutTokenFails(t *testing.T) {
	cfg := config.ChannelsConfig{Telegram: config.TelegramConfig{Enabled: true}}
	if _, err := NewManager(cfg, bus.NewMessageBus(1)); err == nil {
		t.Fatal("expected error for telegram without token")
	}

	cfg = config.ChannelsConfig{WhatsApp: config.WhatsAppConfig{Enabled: true}}
	if _, err := NewManager(cfg, bus.NewMessageBus(1)); err == nil {
		t.Fatal("expected error for whatsapp without verify token")
	}
}

func TestManagerRoutesOutboundToChannel(t *testing.T) {
	b := bus.NewMessageBus(16)
	cfg := config.ChannelsConfig{Telegram: config.TelegramConfig{Enabled: true, Token: "test-token"}}
	m, err := NewManager(cfg, b)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	tg, ok := m.channels["telegram"].(*TelegramChannel)
	if !ok {
		t.Fatal("telegram channel not registered")
	}
	fake := newFakeBot()
	tg.SetBot(fake)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.DispatchOutbound(ctx)

	b.Outbound <- bus.OutboundMessage{Channel: "telegram", ChatID: "7", Content: "hi"}

	deadline := time.After(time.Second)
	for len(fake.sent) == 0 {
		select {
		case <-deadline:
			t.Fatal("outbound message never reached the channel")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
