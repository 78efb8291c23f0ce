// Package gateway wires the store, engine, channels and jobs into one
// running process.
package gateway

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/softlyai/maya/internal/bus"
	"github.com/softlyai/maya/internal/channel"
	"github.com/softlyai/maya/internal/config"
	"github.com/softlyai/maya/internal/engine"
	"github.com/softlyai/maya/internal/jobs"
	"github.com/softlyai/maya/internal/llm"
	"github.com/softlyai/maya/internal/store"
)

// Shown when a turn fails on our side (persistence); the user never
// sees a raw error.
const replyInternalTrouble = "Kuch gadbad ho gayi 💛 Thodi der mein try karo."

// Options allow injecting dependencies for testing.
type Options struct {
	Completer  engine.Completer
	SignalChan chan os.Signal
}

type Gateway struct {
	cfg        *config.Config
	bus        *bus.MessageBus
	store      *store.Store
	engine     *engine.Engine
	channels   *channel.Manager
	jobs       *jobs.Service
	signalChan chan os.Signal
}

func New(cfg *config.Config) (*Gateway, error) {
	return NewWithOptions(cfg, Options{})
}

func NewWithOptions(cfg *config.Config, opts Options) (*Gateway, error) {
	g := &Gateway{cfg: cfg}

	g.bus = bus.NewMessageBus(config.DefaultBufSize)

	dbPath := strings.TrimSpace(cfg.DBPath)
	if dbPath == "" {
		dbPath = filepath.Join(config.ConfigDir(), "data", "maya.db")
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	g.store = st

	completer := opts.Completer
	if completer == nil {
		completer = llm.NewClient(cfg.Provider)
	}
	g.engine = engine.New(st, completer, cfg.Policy)

	g.jobs = jobs.New(st, g.bus, cfg.Policy)

	chMgr, err := channel.NewManager(cfg.Channels, g.bus)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("create channel manager: %w", err)
	}
	g.channels = chMgr

	g.signalChan = opts.SignalChan

	return g, nil
}

func (g *Gateway) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go g.bus.DispatchOutbound(ctx)

	if err := g.channels.StartAll(ctx); err != nil {
		return fmt.Errorf("start channels: %w", err)
	}
	log.Printf("[gateway] channels started: %v", g.channels.EnabledChannels())

	if err := g.jobs.Start(); err != nil {
		log.Printf("[gateway] jobs start warning: %v", err)
	}

	go g.processLoop(ctx)

	sigCh := g.signalChan
	if sigCh == nil {
		sigCh = make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	}
	<-sigCh

	log.Printf("[gateway] shutting down...")
	return g.Shutdown()
}

func (g *Gateway) processLoop(ctx context.Context) {
	for {
		select {
		case msg := <-g.bus.Inbound:
			log.Printf("[gateway] inbound from %s/%s: %s", msg.Channel, msg.SenderID, truncate(msg.Content, 80))

			reply, err := g.engine.Reply(ctx, msg.Channel, msg.SenderID, msg.SenderName, msg.Content)
			if err != nil {
				log.Printf("[gateway] turn failed for %s/%s: %v", msg.Channel, msg.SenderID, err)
				reply = replyInternalTrouble
			}

			if reply != "" {
				g.bus.Outbound <- bus.OutboundMessage{
					Channel: msg.Channel,
					ChatID:  msg.ChatID,
					Content: reply,
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

func (g *Gateway) Shutdown() error {
	g.jobs.Stop()
	_ = g.channels.StopAll()
	if err := g.store.Close(); err != nil {
		log.Printf("[gateway] close store warning: %v", err)
	}
	log.Printf("[gateway] shutdown complete")
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
