package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/softlyai/maya/internal/bus"
	"github.com/softlyai/maya/internal/config"
)

const whatsappChannelName = "whatsapp"

const defaultGraphBaseURL = "https://graph.facebook.com/v19.0"

// WhatsAppChannel speaks the Meta Cloud API: a webhook endpoint pair
// for inbound traffic (GET subscription verification, POST message
// delivery) and the Graph API for outbound sends.
type WhatsAppChannel struct {
	BaseChannel
	cfg          config.WhatsAppConfig
	server       *http.Server
	httpClient   *http.Client
	graphBaseURL string
}

func NewWhatsAppChannel(cfg config.WhatsAppConfig, b *bus.MessageBus) (*WhatsAppChannel, error) {
	if cfg.VerifyToken == "" {
		return nil, fmt.Errorf("whatsapp verify token is required")
	}
	if cfg.Port == 0 {
		cfg.Port = config.DefaultWebhookPort
	}
	return &WhatsAppChannel{
		BaseChannel:  NewBaseChannel(whatsappChannelName, b),
		cfg:          cfg,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		graphBaseURL: defaultGraphBaseURL,
	}, nil
}

func (w *WhatsAppChannel) Start(ctx context.Context) error {
	r := chi.NewRouter()
	r.Get("/webhook", w.handleVerify)
	r.Post("/webhook", w.handleInbound)

	w.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", w.cfg.Port),
		Handler: r,
	}

	go func() {
		log.Printf("[whatsapp] webhook listening on :%d", w.cfg.Port)
		if err := w.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[whatsapp] server error: %v", err)
		}
	}()

	return nil
}

// handleVerify echoes hub.challenge iff the shared secret matches.
func (w *WhatsAppChannel) handleVerify(wr http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	if token == "" || token != w.cfg.VerifyToken {
		http.Error(wr, "verification failed", http.StatusForbidden)
		return
	}
	_, _ = wr.Write([]byte(challenge))
}

// webhookPayload is the Cloud API delivery envelope, reduced to the
// fields the bot reads. Status-only deliveries carry no messages and
// fall through harmlessly.
type webhookPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Contacts []struct {
					WaID    string `json:"wa_id"`
					Profile struct {
						Name string `json:"name"`
					} `json:"profile"`
				} `json:"contacts"`
				Messages []struct {
					From      string `json:"from"`
					Type      string `json:"type"`
					Timestamp string `json:"timestamp"`
					Text      struct {
						Body string `json:"body"`
					} `json:"text"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

func (w *WhatsAppChannel) handleInbound(wr http.ResponseWriter, r *http.Request) {
	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(wr, "bad payload", http.StatusBadRequest)
		return
	}

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			names := make(map[string]string, len(change.Value.Contacts))
			for _, c := range change.Value.Contacts {
				names[c.WaID] = c.Profile.Name
			}

			for _, msg := range change.Value.Messages {
				if msg.Type != "" && msg.Type != "text" {
					continue
				}
				body := strings.TrimSpace(msg.Text.Body)
				if body == "" {
					continue
				}

				name := names[msg.From]
				if name == "" {
					name = msg.From
				}

				w.bus.Inbound <- bus.InboundMessage{
					Channel:    whatsappChannelName,
					SenderID:   msg.From,
					ChatID:     msg.From,
					SenderName: name,
					Content:    body,
					Timestamp:  time.Now(),
				}
			}
		}
	}

	wr.Header().Set("Content-Type", "application/json")
	_, _ = wr.Write([]byte(`{"status":"received"}`))
}

// Send posts a text message through the Graph API.
func (w *WhatsAppChannel) Send(msg bus.OutboundMessage) error {
	if w.cfg.APIToken == "" || w.cfg.PhoneID == "" {
		return fmt.Errorf("whatsapp api token and phone id are required for sending")
	}

	body := map[string]any{
		"messaging_product": "whatsapp",
		"to":                msg.ChatID,
		"type":              "text",
		"text":              map[string]string{"body": msg.Content},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal whatsapp message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", w.graphBaseURL, w.cfg.PhoneID)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create whatsapp request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+w.cfg.APIToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send whatsapp message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("whatsapp send http %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return nil
}

func (w *WhatsAppChannel) Stop() error {
	if w.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := w.server.Shutdown(ctx); err != nil {
			log.Printf("[whatsapp] shutdown error: %v", err)
		}
	}
	log.Printf("[whatsapp] stopped")
	return nil
}
