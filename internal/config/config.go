package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultModel   = "arcee-ai/trinity-large-preview:free"
	DefaultBaseURL = "https://openrouter.ai/api/v1"

	DefaultTemperature        = 0.7
	DefaultMaxTokens          = 500
	DefaultSummaryTemperature = 0.2
	DefaultSummaryMaxTokens   = 150
	DefaultReplyTimeoutSec    = 25

	DefaultFreeDailyLimit     = 30
	DefaultQuotaWarnAt        = 20
	DefaultMemoryCadence      = 20
	DefaultMemoryContextLimit = 5

	DefaultSilenceHours          = 48
	DefaultReminderCooldownHours = 48
	DefaultDigestDays            = 7

	DefaultWebhookPort = 8080
	DefaultBufSize     = 100
)

type Config struct {
	Provider ProviderConfig `json:"provider"`
	Channels ChannelsConfig `json:"channels"`
	Policy   PolicyConfig   `json:"policy"`
	DBPath   string         `json:"dbPath,omitempty"`
}

type ProviderConfig struct {
	APIKey  string `json:"apiKey"`
	BaseURL string `json:"baseUrl,omitempty"`
	Model   string `json:"model,omitempty"`
}

type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
	WhatsApp WhatsAppConfig `json:"whatsapp"`
}

type TelegramConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token"`
}

type WhatsAppConfig struct {
	Enabled     bool   `json:"enabled"`
	VerifyToken string `json:"verifyToken"`
	APIToken    string `json:"apiToken"`
	PhoneID     string `json:"phoneId"`
	Port        int    `json:"port,omitempty"`
}

// PolicyConfig carries the quota, memory and scheduling policy. The
// thresholds differed across historical deployments, so they are config
// fields rather than literals.
type PolicyConfig struct {
	FreeDailyLimit     int `json:"freeDailyLimit"`
	QuotaWarnAt        int `json:"quotaWarnAt"`
	MemoryCadence      int `json:"memoryCadence"`
	MemoryContextLimit int `json:"memoryContextLimit"`

	Temperature        float64 `json:"temperature"`
	MaxTokens          int     `json:"maxTokens"`
	SummaryTemperature float64 `json:"summaryTemperature"`
	SummaryMaxTokens   int     `json:"summaryMaxTokens"`
	ReplyTimeoutSec    int     `json:"replyTimeoutSec"`

	SilenceHours          int `json:"silenceHours"`
	ReminderCooldownHours int `json:"reminderCooldownHours"`
	DigestDays            int `json:"digestDays"`
}

func (p PolicyConfig) ReplyTimeout() time.Duration {
	return time.Duration(p.ReplyTimeoutSec) * time.Second
}

func (p PolicyConfig) SilenceThreshold() time.Duration {
	return time.Duration(p.SilenceHours) * time.Hour
}

func (p PolicyConfig) ReminderCooldown() time.Duration {
	return time.Duration(p.ReminderCooldownHours) * time.Hour
}

func (p PolicyConfig) DigestWindow() time.Duration {
	return time.Duration(p.DigestDays) * 24 * time.Hour
}

func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			BaseURL: DefaultBaseURL,
			Model:   DefaultModel,
		},
		Channels: ChannelsConfig{
			WhatsApp: WhatsAppConfig{Port: DefaultWebhookPort},
		},
		Policy: PolicyConfig{
			FreeDailyLimit:        DefaultFreeDailyLimit,
			QuotaWarnAt:           DefaultQuotaWarnAt,
			MemoryCadence:         DefaultMemoryCadence,
			MemoryContextLimit:    DefaultMemoryContextLimit,
			Temperature:           DefaultTemperature,
			MaxTokens:             DefaultMaxTokens,
			SummaryTemperature:    DefaultSummaryTemperature,
			SummaryMaxTokens:      DefaultSummaryMaxTokens,
			ReplyTimeoutSec:       DefaultReplyTimeoutSec,
			SilenceHours:          DefaultSilenceHours,
			ReminderCooldownHours: DefaultReminderCooldownHours,
			DigestDays:            DefaultDigestDays,
		},
	}
}

func ConfigDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".maya")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

func LoadConfig() (*Config, error) {
	_ = godotenv.Load() // optional .env in the working directory

	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	fillPolicyDefaults(&cfg.Policy)

	return cfg, nil
}

// applyEnv overlays environment variables on top of the file config.
func applyEnv(cfg *Config) {
	if key := os.Getenv("MAYA_API_KEY"); key != "" {
		cfg.Provider.APIKey = key
	}
	if key := os.Getenv("OPENROUTER_KEY"); key != "" && cfg.Provider.APIKey == "" {
		cfg.Provider.APIKey = key
	}
	if url := os.Getenv("MAYA_BASE_URL"); url != "" {
		cfg.Provider.BaseURL = url
	}
	if model := os.Getenv("MAYA_MODEL"); model != "" {
		cfg.Provider.Model = model
	}

	if token := os.Getenv("MAYA_TELEGRAM_TOKEN"); token != "" {
		cfg.Channels.Telegram.Token = token
	}
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" && cfg.Channels.Telegram.Token == "" {
		cfg.Channels.Telegram.Token = token
	}
	if token := os.Getenv("WHATSAPP_VERIFY_TOKEN"); token != "" {
		cfg.Channels.WhatsApp.VerifyToken = token
	}
	if token := os.Getenv("WHATSAPP_API_TOKEN"); token != "" {
		cfg.Channels.WhatsApp.APIToken = token
	}
	if id := os.Getenv("WHATSAPP_PHONE_ID"); id != "" {
		cfg.Channels.WhatsApp.PhoneID = id
	}
	if port := os.Getenv("MAYA_WEBHOOK_PORT"); port != "" {
		if parsed, err := strconv.Atoi(port); err == nil {
			cfg.Channels.WhatsApp.Port = parsed
		}
	}

	if path := os.Getenv("MAYA_DB_PATH"); path != "" {
		cfg.DBPath = path
	}

	// MAYA_CHANNEL selects the active channel(s).
	switch strings.ToLower(strings.TrimSpace(os.Getenv("MAYA_CHANNEL"))) {
	case "telegram":
		cfg.Channels.Telegram.Enabled = true
	case "whatsapp":
		cfg.Channels.WhatsApp.Enabled = true
	case "both":
		cfg.Channels.Telegram.Enabled = true
		cfg.Channels.WhatsApp.Enabled = true
	}
}

func fillPolicyDefaults(p *PolicyConfig) {
	def := DefaultConfig().Policy
	if p.FreeDailyLimit <= 0 {
		p.FreeDailyLimit = def.FreeDailyLimit
	}
	if p.QuotaWarnAt <= 0 {
		p.QuotaWarnAt = def.QuotaWarnAt
	}
	if p.MemoryCadence <= 0 {
		p.MemoryCadence = def.MemoryCadence
	}
	if p.MemoryContextLimit <= 0 {
		p.MemoryContextLimit = def.MemoryContextLimit
	}
	if p.Temperature <= 0 {
		p.Temperature = def.Temperature
	}
	if p.MaxTokens <= 0 {
		p.MaxTokens = def.MaxTokens
	}
	if p.SummaryTemperature <= 0 {
		p.SummaryTemperature = def.SummaryTemperature
	}
	if p.SummaryMaxTokens <= 0 {
		p.SummaryMaxTokens = def.SummaryMaxTokens
	}
	if p.ReplyTimeoutSec <= 0 {
		p.ReplyTimeoutSec = def.ReplyTimeoutSec
	}
	if p.SilenceHours <= 0 {
		p.SilenceHours = def.SilenceHours
	}
	if p.ReminderCooldownHours <= 0 {
		p.ReminderCooldownHours = def.ReminderCooldownHours
	}
	if p.DigestDays <= 0 {
		p.DigestDays = def.DigestDays
	}
}

func SaveConfig(cfg *Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(ConfigPath(), data, 0644)
}
