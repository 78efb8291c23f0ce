package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/softlyai/maya/internal/config"
	"github.com/softlyai/maya/internal/gateway"
)

var rootCmd = &cobra.Command{
	Use:   "maya",
	Short: "maya - emotional companion bot",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot (channels + scheduled jobs)",
	RunE:  runServe,
}

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize config and data directory",
	RunE:  runOnboard,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show maya status",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(serveCmd, onboardCmd, statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.Provider.APIKey == "" {
		return fmt.Errorf("API key not set. Run 'maya onboard' or set OPENROUTER_KEY / MAYA_API_KEY")
	}
	if !cfg.Channels.Telegram.Enabled && !cfg.Channels.WhatsApp.Enabled {
		return fmt.Errorf("no channel enabled. Set MAYA_CHANNEL or enable one in %s", config.ConfigPath())
	}

	gw, err := gateway.New(cfg)
	if err != nil {
		return fmt.Errorf("create gateway: %w", err)
	}

	return gw.Run(context.Background())
}

func runOnboard(cmd *cobra.Command, args []string) error {
	cfgDir := config.ConfigDir()
	cfgPath := config.ConfigPath()

	if err := os.MkdirAll(filepath.Join(cfgDir, "data"), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		cfg := config.DefaultConfig()
		data, _ := json.MarshalIndent(cfg, "", "  ")
		if err := os.WriteFile(cfgPath, data, 0644); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Printf("Created config: %s\n", cfgPath)
	} else {
		fmt.Printf("Config already exists: %s\n", cfgPath)
	}

	fmt.Println("\nNext steps:")
	fmt.Printf("  1. Edit %s to set your API key and channel tokens\n", cfgPath)
	fmt.Println("  2. Or set OPENROUTER_KEY / TELEGRAM_BOT_TOKEN / MAYA_CHANNEL")
	fmt.Println("  3. Run 'maya serve'")

	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Config: error (%v)\n", err)
		return nil
	}

	fmt.Printf("Config: %s\n", config.ConfigPath())
	fmt.Printf("Model: %s\n", cfg.Provider.Model)
	fmt.Printf("Base URL: %s\n", cfg.Provider.BaseURL)
	if cfg.Provider.APIKey != "" && len(cfg.Provider.APIKey) > 8 {
		masked := cfg.Provider.APIKey[:4] + "..." + cfg.Provider.APIKey[len(cfg.Provider.APIKey)-4:]
		fmt.Printf("API Key: %s\n", masked)
	} else if cfg.Provider.APIKey != "" {
		fmt.Println("API Key: set")
	} else {
		fmt.Println("API Key: not set")
	}
	fmt.Printf("Telegram: enabled=%v\n", cfg.Channels.Telegram.Enabled)
	fmt.Printf("WhatsApp: enabled=%v\n", cfg.Channels.WhatsApp.Enabled)
	fmt.Printf("Free daily limit: %d (warn at %d)\n", cfg.Policy.FreeDailyLimit, cfg.Policy.QuotaWarnAt)
	fmt.Printf("Memory cadence: every %d messages\n", cfg.Policy.MemoryCadence)

	return nil
}
