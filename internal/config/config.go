package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/powerfm/livecast/internal/core"
)

type TierConfig struct {
	PriceCents int64         `mapstructure:"price_cents"`
	Duration   time.Duration `mapstructure:"duration"`
}

type StripeConfig struct {
	SecretKey string `mapstructure:"secret_key"`
	APIBase   string `mapstructure:"api_base"`
}

type Config struct {
	Mode       string `mapstructure:"mode"`
	Port       int    `mapstructure:"port"`
	StaticPath string `mapstructure:"static_path"`
	Secret     string `mapstructure:"secret"`

	SFUSocket  string           `mapstructure:"sfu_socket"`
	RoomPrefix string           `mapstructure:"room_prefix"`
	ICEServers []core.ICEServer `mapstructure:"ice_servers"`

	Stripe StripeConfig `mapstructure:"stripe"`

	SpotlightTick  time.Duration         `mapstructure:"spotlight_tick"`
	SpotlightTiers map[string]TierConfig `mapstructure:"spotlight_tiers"`
	TipPresets     []int64               `mapstructure:"tip_presets"`

	ChatHistory     int           `mapstructure:"chat_history"`
	RecentChat      int           `mapstructure:"recent_chat"`
	ChatRateLimit   int           `mapstructure:"chat_rate_limit"`
	ChatRateWindow  time.Duration `mapstructure:"chat_rate_window"`
	LeaderboardSize int           `mapstructure:"leaderboard_size"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("sfu_socket", "/var/run/livecast/mediasoup.sock")
	v.SetDefault("room_prefix", "live-")
	v.SetDefault("ice_servers", []map[string]any{
		{"urls": "stun:stun.l.google.com:19302"},
		{"urls": "stun:stun1.l.google.com:19302"},
	})
	v.SetDefault("stripe.api_base", "https://api.stripe.com")
	v.SetDefault("spotlight_tick", "10s")
	v.SetDefault("spotlight_tiers", map[string]any{
		"2min":  map[string]any{"price_cents": 500, "duration": "2m"},
		"5min":  map[string]any{"price_cents": 1000, "duration": "5m"},
		"10min": map[string]any{"price_cents": 2500, "duration": "10m"},
	})
	v.SetDefault("tip_presets", []int64{200, 500, 1000, 2000, 5000})
	v.SetDefault("chat_history", 100)
	v.SetDefault("recent_chat", 50)
	v.SetDefault("chat_rate_limit", 10)
	v.SetDefault("chat_rate_window", "10s")
	v.SetDefault("leaderboard_size", 10)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
