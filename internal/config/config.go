package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Relay configures the signaling relay server.
type Relay struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`
}

// Client configures a meeting client process.
type Client struct {
	RelayURL      string `mapstructure:"relay_url"`
	Room          string `mapstructure:"room"`
	Lang          string `mapstructure:"lang"`
	DeviceClass   string `mapstructure:"device_class"`
	TranslateBase string `mapstructure:"translate_base"`
}

type Config struct {
	Relay  Relay  `mapstructure:"relay"`
	Client Client `mapstructure:"client"`
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

	v.SetDefault("relay.mode", "release")
	v.SetDefault("relay.port", 5000)
	v.SetDefault("relay.read_limit", 32768)
	v.SetDefault("relay.ping_period", "54s")
	v.SetDefault("relay.secret", "dev-secret")
	v.SetDefault("client.relay_url", "ws://localhost:5000/api/ws/signal")
	v.SetDefault("client.lang", "en")
	v.SetDefault("client.device_class", "desktop")
	v.SetDefault("client.translate_base", "http://localhost:5000/api/translate")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("config file not found (%s), using defaults\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
