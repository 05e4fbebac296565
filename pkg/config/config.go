package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/fx"
)

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type DBConfig struct {
	// Path is the SQLite database file; ":memory:" is accepted for tests.
	Path string `mapstructure:"path"`
	// BusyTimeoutMS is handed to the sqlite busy_timeout pragma.
	BusyTimeoutMS int `mapstructure:"busy_timeout_ms"`
}

type WebhookConfig struct {
	// Secret is the shared HMAC secret for this provider.
	Secret string `mapstructure:"secret"`
	// Tolerance bounds how old a signed timestamp may be.
	Tolerance time.Duration `mapstructure:"tolerance"`
}

type ProviderConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type AdminConfig struct {
	// JWTSecret signs/verifies admin bearer tokens.
	JWTSecret string `mapstructure:"jwt_secret"`
}

type Env string

const (
	EnvDev  Env = "dev"
	EnvProd Env = "prod"
)

type Config struct {
	Env             Env            `mapstructure:"env"`
	Server          ServerConfig   `mapstructure:"server"`
	Database        DBConfig       `mapstructure:"database"`
	PaymentWebhook  WebhookConfig  `mapstructure:"payment_webhook"`
	IdentityWebhook WebhookConfig  `mapstructure:"identity_webhook"`
	Provider        ProviderConfig `mapstructure:"provider"`
	Admin           AdminConfig    `mapstructure:"admin"`
	MetricsAddr     string         `mapstructure:"metrics_addr"`
}

func New() (*Config, error) {
	v := viper.New()
	// Allow overriding config file via env:
	// - APP_CONFIG_FILE: absolute or relative file path (e.g., /etc/app/prod.yaml)
	// - APP_CONFIG_NAME: config base name without extension (default: "config")
	if file := os.Getenv("APP_CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
	} else {
		cfgName := os.Getenv("APP_CONFIG_NAME")
		if cfgName == "" {
			cfgName = "config"
		}
		v.SetConfigName(cfgName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("env", "dev")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8888)
	v.SetDefault("database.path", "data/marketplace.db")
	v.SetDefault("database.busy_timeout_ms", 5000)
	v.SetDefault("payment_webhook.tolerance", "5m")
	v.SetDefault("identity_webhook.tolerance", "5m")
	v.SetDefault("provider.base_url", "https://api.payments.example.com")
	v.SetDefault("provider.timeout", "5s")
	v.SetDefault("metrics_addr", ":90")

	if err := v.ReadInConfig(); err != nil {
		_ = err
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &c, nil
}

var Module = fx.Options(
	fx.Provide(New),
)
