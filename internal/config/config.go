package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Redis     RedisConfig     `mapstructure:"redis"`
	State     StateConfig     `mapstructure:"state"`
	Providers ProvidersConfig `mapstructure:"providers"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Host                    string        `mapstructure:"host"`
	Port                    int           `mapstructure:"port"`
	Mode                    string        `mapstructure:"mode"`
	ReadTimeout             time.Duration `mapstructure:"read_timeout"`
	WriteTimeout            time.Duration `mapstructure:"write_timeout"`
	GracefulShutdownTimeout time.Duration `mapstructure:"graceful_shutdown_timeout"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type StateConfig struct {
	Backend string `mapstructure:"backend"` // "redis" | "memory"
}

type ProvidersConfig struct {
	HubSpot  ProviderConfig `mapstructure:"hubspot"`
	Airtable ProviderConfig `mapstructure:"airtable"`
	Notion   ProviderConfig `mapstructure:"notion"`
}

// ProviderConfig holds the OAuth2 app registration for one external platform.
type ProviderConfig struct {
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	RedirectURL  string   `mapstructure:"redirect_url"`
	Scopes       []string `mapstructure:"scopes"`
}

type CORSConfig struct {
	AllowedOrigins   []string      `mapstructure:"allowed_origins"`
	AllowedMethods   []string      `mapstructure:"allowed_methods"`
	AllowedHeaders   []string      `mapstructure:"allowed_headers"`
	AllowCredentials bool          `mapstructure:"allow_credentials"`
	MaxAge           time.Duration `mapstructure:"max_age"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads config.yaml, overlays environment variables, and returns Config.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Environment variable override: PROVIDERS_HUBSPOT_CLIENT_ID -> providers.hubspot.client_id
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every missing required field at once so a broken deployment
// shows the full list instead of failing one variable at a time.
func (c *Config) Validate() error {
	var err error
	for _, p := range []struct {
		name string
		cfg  ProviderConfig
	}{
		{"hubspot", c.Providers.HubSpot},
		{"airtable", c.Providers.Airtable},
		{"notion", c.Providers.Notion},
	} {
		if p.cfg.ClientID == "" {
			err = multierr.Append(err, fmt.Errorf("providers.%s.client_id is required", p.name))
		}
		if p.cfg.ClientSecret == "" {
			err = multierr.Append(err, fmt.Errorf("providers.%s.client_secret is required", p.name))
		}
		if p.cfg.RedirectURL == "" {
			err = multierr.Append(err, fmt.Errorf("providers.%s.redirect_url is required", p.name))
		}
	}
	switch c.State.Backend {
	case "redis", "memory":
	default:
		err = multierr.Append(err, fmt.Errorf("state.backend must be \"redis\" or \"memory\", got %q", c.State.Backend))
	}
	return err
}
