package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by LoadServerConfig,
// e.g. GEOSEARCH_PORT or GEOSEARCH_LOG_LEVEL.
const EnvPrefix = "GEOSEARCH"

// ServerConfig holds process-level settings for the HTTP server.
type ServerConfig struct {
	Port            int           `mapstructure:"port"             validate:"required,min=1,max=65535"`
	DataDir         string        `mapstructure:"data_dir"         validate:"required"`
	Mode            string        `mapstructure:"mode"             validate:"oneof=debug release test"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"   validate:"min=1"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Log             LogConfig     `mapstructure:"log"`
	Metrics         MetricsConfig `mapstructure:"metrics"`
	CORS            CORSConfig    `mapstructure:"cors"`
}

// LogConfig configures structured logging and optional file rotation.
// An empty File logs to stdout. MaxSize is in megabytes and MaxAge in days.
type LogConfig struct {
	Level      string `mapstructure:"level"       validate:"oneof=debug info warn error"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"    validate:"min=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"min=0"`
	MaxAge     int    `mapstructure:"max_age"     validate:"min=0"`
	Compress   bool   `mapstructure:"compress"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"omitempty,startswith=/"`
}

// CORSConfig lists the origins allowed to call the API.
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

func setServerDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("data_dir", "./search_data")
	v.SetDefault("mode", "release")
	v.SetDefault("max_body_bytes", 10<<20)
	v.SetDefault("read_timeout", 15*time.Second)
	v.SetDefault("write_timeout", 30*time.Second)
	v.SetDefault("shutdown_timeout", 10*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age", 30)
	v.SetDefault("log.compress", false)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("cors.allow_origins", []string{"*"})
}

// LoadServerConfig builds a ServerConfig from defaults, the optional config
// file at path, and GEOSEARCH_* environment variables, in increasing order of
// precedence. The result is validated.
func LoadServerConfig(path string) (*ServerConfig, error) {
	v := viper.New()
	setServerDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config error: %w", err)
		}
	}

	cfg := &ServerConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the struct tags of the config.
func (c *ServerConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed '%s'", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("config validation failed: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// Addr returns the listen address for the configured port.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
