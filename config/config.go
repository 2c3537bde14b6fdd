// Package config loads tableqa settings from defaults, an optional config
// file and TABLEQA_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/spektr-org/tableqa/logging"
	"github.com/spektr-org/tableqa/model"
)

// EnvPrefix is prepended to every environment override, e.g.
// TABLEQA_MODEL_TOKEN for model.token.
const EnvPrefix = "TABLEQA"

// Cfg is the complete application configuration.
type Cfg struct {
	Model model.Config   `mapstructure:"model"`
	Log   logging.Config `mapstructure:"log"`
	Web   Web            `mapstructure:"web"`
}

// Web configures the form front-end.
type Web struct {
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	SessionTTL  time.Duration `mapstructure:"session_ttl"`
	PreviewRows int           `mapstructure:"preview_rows"`
	MaxUploadMB int64         `mapstructure:"max_upload_mb"`
}

// Addr is the listen address.
func (w Web) Addr() string {
	return fmt.Sprintf("%s:%d", w.Host, w.Port)
}

func setDefaults(v *viper.Viper) {
	m := model.DefaultConfig()
	v.SetDefault("model.endpoint", m.Endpoint)
	v.SetDefault("model.name", m.Name)
	v.SetDefault("model.token", "")
	v.SetDefault("model.max_length", m.MaxLength)
	v.SetDefault("model.timeout", m.Timeout)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.disable_timestamp", false)

	v.SetDefault("web.host", "")
	v.SetDefault("web.port", 8501)
	v.SetDefault("web.session_ttl", 30*time.Minute)
	v.SetDefault("web.preview_rows", 5)
	v.SetDefault("web.max_upload_mb", 200)
}

// Load reads the configuration. An empty path searches for tableqa.{yaml,json,toml}
// in ".", "./configs" and "/etc/tableqa"; a missing file there is not an error.
// An explicit path must exist.
func Load(path string) (Cfg, error) {
	var cfg Cfg
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("tableqa")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/tableqa")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, cfg.validate()
}

func (c Cfg) validate() error {
	if c.Model.MaxLength <= 0 {
		return fmt.Errorf("model.max_length must be > 0, got %d", c.Model.MaxLength)
	}
	if c.Web.Port <= 0 || c.Web.Port > 65535 {
		return fmt.Errorf("web.port out of range: %d", c.Web.Port)
	}
	if c.Web.PreviewRows < 0 {
		return fmt.Errorf("web.preview_rows must be >= 0")
	}
	return nil
}
