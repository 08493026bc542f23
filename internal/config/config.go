package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"rubyistrun/internal/content"
	"rubyistrun/internal/feed"
	"rubyistrun/internal/logging"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. RUBYISTRUN_PORT.
const EnvPrefix = "RUBYISTRUN"

type FeedConfig struct {
	Title         string `mapstructure:"title"`
	Description   string `mapstructure:"description"`
	Collection    string `mapstructure:"collection"`
	LinkPrefix    string `mapstructure:"link_prefix"`
	TrailingSlash bool   `mapstructure:"trailing_slash"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

type Config struct {
	Port       int        `mapstructure:"port"`
	DBPath     string     `mapstructure:"db_path"`
	ContentDir string     `mapstructure:"content_dir"`
	OutDir     string     `mapstructure:"out_dir"`
	Site       string     `mapstructure:"site"`
	Strict     bool       `mapstructure:"strict"`
	Watch      bool       `mapstructure:"watch"`
	MaxConns   int        `mapstructure:"max_conns"`
	Production bool       `mapstructure:"production"`
	Feed       FeedConfig `mapstructure:"feed"`
	Log        LogConfig  `mapstructure:"log"`
}

// flagKeys maps command line flag names to config keys.
var flagKeys = map[string]string{
	"port":      "port",
	"db":        "db_path",
	"content":   "content_dir",
	"out":       "out_dir",
	"site":      "site",
	"watch":     "watch",
	"log-level": "log.level",
	"prod":      "production",
}

func setDefaults(v *viper.Viper) {
	defaults := feed.DefaultConfig()

	v.SetDefault("port", 8080)
	v.SetDefault("db_path", "data/content.db")
	v.SetDefault("content_dir", "src/content")
	v.SetDefault("out_dir", "dist")
	v.SetDefault("site", "")
	v.SetDefault("strict", true)
	v.SetDefault("watch", false)
	v.SetDefault("max_conns", 256)
	v.SetDefault("production", false)

	v.SetDefault("feed.title", defaults.Title)
	v.SetDefault("feed.description", defaults.Description)
	v.SetDefault("feed.collection", string(defaults.Collection))
	v.SetDefault("feed.link_prefix", defaults.LinkPrefix)
	v.SetDefault("feed.trailing_slash", defaults.TrailingSlash)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", 64)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 7)
}

// Load resolves configuration from defaults, an optional config file,
// RUBYISTRUN_* environment variables and flags, in increasing priority.
// An explicit file must exist; without one ./rubyistrun.yaml is read if present.
// flags may be nil.
func Load(file string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("rubyistrun")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("error binding flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("error decoding config: %w", err)
	}

	if flags != nil {
		if lenient, err := flags.GetBool("lenient"); err == nil && lenient {
			cfg.Strict = false
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values no component could start with.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if _, err := c.SiteURL(); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if _, err := content.ParseCollection(c.Feed.Collection); err != nil {
		return fmt.Errorf("invalid feed collection: %w", err)
	}
	return nil
}

func (c Config) GetAddress() string {
	return fmt.Sprintf(":%d", c.Port)
}

// SiteURL parses the configured site. It returns nil, nil when no site is set.
func (c Config) SiteURL() (*url.URL, error) {
	if c.Site == "" {
		return nil, nil
	}
	u, err := url.Parse(c.Site)
	if err != nil {
		return nil, fmt.Errorf("invalid site URL %q: %w", c.Site, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("invalid site URL %q: must be absolute", c.Site)
	}
	return u, nil
}

func (c Config) FeedConfig() feed.Config {
	return feed.Config{
		Title:         c.Feed.Title,
		Description:   c.Feed.Description,
		Collection:    content.Collection(c.Feed.Collection),
		LinkPrefix:    c.Feed.LinkPrefix,
		TrailingSlash: c.Feed.TrailingSlash,
	}
}

func (c Config) LoggingConfig() logging.Config {
	return logging.Config{
		Level:      c.Log.Level,
		File:       c.Log.File,
		MaxSize:    c.Log.MaxSize,
		MaxBackups: c.Log.MaxBackups,
		MaxAge:     c.Log.MaxAge,
		JSON:       c.Production,
	}
}

func (c Config) LoaderConfig() content.LoaderConfig {
	return content.LoaderConfig{Dir: c.ContentDir, Strict: c.Strict}
}
