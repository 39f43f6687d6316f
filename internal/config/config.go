package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"bitunix/internal/exchange/retry"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Exchange ExchangeConfig
	Retry    retry.Policy
	Log      LogConfig
}

type ExchangeConfig struct {
	BaseUrl     string
	Language    string
	TimePath    string
	Timeout     time.Duration
	TimeSyncTTL time.Duration
	ApiKey      string
	Secret      string
	RateLimit   float64
	RateBurst   int
}

type LogConfig struct {
	Level      string
	Format     string
	File       string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

var envPattern = regexp.MustCompile(`\$\{(\w+)\}`)

// Load reads configs/config.yaml and .env from the working directory.
// Both files are optional.
func Load() (*Config, error) {
	return LoadFrom("configs", ".env")
}

// LoadFrom reads config.yaml from dir and dotenv variables from envFile.
// Variables already set in the process environment win over envFile.
func LoadFrom(dir, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("Не удалось прочитать %s: %w", envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("BITUNIX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.AddConfigPath(dir)
	v.SetConfigName("config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("Ошибка чтения конфигурации: %w", err)
		}
	}

	cfg := &Config{}

	cfg.Exchange = ExchangeConfig{
		BaseUrl:     v.GetString("exchange.base_url"),
		Language:    v.GetString("exchange.language"),
		TimePath:    v.GetString("exchange.time_path"),
		Timeout:     v.GetDuration("exchange.timeout"),
		TimeSyncTTL: v.GetDuration("exchange.time_sync_ttl"),
		ApiKey:      envSub(v, "exchange.api_key"),
		Secret:      envSub(v, "exchange.secret"),
		RateLimit:   v.GetFloat64("exchange.rate_limit"),
		RateBurst:   v.GetInt("exchange.rate_burst"),
	}

	cfg.Retry = retry.Policy{
		MaxRetries:  v.GetInt("retry.max_retries"),
		BackoffBase: v.GetDuration("retry.backoff_base"),
		BackoffMax:  v.GetDuration("retry.backoff_max"),
	}

	cfg.Log = LogConfig{
		Level:      v.GetString("log.level"),
		Format:     v.GetString("log.format"),
		File:       v.GetString("log.file"),
		MaxSize:    v.GetInt("log.max_size"),
		MaxBackups: v.GetInt("log.max_backups"),
		MaxAge:     v.GetInt("log.max_age"),
		Compress:   v.GetBool("log.compress"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("exchange.base_url", "https://fapi.bitunix.com")
	v.SetDefault("exchange.language", "en-US")
	v.SetDefault("exchange.time_path", "/api/v1/futures/market/time")
	v.SetDefault("exchange.timeout", "10s")
	v.SetDefault("exchange.time_sync_ttl", "30s")
	v.SetDefault("exchange.api_key", "${BITUNIX_API_KEY}")
	v.SetDefault("exchange.secret", "${BITUNIX_SECRET}")
	v.SetDefault("exchange.rate_limit", 0)
	v.SetDefault("exchange.rate_burst", 1)

	v.SetDefault("retry.max_retries", retry.DefaultMaxRetries)
	v.SetDefault("retry.backoff_base", retry.DefaultBackoffBase)
	v.SetDefault("retry.backoff_max", retry.DefaultBackoffMax)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "stderr")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)
	v.SetDefault("log.compress", false)
}

func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Exchange.BaseUrl) == "" {
		errs = append(errs, errors.New("exchange.base_url не задан"))
	}
	if c.Exchange.Timeout < 0 {
		errs = append(errs, errors.New("exchange.timeout не может быть отрицательным"))
	}
	if c.Exchange.RateLimit < 0 {
		errs = append(errs, errors.New("exchange.rate_limit не может быть отрицательным"))
	}
	if err := c.Retry.Validate(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("Некорректная конфигурация: %w", errors.Join(errs...))
	}
	return nil
}

// HasCredentials reports whether private endpoints can be signed.
func (c *Config) HasCredentials() bool {
	return c.Exchange.ApiKey != "" && c.Exchange.Secret != ""
}

func envSub(v *viper.Viper, key string) string {
	val := v.GetString(key)
	if val == "" {
		return ""
	}

	return envPattern.ReplaceAllStringFunc(val, func(match string) string {
		envKey := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		return os.Getenv(envKey)
	})
}
