package core

import (
	"fmt"
	"strings"
	"time"
)

// EnvAIServiceURL overrides the stored ai_service_url when set.
const EnvAIServiceURL = "AI_SERVICE_URL"

const (
	DefaultWebhookTimeoutSeconds = 30
	DefaultConnectTimeoutSeconds = 10
	DefaultMaxRetryAttempts      = 3
	DefaultRetryDelaySeconds     = 30
)

// Config carries only plain values; the signing secret and algorithm come
// from process environment and must never pass through here.
type Config struct {
	ServiceName           string `koanf:"service_name" mapstructure:"service_name"`
	SyncEnabled           bool   `koanf:"sync_enabled" mapstructure:"sync_enabled"`
	AIServiceURL          string `koanf:"ai_service_url" mapstructure:"ai_service_url"`
	WebhookTimeoutSeconds int    `koanf:"webhook_timeout_seconds" mapstructure:"webhook_timeout_seconds"`
	MaxRetryAttempts      int    `koanf:"max_retry_attempts" mapstructure:"max_retry_attempts"`
	RetryDelaySeconds     int    `koanf:"retry_delay_seconds" mapstructure:"retry_delay_seconds"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName:           "aisync",
		SyncEnabled:           true,
		WebhookTimeoutSeconds: DefaultWebhookTimeoutSeconds,
		MaxRetryAttempts:      DefaultMaxRetryAttempts,
		RetryDelaySeconds:     DefaultRetryDelaySeconds,
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.WebhookTimeoutSeconds < 0 {
		return fmt.Errorf("core: webhook_timeout_seconds must be >= 0")
	}
	if c.MaxRetryAttempts < 0 {
		return fmt.Errorf("core: max_retry_attempts must be >= 0")
	}
	if c.RetryDelaySeconds < 0 {
		return fmt.Errorf("core: retry_delay_seconds must be >= 0")
	}
	return nil
}

func (c Config) WebhookTimeout() time.Duration {
	seconds := c.WebhookTimeoutSeconds
	if seconds <= 0 {
		seconds = DefaultWebhookTimeoutSeconds
	}
	return time.Duration(seconds) * time.Second
}

// RetryDelay is the base delay of the external backoff scheduler. The
// doubling sequence is computed by that scheduler, not inside this package.
func (c Config) RetryDelay() time.Duration {
	seconds := c.RetryDelaySeconds
	if seconds <= 0 {
		seconds = DefaultRetryDelaySeconds
	}
	return time.Duration(seconds) * time.Second
}

// ApplyEnvOverrides layers environment values over resolved config.
// lookup follows the os.LookupEnv contract.
func (c Config) ApplyEnvOverrides(lookup func(string) (string, bool)) Config {
	if lookup == nil {
		return c
	}
	if value, ok := lookup(EnvAIServiceURL); ok {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			c.AIServiceURL = trimmed
		}
	}
	return c
}
