package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

type Config struct {
	LogLevel  zapcore.Level
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Controls  ControlsConfig  `mapstructure:"controls"`
	Status    StatusConfig    `mapstructure:"status"`
	MQTT      MQTTConfig      `mapstructure:"mqtt"`
	Port      uint            `mapstructure:"port"`
	HttpLog   bool            `mapstructure:"http_log"`
}

type GatewayConfig struct {
	BaseURL               string `mapstructure:"base_url"`
	RequestTimeoutMillis  uint32 `mapstructure:"request_timeout_millis"`
	TimezoneOffsetMinutes int    `mapstructure:"timezone_offset_minutes"`
	StreamRetryMillis     uint32 `mapstructure:"stream_retry_millis"`
}

type DashboardConfig struct {
	DefaultPeriod string `mapstructure:"default_period"`
}

type ControlsConfig struct {
	PollIntervalMillis uint32 `mapstructure:"poll_interval_millis"`
	NotificationMillis uint32 `mapstructure:"notification_millis"`
}

type StatusConfig struct {
	PollIntervalMillis uint32 `mapstructure:"poll_interval_millis"`
}

type MQTTConfig struct {
	Enable            bool
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

func (c GatewayConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMillis) * time.Millisecond
}

func (c GatewayConfig) StreamRetry() time.Duration {
	return time.Duration(c.StreamRetryMillis) * time.Millisecond
}

func (c ControlsConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMillis) * time.Millisecond
}

func (c ControlsConfig) NotificationTTL() time.Duration {
	return time.Duration(c.NotificationMillis) * time.Millisecond
}

func (c StatusConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMillis) * time.Millisecond
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}

func CheckGatewayURL(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid gateway url %q. scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid gateway url %q. missing host", baseURL)
	}
	return u.String(), nil
}

// Validate checks bounds. Periods are validated by the caller against the
// domain list to keep this package free of domain imports.
func (c *Config) Validate() error {
	if c.Gateway.RequestTimeoutMillis < 500 {
		return errors.New("config param gateway.request_timeout_millis should be >= 500")
	}
	if c.Gateway.StreamRetryMillis < 500 {
		return errors.New("config param gateway.stream_retry_millis should be >= 500")
	}
	if c.Gateway.TimezoneOffsetMinutes < -14*60 || c.Gateway.TimezoneOffsetMinutes > 14*60 {
		return errors.New("config param gateway.timezone_offset_minutes must be within [-840, 840]")
	}
	if c.Controls.PollIntervalMillis < 1000 {
		return errors.New("config param controls.poll_interval_millis should be >= 1000")
	}
	if c.Controls.NotificationMillis < 100 {
		return errors.New("config param controls.notification_millis should be >= 100")
	}
	if c.Status.PollIntervalMillis < 1000 {
		return errors.New("config param status.poll_interval_millis should be >= 1000")
	}
	return nil
}
