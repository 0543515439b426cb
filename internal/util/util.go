package util

import (
	"github.com/berfenger/sunspecmon/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		Gateway: config.GatewayConfig{
			BaseURL:               "http://127.0.0.1:3000",
			RequestTimeoutMillis:  2000,
			TimezoneOffsetMinutes: 0,
			StreamRetryMillis:     500,
		},
		Dashboard: config.DashboardConfig{
			DefaultPeriod: "today",
		},
		Controls: config.ControlsConfig{
			PollIntervalMillis: 10000,
			NotificationMillis: 5000,
		},
		Status: config.StatusConfig{
			PollIntervalMillis: 5000,
		},
		MQTT: config.MQTTConfig{
			Host:      "localhost",
			Port:      1883,
			BaseTopic: "sunspecmon",
		},
		Port: 8080,
	}
}
