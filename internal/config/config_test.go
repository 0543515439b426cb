package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckMQTTTopic(t *testing.T) {
	assert := assert.New(t)

	topic, err := CheckMQTTTopic("SunSpec_Mon")
	assert.NoError(err)
	assert.Equal("sunspec_mon", topic)

	_, err = CheckMQTTTopic("sun/spec")
	assert.Error(err)
}

func TestCheckGatewayURL(t *testing.T) {
	assert := assert.New(t)

	u, err := CheckGatewayURL("http://192.168.1.10:3000/")
	assert.NoError(err)
	assert.Equal("http://192.168.1.10:3000", u)

	_, err = CheckGatewayURL("tcp://192.168.1.10")
	assert.Error(err)

	_, err = CheckGatewayURL("http://")
	assert.Error(err)
}

func TestValidate(t *testing.T) {
	cfg := Config{
		Gateway:  GatewayConfig{RequestTimeoutMillis: 2000, StreamRetryMillis: 1000},
		Controls: ControlsConfig{PollIntervalMillis: 10000, NotificationMillis: 5000},
		Status:   StatusConfig{PollIntervalMillis: 5000},
	}
	assert.NoError(t, cfg.Validate())

	cfg.Controls.PollIntervalMillis = 10
	assert.Error(t, cfg.Validate())

	cfg.Controls.PollIntervalMillis = 10000
	cfg.Gateway.TimezoneOffsetMinutes = 2000
	assert.Error(t, cfg.Validate())
}
