package mqtt

import (
	"testing"

	"github.com/berfenger/sunspecmon/internal/core/domain"
	"github.com/berfenger/sunspecmon/internal/util"

	"github.com/stretchr/testify/assert"
)

func testClient() *MQTTClient {
	cfg := util.LoadTestConfig()
	return CreateMQTTClient(&cfg, OptsFromConfig(&cfg), nil, nil)
}

func TestTopics(t *testing.T) {

	assert := assert.New(t)

	c := testClient()
	assert.Equal("sunspecmon/bridge/state", c.BridgeStateTopic())
	assert.Equal("sunspecmon/sensor/solar_power/state", c.SensorStateTopic(domain.SENSOR_ID_SOLAR_POWER))
	assert.Equal("sunspecmon/binary_sensor/stream_connected/state", c.BinarySensorStateTopic(domain.BINARY_SENSOR_ID_STREAM))
	assert.Equal("sunspecmon/dashboard/sample", c.SampleTopic())
	assert.Equal("homeassistant", c.DiscoveryPrefix())
}

func TestWillIsBridgeState(t *testing.T) {
	cfg := util.LoadTestConfig()
	opts := OptsFromConfig(&cfg)
	assert.Equal(t, "sunspecmon/bridge/state", opts.WillTopic)
	assert.Equal(t, []byte(MQTT_PAYLOAD_OFFLINE), opts.WillPayload)
	assert.True(t, opts.WillRetained)
}

func TestDiscoveryMessage(t *testing.T) {

	assert := assert.New(t)

	c := testClient()
	dev := domain.Device{Id: "sunspecmon_bridge", Name: "SunSpec Monitor"}

	bridge := GenericSensorToHADiscoveryMessage(c, domain.GenericSensor{
		Device: dev, Id: domain.SENSOR_ID_BRIDGE_STATE, SensorType: domain.SENSOR_TYPE_BINARY,
	})
	assert.Equal(c.BridgeStateTopic(), bridge.StateTopic)
	assert.Equal(MQTT_PAYLOAD_ONLINE, bridge.PayloadOn)

	stream := domain.GenericSensor{Device: dev, Id: domain.BINARY_SENSOR_ID_STREAM, SensorType: domain.SENSOR_TYPE_BINARY}
	msg := GenericSensorToHADiscoveryMessage(c, stream)
	assert.Equal("sunspecmon/binary_sensor/stream_connected/state", msg.StateTopic)
	assert.Equal(MQTT_PAYLOAD_ON, msg.PayloadOn)
	assert.Equal("homeassistant/binary_sensor/sunspecmon_bridge/stream_connected/config", HADiscoverySensorTopic(c.DiscoveryPrefix(), stream))

	solar := GenericSensorToHADiscoveryMessage(c, domain.GenericSensor{
		Device: dev, Id: domain.SENSOR_ID_SOLAR_POWER, SensorType: domain.SENSOR_TYPE_SENSOR, UnitOfMeasurement: "kW",
	})
	assert.Equal("sunspecmon/sensor/solar_power/state", solar.StateTopic)
	assert.Empty(solar.PayloadOn)
	assert.Equal([]string{"sunspecmon_bridge"}, solar.Device.Id)
}
