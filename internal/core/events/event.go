package events

import (
	. "github.com/berfenger/sunspecmon/internal/core/domain"
	"github.com/berfenger/sunspecmon/pkg/gateway"
)

// SampleToUpdateEvents mirrors an appended sample: one sensor per power flow
// plus the raw sample as JSON.
func SampleToUpdateEvents(s Sample) []any {
	var events []any

	for _, v := range []struct {
		id    string
		value float64
	}{
		{SENSOR_ID_SOLAR_POWER, s.Solar},
		{SENSOR_ID_GRID_POWER, s.Grid},
		{SENSOR_ID_BATTERY_POWER, s.Battery},
		{SENSOR_ID_CONSUMPTION_POWER, s.Consumption},
	} {
		events = append(events, FloatSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: v.id},
			Value:                  v.value,
			Decimals:               3,
		})
	}
	events = append(events, JSONUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: JSON_ID_SAMPLE},
		Value:                  s,
	})
	return events
}

func MetricsToUpdateEvents(m gateway.DashboardMetrics) []any {
	return []any{
		FloatSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: SENSOR_ID_YIELD_TODAY},
			Value:                  m.YieldToday,
			Decimals:               2,
		},
		FloatSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: SENSOR_ID_CONSUMPTION_TODAY},
			Value:                  m.ConsumptionToday,
			Decimals:               2,
		},
	}
}

func PhaseUpdateEvent(phase SessionPhase) any {
	return TextSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: SENSOR_ID_SESSION_PHASE},
		Value:                  string(phase),
	}
}

func StreamConnectedUpdateEvent(connected bool) any {
	return BinarySensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: BINARY_SENSOR_ID_STREAM},
		Value:                  connected,
	}
}

func NotificationToUpdateEvents(n Notification) []any {
	return []any{
		TextSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: SENSOR_ID_LAST_CONTROL_WRITE},
			Value:                  n.Message,
		},
		BinarySensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: BINARY_SENSOR_ID_CONTROL_SUCCESS},
			Value:                  n.Success,
		},
		JSONUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: JSON_ID_NOTIFICATION},
			Value:                  n,
		},
	}
}

func StatusToUpdateEvents(s *gateway.SystemStatus) []any {
	online := 0
	for _, d := range s.Devices {
		if d.Connected {
			online++
		}
	}
	return []any{
		FloatSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: SENSOR_ID_DEVICES_ONLINE},
			Value:                  float64(online),
		},
		BinarySensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: BINARY_SENSOR_ID_GATEWAY_MQTT},
			Value:                  s.MQTTConnected,
		},
	}
}
