package domain

// Home Assistant discovery model

type Device struct {
	Id           string
	Name         string
	Version      string
	Model        string
	Manufacturer string
	ViaDevice    string
}

type GenericSensor struct {
	Device            Device
	Id                string
	SensorType        string
	Name              string
	UniqueId          string
	UnitOfMeasurement string
	StateClass        string // measurement, total_increasing
	DeviceClass       string // power, energy, battery, connectivity
	EntityCategory    string // diagnostic, config, nil
	EnabledByDefault  *bool
	Icon              string
}

const (
	SENSOR_ID_BRIDGE_STATE           = "bridge"
	SENSOR_ID_SOLAR_POWER            = "solar_power"
	SENSOR_ID_GRID_POWER             = "grid_power"
	SENSOR_ID_BATTERY_POWER          = "battery_power"
	SENSOR_ID_CONSUMPTION_POWER      = "consumption_power"
	SENSOR_ID_YIELD_TODAY            = "yield_today"
	SENSOR_ID_CONSUMPTION_TODAY      = "consumption_today"
	SENSOR_ID_SESSION_PHASE          = "session_phase"
	SENSOR_ID_LAST_CONTROL_WRITE     = "last_control_write"
	SENSOR_ID_DEVICES_ONLINE         = "devices_online"
	BINARY_SENSOR_ID_STREAM          = "stream_connected"
	BINARY_SENSOR_ID_GATEWAY_MQTT    = "gateway_mqtt_connected"
	BINARY_SENSOR_ID_CONTROL_SUCCESS = "last_control_write_ok"
	JSON_ID_SAMPLE                   = "sample"
	JSON_ID_NOTIFICATION             = "notification"

	STATE_CLASS_MEASUREMENT      = "measurement"
	STATE_CLASS_TOTAL_INCREASING = "total_increasing"
	DEVICE_CLASS_POWER           = "power"
	DEVICE_CLASS_ENERGY          = "energy"
	DEVICE_CLASS_CONNECTIVITY    = "connectivity"
	ENTITY_CLASS_DIAGNOSTIC      = "diagnostic"
	SENSOR_TYPE_SENSOR           = "sensor"
	SENSOR_TYPE_BINARY           = "binary_sensor"
)
