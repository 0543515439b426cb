package events

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	. "github.com/berfenger/sunspecmon/internal/core/domain"

	"github.com/carlmjohnson/versioninfo"
)

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("sunspecmon_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "ACasal",
		Model:        "SunSpec Monitor",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("SunSpec Monitor %s", md5HashShort(baseTopic)),
	}
}

func IdDevice(device Device) Device {
	return Device{
		Id:   device.Id,
		Name: device.Name,
	}
}

func BridgeSensors(bridgeDevice Device) []GenericSensor {
	return []GenericSensor{{
		Device:         bridgeDevice,
		Id:             SENSOR_ID_BRIDGE_STATE,
		SensorType:     SENSOR_TYPE_BINARY,
		Name:           "Bridge state",
		DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
	}}
}

// SiteSensors describes the mirrored dashboard and control state. They reference
// the bridge device by id; the bridge sensor carries the full device.
func SiteSensors(bridgeDevice Device) []GenericSensor {
	dev := IdDevice(bridgeDevice)

	power := func(id, name, icon string) GenericSensor {
		return GenericSensor{
			Device:            dev,
			Id:                id,
			SensorType:        SENSOR_TYPE_SENSOR,
			Name:              name,
			StateClass:        STATE_CLASS_MEASUREMENT,
			DeviceClass:       DEVICE_CLASS_POWER,
			UnitOfMeasurement: "kW",
			Icon:              icon,
			UniqueId:          uniqueId(dev.Id, id),
		}
	}
	energy := func(id, name string) GenericSensor {
		return GenericSensor{
			Device:            dev,
			Id:                id,
			SensorType:        SENSOR_TYPE_SENSOR,
			Name:              name,
			StateClass:        STATE_CLASS_TOTAL_INCREASING,
			DeviceClass:       DEVICE_CLASS_ENERGY,
			UnitOfMeasurement: "kWh",
			UniqueId:          uniqueId(dev.Id, id),
		}
	}

	sensors := []GenericSensor{
		power(SENSOR_ID_SOLAR_POWER, "Solar power", "mdi:solar-power"),
		power(SENSOR_ID_GRID_POWER, "Grid power", "mdi:transmission-tower"),
		power(SENSOR_ID_BATTERY_POWER, "Battery power", "mdi:battery"),
		power(SENSOR_ID_CONSUMPTION_POWER, "Consumption power", "mdi:home-lightning-bolt"),
		energy(SENSOR_ID_YIELD_TODAY, "Yield today"),
		energy(SENSOR_ID_CONSUMPTION_TODAY, "Consumption today"),
		{
			Device:         dev,
			Id:             SENSOR_ID_SESSION_PHASE,
			SensorType:     SENSOR_TYPE_SENSOR,
			Name:           "Dashboard session phase",
			EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
			UniqueId:       uniqueId(dev.Id, SENSOR_ID_SESSION_PHASE),
		},
		{
			Device:     dev,
			Id:         SENSOR_ID_LAST_CONTROL_WRITE,
			SensorType: SENSOR_TYPE_SENSOR,
			Name:       "Last control write",
			Icon:       "mdi:tune",
			UniqueId:   uniqueId(dev.Id, SENSOR_ID_LAST_CONTROL_WRITE),
		},
		{
			Device:         dev,
			Id:             SENSOR_ID_DEVICES_ONLINE,
			SensorType:     SENSOR_TYPE_SENSOR,
			Name:           "Devices online",
			StateClass:     STATE_CLASS_MEASUREMENT,
			EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
			UniqueId:       uniqueId(dev.Id, SENSOR_ID_DEVICES_ONLINE),
		},
		{
			Device:         dev,
			Id:             BINARY_SENSOR_ID_STREAM,
			SensorType:     SENSOR_TYPE_BINARY,
			Name:           "Live stream",
			DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
			EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
			UniqueId:       uniqueId(dev.Id, BINARY_SENSOR_ID_STREAM),
		},
		{
			Device:         dev,
			Id:             BINARY_SENSOR_ID_GATEWAY_MQTT,
			SensorType:     SENSOR_TYPE_BINARY,
			Name:           "Gateway MQTT",
			DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
			EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
			UniqueId:       uniqueId(dev.Id, BINARY_SENSOR_ID_GATEWAY_MQTT),
		},
		{
			Device:     dev,
			Id:         BINARY_SENSOR_ID_CONTROL_SUCCESS,
			SensorType: SENSOR_TYPE_BINARY,
			Name:       "Last control write succeeded",
			UniqueId:   uniqueId(dev.Id, BINARY_SENSOR_ID_CONTROL_SUCCESS),
		},
	}
	return sensors
}

func uniqueId(deviceId string, sensorId string) string {
	return fmt.Sprintf("%s_%s", deviceId, sensorId)
}

func md5HashShort(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])[:6]
}
