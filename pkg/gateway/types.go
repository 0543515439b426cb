package gateway

import "time"

// Points browser

type Point struct {
	Model       int    `json:"model"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Model struct {
	Model       int     `json:"model"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Points      []Point `json:"points"`
}

type Unit struct {
	Unit   string  `json:"unit"`
	Models []Model `json:"models"`
}

type UnitList struct {
	Units []Unit `json:"units"`
}

// Dashboard

type DeviceType string

const (
	DeviceTypeInverter       DeviceType = "inverter"
	DeviceTypePVLink         DeviceType = "pvlink"
	DeviceTypeBattery        DeviceType = "battery"
	DeviceTypeStringCombiner DeviceType = "stringcombiner"
	DeviceTypeUnknown        DeviceType = "unknown"
)

type DeviceData struct {
	SerialNumber   string     `json:"serial_number"`
	ModelName      string     `json:"model_name"`
	ModelID        int        `json:"model_id"`
	DeviceType     DeviceType `json:"device_type"`
	OperatingMode  string     `json:"operating_mode,omitempty"`
	State          string     `json:"state,omitempty"`
	Power          *float64   `json:"power,omitempty"`
	Voltage        *float64   `json:"voltage,omitempty"`
	Temperature    *float64   `json:"temperature,omitempty"`
	LifetimeEnergy *float64   `json:"lifetime_energy,omitempty"`
	EnergyToday    *float64   `json:"energy_today,omitempty"`
	SoC            *float64   `json:"soc,omitempty"`
	SoH            *float64   `json:"soh,omitempty"`
	DCCurrent      *float64   `json:"dc_current,omitempty"`
	Frequency      *float64   `json:"frequency,omitempty"`
	LastUpdated    string     `json:"last_updated"`
}

type DashboardDevices struct {
	Inverters []DeviceData `json:"inverters"`
	PVLinks   []DeviceData `json:"pv_links"`
	Batteries []DeviceData `json:"batteries"`
}

type DashboardMetrics struct {
	YieldToday           float64 `json:"yield_today"`
	YieldYesterday       float64 `json:"yield_yesterday"`
	ConsumptionToday     float64 `json:"consumption_today"`
	ConsumptionYesterday float64 `json:"consumption_yesterday"`
	GridNetToday         float64 `json:"grid_net_today"`
	GridExportToday      float64 `json:"grid_export_today"`
	GridImportToday      float64 `json:"grid_import_today"`
	GridNetMonth         float64 `json:"grid_net_month"`
	BatteryInToday       float64 `json:"battery_in_today"`
	BatteryOutToday      float64 `json:"battery_out_today"`
}

// PowerFlow values are in watts.
type PowerFlow struct {
	SolarPower       float64 `json:"solar_power"`
	GridPower        float64 `json:"grid_power"`
	BatteryPower     float64 `json:"battery_power"`
	ConsumptionPower float64 `json:"consumption_power"`
	SolarActive      bool    `json:"solar_active"`
	GridConnected    bool    `json:"grid_connected"`
	BatteryConnected bool    `json:"battery_connected"`
}

type DeviceAlert struct {
	SerialNumber string `json:"serial_number"`
	AlertType    string `json:"alert_type"`
	Message      string `json:"message"`
	Timestamp    string `json:"timestamp"`
	Severity     string `json:"severity"`
}

type QuickControl struct {
	Id           string   `json:"id"`
	Name         string   `json:"name"`
	ControlType  string   `json:"control_type"`
	CurrentValue string   `json:"current_value"`
	Options      []string `json:"options,omitempty"`
	TargetSerial string   `json:"target_serial"`
	ModelID      int      `json:"model_id"`
	PointName    string   `json:"point_name"`
}

// DashboardState is the payload of the "dashboard" stream event.
type DashboardState struct {
	Devices   DashboardDevices `json:"devices"`
	Metrics   DashboardMetrics `json:"metrics"`
	PowerFlow PowerFlow        `json:"power_flow"`
	Alerts    []DeviceAlert    `json:"alerts"`
	Controls  []QuickControl   `json:"controls"`
	Timestamp string           `json:"timestamp"`
}

type HistoryDataPoint struct {
	Timestamp   string  `json:"timestamp"`
	Solar       float64 `json:"solar"`
	Battery     float64 `json:"battery"`
	Grid        float64 `json:"grid"`
	Consumption float64 `json:"consumption"`
}

type HistoryResponse struct {
	Data   []HistoryDataPoint `json:"data"`
	Period string             `json:"period"`
}

// Controls

type ControlSymbol struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

type ControlPointState struct {
	SerialNumber string          `json:"serial_number"`
	ModelID      int             `json:"model_id"`
	PointName    string          `json:"point_name"`
	Label        string          `json:"label"`
	Description  string          `json:"description"`
	DataType     string          `json:"data_type"`
	CurrentValue PointValue      `json:"current_value"`
	Symbols      []ControlSymbol `json:"symbols,omitempty"`
	Units        string          `json:"units,omitempty"`
}

type ControlPointsResponse struct {
	Points []ControlPointState `json:"points"`
}

type WriteRequest struct {
	SerialNumber string `json:"serial_number"`
	ModelID      int    `json:"model_id"`
	PointName    string `json:"point_name"`
	Value        string `json:"value"`
}

type WriteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Settings

type DeviceStatus struct {
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
	LastSeen  int64  `json:"last_seen"`
	LastError string `json:"last_error,omitempty"`
}

type SystemStatus struct {
	MQTTConnected bool           `json:"mqtt_connected"`
	MQTTEnabled   *bool          `json:"mqtt_enabled,omitempty"`
	MQTTLastError string         `json:"mqtt_last_error,omitempty"`
	Devices       []DeviceStatus `json:"devices"`
}

// ParseTimestamp parses the ISO-8601 timestamps used by the gateway.
func ParseTimestamp(ts string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, ts)
}
