package gateway

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// TestGatewayClient is an in-memory gateway used by tests.
type TestGatewayClient struct {
	mu sync.Mutex

	Units         *UnitList
	Devices       *DashboardDevices
	Metrics       *DashboardMetrics
	PowerFlow     *PowerFlow
	History       map[string]*HistoryResponse
	ControlPoints *ControlPointsResponse
	Status        *SystemStatus

	// Err, when set, fails every read.
	Err error
	// HistoryGate, when set, is consulted before answering a history request.
	HistoryGate func(period string)
	// WriteGate, when set, is consulted before answering a write request.
	WriteGate  func(req WriteRequest)
	WriteReply *WriteResponse

	writes   []WriteRequest
	requests atomic.Int64
}

func CreateTestGatewayClient() *TestGatewayClient {
	return &TestGatewayClient{
		Units: &UnitList{
			Units: []Unit{
				{
					Unit: "192.168.1.20/1",
					Models: []Model{
						{Model: 1, Name: "common", Description: "All SunSpec compliant devices must include this as the first model",
							Points: []Point{{Model: 1, Name: "Mn", Description: "Manufacturer"}, {Model: 1, Name: "SN", Description: "Serial Number"}}},
						{Model: 103, Name: "inverter", Description: "Include this model for three phase inverter monitoring",
							Points: []Point{{Model: 103, Name: "W", Description: "AC Power"}, {Model: 103, Name: "Hz", Description: "Line Frequency"}}},
					},
				},
				{
					Unit: "192.168.1.20/2",
					Models: []Model{
						{Model: 1, Name: "common", Description: "All SunSpec compliant devices must include this as the first model",
							Points: []Point{{Model: 1, Name: "Mn", Description: "Manufacturer"}, {Model: 1, Name: "SN", Description: "Serial Number"}}},
						{Model: 802, Name: "battery", Description: "Battery Base Model",
							Points: []Point{{Model: 802, Name: "SoC", Description: "State of Charge"}, {Model: 802, Name: "SetOp", Description: "Set Operation"}}},
					},
				},
			},
		},
		Devices: &DashboardDevices{
			Inverters: []DeviceData{{SerialNumber: "INV0001", ModelName: "inverter", ModelID: 103, DeviceType: DeviceTypeInverter}},
			Batteries: []DeviceData{{SerialNumber: "BAT0001", ModelName: "battery", ModelID: 802, DeviceType: DeviceTypeBattery}},
		},
		Metrics: &DashboardMetrics{
			YieldToday:       12.4,
			ConsumptionToday: 9.8,
		},
		PowerFlow: &PowerFlow{
			SolarPower:       3200,
			GridPower:        -400,
			BatteryPower:     1100,
			ConsumptionPower: 1700,
			SolarActive:      true,
			GridConnected:    true,
			BatteryConnected: true,
		},
		History: map[string]*HistoryResponse{
			"today": {
				Period: "today",
				Data: []HistoryDataPoint{
					{Timestamp: "2026-10-17T08:00:00Z", Solar: 1.2, Battery: 0.3, Grid: -0.1, Consumption: 0.8},
					{Timestamp: "2026-10-17T08:05:00Z", Solar: 1.4, Battery: 0.4, Grid: -0.2, Consumption: 0.8},
				},
			},
		},
		ControlPoints: &ControlPointsResponse{
			Points: []ControlPointState{
				{
					SerialNumber: "INV0001", ModelID: 64200, PointName: "SysMd", Label: "System Operating Mode",
					DataType: "enum16", CurrentValue: IntValue(1),
					Symbols: []ControlSymbol{{Name: "SAFETY_SHUTDOWN", Value: 0}, {Name: "GRID_CONNECT", Value: 1}, {Name: "SELF_SUPPLY", Value: 2}},
				},
				{
					SerialNumber: "BAT0001", ModelID: 802, PointName: "SoCRsvMin", Label: "Min Reserve %",
					DataType: "uint16", CurrentValue: IntValue(20), Units: "%WHRtg",
				},
			},
		},
		Status: &SystemStatus{
			MQTTConnected: true,
			Devices:       []DeviceStatus{{Name: "INV0001", Connected: true}},
		},
	}
}

func (c *TestGatewayClient) Writes() []WriteRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]WriteRequest(nil), c.writes...)
}

func (c *TestGatewayClient) Requests() int64 {
	return c.requests.Load()
}

func (c *TestGatewayClient) SetControlPoints(points []ControlPointState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ControlPoints = &ControlPointsResponse{Points: points}
}

func (c *TestGatewayClient) SetErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Err = err
}

func (c *TestGatewayClient) read() error {
	c.requests.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Err
}

func (c *TestGatewayClient) GetUnits(ctx context.Context) (*UnitList, error) {
	if err := c.read(); err != nil {
		return nil, err
	}
	return c.Units, nil
}

func (c *TestGatewayClient) GetDevices(ctx context.Context) (*DashboardDevices, error) {
	if err := c.read(); err != nil {
		return nil, err
	}
	return c.Devices, nil
}

func (c *TestGatewayClient) GetMetrics(ctx context.Context, tzOffsetMinutes int) (*DashboardMetrics, error) {
	if err := c.read(); err != nil {
		return nil, err
	}
	return c.Metrics, nil
}

func (c *TestGatewayClient) GetPowerFlow(ctx context.Context) (*PowerFlow, error) {
	if err := c.read(); err != nil {
		return nil, err
	}
	return c.PowerFlow, nil
}

func (c *TestGatewayClient) GetHistory(ctx context.Context, period string, tzOffsetMinutes int) (*HistoryResponse, error) {
	if c.HistoryGate != nil {
		c.HistoryGate(period)
	}
	if err := c.read(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if h, ok := c.History[period]; ok {
		return h, nil
	}
	return &HistoryResponse{Period: period}, nil
}

func (c *TestGatewayClient) GetControlPoints(ctx context.Context) (*ControlPointsResponse, error) {
	if err := c.read(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	points := append([]ControlPointState(nil), c.ControlPoints.Points...)
	return &ControlPointsResponse{Points: points}, nil
}

func (c *TestGatewayClient) WriteControlPoint(ctx context.Context, req WriteRequest) (*WriteResponse, error) {
	c.mu.Lock()
	c.writes = append(c.writes, req)
	c.mu.Unlock()
	if c.WriteGate != nil {
		c.WriteGate(req)
	}
	if err := c.read(); err != nil {
		return nil, err
	}
	if c.WriteReply != nil {
		return c.WriteReply, nil
	}
	return &WriteResponse{Success: true, Message: "Successfully set " + req.PointName + " to " + req.Value}, nil
}

func (c *TestGatewayClient) GetStatus(ctx context.Context) (*SystemStatus, error) {
	if err := c.read(); err != nil {
		return nil, err
	}
	return c.Status, nil
}

// TestDashboardStream lets tests push dashboard states by hand.
type TestDashboardStream struct {
	mu       sync.Mutex
	handlers *StreamHandlers
	ready    chan struct{}
	once     sync.Once
}

func CreateTestDashboardStream() *TestDashboardStream {
	return &TestDashboardStream{ready: make(chan struct{})}
}

func (s *TestDashboardStream) Subscribe(ctx context.Context, handlers StreamHandlers) error {
	s.mu.Lock()
	s.handlers = &handlers
	s.mu.Unlock()
	if handlers.OnConnect != nil {
		handlers.OnConnect()
	}
	s.once.Do(func() { close(s.ready) })
	<-ctx.Done()
	return ctx.Err()
}

// Ready is closed once a subscriber is attached.
func (s *TestDashboardStream) Ready() <-chan struct{} {
	return s.ready
}

func (s *TestDashboardStream) Push(state DashboardState) error {
	s.mu.Lock()
	h := s.handlers
	s.mu.Unlock()
	if h == nil {
		return errors.New("no subscriber")
	}
	h.OnState(state)
	return nil
}

func (s *TestDashboardStream) Drop(err error) error {
	s.mu.Lock()
	h := s.handlers
	s.mu.Unlock()
	if h == nil {
		return errors.New("no subscriber")
	}
	h.OnDisconnect(err)
	return nil
}

func (s *TestDashboardStream) Reconnect() error {
	s.mu.Lock()
	h := s.handlers
	s.mu.Unlock()
	if h == nil {
		return errors.New("no subscriber")
	}
	h.OnConnect()
	return nil
}

// ensure interface compliance
var _ GatewayReader = (*TestGatewayClient)(nil)
var _ DashboardStream = (*TestDashboardStream)(nil)
