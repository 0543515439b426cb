package domain

import "fmt"

type SensorUpdateEventMixIn struct {
	Id string
}

type SensorUpdateEvent interface {
	SensorUpdateEvent() string
	SensorId() string
}

func (e SensorUpdateEventMixIn) SensorUpdateEvent() string {
	return fmt.Sprintf("%T", e)
}

func (e SensorUpdateEventMixIn) SensorId() string {
	return e.Id
}

type FloatSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value    float64
	Decimals uint
}

type BinarySensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}

type TextSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value string
}

type BridgeStateUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}

// ensure interface compliance
var _ SensorUpdateEvent = FloatSensorUpdateEvent{}
var _ SensorUpdateEvent = BinarySensorUpdateEvent{}
var _ SensorUpdateEvent = TextSensorUpdateEvent{}
var _ SensorUpdateEvent = BridgeStateUpdateEvent{}

// JSONUpdateEvent carries a structured payload published as JSON on its own topic.
type JSONUpdateEvent struct {
	SensorUpdateEventMixIn
	Value any
}

var _ SensorUpdateEvent = JSONUpdateEvent{}
