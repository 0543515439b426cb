package domain

import (
	"github.com/berfenger/sunspecmon/pkg/gateway"
	"github.com/google/uuid"
)

const (
	ACTOR_ID_MASTER       = "master"
	ACTOR_ID_GATEWAY      = "gateway"
	ACTOR_ID_STREAM       = "stream"
	ACTOR_ID_SYNCHRONIZER = "synchronizer"
	ACTOR_ID_CONTROLS     = "controls"
	ACTOR_ID_CATALOG      = "catalog"
	ACTOR_ID_STATUS       = "status"
	ACTOR_ID_MQTT         = "mqtt"
	ACTOR_ID_HA_DISCOVERY = "hadiscovery"
)

// Gateway adapter

type FetchUnitsRequest struct {
	ActorRequestMixIn
}

type FetchUnitsResponse struct {
	ActorResponseMixIn
	Units *gateway.UnitList
}

type FetchBootstrapRequest struct {
	ActorRequestMixIn
	Tag HistoryTag
}

type FetchHistoryRequest struct {
	ActorRequestMixIn
	Tag HistoryTag
}

type FetchControlPointsRequest struct {
	ActorRequestMixIn
}

type FetchControlPointsResponse struct {
	ActorResponseMixIn
	Points []gateway.ControlPointState
}

type WriteControlPointRequest struct {
	ActorRequestMixIn
	Key   PointKey
	Write gateway.WriteRequest
}

type WriteControlPointResponse struct {
	ActorResponseMixIn
	Key    PointKey
	Result *gateway.WriteResponse
}

type FetchStatusRequest struct {
	ActorRequestMixIn
}

type FetchStatusResponse struct {
	ActorResponseMixIn
	Status *gateway.SystemStatus
}

// Catalog

type GetCatalogRequest struct {
	ActorRequestMixIn
	Filter CatalogFilter
}

type GetCatalogResponse struct {
	ActorResponseMixIn
	Entries []CatalogEntry
	Stats   CatalogStats
}

type RefreshCatalogRequest struct {
	ActorRequestMixIn
}

type RefreshCatalogResponse struct {
	ActorResponseMixIn
	Stats CatalogStats
}

// Dashboard

type GetDashboardRequest struct {
	ActorRequestMixIn
}

type GetDashboardResponse struct {
	ActorResponseMixIn
	Snapshot DashboardSnapshot
}

type SelectPeriodRequest struct {
	ActorRequestMixIn
	Period Period
}

type SelectPeriodResponse struct {
	ActorResponseMixIn
	Period Period
}

type RetryBootstrapRequest struct {
	ActorRequestMixIn
}

type RetryBootstrapResponse struct {
	ActorResponseMixIn
}

// Controls

type GetControlsRequest struct {
	ActorRequestMixIn
}

type GetControlsResponse struct {
	ActorResponseMixIn
	Groups        []ControlGroup
	Notifications []Notification
}

type StageControlRequest struct {
	ActorRequestMixIn
	Key   PointKey
	Value string
}

type StageControlResponse struct {
	ActorResponseMixIn
	View ControlView
}

type RequestConfirmationRequest struct {
	ActorRequestMixIn
	Key PointKey
}

type RequestConfirmationResponse struct {
	ActorResponseMixIn
	Confirmation Confirmation
}

type CancelConfirmationRequest struct {
	ActorRequestMixIn
	Key PointKey
}

type CancelConfirmationResponse struct {
	ActorResponseMixIn
	View ControlView
}

type ConfirmControlRequest struct {
	ActorRequestMixIn
	Key            PointKey
	ConfirmationID uuid.UUID
}

type ConfirmControlResponse struct {
	ActorResponseMixIn
}

// Status

type GetStatusRequest struct {
	ActorRequestMixIn
}

type GetStatusResponse struct {
	ActorResponseMixIn
	Status    *gateway.SystemStatus
	Reachable bool
	LastError string
}

// MQTT

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishSensorUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  SensorUpdateEvent
}

type PublishSensorUpdateResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors []GenericSensor
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}

// Health

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}

// MasterHealthResponse aggregates the health of every supervised child.
type MasterHealthResponse struct {
	ActorHealthResponse
	Children map[string]ActorHealthResponse
}
