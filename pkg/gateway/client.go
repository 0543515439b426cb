package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	PathPoints        = "/api/v1/points"
	PathDevices       = "/api/v1/dashboard/devices"
	PathMetrics       = "/api/v1/dashboard/metrics"
	PathPowerFlow     = "/api/v1/dashboard/power-flow"
	PathHistory       = "/api/v1/dashboard/history"
	PathStream        = "/api/v1/dashboard/stream"
	PathControlPoints = "/api/v1/controls/points"
	PathControlWrite  = "/api/v1/controls/write"
	PathStatus        = "/api/v1/settings/status"
)

// GatewayReader is the REST surface of the gateway.
type GatewayReader interface {
	GetUnits(ctx context.Context) (*UnitList, error)
	GetDevices(ctx context.Context) (*DashboardDevices, error)
	GetMetrics(ctx context.Context, tzOffsetMinutes int) (*DashboardMetrics, error)
	GetPowerFlow(ctx context.Context) (*PowerFlow, error)
	GetHistory(ctx context.Context, period string, tzOffsetMinutes int) (*HistoryResponse, error)
	GetControlPoints(ctx context.Context) (*ControlPointsResponse, error)
	WriteControlPoint(ctx context.Context, req WriteRequest) (*WriteResponse, error)
	GetStatus(ctx context.Context) (*SystemStatus, error)
}

// StatusError is returned when the gateway answers with a non 2xx status.
type StatusError struct {
	Path       string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("gateway: %s returned %d: %s", e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("gateway: %s returned %d", e.Path, e.StatusCode)
}

type HTTPGatewayClient struct {
	client  *http.Client
	baseURL *url.URL
	logger  *zap.Logger
}

func CreateHTTPGatewayClient(baseURL string, timeout time.Duration, logger *zap.Logger) (*HTTPGatewayClient, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.New("gateway: base url must be http or https")
	}
	return &HTTPGatewayClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: u,
		logger:  logger,
	}, nil
}

func (c *HTTPGatewayClient) BaseURL() string {
	return c.baseURL.String()
}

func (c *HTTPGatewayClient) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = u.Path + path
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *HTTPGatewayClient) GetUnits(ctx context.Context) (*UnitList, error) {
	var res UnitList
	if err := c.getJSON(ctx, PathPoints, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPGatewayClient) GetDevices(ctx context.Context) (*DashboardDevices, error) {
	var res DashboardDevices
	if err := c.getJSON(ctx, PathDevices, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPGatewayClient) GetMetrics(ctx context.Context, tzOffsetMinutes int) (*DashboardMetrics, error) {
	var res DashboardMetrics
	q := url.Values{}
	q.Set("timezone_offset", strconv.Itoa(tzOffsetMinutes))
	if err := c.getJSON(ctx, PathMetrics, q, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPGatewayClient) GetPowerFlow(ctx context.Context) (*PowerFlow, error) {
	var res PowerFlow
	if err := c.getJSON(ctx, PathPowerFlow, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPGatewayClient) GetHistory(ctx context.Context, period string, tzOffsetMinutes int) (*HistoryResponse, error) {
	var res HistoryResponse
	q := url.Values{}
	q.Set("period", period)
	q.Set("timezone_offset", strconv.Itoa(tzOffsetMinutes))
	if err := c.getJSON(ctx, PathHistory, q, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPGatewayClient) GetControlPoints(ctx context.Context) (*ControlPointsResponse, error) {
	var res ControlPointsResponse
	if err := c.getJSON(ctx, PathControlPoints, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// WriteControlPoint posts a write. A rejected write (non 2xx) still decodes the
// gateway message into the returned error.
func (c *HTTPGatewayClient) WriteControlPoint(ctx context.Context, wr WriteRequest) (*WriteResponse, error) {
	body, err := json.Marshal(wr)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(PathControlWrite, nil), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	var res WriteResponse
	if err := c.do(req, PathControlWrite, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPGatewayClient) GetStatus(ctx context.Context) (*SystemStatus, error) {
	var res SystemStatus
	if err := c.getJSON(ctx, PathStatus, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPGatewayClient) getJSON(ctx context.Context, path string, query url.Values, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, query), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, path, dest)
}

func (c *HTTPGatewayClient) do(req *http.Request, path string, dest any) error {
	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if c.logger != nil {
		c.logger.Debug("gateway request", zap.String("method", req.Method), zap.String("path", path),
			zap.Int("status", resp.StatusCode), zap.Duration("took", time.Since(start)))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var msg struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(body, &msg)
		return &StatusError{Path: path, StatusCode: resp.StatusCode, Message: msg.Message}
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("gateway: decode %s: %w", path, err)
	}
	return nil
}

// ensure interface compliance
var _ GatewayReader = (*HTTPGatewayClient)(nil)
