package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/berfenger/sunspecmon/internal/core/domain"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	if s.gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	api := e.Group("/api")
	api.GET("/catalog", s.CatalogHandler)
	api.POST("/catalog/refresh", s.RefreshCatalogHandler)
	api.GET("/dashboard", s.DashboardHandler)
	api.POST("/dashboard/period", s.SelectPeriodHandler)
	api.POST("/dashboard/retry", s.RetryBootstrapHandler)
	api.GET("/controls", s.ControlsHandler)
	api.POST("/controls/stage", s.StageHandler)
	api.POST("/controls/confirmation", s.RequestConfirmationHandler)
	api.POST("/controls/cancel", s.CancelConfirmationHandler)
	api.POST("/controls/confirm", s.ConfirmHandler)
	api.GET("/status", s.StatusHandler)

	return e
}

type pointRequest struct {
	SerialNumber string `json:"serial_number"`
	ModelID      int    `json:"model_id"`
	PointName    string `json:"point_name"`
}

func (r pointRequest) key() domain.PointKey {
	return domain.PointKey{SerialNumber: r.SerialNumber, ModelID: r.ModelID, PointName: r.PointName}
}

type stageRequest struct {
	pointRequest
	Value string `json:"value"`
}

type confirmRequest struct {
	pointRequest
	ConfirmationID uuid.UUID `json:"confirmation_id"`
}

type periodRequest struct {
	Period string `json:"period"`
}

type catalogResponse struct {
	Entries []domain.CatalogEntry `json:"entries"`
	Stats   domain.CatalogStats   `json:"stats"`
}

type controlsResponse struct {
	Groups        []domain.ControlGroup `json:"groups"`
	Notifications []domain.Notification `json:"notifications"`
}

type statusResponse struct {
	Reachable bool   `json:"reachable"`
	LastError string `json:"last_error,omitempty"`
	Status    any    `json:"status"`
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.MasterHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

func (s *Server) CatalogHandler(c echo.Context) error {
	filter := domain.CatalogFilter{Search: c.QueryParam("search")}
	if m := c.QueryParam("model"); m != "" {
		model, err := strconv.Atoi(m)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "model must be an integer")
		}
		filter.Model = &model
	}
	resp, err := ask[domain.GetCatalogResponse](s, domain.GetCatalogRequest{Filter: filter})
	if err != nil {
		return err
	}
	entries := resp.Entries
	if entries == nil {
		entries = []domain.CatalogEntry{}
	}
	return c.JSON(http.StatusOK, catalogResponse{Entries: entries, Stats: resp.Stats})
}

func (s *Server) RefreshCatalogHandler(c echo.Context) error {
	resp, err := ask[domain.RefreshCatalogResponse](s, domain.RefreshCatalogRequest{})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp.Stats)
}

func (s *Server) DashboardHandler(c echo.Context) error {
	resp, err := ask[domain.GetDashboardResponse](s, domain.GetDashboardRequest{})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp.Snapshot)
}

func (s *Server) SelectPeriodHandler(c echo.Context) error {
	var req periodRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	period, err := domain.ParsePeriod(req.Period)
	if err != nil {
		return httpError(err)
	}
	resp, err := ask[domain.SelectPeriodResponse](s, domain.SelectPeriodRequest{Period: period})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, periodRequest{Period: string(resp.Period)})
}

func (s *Server) RetryBootstrapHandler(c echo.Context) error {
	if _, err := ask[domain.RetryBootstrapResponse](s, domain.RetryBootstrapRequest{}); err != nil {
		return err
	}
	return c.NoContent(http.StatusAccepted)
}

func (s *Server) ControlsHandler(c echo.Context) error {
	resp, err := ask[domain.GetControlsResponse](s, domain.GetControlsRequest{})
	if err != nil {
		return err
	}
	out := controlsResponse{Groups: resp.Groups, Notifications: resp.Notifications}
	if out.Groups == nil {
		out.Groups = []domain.ControlGroup{}
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) StageHandler(c echo.Context) error {
	var req stageRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	resp, err := ask[domain.StageControlResponse](s, domain.StageControlRequest{Key: req.key(), Value: req.Value})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp.View)
}

func (s *Server) RequestConfirmationHandler(c echo.Context) error {
	var req pointRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	resp, err := ask[domain.RequestConfirmationResponse](s, domain.RequestConfirmationRequest{Key: req.key()})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp.Confirmation)
}

func (s *Server) CancelConfirmationHandler(c echo.Context) error {
	var req pointRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	resp, err := ask[domain.CancelConfirmationResponse](s, domain.CancelConfirmationRequest{Key: req.key()})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp.View)
}

func (s *Server) ConfirmHandler(c echo.Context) error {
	var req confirmRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if _, err := ask[domain.ConfirmControlResponse](s, domain.ConfirmControlRequest{Key: req.key(), ConfirmationID: req.ConfirmationID}); err != nil {
		return err
	}
	return c.NoContent(http.StatusAccepted)
}

func (s *Server) StatusHandler(c echo.Context) error {
	resp, err := ask[domain.GetStatusResponse](s, domain.GetStatusRequest{})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, statusResponse{Reachable: resp.Reachable, LastError: resp.LastError, Status: resp.Status})
}

// ask sends msg to the master actor and unwraps the typed response.
func ask[T any](s *Server, msg any) (T, error) {
	var zero T
	res, err := s.rootContext.RequestFuture(s.masterActor, msg, s.timeout).Result()
	if err != nil {
		return zero, echo.NewHTTPError(http.StatusGatewayTimeout, err.Error())
	}
	if r, ok := res.(domain.ActorResponse); ok && r.HasResponseError() {
		return zero, httpError(r.GetResponseError())
	}
	typed, ok := res.(T)
	if !ok {
		return zero, echo.NewHTTPError(http.StatusInternalServerError, "unexpected response")
	}
	return typed, nil
}

func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, domain.ErrUnknownPoint):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrWriteInProgress),
		errors.Is(err, domain.ErrConfirmationPending),
		errors.Is(err, domain.ErrConfirmationMismatch),
		errors.Is(err, domain.ErrNothingToApply):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrWriteRejected),
		errors.Is(err, domain.ErrInvalidValue),
		errors.Is(err, domain.ErrUnknownPeriod):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotReady):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
}
