package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/r3labs/sse/v2"
	"go.uber.org/zap"
)

const DashboardEventName = "dashboard"

// StreamHandlers receives push-stream callbacks. Callbacks run on the transport
// goroutine; receivers must hand them over to their own loop.
type StreamHandlers struct {
	OnConnect    func()
	OnDisconnect func(err error)
	OnState      func(state DashboardState)
}

type DashboardStream interface {
	// Subscribe blocks until ctx is done or the transport gives up.
	Subscribe(ctx context.Context, handlers StreamHandlers) error
}

type SSEDashboardStream struct {
	url    string
	logger *zap.Logger
}

func CreateSSEDashboardStream(baseURL string, logger *zap.Logger) *SSEDashboardStream {
	return &SSEDashboardStream{
		url:    baseURL + PathStream,
		logger: logger,
	}
}

func (s *SSEDashboardStream) Subscribe(ctx context.Context, handlers StreamHandlers) error {
	client := sse.NewClient(s.url)
	client.OnConnect(func(_ *sse.Client) {
		if handlers.OnConnect != nil {
			handlers.OnConnect()
		}
	})
	client.OnDisconnect(func(_ *sse.Client) {
		if handlers.OnDisconnect != nil {
			handlers.OnDisconnect(errors.New("stream disconnected"))
		}
	})
	client.ReconnectNotify = func(err error, next time.Duration) {
		s.logger.Debug("stream reconnect", zap.Error(err), zap.Duration("next", next))
		if handlers.OnDisconnect != nil {
			handlers.OnDisconnect(err)
		}
	}

	return client.SubscribeRawWithContext(ctx, func(msg *sse.Event) {
		if msg == nil || string(msg.Event) != DashboardEventName || len(msg.Data) == 0 {
			return
		}
		state, err := DecodeDashboardState(msg.Data)
		if err != nil {
			s.logger.Warn("stream: could not decode dashboard event", zap.Error(err))
			return
		}
		if handlers.OnState != nil {
			handlers.OnState(*state)
		}
	})
}

func DecodeDashboardState(data []byte) (*DashboardState, error) {
	var state DashboardState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// ensure interface compliance
var _ DashboardStream = (*SSEDashboardStream)(nil)
