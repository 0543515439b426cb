package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHTTPGatewayClient(t *testing.T) {
	t.Run("History", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, PathHistory, r.URL.Path)
			assert.Equal(t, "7days", r.URL.Query().Get("period"))
			assert.Equal(t, "-120", r.URL.Query().Get("timezone_offset"))
			json.NewEncoder(w).Encode(map[string]any{
				"period": "7days",
				"data": []map[string]any{
					{"timestamp": "2026-10-10T00:00:00Z", "solar": 10.5, "battery": 1, "grid": -2, "consumption": 7},
				},
			})
		}))
		defer ts.Close()

		c, err := CreateHTTPGatewayClient(ts.URL+"/", time.Second, zap.NewNop())
		require.NoError(t, err)

		h, err := c.GetHistory(context.Background(), "7days", -120)
		require.NoError(t, err)
		assert.Equal(t, "7days", h.Period)
		require.Len(t, h.Data, 1)
		assert.Equal(t, 10.5, h.Data[0].Solar)
	})

	t.Run("Write", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, PathControlWrite, r.URL.Path)
			require.Equal(t, http.MethodPost, r.Method)
			var req WriteRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, WriteRequest{SerialNumber: "INV0001", ModelID: 64200, PointName: "SysMd", Value: "2"}, req)
			json.NewEncoder(w).Encode(WriteResponse{Success: true, Message: "Successfully set SysMd to 2"})
		}))
		defer ts.Close()

		c, err := CreateHTTPGatewayClient(ts.URL, time.Second, zap.NewNop())
		require.NoError(t, err)

		res, err := c.WriteControlPoint(context.Background(), WriteRequest{SerialNumber: "INV0001", ModelID: 64200, PointName: "SysMd", Value: "2"})
		require.NoError(t, err)
		assert.True(t, res.Success)
	})

	t.Run("Rejected write carries the gateway message", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]any{"message": "Value must be a valid integer"})
		}))
		defer ts.Close()

		c, err := CreateHTTPGatewayClient(ts.URL, time.Second, zap.NewNop())
		require.NoError(t, err)

		_, err = c.WriteControlPoint(context.Background(), WriteRequest{Value: "x"})
		var se *StatusError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, http.StatusBadRequest, se.StatusCode)
		assert.Equal(t, "Value must be a valid integer", se.Message)
	})

	t.Run("Control points with mixed value encodings", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"points":[
				{"serial_number":"A","model_id":64200,"point_name":"SysMd","label":"l","description":"d","data_type":"enum16","current_value":{"Int":2}},
				{"serial_number":"B","model_id":802,"point_name":"SoCRsvMin","label":"l","description":"d","data_type":"uint16","current_value":15.0},
				{"serial_number":"C","model_id":802,"point_name":"SetOp","label":"l","description":"d","data_type":"enum16","current_value":"CONNECT"},
				{"serial_number":"D","model_id":802,"point_name":"SetOp","label":"l","description":"d","data_type":"enum16","current_value":null}
			]}`))
		}))
		defer ts.Close()

		c, err := CreateHTTPGatewayClient(ts.URL, time.Second, zap.NewNop())
		require.NoError(t, err)

		res, err := c.GetControlPoints(context.Background())
		require.NoError(t, err)
		require.Len(t, res.Points, 4)
		assert.Equal(t, IntValue(2), res.Points[0].CurrentValue)
		assert.Equal(t, FloatValue(15), res.Points[1].CurrentValue)
		assert.Equal(t, StringValue("CONNECT"), res.Points[2].CurrentValue)
		assert.True(t, res.Points[3].CurrentValue.IsNone())
	})

	t.Run("Invalid base url", func(t *testing.T) {
		_, err := CreateHTTPGatewayClient("ftp://gateway", time.Second, zap.NewNop())
		assert.Error(t, err)
	})
}

func TestPointValueCode(t *testing.T) {
	assert := assert.New(t)

	code, ok := IntValue(3).Code()
	assert.True(ok)
	assert.EqualValues(3, code)

	code, ok = FloatValue(4).Code()
	assert.True(ok)
	assert.EqualValues(4, code)

	_, ok = FloatValue(4.5).Code()
	assert.False(ok)

	code, ok = StringValue("7").Code()
	assert.True(ok)
	assert.EqualValues(7, code)

	_, ok = StringValue("ON").Code()
	assert.False(ok)

	assert.Equal("1.25", FloatValue(1.25).String())
	assert.Equal("", PointValue{}.String())
}

func TestDecodeDashboardState(t *testing.T) {
	state, err := DecodeDashboardState([]byte(`{"timestamp":"2026-10-17T10:00:00Z","power_flow":{"solar_power":2500,"grid_power":-100,"battery_power":300,"consumption_power":2100}}`))
	require.NoError(t, err)
	assert.Equal(t, 2500.0, state.PowerFlow.SolarPower)

	ts, err := ParseTimestamp(state.Timestamp)
	require.NoError(t, err)
	assert.Equal(t, int64(1792231200000), ts.UnixMilli())
}
