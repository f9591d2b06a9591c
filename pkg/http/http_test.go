package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientGetBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "3mo", r.URL.Query().Get("range"))
		assert.Equal(t, "TradeCore/1.0", r.Header.Get("User-Agent"))
		if strings.HasSuffix(r.URL.Path, "/missing") {
			http.Error(w, "no such ticker", http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient(WithHTTPClient(srv.Client()))
	body, err := c.GetBytes(context.Background(), srv.URL+"/chart/AAPL", map[string][]string{"range": {"3mo"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))

	_, err = c.GetBytes(context.Background(), srv.URL+"/chart/missing", map[string][]string{"range": {"3mo"}})
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusNotFound))
	assert.Contains(t, err.Error(), "no such ticker")
}

func TestClientSendAndParseJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		_ = json.NewEncoder(w).Encode(map[string]string{"echo": in["ticker"]})
	}))
	defer srv.Close()

	var out map[string]string
	err := NewClient().SendAndParse(context.Background(), &RequestOptions{
		Method: MethodPost,
		URL:    srv.URL,
		Body:   map[string]string{"ticker": "AAPL"},
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", out["echo"])
}

type probeRequest struct {
	Ticker string `json:"ticker" validate:"required,max=5"`
	Limit  int    `json:"limit" default:"10" validate:"gte=1,lte=100"`
}

type probeHandler struct{}

func (probeHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/probe", func(c echo.Context) error {
		var req probeRequest
		if errs := ReadAndValidateRequest(c, &req); errs != nil {
			return BadRequestResponse(c, errs)
		}
		return SuccessResponse(c, req)
	})
	e.GET("/missing", func(c echo.Context) error {
		return AppErrorResponse(c, NotFoundError("ticker not tracked").WithError(errors.New("x")))
	})
	e.GET("/panic", func(echo.Context) error { panic("boom") })
}

func newTestServer() *Server {
	reg := prometheus.NewRegistry()
	return NewServer([]ServerOption{WithMetrics(reg, reg)}, probeHandler{})
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestServerValidationAndDefaults(t *testing.T) {
	e := newTestServer().Echo()

	rec := do(e, http.MethodPost, "/probe", `{"ticker":"AAPL"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var ok struct {
		Status int          `json:"status"`
		Data   probeRequest `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ok))
	assert.Equal(t, 200, ok.Status)
	assert.Equal(t, probeRequest{Ticker: "AAPL", Limit: 10}, ok.Data)

	rec = do(e, http.MethodPost, "/probe", `{"ticker":"TOOLONG","limit":500}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var bad struct {
		Data []ValidationError `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bad))
	require.Len(t, bad.Data, 2)
	assert.Equal(t, "ERR_MAX", bad.Data[0].Code)
	assert.Equal(t, "ticker", bad.Data[0].Field)
	assert.Equal(t, "ERR_LTE", bad.Data[1].Code)
}

func TestServerErrorsAndMetrics(t *testing.T) {
	e := newTestServer().Echo()

	rec := do(e, http.MethodGet, "/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_NOT_FOUND")

	rec = do(e, http.MethodGet, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = do(e, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `tradecore_http_requests_total{method="GET",route="/missing",status="404"} 1`)
}
