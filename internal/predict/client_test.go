package predict

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/caption.review/internal/httputil"
	"github.com/banshee-data/caption.review/internal/version"
)

func TestNewClient(t *testing.T) {
	c := NewClient(nil, "http://localhost:9090/")

	assert.NotNil(t, c.HTTPClient)
	assert.Equal(t, "http://localhost:9090", c.BaseURL, "BaseURL should drop the trailing slash")
}

func TestRecalculatePredictions_Success(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(http.StatusOK, `{"status":"queued"}`)
	c := NewClient(mock, "http://localhost:9090")

	err := c.RecalculatePredictions("video-1")
	require.NoError(t, err)
	require.Equal(t, 1, mock.RequestCount())

	req := mock.GetRequest(0)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/api/predictions/recalculate", req.URL.Path)
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.Equal(t, version.UserAgent(), req.Header.Get("User-Agent"))

	body, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	var payload map[string]string
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, "video-1", payload["video_id"])
}

func TestRecalculatePredictions_Accepted(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(http.StatusAccepted, "")
	c := NewClient(mock, "http://localhost:9090")

	assert.NoError(t, c.RecalculatePredictions("video-1"), "202 should be accepted")
}

func TestRecalculatePredictions_ServerError(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(http.StatusInternalServerError, "model training unavailable")
	c := NewClient(mock, "http://localhost:9090")

	err := c.RecalculatePredictions("video-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestRecalculatePredictions_NetworkError(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddErrorResponse(errors.New("connection refused"))
	c := NewClient(mock, "http://localhost:9090")

	assert.Error(t, c.RecalculatePredictions("video-1"))
}

func TestHealth(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(http.StatusOK, "ok")
	c := NewClient(mock, "http://localhost:9090")

	require.NoError(t, c.Health())

	req := mock.GetRequest(0)
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/healthz", req.URL.Path)
}

func TestHealth_Unavailable(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(http.StatusServiceUnavailable, "starting")
	c := NewClient(mock, "http://localhost:9090")

	assert.Error(t, c.Health(), "503 must surface as an error")
}
