package logger

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, false)

	h := middleware.RequestID(StructuredLogger(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("tea"))
	})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/users", nil))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "Request completed", line["msg"])
	assert.Equal(t, "/users", line["path"])
	assert.Equal(t, float64(http.StatusTeapot), line["status"])
	assert.Equal(t, float64(3), line["bytes_written"])
	assert.NotEmpty(t, line["req_id"])
}

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, true).Debug("visible in development")
	assert.Contains(t, buf.String(), "visible in development")

	buf.Reset()
	newLogger(&buf, false).Debug("hidden in production")
	assert.Empty(t, buf.String())
}
