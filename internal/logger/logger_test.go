package logger

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareLogsRequest(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { Init("info") })

	h := middleware.RequestID(Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/cart?x=1", nil))

	out := buf.String()
	assert.Contains(t, out, "Client error")
	assert.Contains(t, out, "status=418")
	assert.Contains(t, out, "path=\"/api/v1/cart?x=1\"")
	assert.Contains(t, out, "request_id=")
}

func TestInitFallsBackToInfo(t *testing.T) {
	Init("loud")
	assert.Equal(t, "info", Logger.GetLevel().String())

	Init("debug")
	assert.Equal(t, "debug", Logger.GetLevel().String())
	Init("info")
}
