package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"qualitygate/internal/logging"
)

func TestChainAppliesCORSHeadersForAllowedOrigin(t *testing.T) {
	c := New(Dependencies{Log: logging.NewTestLogger(), AllowedOrigins: []string{"http://localhost:3000"}})
	handler := c.Apply(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/tools", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestChainOmitsCORSHeaderForDisallowedOrigin(t *testing.T) {
	c := New(Dependencies{Log: logging.NewTestLogger(), AllowedOrigins: []string{"http://localhost:3000"}})
	handler := c.Apply(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/tools", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestChainHandlesPreflight(t *testing.T) {
	c := New(Dependencies{Log: logging.NewTestLogger()})
	handler := c.Apply(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached for OPTIONS preflight")
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/tools", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}
