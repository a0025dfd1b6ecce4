package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"momentum-allocator/internal/api/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type httpCall struct{ route, method, status string }

type recordingObserver struct {
	mu    sync.Mutex
	calls []httpCall
}

func (r *recordingObserver) ObserveHTTP(route, method, status string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, httpCall{route, method, status})
}

func newRouter(obs HTTPObserver) *gin.Engine {
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:3000"}))
	r.Use(Logger(obs))
	r.Use(ErrorHandler())
	r.GET("/ok/:id", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDKey)) })
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	r.GET("/panic-err", func(c *gin.Context) { panic(assert.AnError) })
	return r
}

func TestLoggerAssignsRequestID(t *testing.T) {
	obs := &recordingObserver{}
	r := newRouter(obs)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok/1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	id := rec.Header().Get(RequestIDHeader)
	assert.Len(t, id, 36)
	assert.Equal(t, id, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/ok/2", nil)
	req.Header.Set(RequestIDHeader, "abc123")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "abc123", rec.Header().Get(RequestIDHeader))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, []httpCall{
		{"/ok/:id", "GET", "200"},
		{"/ok/:id", "GET", "200"},
		{"unmatched", "GET", "404"},
	}, obs.calls)
}

func TestErrorHandlerRecovers(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/panic", "boom"},
		{"/panic-err", "An unexpected error occurred"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newRouter(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.Equal(t, http.StatusInternalServerError, rec.Code)

			var body models.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
			assert.Equal(t, tt.want, body.Error.Message)
		})
	}
}

func TestCORS(t *testing.T) {
	r := newRouter(nil)

	pre := httptest.NewRequest(http.MethodOptions, "/ok/1", nil)
	pre.Header.Set("Origin", "http://localhost:3000")
	pre.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, pre)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	get := httptest.NewRequest(http.MethodGet, "/ok/1", nil)
	get.Header.Set("Origin", "http://localhost:3000")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, get)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	other := httptest.NewRequest(http.MethodGet, "/ok/1", nil)
	other.Header.Set("Origin", "http://evil.test")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
