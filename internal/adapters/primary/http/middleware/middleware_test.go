package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type observed struct {
	method, route string
	status        int
}

type recordingObserver struct{ calls []observed }

func (r *recordingObserver) ObserveHTTP(method, route string, status int, _ time.Duration) {
	r.calls = append(r.calls, observed{method, route, status})
}

func newRouter(o HTTPObserver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Logging(), Metrics(o))
	r.GET("/deletions/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": RequestIDFrom(c)})
	})
	return r
}

func TestRequestID(t *testing.T) {
	r := newRouter(&recordingObserver{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/deletions/1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/deletions/1", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
	assert.JSONEq(t, `{"request_id":"req-42"}`, w.Body.String())
}

func TestRequestID_ReplacesUnsafeIDs(t *testing.T) {
	r := newRouter(&recordingObserver{})

	for _, id := range []string{
		"req 42",
		"req-42\nlevel=error",
		strings.Repeat("a", maxRequestIDLength+1),
	} {
		req := httptest.NewRequest(http.MethodGet, "/deletions/1", nil)
		req.Header.Set("X-Request-ID", id)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		got := w.Header().Get("X-Request-ID")
		assert.NotEqual(t, id, got)
		_, err := uuid.Parse(got)
		assert.NoError(t, err, got)
	}
}

func TestLogEntry(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.Header.Set("X-User-ID", "alice")
	c.Set("request_id", "req-7")

	entry := LogEntry(c)
	assert.Equal(t, "req-7", entry.Data["request_id"])
	assert.Equal(t, "alice", entry.Data["user_id"])
}

func TestMetrics_UsesRouteTemplate(t *testing.T) {
	o := &recordingObserver{}
	r := newRouter(o)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/deletions/abc", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, []observed{
		{http.MethodGet, "/deletions/:id", http.StatusOK},
		{http.MethodGet, "unmatched", http.StatusNotFound},
	}, o.calls)
}
