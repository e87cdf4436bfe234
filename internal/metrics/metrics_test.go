package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dms-object-service/internal/core/domain"
)

func TestLifecycleCounters(t *testing.T) {
	m := New()

	m.DeletionCreated(3)
	m.DeletionCreated(2)
	m.DeletionReverted(2)
	m.DeletionPurged(3)
	m.HistoryRecorded(domain.RelationContentCopy)
	m.MutationRejected(domain.OperationDelete)
	m.MutationRejected(domain.OperationDelete)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.DeletionsTotal.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DeletionsTotal.WithLabelValues("reverted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DeletionsTotal.WithLabelValues("purged")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.DeletedEntities))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RevertedEntities))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.PurgedEntities))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HistoryEntries.WithLabelValues("CONTENT_COPY")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RejectedMutations.WithLabelValues("DELETE")))
}

func TestIndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.DeletionCreated(1)

	assert.Equal(t, 1.0, testutil.ToFloat64(a.DeletedEntities))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.DeletedEntities))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveHTTP(http.MethodPost, "/api/v1/dms/deletions", http.StatusCreated, 25*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `dms_http_requests_total{method="POST",route="/api/v1/dms/deletions",status="201"} 1`))
	assert.Contains(t, body, "dms_http_request_duration_seconds_bucket")
	assert.Contains(t, body, "go_goroutines")
}
