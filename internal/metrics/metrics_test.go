package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordQuery(t *testing.T) {
	m := New()
	m.RecordQuery(OutcomeAnswered, time.Millisecond, time.Millisecond, 4)
	m.RecordQuery(OutcomeNoMatch, time.Millisecond, 0, 0)
	m.RecordQueryError()

	if got := testutil.ToFloat64(m.queriesTotal.WithLabelValues(OutcomeAnswered)); got != 1 {
		t.Errorf("answered = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.queriesTotal.WithLabelValues(OutcomeError)); got != 1 {
		t.Errorf("error = %v, want 1", got)
	}
}

func TestRecordRebuild(t *testing.T) {
	m := New()
	m.RecordRebuild(nil, 3, 42)
	m.RecordRebuild(errors.New("boom"), 0, 0)

	if got := testutil.ToFloat64(m.snapshotDocuments); got != 3 {
		t.Errorf("documents = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.snapshotVocab); got != 42 {
		t.Errorf("vocabulary = %v, want 42", got)
	}
	if got := testutil.ToFloat64(m.rebuildsTotal.WithLabelValues(OutcomeFailed)); got != 1 {
		t.Errorf("failed rebuilds = %v, want 1", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordQuery(OutcomeAnswered, 0, 0, 0)
	m.RecordQueryError()
	m.RecordRebuild(nil, 1, 1)
	m.RecordRateLimited()
}

func TestHandlerAndMiddleware(t *testing.T) {
	m := New()
	h := m.Middleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, `kotae_http_requests_total{method="GET",path="/x",status="418"} 1`) {
		t.Errorf("metrics output missing request counter:\n%s", body)
	}
}
