package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/domain"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestLifecycleMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewLifecycleMetrics(registry)

	m.SubscriptionCreated()
	m.ProofSubmitted()
	m.ProofSubmitted()
	m.ProofDecided(domain.DecisionApproved)
	m.StatusTransition(domain.StatusPendente, domain.StatusInativa)
	m.LifecycleError(domain.KindDuplicatePendingProof)

	if got := testutil.ToFloat64(m.subscriptionsCreated); got != 1 {
		t.Errorf("subscriptions created = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.proofsSubmitted); got != 2 {
		t.Errorf("proofs submitted = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.proofsDecided.WithLabelValues("APPROVED")); got != 1 {
		t.Errorf("approved = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.statusTransitions.WithLabelValues("PENDENTE", "INATIVA")); got != 1 {
		t.Errorf("transitions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.lifecycleErrors.WithLabelValues("DuplicatePendingProofError")); got != 1 {
		t.Errorf("errors = %v, want 1", got)
	}
}

func TestSamplerUpdatesGauges(t *testing.T) {
	registry := prometheus.NewRegistry()
	s := NewSampler(logger.NewNop())

	value := 3.0
	s.Gauge(registry, "subscription_locks_active", "Active locks", func() float64 { return value })
	s.Sample()
	if got := testutil.ToFloat64(s.sources[0].gauge); got != 3 {
		t.Errorf("gauge = %v, want 3", got)
	}

	value = 0
	s.Sample()
	if got := testutil.ToFloat64(s.sources[0].gauge); got != 0 {
		t.Errorf("gauge after drop = %v, want 0", got)
	}

	s.Start(time.Hour)
	s.Stop()
	s.Stop()
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	registry := prometheus.NewRegistry()
	m := NewHTTPMetrics(registry)

	router := gin.New()
	router.Use(m.Middleware())
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	}

	if got := testutil.ToFloat64(m.requests.WithLabelValues("GET", "/health", "200")); got != 3 {
		t.Errorf("requests = %v, want 3", got)
	}
}
