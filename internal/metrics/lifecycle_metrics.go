package metrics

import (
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// LifecycleMetrics счетчики жизненного цикла подписок
type LifecycleMetrics struct {
	subscriptionsCreated prometheus.Counter
	proofsSubmitted      prometheus.Counter
	proofsDecided        *prometheus.CounterVec
	statusTransitions    *prometheus.CounterVec
	lifecycleErrors      *prometheus.CounterVec
}

// NewLifecycleMetrics создает и регистрирует метрики жизненного цикла
func NewLifecycleMetrics(registry prometheus.Registerer) *LifecycleMetrics {
	factory := promauto.With(registry)

	return &LifecycleMetrics{
		subscriptionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "subscriptions_created_total",
			Help: "The total number of created subscriptions",
		}),
		proofsSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "payment_proofs_submitted_total",
			Help: "The total number of submitted payment proofs",
		}),
		proofsDecided: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_proofs_decided_total",
			Help: "The total number of payment proof decisions",
		}, []string{"decision"}),
		statusTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "subscription_status_transitions_total",
			Help: "Subscription status changes by previous and new status",
		}, []string{"from", "to"}),
		lifecycleErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "subscription_lifecycle_errors_total",
			Help: "Rejected lifecycle operations by error kind",
		}, []string{"kind"}),
	}
}

// SubscriptionCreated увеличивает счетчик созданных подписок
func (m *LifecycleMetrics) SubscriptionCreated() {
	m.subscriptionsCreated.Inc()
}

// ProofSubmitted увеличивает счетчик отправленных чеков
func (m *LifecycleMetrics) ProofSubmitted() {
	m.proofsSubmitted.Inc()
}

// ProofDecided учитывает решение тренера
func (m *LifecycleMetrics) ProofDecided(decision domain.Decision) {
	m.proofsDecided.WithLabelValues(string(decision)).Inc()
}

// StatusTransition учитывает смену статуса подписки
func (m *LifecycleMetrics) StatusTransition(from, to domain.SubscriptionStatus) {
	if from == "" {
		from = "NONE"
	}
	m.statusTransitions.WithLabelValues(string(from), string(to)).Inc()
}

// LifecycleError учитывает отклоненную операцию
func (m *LifecycleMetrics) LifecycleError(kind domain.ErrorKind) {
	m.lifecycleErrors.WithLabelValues(string(kind)).Inc()
}
