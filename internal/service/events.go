package service

import (
	"context"

	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/domain"
)

// EventPublisher публикует события жизненного цикла подписок
type EventPublisher interface {
	Publish(ctx context.Context, event domain.LifecycleEvent) error
}

// LifecycleMetrics счетчики операций оркестратора
type LifecycleMetrics interface {
	SubscriptionCreated()
	ProofSubmitted()
	ProofDecided(decision domain.Decision)
	StatusTransition(from, to domain.SubscriptionStatus)
	LifecycleError(kind domain.ErrorKind)
}

// NoopPublisher ничего не публикует. Используется, когда Kafka выключена.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, domain.LifecycleEvent) error { return nil }

type noopMetrics struct{}

func (noopMetrics) SubscriptionCreated() {}
func (noopMetrics) ProofSubmitted() {}
func (noopMetrics) ProofDecided(domain.Decision) {}
func (noopMetrics) StatusTransition(from, to domain.SubscriptionStatus) {}
func (noopMetrics) LifecycleError(domain.ErrorKind) {}
