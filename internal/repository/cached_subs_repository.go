package repository

import (
	"context"

	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/domain"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/pkg/logger"
	"github.com/google/uuid"
)

// CachedSubscriptionRepository реализует SubscriptionRepository с кешированием по ID.
// Списки всегда идут в основное хранилище.
type CachedSubscriptionRepository struct {
	repo  SubscriptionRepository
	cache SubscriptionCache
	log   *logger.Logger
}

// NewCachedSubscriptionRepository создает новый репозиторий с кешированием
func NewCachedSubscriptionRepository(
	repo SubscriptionRepository,
	cache SubscriptionCache,
	log *logger.Logger,
) SubscriptionRepository {
	return &CachedSubscriptionRepository{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// Create сохраняет подписку в БД и кеширует ее
func (r *CachedSubscriptionRepository) Create(ctx context.Context, sub *domain.Subscription) error {
	if err := r.repo.Create(ctx, sub); err != nil {
		return err
	}

	if err := r.cache.CacheSubscription(ctx, sub); err != nil {
		r.log.Warnw("Failed to cache subscription after creation", "error", err, "subscriptionID", sub.ID)
	}
	return nil
}

// GetByID получает подписку по ID (сначала из кеша, потом из БД)
func (r *CachedSubscriptionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Subscription, error) {
	cachedSub, err := r.cache.GetCachedSubscription(ctx, id)
	if err != nil {
		r.log.Warnw("Error getting subscription from cache", "error", err, "subscriptionID", id)
	}
	if cachedSub != nil {
		return cachedSub, nil
	}

	sub, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := r.cache.CacheSubscription(ctx, sub); err != nil {
		r.log.Warnw("Failed to cache subscription after fetching", "error", err, "subscriptionID", id)
	}
	return sub, nil
}

// Update обновляет подписку в БД; кеш сбрасывается, чтобы не отдать устаревшее значение
func (r *CachedSubscriptionRepository) Update(ctx context.Context, sub *domain.Subscription) error {
	if err := r.repo.Update(ctx, sub); err != nil {
		if delErr := r.cache.DeleteCachedSubscription(ctx, sub.ID); delErr != nil {
			r.log.Warnw("Failed to drop subscription from cache", "error", delErr, "subscriptionID", sub.ID)
		}
		return err
	}

	if err := r.cache.CacheSubscription(ctx, sub); err != nil {
		r.log.Warnw("Failed to update subscription in cache", "error", err, "subscriptionID", sub.ID)
		if delErr := r.cache.DeleteCachedSubscription(ctx, sub.ID); delErr != nil {
			r.log.Warnw("Failed to drop subscription from cache", "error", delErr, "subscriptionID", sub.ID)
		}
	}
	return nil
}

// List проксирует запрос в основное хранилище
func (r *CachedSubscriptionRepository) List(ctx context.Context, filter domain.SubscriptionFilter) ([]domain.Subscription, int, error) {
	return r.repo.List(ctx, filter)
}

// CountByPlan проксирует запрос в основное хранилище
func (r *CachedSubscriptionRepository) CountByPlan(ctx context.Context, planID uuid.UUID) (int, error) {
	return r.repo.CountByPlan(ctx, planID)
}
