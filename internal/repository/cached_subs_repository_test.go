package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/domain"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/pkg/logger"
	"github.com/google/uuid"
)

type fakeCache struct {
	items map[uuid.UUID]domain.Subscription
	hits  int
	fail  bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{items: make(map[uuid.UUID]domain.Subscription)}
}

func (c *fakeCache) CacheSubscription(ctx context.Context, sub *domain.Subscription) error {
	if c.fail {
		return errors.New("cache unavailable")
	}
	c.items[sub.ID] = *sub
	return nil
}

func (c *fakeCache) GetCachedSubscription(ctx context.Context, id uuid.UUID) (*domain.Subscription, error) {
	if c.fail {
		return nil, errors.New("cache unavailable")
	}
	sub, ok := c.items[id]
	if !ok {
		return nil, nil
	}
	c.hits++
	return &sub, nil
}

func (c *fakeCache) DeleteCachedSubscription(ctx context.Context, id uuid.UUID) error {
	delete(c.items, id)
	return nil
}

func TestCachedSubscriptionRepository(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cache := newFakeCache()
	repo := NewCachedSubscriptionRepository(f.store.Subscriptions, cache, logger.NewNop())

	sub := domain.NewSubscription(f.student.ID, f.plan.InstallmentPlans[0], 12, time.Now(), time.Now())
	sub.Status = domain.StatusPendente
	if err := repo.Create(ctx, sub); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, ok := cache.items[sub.ID]; !ok {
		t.Fatal("subscription not cached after create")
	}

	if _, err := repo.GetByID(ctx, sub.ID); err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if cache.hits != 1 {
		t.Errorf("cache hits = %d, want 1", cache.hits)
	}

	sub.Status = domain.StatusPendenteAprovacao
	if err := repo.Update(ctx, sub); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ := repo.GetByID(ctx, sub.ID)
	if got.Status != domain.StatusPendenteAprovacao {
		t.Errorf("cached status = %s, want %s", got.Status, domain.StatusPendenteAprovacao)
	}
}

func TestCachedSubscriptionRepositoryFallsBackOnCacheFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cache := newFakeCache()
	cache.fail = true
	repo := NewCachedSubscriptionRepository(f.store.Subscriptions, cache, logger.NewNop())

	sub := domain.NewSubscription(f.student.ID, f.plan.InstallmentPlans[0], 12, time.Now(), time.Now())
	if err := repo.Create(ctx, sub); err != nil {
		t.Fatalf("Create must succeed without cache: %v", err)
	}
	if _, err := repo.GetByID(ctx, sub.ID); err != nil {
		t.Fatalf("GetByID must fall back to the store: %v", err)
	}
	if _, err := repo.GetByID(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID unknown error = %v, want ErrNotFound", err)
	}
}
