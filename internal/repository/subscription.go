package repository

import (
	"context"

	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/domain"
	"github.com/google/uuid"
)

// SubscriptionRepository определяет методы для работы с хранилищем подписок.
type SubscriptionRepository interface {
	// Create сохраняет новую подписку в хранилище.
	Create(ctx context.Context, sub *domain.Subscription) error

	// GetByID возвращает подписку по ее ID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Subscription, error)

	// Update обновляет изменяемые поля: status, current_installment_index, cancelled_at.
	Update(ctx context.Context, sub *domain.Subscription) error

	// List возвращает страницу подписок и общее количество по фильтру.
	List(ctx context.Context, filter domain.SubscriptionFilter) ([]domain.Subscription, int, error)

	// CountByPlan количество подписок на любой из вариантов рассрочки плана.
	CountByPlan(ctx context.Context, planID uuid.UUID) (int, error)
}

// ProofRepository хранилище чеков об оплате
type ProofRepository interface {
	// Create сохраняет чек. ErrDuplicate, если у подписки уже есть чек в PENDING.
	Create(ctx context.Context, proof *domain.PaymentProof) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PaymentProof, error)
	// Update сохраняет решение по чеку
	Update(ctx context.Context, proof *domain.PaymentProof) error
	// ListBySubscription все чеки подписки в порядке отправки
	ListBySubscription(ctx context.Context, subscriptionID uuid.UUID) ([]domain.PaymentProof, error)
}

// PlanRepository хранилище планов вместе с вариантами рассрочки
type PlanRepository interface {
	Create(ctx context.Context, plan *domain.Plan) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Plan, error)
	GetInstallmentPlan(ctx context.Context, id uuid.UUID) (*domain.InstallmentPlan, error)
	ListByCoach(ctx context.Context, coachID uuid.UUID) ([]domain.Plan, error)
	// Delete удаляет план каскадно с вариантами рассрочки
	Delete(ctx context.Context, id uuid.UUID) error
}

// StudentRepository хранилище учеников
type StudentRepository interface {
	// Create сохраняет ученика. ErrDuplicate, если email уже занят.
	Create(ctx context.Context, student *domain.Student) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Student, error)
	ListByCoach(ctx context.Context, coachID uuid.UUID, search string) ([]domain.Student, error)
}

// Store набор репозиториев одного хранилища
type Store struct {
	Subscriptions SubscriptionRepository
	Proofs        ProofRepository
	Plans         PlanRepository
	Students      StudentRepository
}
