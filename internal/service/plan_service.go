package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/domain"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/repository"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/pkg/logger"
	"github.com/google/uuid"
)

// PlanService интерфейс сервиса для работы с планами тренера
type PlanService interface {
	Create(ctx context.Context, coachID uuid.UUID, in CreatePlanInput) (*domain.Plan, error)
	GetByID(ctx context.Context, coachID, id uuid.UUID) (*domain.Plan, error)
	List(ctx context.Context, coachID uuid.UUID) ([]domain.Plan, error)
	Delete(ctx context.Context, coachID, id uuid.UUID) error
}

// CreatePlanInput параметры нового плана
type CreatePlanInput struct {
	Name             string
	Description      string
	DurationMonths   int
	InstallmentPlans []domain.InstallmentOption
}

type planService struct {
	plans repository.PlanRepository
	subs  repository.SubscriptionRepository
	now   func() time.Time
	log   *logger.Logger
}

// NewPlanService создает сервис планов
func NewPlanService(plans repository.PlanRepository, subs repository.SubscriptionRepository, log *logger.Logger) PlanService {
	return &planService{
		plans: plans,
		subs:  subs,
		now:   time.Now,
		log:   log,
	}
}

func (s *planService) Create(ctx context.Context, coachID uuid.UUID, in CreatePlanInput) (*domain.Plan, error) {
	s.log.Debug("Creating plan %q for coach: %s", in.Name, coachID)

	plan, err := domain.NewPlan(coachID, strings.TrimSpace(in.Name), strings.TrimSpace(in.Description), in.DurationMonths, in.InstallmentPlans, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.plans.Create(ctx, plan); err != nil {
		s.log.Errorw("Failed to create plan", "error", err, "coachID", coachID)
		return nil, fmt.Errorf("failed to create plan: %w", err)
	}

	s.log.Infow("Plan created", "planID", plan.ID, "installmentPlans", len(plan.InstallmentPlans))
	return plan, nil
}

func (s *planService) GetByID(ctx context.Context, coachID, id uuid.UUID) (*domain.Plan, error) {
	plan, err := s.plans.GetByID(ctx, id)
	if err != nil {
		return nil, translateNotFound(err, domain.KindPlanNotFound, id, "plan not found")
	}
	if coachID != uuid.Nil && plan.CoachID != coachID {
		return nil, domain.NewError(domain.KindForbidden, id.String(), "plan belongs to another coach")
	}
	return plan, nil
}

func (s *planService) List(ctx context.Context, coachID uuid.UUID) ([]domain.Plan, error) {
	return s.plans.ListByCoach(ctx, coachID)
}

// Delete удаляет план вместе с вариантами рассрочки, если на него нет подписок
func (s *planService) Delete(ctx context.Context, coachID, id uuid.UUID) error {
	plan, err := s.GetByID(ctx, coachID, id)
	if err != nil {
		return err
	}

	count, err := s.subs.CountByPlan(ctx, plan.ID)
	if err != nil {
		return fmt.Errorf("failed to check plan usage: %w", err)
	}
	if count > 0 {
		return domain.NewError(domain.KindPlanInUse, plan.ID.String(), fmt.Sprintf("plan has %d subscriptions", count))
	}

	if err := s.plans.Delete(ctx, plan.ID); err != nil {
		return translateNotFound(err, domain.KindPlanNotFound, id, "plan not found")
	}

	s.log.Infow("Plan deleted", "planID", plan.ID)
	return nil
}
