package service

import (
	"context"
	"testing"

	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/domain"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/repository"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestPlanServiceCreateValidation(t *testing.T) {
	store := repository.NewInMemoryStore(logger.NewNop())
	svc := NewPlanService(store.Plans, store.Subscriptions, logger.NewNop())
	ctx := context.Background()
	coachID := uuid.New()

	tests := []struct {
		name string
		in   CreatePlanInput
		want error
	}{
		{
			name: "missing name",
			in:   CreatePlanInput{DurationMonths: 6, InstallmentPlans: []domain.InstallmentOption{{Amount: decimal.NewFromInt(10), Count: 1}}},
			want: domain.ErrValidation,
		},
		{
			name: "no installment plans",
			in:   CreatePlanInput{Name: "Mensal", DurationMonths: 1},
			want: domain.ErrValidation,
		},
		{
			name: "zero installments",
			in:   CreatePlanInput{Name: "Mensal", DurationMonths: 1, InstallmentPlans: []domain.InstallmentOption{{Amount: decimal.NewFromInt(10), Count: 0}}},
			want: domain.ErrInvalidSchedule,
		},
		{
			name: "negative amount",
			in:   CreatePlanInput{Name: "Mensal", DurationMonths: 1, InstallmentPlans: []domain.InstallmentOption{{Amount: decimal.NewFromInt(-5), Count: 1}}},
			want: domain.ErrValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, coachID, tt.in)
			expectKind(t, err, tt.want)
		})
	}
}

func TestPlanServiceDelete(t *testing.T) {
	e := newEnv(t)
	plans := NewPlanService(e.store.Plans, e.store.Subscriptions, logger.NewNop())

	sub := e.subscribe(t, 2)
	ip, err := e.store.Plans.GetInstallmentPlan(e.ctx, sub.InstallmentPlanID)
	if err != nil {
		t.Fatal(err)
	}

	expectKind(t, plans.Delete(e.ctx, uuid.New(), ip.PlanID), domain.ErrForbidden)
	expectKind(t, plans.Delete(e.ctx, e.coachID, ip.PlanID), domain.ErrPlanInUse)

	unused, err := plans.Create(e.ctx, e.coachID, CreatePlanInput{
		Name:             "Trimestral",
		DurationMonths:   3,
		InstallmentPlans: []domain.InstallmentOption{{Amount: decimal.NewFromInt(90), Count: 3}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := plans.Delete(e.ctx, e.coachID, unused.ID); err != nil {
		t.Fatalf("Delete unused plan: %v", err)
	}
	_, err = plans.GetByID(e.ctx, e.coachID, unused.ID)
	expectKind(t, err, domain.ErrPlanNotFound)

	list, err := plans.List(e.ctx, e.coachID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Errorf("len(list) = %d, want 1", len(list))
	}
}

func TestStudentService(t *testing.T) {
	store := repository.NewInMemoryStore(logger.NewNop())
	svc := NewStudentService(store.Students, logger.NewNop())
	ctx := context.Background()
	coachID := uuid.New()

	student, err := svc.Create(ctx, coachID, "  Carla Dias ", "Carla@Example.com")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if student.Name != "Carla Dias" || student.Email != "carla@example.com" {
		t.Errorf("student not normalized: %+v", student)
	}

	_, err = svc.Create(ctx, coachID, "Outra Carla", "carla@example.com")
	expectKind(t, err, domain.ErrValidation)
	_, err = svc.Create(ctx, coachID, "", "")
	expectKind(t, err, domain.ErrValidation)

	_, err = svc.GetByID(ctx, Scope{CoachID: uuid.New()}, student.ID)
	expectKind(t, err, domain.ErrForbidden)
	_, err = svc.GetByID(ctx, Scope{}, uuid.New())
	expectKind(t, err, domain.ErrStudentNotFound)

	list, err := svc.List(ctx, coachID, "dias")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Errorf("len(list) = %d, want 1", len(list))
	}
}
