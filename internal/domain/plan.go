package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Plan план тренера
type Plan struct {
	ID               uuid.UUID         `db:"id" json:"id"`
	CoachID          uuid.UUID         `db:"coach_id" json:"coach_id"`
	Name             string            `db:"name" json:"name"`
	Description      string            `db:"description" json:"description,omitempty"`
	DurationMonths   int               `db:"duration_months" json:"duration_months"`
	InstallmentPlans []InstallmentPlan `db:"-" json:"installment_plans"`
	CreatedAt        time.Time         `db:"created_at" json:"created_at"`
}

// InstallmentPlan вариант рассрочки плана. Неизменяемое значение:
// создается вместе с планом и удаляется только каскадно.
type InstallmentPlan struct {
	ID                uuid.UUID       `db:"id" json:"id"`
	PlanID            uuid.UUID       `db:"plan_id" json:"plan_id"`
	InstallmentAmount decimal.Decimal `db:"installment_amount" json:"installment_amount"`
	InstallmentCount  int             `db:"installment_count" json:"installment_count"`
}

// Total полная стоимость варианта
func (ip InstallmentPlan) Total() decimal.Decimal {
	return ip.InstallmentAmount.Mul(decimal.NewFromInt(int64(ip.InstallmentCount)))
}

// InstallmentPlanByID ищет вариант рассрочки в плане
func (p *Plan) InstallmentPlanByID(id uuid.UUID) (InstallmentPlan, bool) {
	for _, ip := range p.InstallmentPlans {
		if ip.ID == id {
			return ip, true
		}
	}
	return InstallmentPlan{}, false
}

// InstallmentOption входные данные варианта рассрочки
type InstallmentOption struct {
	Amount decimal.Decimal
	Count  int
}

// NewPlan собирает план и проверяет инварианты
func NewPlan(coachID uuid.UUID, name, description string, durationMonths int, options []InstallmentOption, now time.Time) (*Plan, error) {
	errs := ValidationErrors{}
	if name == "" {
		errs.Add("name", "is required")
	}
	if durationMonths < 1 {
		errs.Add("duration_months", "must be at least 1")
	}
	if len(options) == 0 {
		errs.Add("installment_plans", "at least one installment plan is required")
	}
	if errs.HasErrors() {
		return nil, errs.AsLifecycleError()
	}

	plan := &Plan{
		ID:             uuid.New(),
		CoachID:        coachID,
		Name:           name,
		Description:    description,
		DurationMonths: durationMonths,
		CreatedAt:      now,
	}

	for _, opt := range options {
		if opt.Count <= 0 {
			return nil, NewError(KindInvalidSchedule, "", "installment count must be positive")
		}
		if !opt.Amount.IsPositive() {
			return nil, NewError(KindValidation, "", "installment amount must be positive")
		}
		plan.InstallmentPlans = append(plan.InstallmentPlans, InstallmentPlan{
			ID:                uuid.New(),
			PlanID:            plan.ID,
			InstallmentAmount: opt.Amount,
			InstallmentCount:  opt.Count,
		})
	}

	return plan, nil
}
