package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/domain"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/pkg/logger"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type postgresPlanRepo struct {
	db  *sqlx.DB
	log *logger.Logger
}

// NewPostgresPlanRepository создает репозиторий планов для PostgreSQL
func NewPostgresPlanRepository(db *sqlx.DB, log *logger.Logger) PlanRepository {
	return &postgresPlanRepo{db: db, log: log}
}

// Create сохраняет план и варианты рассрочки в одной транзакции
func (r *postgresPlanRepo) Create(ctx context.Context, plan *domain.Plan) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.log.Errorw("Failed to rollback transaction", "error", rbErr)
			}
		}
	}()

	_, err = tx.NamedExecContext(ctx, `
        INSERT INTO plans (id, coach_id, name, description, duration_months, created_at)
        VALUES (:id, :coach_id, :name, :description, :duration_months, :created_at)`, plan)
	if err != nil {
		r.log.Errorw("Failed to create plan", "error", err, "planID", plan.ID)
		return fmt.Errorf("repository: failed to create plan: %w", err)
	}

	for i := range plan.InstallmentPlans {
		_, err = tx.NamedExecContext(ctx, `
            INSERT INTO installment_plans (id, plan_id, installment_amount, installment_count)
            VALUES (:id, :plan_id, :installment_amount, :installment_count)`, plan.InstallmentPlans[i])
		if err != nil {
			r.log.Errorw("Failed to create installment plan", "error", err, "planID", plan.ID)
			return fmt.Errorf("repository: failed to create installment plan: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("repository: failed to commit plan: %w", err)
	}
	r.log.Debugw("Plan created", "planID", plan.ID, "installmentPlans", len(plan.InstallmentPlans))
	return nil
}

// GetByID возвращает план с вариантами рассрочки
func (r *postgresPlanRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Plan, error) {
	var plan domain.Plan
	err := r.db.GetContext(ctx, &plan,
		`SELECT id, coach_id, name, description, duration_months, created_at FROM plans WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to get plan: %w", err)
	}

	if err := r.db.SelectContext(ctx, &plan.InstallmentPlans,
		`SELECT id, plan_id, installment_amount, installment_count FROM installment_plans
         WHERE plan_id = $1 ORDER BY installment_count`, id); err != nil {
		return nil, fmt.Errorf("repository: failed to get installment plans: %w", err)
	}
	return &plan, nil
}

// GetInstallmentPlan возвращает вариант рассрочки по ID
func (r *postgresPlanRepo) GetInstallmentPlan(ctx context.Context, id uuid.UUID) (*domain.InstallmentPlan, error) {
	var ip domain.InstallmentPlan
	err := r.db.GetContext(ctx, &ip,
		`SELECT id, plan_id, installment_amount, installment_count FROM installment_plans WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to get installment plan: %w", err)
	}
	return &ip, nil
}

// ListByCoach возвращает планы тренера вместе с вариантами рассрочки
func (r *postgresPlanRepo) ListByCoach(ctx context.Context, coachID uuid.UUID) ([]domain.Plan, error) {
	plans := []domain.Plan{}
	if err := r.db.SelectContext(ctx, &plans,
		`SELECT id, coach_id, name, description, duration_months, created_at FROM plans
         WHERE coach_id = $1 ORDER BY created_at DESC`, coachID); err != nil {
		return nil, fmt.Errorf("repository: failed to list plans: %w", err)
	}
	if len(plans) == 0 {
		return plans, nil
	}

	var options []domain.InstallmentPlan
	if err := r.db.SelectContext(ctx, &options,
		`SELECT ip.id, ip.plan_id, ip.installment_amount, ip.installment_count
         FROM installment_plans ip JOIN plans p ON p.id = ip.plan_id
         WHERE p.coach_id = $1 ORDER BY ip.installment_count`, coachID); err != nil {
		return nil, fmt.Errorf("repository: failed to list installment plans: %w", err)
	}

	byPlan := make(map[uuid.UUID][]domain.InstallmentPlan, len(plans))
	for _, ip := range options {
		byPlan[ip.PlanID] = append(byPlan[ip.PlanID], ip)
	}
	for i := range plans {
		plans[i].InstallmentPlans = byPlan[plans[i].ID]
	}
	return plans, nil
}

// Delete удаляет план. Варианты рассрочки удаляются через ON DELETE CASCADE.
func (r *postgresPlanRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM plans WHERE id = $1`, id)
	if err != nil {
		if repoErr := translatePgError(err); repoErr != nil {
			return repoErr
		}
		r.log.Errorw("Failed to delete plan", "error", err, "planID", id)
		return fmt.Errorf("repository: failed to delete plan: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
