package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/domain"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/pkg/logger"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const subscriptionColumns = `s.id, s.student_id, s.installment_plan_id, s.installment_count,
       s.start_date, s.end_date, s.status, s.current_installment_index,
       s.cancelled_at, s.created_at, s.updated_at`

// postgresSubscriptionRepo реализует SubscriptionRepository для PostgreSQL.
type postgresSubscriptionRepo struct {
	db  *sqlx.DB
	log *logger.Logger
}

// NewPostgresStore создает набор репозиториев поверх одного подключения
func NewPostgresStore(db *sqlx.DB, log *logger.Logger) *Store {
	return &Store{
		Subscriptions: NewPostgresSubscriptionRepository(db, log),
		Proofs:        NewPostgresProofRepository(db, log),
		Plans:         NewPostgresPlanRepository(db, log),
		Students:      NewPostgresStudentRepository(db, log),
	}
}

// NewPostgresSubscriptionRepository создает новый экземпляр репозитория для PostgreSQL.
func NewPostgresSubscriptionRepository(db *sqlx.DB, log *logger.Logger) SubscriptionRepository {
	return &postgresSubscriptionRepo{
		db:  db,
		log: log,
	}
}

// Create сохраняет новую подписку в базе данных.
func (r *postgresSubscriptionRepo) Create(ctx context.Context, sub *domain.Subscription) error {
	query := `
        INSERT INTO subscriptions (
            id, student_id, installment_plan_id, installment_count, start_date, end_date,
            status, current_installment_index, cancelled_at, created_at, updated_at
        ) VALUES (
            :id, :student_id, :installment_plan_id, :installment_count, :start_date, :end_date,
            :status, :current_installment_index, :cancelled_at, :created_at, :updated_at
        )`
	if _, err := r.db.NamedExecContext(ctx, query, sub); err != nil {
		if repoErr := translatePgError(err); repoErr != nil {
			return repoErr
		}
		r.log.Errorw("Failed to create subscription in DB", "error", err, "subscriptionID", sub.ID, "studentID", sub.StudentID)
		return fmt.Errorf("repository: failed to create subscription: %w", err)
	}

	r.log.Debugw("Successfully created subscription in DB", "subscriptionID", sub.ID)
	return nil
}

// GetByID возвращает подписку по ее ID.
func (r *postgresSubscriptionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Subscription, error) {
	var sub domain.Subscription
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions s WHERE s.id = $1`

	if err := r.db.GetContext(ctx, &sub, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.log.Errorw("Failed to get subscription by ID from DB", "error", err, "subscriptionID", id)
		return nil, fmt.Errorf("repository: failed to get subscription by ID: %w", err)
	}
	return &sub, nil
}

// Update обновляет только изменяемые поля подписки.
func (r *postgresSubscriptionRepo) Update(ctx context.Context, sub *domain.Subscription) error {
	query := `
        UPDATE subscriptions SET
            status = :status,
            current_installment_index = :current_installment_index,
            cancelled_at = :cancelled_at,
            updated_at = :updated_at
        WHERE id = :id`

	result, err := r.db.NamedExecContext(ctx, query, sub)
	if err != nil {
		r.log.Errorw("Failed to update subscription in DB", "error", err, "subscriptionID", sub.ID)
		return fmt.Errorf("repository: failed to update subscription: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("repository: failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	r.log.Debugw("Successfully updated subscription in DB", "subscriptionID", sub.ID, "status", sub.Status)
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern шаблон ILIKE для поиска подстроки; % и _ в term ищутся буквально
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}

// List возвращает страницу подписок по фильтру, новые первыми.
func (r *postgresSubscriptionRepo) List(ctx context.Context, filter domain.SubscriptionFilter) ([]domain.Subscription, int, error) {
	filter = filter.Normalize()

	var (
		conditions []string
		args       []interface{}
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("s.status = $%d", len(args)))
	}
	if filter.CoachID != uuid.Nil {
		args = append(args, filter.CoachID)
		conditions = append(conditions, fmt.Sprintf("st.coach_id = $%d", len(args)))
	}
	if filter.StudentID != uuid.Nil {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("s.student_id = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, containsPattern(filter.Search))
		conditions = append(conditions, fmt.Sprintf(`(st.name ILIKE $%d ESCAPE '\' OR st.email ILIKE $%d ESCAPE '\')`, len(args), len(args)))
	}

	from := ` FROM subscriptions s JOIN students st ON st.id = s.student_id`
	if len(conditions) > 0 {
		from += ` WHERE ` + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*)`+from, args...); err != nil {
		r.log.Errorw("Failed to count subscriptions", "error", err)
		return nil, 0, fmt.Errorf("repository: failed to count subscriptions: %w", err)
	}

	args = append(args, filter.PageSize, filter.Offset())
	query := `SELECT ` + subscriptionColumns + from +
		fmt.Sprintf(` ORDER BY s.created_at DESC, s.id LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	subs := []domain.Subscription{}
	if err := r.db.SelectContext(ctx, &subs, query, args...); err != nil {
		r.log.Errorw("Failed to list subscriptions", "error", err)
		return nil, 0, fmt.Errorf("repository: failed to list subscriptions: %w", err)
	}

	r.log.Debugw("Listed subscriptions", "count", len(subs), "total", total)
	return subs, total, nil
}

// CountByPlan считает подписки на варианты рассрочки плана.
func (r *postgresSubscriptionRepo) CountByPlan(ctx context.Context, planID uuid.UUID) (int, error) {
	var count int
	query := `
        SELECT COUNT(*) FROM subscriptions s
        JOIN installment_plans ip ON ip.id = s.installment_plan_id
        WHERE ip.plan_id = $1`
	if err := r.db.GetContext(ctx, &count, query, planID); err != nil {
		return 0, fmt.Errorf("repository: failed to count plan subscriptions: %w", err)
	}
	return count, nil
}
