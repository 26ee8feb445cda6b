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

type postgresStudentRepository struct {
	db  *sqlx.DB
	log *logger.Logger
}

func NewPostgresStudentRepository(db *sqlx.DB, log *logger.Logger) StudentRepository {
	return &postgresStudentRepository{
		db:  db,
		log: log,
	}
}

func (r *postgresStudentRepository) Create(ctx context.Context, student *domain.Student) error {
	query := `
		INSERT INTO students (id, coach_id, name, email, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		student.ID,
		student.CoachID,
		student.Name,
		student.Email,
		student.CreatedAt,
	)
	if err != nil {
		if repoErr := translatePgError(err); repoErr != nil {
			return repoErr
		}
		r.log.Errorw("Failed to create student", "error", err, "email", student.Email)
		return fmt.Errorf("failed to create student: %w", err)
	}

	return nil
}

func (r *postgresStudentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Student, error) {
	var student domain.Student

	query := `
		SELECT id, coach_id, name, email, created_at
		FROM students
		WHERE id = $1
	`

	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.log.Errorw("Failed to get student", "error", err, "studentID", id)
		return nil, fmt.Errorf("failed to get student: %w", err)
	}

	return &student, nil
}

func (r *postgresStudentRepository) ListByCoach(ctx context.Context, coachID uuid.UUID, search string) ([]domain.Student, error) {
	students := []domain.Student{}

	query := `
		SELECT id, coach_id, name, email, created_at
		FROM students
		WHERE coach_id = $1 AND ($2 = '' OR name ILIKE $3 ESCAPE '\' OR email ILIKE $3 ESCAPE '\')
		ORDER BY name
	`

	if err := r.db.SelectContext(ctx, &students, query, coachID, search, containsPattern(search)); err != nil {
		r.log.Errorw("Failed to list students", "error", err, "coachID", coachID)
		return nil, fmt.Errorf("failed to list students: %w", err)
	}

	return students, nil
}
