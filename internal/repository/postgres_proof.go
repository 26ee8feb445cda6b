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

const proofColumns = `id, subscription_id, installment_index, submitted_at, file_reference, decision, decided_at, due_date`

type postgresProofRepo struct {
	db  *sqlx.DB
	log *logger.Logger
}

// NewPostgresProofRepository создает репозиторий чеков для PostgreSQL.
// Уникальный частичный индекс по (subscription_id) WHERE decision = 'PENDING'
// гарантирует не более одного ожидающего чека на подписку.
func NewPostgresProofRepository(db *sqlx.DB, log *logger.Logger) ProofRepository {
	return &postgresProofRepo{db: db, log: log}
}

func (r *postgresProofRepo) Create(ctx context.Context, proof *domain.PaymentProof) error {
	query := `
        INSERT INTO payment_proofs (` + proofColumns + `)
        VALUES (:id, :subscription_id, :installment_index, :submitted_at, :file_reference, :decision, :decided_at, :due_date)`

	if _, err := r.db.NamedExecContext(ctx, query, proof); err != nil {
		if repoErr := translatePgError(err); repoErr != nil {
			return repoErr
		}
		r.log.Errorw("Failed to create payment proof", "error", err, "subscriptionID", proof.SubscriptionID)
		return fmt.Errorf("repository: failed to create payment proof: %w", err)
	}
	return nil
}

func (r *postgresProofRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PaymentProof, error) {
	var proof domain.PaymentProof
	query := `SELECT ` + proofColumns + ` FROM payment_proofs WHERE id = $1`
	if err := r.db.GetContext(ctx, &proof, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.log.Errorw("Failed to get payment proof", "error", err, "proofID", id)
		return nil, fmt.Errorf("repository: failed to get payment proof: %w", err)
	}
	return &proof, nil
}

func (r *postgresProofRepo) Update(ctx context.Context, proof *domain.PaymentProof) error {
	query := `UPDATE payment_proofs SET decision = :decision, decided_at = :decided_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, proof)
	if err != nil {
		r.log.Errorw("Failed to update payment proof", "error", err, "proofID", proof.ID)
		return fmt.Errorf("repository: failed to update payment proof: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresProofRepo) ListBySubscription(ctx context.Context, subscriptionID uuid.UUID) ([]domain.PaymentProof, error) {
	proofs := []domain.PaymentProof{}
	query := `SELECT ` + proofColumns + ` FROM payment_proofs
        WHERE subscription_id = $1
        ORDER BY installment_index, submitted_at NULLS FIRST`
	if err := r.db.SelectContext(ctx, &proofs, query, subscriptionID); err != nil {
		r.log.Errorw("Failed to list payment proofs", "error", err, "subscriptionID", subscriptionID)
		return nil, fmt.Errorf("repository: failed to list payment proofs: %w", err)
	}
	return proofs, nil
}
