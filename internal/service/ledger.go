package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/domain"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/repository"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/pkg/logger"
	"github.com/google/uuid"
)

// ProofLedger журнал чеков об оплате.
// Вызывающая сторона держит блокировку подписки на время каждой операции.
type ProofLedger struct {
	proofs repository.ProofRepository
	log    *logger.Logger
}

// NewProofLedger создает журнал поверх репозитория чеков
func NewProofLedger(proofs repository.ProofRepository, log *logger.Logger) *ProofLedger {
	return &ProofLedger{proofs: proofs, log: log}
}

// Proofs возвращает историю чеков подписки
func (l *ProofLedger) Proofs(ctx context.Context, subscriptionID uuid.UUID) ([]domain.PaymentProof, error) {
	proofs, err := l.proofs.ListBySubscription(ctx, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("ledger: failed to load proofs: %w", err)
	}
	return proofs, nil
}

// SubscriptionOf возвращает ID подписки, к которой относится чек
func (l *ProofLedger) SubscriptionOf(ctx context.Context, proofID uuid.UUID) (uuid.UUID, error) {
	proof, err := l.proofs.GetByID(ctx, proofID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return uuid.Nil, domain.NewError(domain.KindProofNotFound, proofID.String(), "payment proof not found")
		}
		return uuid.Nil, fmt.Errorf("ledger: failed to load proof: %w", err)
	}
	return proof.SubscriptionID, nil
}

// RecordSubmission регистрирует чек по парцеле installmentIndex.
// Не более одного чека в PENDING на подписку, для любой парцелы.
func (l *ProofLedger) RecordSubmission(ctx context.Context, sub *domain.Subscription, installmentIndex int, fileReference string, now time.Time) (*domain.PaymentProof, error) {
	if strings.TrimSpace(fileReference) == "" {
		return nil, domain.NewError(domain.KindInvalidProof, sub.ID.String(), "file reference is required")
	}

	existing, err := l.Proofs(ctx, sub.ID)
	if err != nil {
		return nil, err
	}
	if domain.HasPending(existing) {
		return nil, domain.NewError(domain.KindDuplicatePendingProof, sub.ID.String(), "a proof is already pending approval for this subscription")
	}

	dueDate, err := domain.DueDateFor(sub.StartDate, installmentIndex, sub.InstallmentCount)
	if err != nil {
		return nil, err
	}

	submittedAt := now
	proof := &domain.PaymentProof{
		ID:               uuid.New(),
		SubscriptionID:   sub.ID,
		InstallmentIndex: installmentIndex,
		SubmittedAt:      &submittedAt,
		FileReference:    fileReference,
		Decision:         domain.DecisionPending,
		DueDate:          dueDate,
	}

	if err := l.proofs.Create(ctx, proof); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, domain.NewError(domain.KindDuplicatePendingProof, sub.ID.String(), "a proof is already pending approval for this subscription")
		}
		return nil, fmt.Errorf("ledger: failed to record proof: %w", err)
	}

	l.log.Debugw("Payment proof recorded", "proofID", proof.ID, "subscriptionID", sub.ID, "installment", installmentIndex)
	return proof, nil
}

// Decide фиксирует решение тренера по чеку.
// При одобрении увеличивает sub.CurrentInstallmentIndex ровно на единицу;
// сохранить подписку - задача вызывающей стороны.
func (l *ProofLedger) Decide(ctx context.Context, sub *domain.Subscription, proofID uuid.UUID, decision domain.Decision, now time.Time) (*domain.PaymentProof, error) {
	if decision != domain.DecisionApproved && decision != domain.DecisionRejected {
		return nil, domain.NewError(domain.KindValidation, proofID.String(), fmt.Sprintf("decision must be APPROVED or REJECTED, got %q", decision))
	}

	proof, err := l.proofs.GetByID(ctx, proofID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewError(domain.KindProofNotFound, proofID.String(), "payment proof not found")
		}
		return nil, fmt.Errorf("ledger: failed to load proof: %w", err)
	}
	if proof.SubscriptionID != sub.ID {
		return nil, domain.NewError(domain.KindProofNotFound, proofID.String(), "payment proof not found for subscription")
	}

	if proof.Decision.IsTerminal() {
		return nil, domain.NewError(domain.KindAlreadyDecided, proofID.String(), fmt.Sprintf("payment proof already %s", proof.Decision))
	}

	switch decision {
	case domain.DecisionApproved:
		if proof.InstallmentIndex != sub.CurrentInstallmentIndex+1 {
			return nil, domain.NewError(domain.KindOutOfOrderApproval, proofID.String(),
				fmt.Sprintf("installment %d cannot be approved, next expected is %d", proof.InstallmentIndex, sub.CurrentInstallmentIndex+1))
		}
		proof.Approve(now)
	case domain.DecisionRejected:
		proof.Reject(now)
	}

	if err := l.proofs.Update(ctx, proof); err != nil {
		return nil, fmt.Errorf("ledger: failed to save decision: %w", err)
	}

	if proof.IsApproved() {
		sub.CurrentInstallmentIndex++
	}

	l.log.Debugw("Payment proof decided", "proofID", proof.ID, "decision", proof.Decision, "currentInstallment", sub.CurrentInstallmentIndex)
	return proof, nil
}
