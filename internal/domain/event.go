package domain

import (
	"time"

	"github.com/google/uuid"
)

// LifecycleEventType тип события жизненного цикла подписки
type LifecycleEventType string

const (
	// События подписок
	EventSubscriptionCreated       LifecycleEventType = "subscription.created"
	EventSubscriptionCancelled     LifecycleEventType = "subscription.cancelled"
	EventSubscriptionStatusChanged LifecycleEventType = "subscription.status_changed"

	// События чеков
	EventProofSubmitted LifecycleEventType = "proof.submitted"
	EventProofApproved  LifecycleEventType = "proof.approved"
	EventProofRejected  LifecycleEventType = "proof.rejected"
)

// LifecycleEvent событие, публикуемое после успешной мутации
type LifecycleEvent struct {
	ID                      uuid.UUID          `json:"id"`
	Type                    LifecycleEventType `json:"type"`
	SubscriptionID          uuid.UUID          `json:"subscription_id"`
	StudentID               uuid.UUID          `json:"student_id"`
	ProofID                 *uuid.UUID         `json:"proof_id,omitempty"`
	InstallmentIndex        int                `json:"installment_index,omitempty"`
	PreviousStatus          SubscriptionStatus `json:"previous_status,omitempty"`
	Status                  SubscriptionStatus `json:"status"`
	CurrentInstallmentIndex int                `json:"current_installment_index"`
	OccurredAt              time.Time          `json:"occurred_at"`
}

// NewLifecycleEvent создает событие по состоянию подписки
func NewLifecycleEvent(eventType LifecycleEventType, sub *Subscription, previous SubscriptionStatus, now time.Time) LifecycleEvent {
	return LifecycleEvent{
		ID:                      uuid.New(),
		Type:                    eventType,
		SubscriptionID:          sub.ID,
		StudentID:               sub.StudentID,
		PreviousStatus:          previous,
		Status:                  sub.Status,
		CurrentInstallmentIndex: sub.CurrentInstallmentIndex,
		OccurredAt:              now,
	}
}

// WithProof дополняет событие данными чека
func (e LifecycleEvent) WithProof(proof *PaymentProof) LifecycleEvent {
	id := proof.ID
	e.ProofID = &id
	e.InstallmentIndex = proof.InstallmentIndex
	return e
}
