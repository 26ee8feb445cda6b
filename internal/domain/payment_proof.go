package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentProof (comprovante) - чек об оплате одной парцелы.
// Отклоненные чеки не удаляются и остаются в истории.
type PaymentProof struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	SubscriptionID   uuid.UUID  `db:"subscription_id" json:"subscription_id"`
	InstallmentIndex int        `db:"installment_index" json:"installment_index"` // с единицы
	SubmittedAt      *time.Time `db:"submitted_at" json:"submitted_at,omitempty"`
	FileReference    string     `db:"file_reference" json:"file_reference"`
	Decision         Decision   `db:"decision" json:"decision"`
	DecidedAt        *time.Time `db:"decided_at" json:"decided_at,omitempty"`
	DueDate          time.Time  `db:"due_date" json:"due_date"`
}

// IsPending ожидает решения тренера
func (p *PaymentProof) IsPending() bool {
	return p.Decision == DecisionPending
}

// IsApproved чек одобрен
func (p *PaymentProof) IsApproved() bool {
	return p.Decision == DecisionApproved
}

// Approve помечает чек одобренным
func (p *PaymentProof) Approve(now time.Time) {
	p.Decision = DecisionApproved
	p.DecidedAt = &now
}

// Reject помечает чек отклоненным
func (p *PaymentProof) Reject(now time.Time) {
	p.Decision = DecisionRejected
	p.DecidedAt = &now
}

// HasPending проверяет, есть ли среди чеков ожидающий решения
func HasPending(proofs []PaymentProof) bool {
	for i := range proofs {
		if proofs[i].IsPending() {
			return true
		}
	}
	return false
}

// ApprovedInstallments - длина непрерывного префикса одобренных парцел 1..k.
// Одобрение вне очереди невозможно, поэтому разрывы в префикс не входят.
func ApprovedInstallments(proofs []PaymentProof) int {
	approved := make(map[int]bool, len(proofs))
	for i := range proofs {
		if proofs[i].IsApproved() {
			approved[proofs[i].InstallmentIndex] = true
		}
	}
	k := 0
	for approved[k+1] {
		k++
	}
	return k
}
