package domain

import (
	"time"

	"github.com/google/uuid"
)

// Subscription (assinatura) - запись одного ученика в план с рассрочкой.
// Status и CurrentInstallmentIndex - кешированные производные поля; единственный,
// кто их записывает, - оркестратор жизненного цикла.
type Subscription struct {
	ID                      uuid.UUID          `db:"id" json:"id"`
	StudentID               uuid.UUID          `db:"student_id" json:"student_id"`
	InstallmentPlanID       uuid.UUID          `db:"installment_plan_id" json:"installment_plan_id"`
	InstallmentCount        int                `db:"installment_count" json:"installment_count"` // копия из неизменяемого InstallmentPlan
	StartDate               time.Time          `db:"start_date" json:"start_date"`
	EndDate                 time.Time          `db:"end_date" json:"end_date"`
	Status                  SubscriptionStatus `db:"status" json:"status"`
	CurrentInstallmentIndex int                `db:"current_installment_index" json:"current_installment_index"` // количество одобренных парцел
	CancelledAt             *time.Time         `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CreatedAt               time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt               time.Time          `db:"updated_at" json:"updated_at"`
}

// IsCancelled - подписка была явно отменена
func (s *Subscription) IsCancelled() bool {
	return s.CancelledAt != nil
}

// IsFullyPaid - все парцелы одобрены
func (s *Subscription) IsFullyPaid() bool {
	return s.InstallmentCount > 0 && s.CurrentInstallmentIndex >= s.InstallmentCount
}

// NextInstallmentIndex индекс (с единицы) следующей неоплаченной парцелы
func (s *Subscription) NextInstallmentIndex() int {
	return s.CurrentInstallmentIndex + 1
}

// SyncInstallmentIndex пересчитывает CurrentInstallmentIndex по журналу чеков.
// Индекс никогда не уменьшается. Возвращает true, если значение изменилось.
func (s *Subscription) SyncInstallmentIndex(proofs []PaymentProof) bool {
	approved := ApprovedInstallments(proofs)
	if approved <= s.CurrentInstallmentIndex {
		return false
	}
	s.CurrentInstallmentIndex = approved
	return true
}

// NewSubscription создает подписку с нулевым прогрессом.
// Статус заполняет оркестратор после вычисления.
func NewSubscription(studentID uuid.UUID, plan InstallmentPlan, durationMonths int, startDate, now time.Time) *Subscription {
	start := StartOfDay(startDate)
	return &Subscription{
		ID:                      uuid.New(),
		StudentID:               studentID,
		InstallmentPlanID:       plan.ID,
		InstallmentCount:        plan.InstallmentCount,
		StartDate:               start,
		EndDate:                 start.AddDate(0, durationMonths, 0),
		CurrentInstallmentIndex: 0,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
}

// SubscriptionFilter фильтры для списка подписок
type SubscriptionFilter struct {
	Status    SubscriptionStatus // пусто - все статусы
	CoachID   uuid.UUID          // uuid.Nil - все тренеры
	StudentID uuid.UUID          // uuid.Nil - все ученики
	Search    string             // по имени или email ученика
	Page      int
	PageSize  int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Normalize приводит параметры пагинации к допустимым значениям
func (f SubscriptionFilter) Normalize() SubscriptionFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	return f
}

// Offset смещение первой записи страницы
func (f SubscriptionFilter) Offset() int {
	return (f.Page - 1) * f.PageSize
}
