package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// scheduleHorizonMonths номинальный горизонт, по которому равномерно
// распределяются парцелы, независимо от фактической длительности плана.
const scheduleHorizonMonths = 12

// StartOfDay обрезает время до начала дня в UTC. Все даты графика - календарные дни.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MonthsPerInstallment = ceil(12 / installmentCount)
func MonthsPerInstallment(installmentCount int) (int, error) {
	if installmentCount <= 0 {
		return 0, NewError(KindInvalidSchedule, "", fmt.Sprintf("installment count must be positive, got %d", installmentCount))
	}
	return (scheduleHorizonMonths + installmentCount - 1) / installmentCount, nil
}

// DueDateFor вычисляет срок оплаты парцелы с индексом installmentIndex (с единицы):
// startDate + (installmentIndex - 1) * ceil(12 / installmentCount) месяцев.
//
// Переполнение дня месяца нормализуется как в time.AddDate (31.01 + 1 месяц = 02.03 или 03.03).
func DueDateFor(startDate time.Time, installmentIndex, installmentCount int) (time.Time, error) {
	months, err := MonthsPerInstallment(installmentCount)
	if err != nil {
		return time.Time{}, err
	}
	if installmentIndex < 1 {
		return time.Time{}, NewError(KindInvalidSchedule, "", fmt.Sprintf("installment index must start at 1, got %d", installmentIndex))
	}
	return StartOfDay(startDate).AddDate(0, (installmentIndex-1)*months, 0), nil
}

// InstallmentState состояние парцелы в графике
type InstallmentState string

const (
	InstallmentApproved        InstallmentState = "APPROVED"
	InstallmentPendingApproval InstallmentState = "PENDING_APPROVAL"
	InstallmentOpen            InstallmentState = "OPEN"
	InstallmentOverdue         InstallmentState = "OVERDUE"
)

// Installment строка графика платежей
type Installment struct {
	Index   int              `json:"index"`
	DueDate time.Time        `json:"due_date"`
	Amount  decimal.Decimal  `json:"amount"`
	State   InstallmentState `json:"state"`
}

// BuildSchedule строит график парцел подписки на момент now
func BuildSchedule(sub *Subscription, amount decimal.Decimal, proofs []PaymentProof, now time.Time) ([]Installment, error) {
	today := StartOfDay(now)
	pending := make(map[int]bool)
	for i := range proofs {
		if proofs[i].IsPending() {
			pending[proofs[i].InstallmentIndex] = true
		}
	}

	schedule := make([]Installment, 0, sub.InstallmentCount)
	for idx := 1; idx <= sub.InstallmentCount; idx++ {
		due, err := DueDateFor(sub.StartDate, idx, sub.InstallmentCount)
		if err != nil {
			return nil, err
		}

		state := InstallmentOpen
		switch {
		case idx <= sub.CurrentInstallmentIndex:
			state = InstallmentApproved
		case pending[idx]:
			state = InstallmentPendingApproval
		case today.After(due):
			state = InstallmentOverdue
		}

		schedule = append(schedule, Installment{Index: idx, DueDate: due, Amount: amount, State: state})
	}
	return schedule, nil
}
