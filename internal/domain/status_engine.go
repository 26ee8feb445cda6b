package domain

import "time"

// DeriveStatus вычисляет статус подписки по журналу чеков и текущему времени.
// Чистая функция: ничего не изменяет, результат зависит только от аргументов.
//
// Порядок правил:
//  1. явная отмена -> CANCELADA
//  2. есть чек в PENDING -> PENDENTE_APROVACAO
//  3. все парцелы одобрены и now <= endDate -> ATIVA
//  4. иначе срок следующей парцелы: now <= dueDate -> PENDENTE, иначе INATIVA
//
// Для полностью оплаченной подписки после endDate следующей считается
// парцела count+1, ее срок идет по той же сетке месяцев.
//
// Сравнение дат идет по календарным дням в UTC.
func DeriveStatus(sub *Subscription, proofs []PaymentProof, now time.Time) (SubscriptionStatus, error) {
	if sub.IsCancelled() {
		return StatusCancelada, nil
	}

	if HasPending(proofs) {
		return StatusPendenteAprovacao, nil
	}

	if sub.InstallmentCount <= 0 {
		return "", NewError(KindInvalidSchedule, sub.ID.String(), "subscription has no installments")
	}

	today := StartOfDay(now)

	next := sub.NextInstallmentIndex()
	if sub.IsFullyPaid() {
		if !today.After(StartOfDay(sub.EndDate)) {
			return StatusAtiva, nil
		}
		next = sub.InstallmentCount + 1
	}

	dueDate, err := DueDateFor(sub.StartDate, next, sub.InstallmentCount)
	if err != nil {
		return "", err
	}

	if !today.After(dueDate) {
		return StatusPendente, nil
	}
	return StatusInativa, nil
}
