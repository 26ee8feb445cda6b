package domain

import "fmt"

// SubscriptionStatus статус подписки. Производное значение, см. DeriveStatus.
type SubscriptionStatus string

const (
	// StatusPendente - следующая парцела еще не просрочена, чека на проверке нет
	StatusPendente SubscriptionStatus = "PENDENTE"
	// StatusPendenteAprovacao - есть чек, ожидающий решения тренера
	StatusPendenteAprovacao SubscriptionStatus = "PENDENTE_APROVACAO"
	// StatusAtiva - все парцелы одобрены и подписка в пределах срока
	StatusAtiva SubscriptionStatus = "ATIVA"
	// StatusCancelada - терминальный статус
	StatusCancelada SubscriptionStatus = "CANCELADA"
	// StatusInativa - срок парцелы прошел без одобренного или ожидающего чека
	StatusInativa SubscriptionStatus = "INATIVA"
)

// ValidSubscriptionStatuses перечисляет все допустимые статусы
var ValidSubscriptionStatuses = []SubscriptionStatus{
	StatusPendente,
	StatusPendenteAprovacao,
	StatusAtiva,
	StatusCancelada,
	StatusInativa,
}

// IsValid проверяет, что статус входит в закрытый набор значений
func (s SubscriptionStatus) IsValid() bool {
	for _, v := range ValidSubscriptionStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// IsTerminal сообщает, что из статуса нет переходов
func (s SubscriptionStatus) IsTerminal() bool {
	return s == StatusCancelada
}

// ParseSubscriptionStatus разбирает статус из строки (например, из query-параметра)
func ParseSubscriptionStatus(raw string) (SubscriptionStatus, error) {
	s := SubscriptionStatus(raw)
	if !s.IsValid() {
		return "", NewError(KindValidation, raw, fmt.Sprintf("unknown subscription status %q", raw))
	}
	return s, nil
}

// Decision решение тренера по чеку
type Decision string

const (
	DecisionPending  Decision = "PENDING"
	DecisionApproved Decision = "APPROVED"
	DecisionRejected Decision = "REJECTED"
)

// IsValid проверяет, что решение входит в закрытый набор значений
func (d Decision) IsValid() bool {
	switch d {
	case DecisionPending, DecisionApproved, DecisionRejected:
		return true
	}
	return false
}

// IsTerminal - решение уже принято и больше не меняется
func (d Decision) IsTerminal() bool {
	return d == DecisionApproved || d == DecisionRejected
}
