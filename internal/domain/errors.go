package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind машинно-читаемый тип ошибки, отдается клиенту как есть
type ErrorKind string

const (
	KindInvalidSchedule         ErrorKind = "InvalidScheduleError"
	KindDuplicatePendingProof   ErrorKind = "DuplicatePendingProofError"
	KindProofNotFound           ErrorKind = "ProofNotFoundError"
	KindAlreadyDecided          ErrorKind = "AlreadyDecidedError"
	KindOutOfOrderApproval      ErrorKind = "OutOfOrderApprovalError"
	KindSubscriptionNotFound    ErrorKind = "SubscriptionNotFoundError"
	KindSubscriptionCancelled   ErrorKind = "SubscriptionCancelledError"
	KindInstallmentPlanNotFound ErrorKind = "InstallmentPlanNotFoundError"
	KindPlanNotFound            ErrorKind = "PlanNotFoundError"
	KindPlanInUse               ErrorKind = "PlanInUseError"
	KindStudentNotFound         ErrorKind = "StudentNotFoundError"
	KindInvalidProof            ErrorKind = "InvalidProofError"
	KindValidation              ErrorKind = "ValidationError"
	KindForbidden               ErrorKind = "ForbiddenError"
)

// LifecycleError ошибка предметной области.
// Все ошибки этого типа исправимы вызывающей стороной и отдаются как 4xx.
type LifecycleError struct {
	Kind     ErrorKind
	Message  string
	EntityID string
}

// Error реализует интерфейс error
func (e *LifecycleError) Error() string {
	if e.EntityID != "" {
		return fmt.Sprintf("%s: %s (id: %s)", e.Kind, e.Message, e.EntityID)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is сравнивает ошибки по типу, поэтому errors.Is(err, ErrProofNotFound) работает
// для любой ошибки с KindProofNotFound
func (e *LifecycleError) Is(target error) bool {
	t, ok := target.(*LifecycleError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// NewError создает новую ошибку предметной области
func NewError(kind ErrorKind, entityID, message string) *LifecycleError {
	return &LifecycleError{
		Kind:     kind,
		Message:  message,
		EntityID: entityID,
	}
}

// Ошибки-эталоны для errors.Is
var (
	ErrInvalidSchedule         = &LifecycleError{Kind: KindInvalidSchedule, Message: "invalid installment schedule"}
	ErrDuplicatePendingProof   = &LifecycleError{Kind: KindDuplicatePendingProof, Message: "a proof is already pending approval"}
	ErrProofNotFound           = &LifecycleError{Kind: KindProofNotFound, Message: "payment proof not found"}
	ErrAlreadyDecided          = &LifecycleError{Kind: KindAlreadyDecided, Message: "payment proof already decided"}
	ErrOutOfOrderApproval      = &LifecycleError{Kind: KindOutOfOrderApproval, Message: "installments must be approved in order"}
	ErrSubscriptionNotFound    = &LifecycleError{Kind: KindSubscriptionNotFound, Message: "subscription not found"}
	ErrSubscriptionCancelled   = &LifecycleError{Kind: KindSubscriptionCancelled, Message: "subscription is cancelled"}
	ErrInstallmentPlanNotFound = &LifecycleError{Kind: KindInstallmentPlanNotFound, Message: "installment plan not found"}
	ErrPlanNotFound            = &LifecycleError{Kind: KindPlanNotFound, Message: "plan not found"}
	ErrPlanInUse               = &LifecycleError{Kind: KindPlanInUse, Message: "plan has subscriptions"}
	ErrStudentNotFound         = &LifecycleError{Kind: KindStudentNotFound, Message: "student not found"}
	ErrInvalidProof            = &LifecycleError{Kind: KindInvalidProof, Message: "invalid payment proof"}
	ErrValidation              = &LifecycleError{Kind: KindValidation, Message: "validation failed"}
	ErrForbidden               = &LifecycleError{Kind: KindForbidden, Message: "access denied"}
)

// KindOf возвращает тип ошибки предметной области, если err ею является
func KindOf(err error) (ErrorKind, bool) {
	var le *LifecycleError
	if errors.As(err, &le) {
		return le.Kind, true
	}
	return "", false
}

// ValidationError представляет ошибку валидации поля
type ValidationError struct {
	Field   string
	Message string
}

// ValidationErrors представляет набор ошибок валидации
type ValidationErrors []ValidationError

// Error реализует интерфейс error
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}

	if len(e) == 1 {
		return fmt.Sprintf("validation failed: %s - %s", e[0].Field, e[0].Message)
	}

	return fmt.Sprintf("validation failed: %d errors", len(e))
}

// Add добавляет ошибку валидации
func (e *ValidationErrors) Add(field, message string) {
	*e = append(*e, ValidationError{Field: field, Message: message})
}

// HasErrors проверяет наличие ошибок
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// AsLifecycleError сворачивает набор в ошибку типа ValidationError
func (e ValidationErrors) AsLifecycleError() *LifecycleError {
	parts := make([]string, 0, len(e))
	for _, ve := range e {
		parts = append(parts, ve.Field+" "+ve.Message)
	}
	return NewError(KindValidation, "", strings.Join(parts, "; "))
}
