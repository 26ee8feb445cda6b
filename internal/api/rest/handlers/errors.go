package handlers

import (
	"errors"
	"net/http"

	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/domain"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/pkg/logger"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/pkg/req"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/pkg/res"
	"github.com/gin-gonic/gin"
)

// StatusForKind HTTP статус для типа ошибки предметной области
func StatusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation, domain.KindInvalidSchedule, domain.KindInvalidProof:
		return http.StatusBadRequest
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindSubscriptionNotFound, domain.KindProofNotFound, domain.KindPlanNotFound,
		domain.KindInstallmentPlanNotFound, domain.KindStudentNotFound:
		return http.StatusNotFound
	case domain.KindDuplicatePendingProof, domain.KindAlreadyDecided, domain.KindOutOfOrderApproval,
		domain.KindSubscriptionCancelled, domain.KindPlanInUse:
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}

// respondError отдает ошибку сервиса клиенту.
// Ошибки предметной области уходят с типом и сообщением, прочие скрываются за 500.
func respondError(c *gin.Context, log *logger.Logger, err error, fallback string) {
	var le *domain.LifecycleError
	if errors.As(err, &le) {
		status := StatusForKind(le.Kind)
		log.Warnw("Request rejected", "kind", le.Kind, "error", le.Message, "path", c.FullPath())
		res.JsonErrorResponse(c, res.ErrorResponse{Error: le.Message, Kind: string(le.Kind)}, status)
		return
	}

	log.Errorw(fallback, "error", err, "path", c.FullPath())
	_ = c.Error(err)
	res.JsonErrorResponse(c, res.ErrorResponse{Error: fallback}, http.StatusInternalServerError)
}

// respondBadRequest отдает ошибку разбора или валидации запроса
func respondBadRequest(c *gin.Context, err error) {
	res.JsonErrorResponse(c, res.ErrorResponse{
		Error:   err.Error(),
		Kind:    string(domain.KindValidation),
		Details: req.FieldErrors(err),
	}, http.StatusBadRequest)
}

func respondKind(c *gin.Context, kind domain.ErrorKind, message string) {
	res.JsonErrorResponse(c, res.ErrorResponse{Error: message, Kind: string(kind)}, StatusForKind(kind))
}
