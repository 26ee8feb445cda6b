package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/domain"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/service"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/pkg/logger"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/pkg/req"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/pkg/res"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Lifecycle операции жизненного цикла подписки, которые нужны HTTP слою
type Lifecycle interface {
	CreateSubscription(ctx context.Context, scope service.Scope, in service.CreateSubscriptionInput) (*service.SubscriptionView, error)
	CheckSubmission(ctx context.Context, scope service.Scope, subscriptionID uuid.UUID, installmentIndex int) error
	SubmitProof(ctx context.Context, scope service.Scope, subscriptionID uuid.UUID, installmentIndex int, fileReference string) (*domain.PaymentProof, error)
	ApproveProof(ctx context.Context, scope service.Scope, proofID uuid.UUID) (*service.SubscriptionView, error)
	RejectProof(ctx context.Context, scope service.Scope, proofID uuid.UUID) (*service.SubscriptionView, error)
	Cancel(ctx context.Context, scope service.Scope, subscriptionID uuid.UUID) (*service.SubscriptionView, error)
	GetSubscription(ctx context.Context, scope service.Scope, subscriptionID uuid.UUID) (*service.SubscriptionView, error)
	ListSubscriptions(ctx context.Context, scope service.Scope, filter domain.SubscriptionFilter) ([]service.SubscriptionView, int, error)
	ListProofs(ctx context.Context, scope service.Scope, subscriptionID uuid.UUID) ([]domain.PaymentProof, error)
}

type createSubscriptionRequest struct {
	StudentID         string `json:"student_id" validate:"required,uuid"`
	InstallmentPlanID string `json:"installment_plan_id" validate:"required,uuid"`
	StartDate         string `json:"start_date" validate:"required"`
}

// SubscriptionHandler обработчик для подписок
type SubscriptionHandler struct {
	svc Lifecycle
	log *logger.Logger
}

// NewSubscriptionHandler создает новый обработчик подписок
func NewSubscriptionHandler(svc Lifecycle, log *logger.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{svc: svc, log: log}
}

// CreateSubscription создает подписку ученика на вариант плана
func (h *SubscriptionHandler) CreateSubscription(c *gin.Context) {
	scope, ok := coachScope(c)
	if !ok {
		return
	}
	body, err := req.HandleBody[createSubscriptionRequest](c.Request.Body)
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	startDate, err := parseDate(body.StartDate)
	if err != nil {
		respondKind(c, domain.KindValidation, err.Error())
		return
	}

	view, err := h.svc.CreateSubscription(c.Request.Context(), scope, service.CreateSubscriptionInput{
		StudentID:         uuid.MustParse(body.StudentID),
		InstallmentPlanID: uuid.MustParse(body.InstallmentPlanID),
		StartDate:         startDate,
	})
	if err != nil {
		respondError(c, h.log, err, "Failed to create subscription")
		return
	}
	c.JSON(http.StatusCreated, view)
}

// CoachListSubscriptions список подписок учеников тренера
func (h *SubscriptionHandler) CoachListSubscriptions(c *gin.Context) {
	scope, ok := coachScope(c)
	if !ok {
		return
	}
	h.list(c, scope)
}

// StudentListSubscriptions список подписок текущего ученика
func (h *SubscriptionHandler) StudentListSubscriptions(c *gin.Context) {
	scope, ok := studentScope(c)
	if !ok {
		return
	}
	h.list(c, scope)
}

func (h *SubscriptionHandler) list(c *gin.Context, scope service.Scope) {
	filter, ok := parseFilter(c)
	if !ok {
		return
	}

	views, total, err := h.svc.ListSubscriptions(c.Request.Context(), scope, filter)
	if err != nil {
		respondError(c, h.log, err, "Failed to list subscriptions")
		return
	}

	res.JsonResponse(c, res.PageResponse[service.SubscriptionView]{
		Items:    views,
		Page:     filter.Page,
		PageSize: filter.PageSize,
		Total:    total,
	}, http.StatusOK)
}

func parseFilter(c *gin.Context) (domain.SubscriptionFilter, bool) {
	var filter domain.SubscriptionFilter

	if raw := strings.ToUpper(strings.TrimSpace(c.Query("status"))); raw != "" {
		status, err := domain.ParseSubscriptionStatus(raw)
		if err != nil {
			respondKind(c, domain.KindValidation, fmt.Sprintf("unknown subscription status %q", raw))
			return filter, false
		}
		filter.Status = status
	}
	if raw := c.Query("student_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondKind(c, domain.KindValidation, "invalid student_id format")
			return filter, false
		}
		filter.StudentID = id
	}
	filter.Search = strings.TrimSpace(c.Query("search"))

	page, err := queryInt(c, "page", 1)
	if err != nil {
		respondKind(c, domain.KindValidation, err.Error())
		return filter, false
	}
	pageSize, err := queryInt(c, "page_size", domain.DefaultPageSize)
	if err != nil {
		respondKind(c, domain.KindValidation, err.Error())
		return filter, false
	}
	filter.Page = page
	filter.PageSize = pageSize

	return filter.Normalize(), true
}

// CoachGetSubscription подписка ученика тренера
func (h *SubscriptionHandler) CoachGetSubscription(c *gin.Context) {
	scope, ok := coachScope(c)
	if !ok {
		return
	}
	h.get(c, scope)
}

// StudentGetSubscription подписка текущего ученика
func (h *SubscriptionHandler) StudentGetSubscription(c *gin.Context) {
	scope, ok := studentScope(c)
	if !ok {
		return
	}
	h.get(c, scope)
}

func (h *SubscriptionHandler) get(c *gin.Context, scope service.Scope) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	view, err := h.svc.GetSubscription(c.Request.Context(), scope, id)
	if err != nil {
		respondError(c, h.log, err, "Failed to get subscription")
		return
	}
	c.JSON(http.StatusOK, view)
}

// CancelSubscription отменяет подписку
func (h *SubscriptionHandler) CancelSubscription(c *gin.Context) {
	scope, ok := coachScope(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	view, err := h.svc.Cancel(c.Request.Context(), scope, id)
	if err != nil {
		respondError(c, h.log, err, "Failed to cancel subscription")
		return
	}
	h.log.Infow("Subscription cancelled via HTTP", "subscriptionID", id, "coachID", scope.CoachID)
	c.JSON(http.StatusOK, view)
}
