package handlers

import (
	"net/http"

	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/domain"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/service"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/pkg/logger"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/pkg/req"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type installmentOptionRequest struct {
	InstallmentAmount decimal.Decimal `json:"installment_amount"`
	InstallmentCount  int             `json:"installment_count"`
}

type createPlanRequest struct {
	Name             string                     `json:"name" validate:"required,max=200"`
	Description      string                     `json:"description" validate:"max=2000"`
	DurationMonths   int                        `json:"duration_months" validate:"required,min=1"`
	InstallmentPlans []installmentOptionRequest `json:"installment_plans" validate:"required,min=1"`
}

// PlanHandler обработчик для планов тренера
type PlanHandler struct {
	svc service.PlanService
	log *logger.Logger
}

// NewPlanHandler создает новый обработчик планов
func NewPlanHandler(svc service.PlanService, log *logger.Logger) *PlanHandler {
	return &PlanHandler{svc: svc, log: log}
}

// CreatePlan создает план с вариантами разбивки на парцелы
func (h *PlanHandler) CreatePlan(c *gin.Context) {
	scope, ok := coachScope(c)
	if !ok {
		return
	}
	body, err := req.HandleBody[createPlanRequest](c.Request.Body)
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	options := make([]domain.InstallmentOption, 0, len(body.InstallmentPlans))
	for _, o := range body.InstallmentPlans {
		options = append(options, domain.InstallmentOption{Amount: o.InstallmentAmount, Count: o.InstallmentCount})
	}

	plan, err := h.svc.Create(c.Request.Context(), scope.CoachID, service.CreatePlanInput{
		Name:             body.Name,
		Description:      body.Description,
		DurationMonths:   body.DurationMonths,
		InstallmentPlans: options,
	})
	if err != nil {
		respondError(c, h.log, err, "Failed to create plan")
		return
	}
	c.JSON(http.StatusCreated, plan)
}

// GetPlan возвращает план по ID
func (h *PlanHandler) GetPlan(c *gin.Context) {
	scope, ok := coachScope(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	plan, err := h.svc.GetByID(c.Request.Context(), scope.CoachID, id)
	if err != nil {
		respondError(c, h.log, err, "Failed to get plan")
		return
	}
	c.JSON(http.StatusOK, plan)
}

// ListPlans возвращает планы тренера
func (h *PlanHandler) ListPlans(c *gin.Context) {
	scope, ok := coachScope(c)
	if !ok {
		return
	}

	plans, err := h.svc.List(c.Request.Context(), scope.CoachID)
	if err != nil {
		respondError(c, h.log, err, "Failed to list plans")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": plans})
}

// DeletePlan удаляет план, если на него нет подписок
func (h *PlanHandler) DeletePlan(c *gin.Context) {
	scope, ok := coachScope(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), scope.CoachID, id); err != nil {
		respondError(c, h.log, err, "Failed to delete plan")
		return
	}
	c.Status(http.StatusNoContent)
}
