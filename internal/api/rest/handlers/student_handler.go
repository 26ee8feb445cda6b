package handlers

import (
	"net/http"

	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/service"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/pkg/logger"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/pkg/req"
	"github.com/gin-gonic/gin"
)

type createStudentRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"required,email"`
}

// StudentHandler обработчик для учеников тренера
type StudentHandler struct {
	svc service.StudentService
	log *logger.Logger
}

// NewStudentHandler создает новый обработчик учеников
func NewStudentHandler(svc service.StudentService, log *logger.Logger) *StudentHandler {
	return &StudentHandler{svc: svc, log: log}
}

// CreateStudent регистрирует ученика текущего тренера
func (h *StudentHandler) CreateStudent(c *gin.Context) {
	scope, ok := coachScope(c)
	if !ok {
		return
	}
	body, err := req.HandleBody[createStudentRequest](c.Request.Body)
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	student, err := h.svc.Create(c.Request.Context(), scope.CoachID, body.Name, body.Email)
	if err != nil {
		respondError(c, h.log, err, "Failed to create student")
		return
	}
	c.JSON(http.StatusCreated, student)
}

// GetStudent возвращает ученика по ID
func (h *StudentHandler) GetStudent(c *gin.Context) {
	scope, ok := coachScope(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	student, err := h.svc.GetByID(c.Request.Context(), scope, id)
	if err != nil {
		respondError(c, h.log, err, "Failed to get student")
		return
	}
	c.JSON(http.StatusOK, student)
}

// ListStudents возвращает учеников тренера, search - по имени или email
func (h *StudentHandler) ListStudents(c *gin.Context) {
	scope, ok := coachScope(c)
	if !ok {
		return
	}

	students, err := h.svc.List(c.Request.Context(), scope.CoachID, c.Query("search"))
	if err != nil {
		respondError(c, h.log, err, "Failed to list students")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": students})
}
