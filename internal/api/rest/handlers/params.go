package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/domain"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/middleware"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/service"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/pkg/res"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

var errNoPrincipal = errors.New("request is not authenticated")

// pathID разбирает UUID из параметра пути. При ошибке ответ уже отправлен.
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondKind(c, domain.KindValidation, fmt.Sprintf("invalid %s format", name))
		return uuid.Nil, false
	}
	return id, true
}

// parseDate принимает YYYY-MM-DD или RFC 3339
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be YYYY-MM-DD or RFC 3339, got %q", value)
	}
	return t, nil
}

func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return v, nil
}

// coachScope ограничивает запрос данными тренера из токена
func coachScope(c *gin.Context) (service.Scope, bool) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		res.JsonErrorResponse(c, res.ErrorResponse{Error: errNoPrincipal.Error()}, http.StatusUnauthorized)
		return service.Scope{}, false
	}
	return service.Scope{CoachID: p.UserID}, true
}

// studentScope ограничивает запрос данными ученика из токена
func studentScope(c *gin.Context) (service.Scope, bool) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		res.JsonErrorResponse(c, res.ErrorResponse{Error: errNoPrincipal.Error()}, http.StatusUnauthorized)
		return service.Scope{}, false
	}
	return service.Scope{StudentID: p.UserID}, true
}
