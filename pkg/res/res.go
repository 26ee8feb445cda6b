package res

import (
	"github.com/gin-gonic/gin"
)

// ErrorResponse представляет формат JSON-ответа для ошибок.
type ErrorResponse struct {
	Error   string `json:"error"`             // Сообщение об ошибке (для пользователя)
	Kind    string `json:"kind,omitempty"`    // Тип ошибки (для программной обработки)
	Details any    `json:"details,omitempty"` // Детали ошибки (например, ошибки валидации)
}

// PageResponse - страница списка с метаданными пагинации
type PageResponse[T any] struct {
	Items    []T `json:"items"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}

// JsonResponse отправляет JSON-ответ с заданным статусом.
func JsonResponse(c *gin.Context, data any, status int) {
	c.JSON(status, data)
}

// JsonErrorResponse отправляет JSON ответ ошибки и прерывает цепочку обработчиков.
func JsonErrorResponse(c *gin.Context, errResponse ErrorResponse, status int) {
	c.AbortWithStatusJSON(status, errResponse)
}
