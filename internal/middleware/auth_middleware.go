package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/EmilyMartinsDev/Coachpro-app-sub000/pkg/logger"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/pkg/res"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ContextKey тип для ключей контекста во избежание коллизий.
type ContextKey string

const (
	// ContextPrincipalKey ключ, под которым в контексте хранится Principal
	ContextPrincipalKey ContextKey = "principal"
	authHeaderPrefix               = "Bearer "
)

// Role роль пользователя в токене
type Role string

const (
	RoleCoach   Role = "coach"
	RoleStudent Role = "student"
)

// Principal аутентифицированный пользователь запроса
type Principal struct {
	UserID uuid.UUID
	Role   Role
}

type TokenValidator interface {
	Validate(tokenString string) (*TokenClaims, error)
}

type TokenClaims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

type JWTMiddleware struct {
	log       *logger.Logger
	validator TokenValidator
}

func NewJWTMiddleware(log *logger.Logger, validator TokenValidator) *JWTMiddleware {
	return &JWTMiddleware{
		log:       log,
		validator: validator,
	}
}

// RequireAuth проверяет токен и кладет Principal в контекст.
// Если роли заданы, роль токена должна быть одной из них.
func (m *JWTMiddleware) RequireAuth(roles ...Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, authHeaderPrefix) {
			m.handleAuthError(c, http.StatusUnauthorized, "Missing authorization token")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, authHeaderPrefix)
		claims, err := m.validator.Validate(tokenString)
		if err != nil {
			m.handleAuthError(c, http.StatusUnauthorized, fmt.Sprintf("Token validation failed: %v", err))
			return
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			m.handleAuthError(c, http.StatusUnauthorized, "User ID (sub) missing or malformed in token")
			return
		}
		if claims.Role != RoleCoach && claims.Role != RoleStudent {
			m.handleAuthError(c, http.StatusUnauthorized, "Unknown role in token")
			return
		}

		if !hasRole(claims.Role, roles) {
			m.handleAuthError(c, http.StatusForbidden, "Insufficient token permissions")
			return
		}

		c.Set(string(ContextPrincipalKey), Principal{UserID: userID, Role: claims.Role})
		m.log.Debugw("User authenticated via HTTP", "userID", userID, "role", claims.Role)
		c.Next()
	}
}

// PrincipalFrom возвращает пользователя, установленного RequireAuth
func PrincipalFrom(c *gin.Context) (Principal, bool) {
	v, ok := c.Get(string(ContextPrincipalKey))
	if !ok {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}

func hasRole(role Role, allowed []Role) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, r := range allowed {
		if role == r {
			return true
		}
	}
	return false
}

func (m *JWTMiddleware) handleAuthError(c *gin.Context, status int, message string) {
	m.log.Warnw("HTTP authentication failed", "path", c.Request.URL.Path, "error", message)
	kind := "UnauthorizedError"
	if status == http.StatusForbidden {
		kind = "ForbiddenError"
	}
	res.JsonErrorResponse(c, res.ErrorResponse{Error: message, Kind: kind}, status)
}

// DefaultTokenValidator - реализация валидатора на HMAC-секрете.
type DefaultTokenValidator struct {
	Secret []byte
}

func (v *DefaultTokenValidator) Validate(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.Secret, nil
	})

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, errors.New("malformed token")
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, errors.New("invalid token signature")
		case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, errors.New("token expired")
		default:
			return nil, fmt.Errorf("invalid token: %w", err)
		}
	}

	if claims, ok := token.Claims.(*TokenClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token claims")
}

// IssueToken подписывает токен для пользователя. Используется в тестах и утилитах.
func (v *DefaultTokenValidator) IssueToken(userID uuid.UUID, role Role, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.Secret)
}
