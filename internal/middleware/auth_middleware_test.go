package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/EmilyMartinsDev/Coachpro-app-sub000/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func newRouter(validator *DefaultTokenValidator, roles ...Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	m := NewJWTMiddleware(logger.NewNop(), validator)

	r := gin.New()
	r.Use(RequestLogger(logger.NewNop()))
	r.GET("/me", m.RequireAuth(roles...), func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": p.UserID.String(), "role": p.Role})
	})
	return r
}

func doRequest(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	validator := &DefaultTokenValidator{Secret: []byte("test-secret")}
	other := &DefaultTokenValidator{Secret: []byte("other-secret")}
	userID := uuid.New()

	coachToken, err := validator.IssueToken(userID, RoleCoach, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	studentToken, _ := validator.IssueToken(userID, RoleStudent, time.Hour)
	expiredToken, _ := validator.IssueToken(userID, RoleCoach, -time.Hour)
	foreignToken, _ := other.IssueToken(userID, RoleCoach, time.Hour)
	badSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, TokenClaims{
		Role:             RoleCoach,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "not-a-uuid"},
	}).SignedString(validator.Secret)

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"coach", coachToken, http.StatusOK},
		{"wrong role", studentToken, http.StatusForbidden},
		{"missing", "", http.StatusUnauthorized},
		{"expired", expiredToken, http.StatusUnauthorized},
		{"foreign signature", foreignToken, http.StatusUnauthorized},
		{"malformed subject", badSubject, http.StatusUnauthorized},
		{"garbage", "abc.def.ghi", http.StatusUnauthorized},
	}

	r := newRouter(validator, RoleCoach)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(r, tt.token)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d, body %s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestRequireAuthAnyRole(t *testing.T) {
	validator := &DefaultTokenValidator{Secret: []byte("test-secret")}
	r := newRouter(validator)

	token, _ := validator.IssueToken(uuid.New(), RoleStudent, time.Hour)
	if w := doRequest(r, token); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}
