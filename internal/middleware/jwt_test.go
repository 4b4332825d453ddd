package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/examarena/examarena-backend/internal/config"
	"github.com/examarena/examarena-backend/internal/model"
	"github.com/examarena/examarena-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuthService(t *testing.T) *service.AuthService {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	cfg := &config.Config{
		JWTSecret:  "test-secret",
		JWTExpiry:  time.Hour,
		BcryptCost: bcrypt.MinCost,
	}
	return service.NewAuthService(cfg, rdb)
}

func newAuthedRouter(authService *service.AuthService, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	chain := append([]gin.HandlerFunc{RequireAuth(authService)}, extra...)
	chain = append(chain, func(c *gin.Context) {
		claims := GetClaims(c)
		c.JSON(http.StatusOK, gin.H{"user_id": claims.UserID.String()})
	})
	r.GET("/protected", chain...)
	return r
}

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	authService := newTestAuthService(t)
	r := newAuthedRouter(authService)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestRequireAuthRejectsGarbageToken(t *testing.T) {
	authService := newTestAuthService(t)
	r := newAuthedRouter(authService)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestRequireAuthAcceptsValidToken(t *testing.T) {
	authService := newTestAuthService(t)
	r := newAuthedRouter(authService)

	userID := uuid.New()
	token, err := authService.GenerateToken(context.Background(), userID, model.RoleStudent)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
}

func TestRequireAuthAcceptsQueryToken(t *testing.T) {
	authService := newTestAuthService(t)
	r := newAuthedRouter(authService)

	token, err := authService.GenerateToken(context.Background(), uuid.New(), model.RoleStudent)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected?token="+token, nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
}

func TestRequireAdminBlocksStudents(t *testing.T) {
	authService := newTestAuthService(t)
	r := newAuthedRouter(authService, RequireAdmin())

	studentToken, err := authService.GenerateToken(context.Background(), uuid.New(), model.RoleStudent)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+studentToken)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestRequireAdminAllowsAdmins(t *testing.T) {
	authService := newTestAuthService(t)
	r := newAuthedRouter(authService, RequireAdmin())

	adminToken, err := authService.GenerateToken(context.Background(), uuid.New(), model.RoleAdmin)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
}

func TestCheckSessionRejectsSignedOutUser(t *testing.T) {
	authService := newTestAuthService(t)
	r := newAuthedRouter(authService, CheckSession(authService))

	userID := uuid.New()
	token, err := authService.GenerateToken(context.Background(), userID, model.RoleStudent)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if err := authService.SignOut(context.Background(), userID); err != nil {
		t.Fatalf("SignOut: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}
