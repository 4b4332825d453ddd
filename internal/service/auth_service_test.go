package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/examarena/examarena-backend/internal/config"
	"github.com/examarena/examarena-backend/internal/model"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuthService(t *testing.T) (*AuthService, *miniredis.Miniredis) {
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
	return NewAuthService(cfg, rdb), mr
}

func TestPasswordHashRoundTrip(t *testing.T) {
	s, _ := newTestAuthService(t)

	hash, err := s.HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	if err := s.CheckPassword(hash, "correct horse battery staple"); err != nil {
		t.Errorf("CheckPassword with right password: %v", err)
	}
	if err := s.CheckPassword(hash, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("CheckPassword with wrong password = %v, want ErrInvalidCredentials", err)
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	s, _ := newTestAuthService(t)
	ctx := context.Background()
	userID := uuid.New()

	token, err := s.GenerateToken(ctx, userID, model.RoleStudent)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := s.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != userID {
		t.Errorf("UserID = %s, want %s", claims.UserID, userID)
	}
	if claims.Role != model.RoleStudent {
		t.Errorf("Role = %s, want %s", claims.Role, model.RoleStudent)
	}

	if err := s.ValidateSession(ctx, userID, claims.ID); err != nil {
		t.Errorf("ValidateSession after login: %v", err)
	}
}

func TestValidateTokenRejectsTampered(t *testing.T) {
	s, _ := newTestAuthService(t)
	ctx := context.Background()

	token, err := s.GenerateToken(ctx, uuid.New(), model.RoleStudent)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if _, err := s.ValidateToken(token + "x"); err == nil {
		t.Error("expected error for tampered token")
	}
}

func TestReloginInvalidatesOldSession(t *testing.T) {
	s, _ := newTestAuthService(t)
	ctx := context.Background()
	userID := uuid.New()

	first, err := s.GenerateToken(ctx, userID, model.RoleStudent)
	if err != nil {
		t.Fatalf("first GenerateToken: %v", err)
	}
	firstClaims, err := s.ValidateToken(first)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}

	// Second login replaces the stored JTI.
	if _, err := s.GenerateToken(ctx, userID, model.RoleStudent); err != nil {
		t.Fatalf("second GenerateToken: %v", err)
	}

	if err := s.ValidateSession(ctx, userID, firstClaims.ID); err == nil {
		t.Error("expected old session to be invalidated after re-login")
	}
}

func TestSignOutRemovesSession(t *testing.T) {
	s, _ := newTestAuthService(t)
	ctx := context.Background()
	userID := uuid.New()

	token, err := s.GenerateToken(ctx, userID, model.RoleAdmin)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	claims, err := s.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}

	if err := s.SignOut(ctx, userID); err != nil {
		t.Fatalf("SignOut: %v", err)
	}

	if err := s.ValidateSession(ctx, userID, claims.ID); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("ValidateSession after sign-out = %v, want ErrNoActiveSession", err)
	}
}

func TestSessionExpiresWithTTL(t *testing.T) {
	s, mr := newTestAuthService(t)
	ctx := context.Background()
	userID := uuid.New()

	token, err := s.GenerateToken(ctx, userID, model.RoleStudent)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	claims, err := s.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}

	mr.FastForward(2 * time.Hour)

	if err := s.ValidateSession(ctx, userID, claims.ID); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("ValidateSession after TTL = %v, want ErrNoActiveSession", err)
	}
}
