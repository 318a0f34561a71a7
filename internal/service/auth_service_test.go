package service

import (
	"testing"
	"time"

	"jazzedu_backend/internal/config"
	"jazzedu_backend/internal/model"
	"jazzedu_backend/internal/repository"
	"jazzedu_backend/internal/testutil"
	"jazzedu_backend/internal/util"
)

func TestRegisterAndLogin_RoundTrip(t *testing.T) {
	db := testutil.NewTestDB(t)
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret-test-secret-test-secret"
	cfg.JWT.ExpireTime = 24 * time.Hour
	svc := NewAuthService(repository.NewUserRepository(db), cfg)

	user := &model.User{Name: "wes", Email: "wes@example.com", Password: "octaves"}
	if err := svc.Register(user); err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Password == "octaves" {
		t.Fatalf("password must be hashed at rest")
	}

	// 重复邮箱
	dup := &model.User{Name: "wes2", Email: "wes@example.com", Password: "x"}
	if err := svc.Register(dup); err != util.ErrEmailRegistered {
		t.Fatalf("expected ErrEmailRegistered, got %v", err)
	}

	token, err := svc.Login("wes@example.com", "octaves")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := util.ParseJWT(token, cfg.JWT.Secret)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != user.ID || claims.Email != user.Email {
		t.Fatalf("claims mismatch: %+v", claims)
	}

	if _, err := svc.Login("wes@example.com", "wrong"); err != util.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login("nobody@example.com", "x"); err != util.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestLogin_DisabledAccountRejected(t *testing.T) {
	db := testutil.NewTestDB(t)
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret-test-secret-test-secret"
	cfg.JWT.ExpireTime = time.Hour
	svc := NewAuthService(repository.NewUserRepository(db), cfg)

	user := &model.User{Name: "gone", Email: "gone@example.com", Password: "pw"}
	if err := svc.Register(user); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := db.Model(&model.User{}).Where("id = ?", user.ID).Update("disabled", true).Error; err != nil {
		t.Fatalf("disable: %v", err)
	}

	if _, err := svc.Login("gone@example.com", "pw"); err != util.ErrPermissionDenied {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}
