package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/yuvalk87/mofet-forms-app/internal/model"
	"github.com/yuvalk87/mofet-forms-app/internal/repository"
)

// capturingSender 捕获下发的验证码
type capturingSender struct {
	lastCode string
}

func (s *capturingSender) SendOTP(user *model.User, code string) {
	s.lastCode = code
}

func newTestService(t *testing.T) (*AuthService, *repository.UserRepository, *capturingSender) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.OTPCode{}))

	userRepo := repository.NewUserRepository(db)
	otpRepo := repository.NewOTPRepository(db)
	sender := &capturingSender{}
	svc := NewAuthService(userRepo, otpRepo, sender, "test-secret", time.Hour, 5*time.Minute)
	return svc, userRepo, sender
}

func registerUser(t *testing.T, svc *AuthService) *model.User {
	t.Helper()
	user, err := svc.Register(&model.RegisterRequest{
		Username: "alice",
		Password: "secret123",
		Email:    "alice@example.com",
		FullName: "Alice",
		Phone:    "0501234567",
	})
	require.NoError(t, err)
	return user
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc, _, _ := newTestService(t)
	registerUser(t, svc)

	_, err := svc.Register(&model.RegisterRequest{
		Username: "alice",
		Password: "secret123",
		Email:    "other@example.com",
	})
	assert.Error(t, err)
}

func TestLoginAndTokenRoundTrip(t *testing.T) {
	svc, _, _ := newTestService(t)
	user := registerUser(t, svc)

	resp, err := svc.Login(&model.LoginRequest{Email: "alice@example.com", Password: "secret123"}, "127.0.0.1")
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)
	assert.False(t, resp.RequiresOTP)

	claims, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _, _ := newTestService(t)
	registerUser(t, svc)

	_, err := svc.Login(&model.LoginRequest{Email: "alice@example.com", Password: "wrong"}, "127.0.0.1")
	assert.Error(t, err)
}

func TestLoginDisabledUser(t *testing.T) {
	svc, userRepo, _ := newTestService(t)
	user := registerUser(t, svc)
	user.Status = "disabled"
	require.NoError(t, userRepo.UpdateUser(user))

	_, err := svc.Login(&model.LoginRequest{Email: "alice@example.com", Password: "secret123"}, "127.0.0.1")
	assert.Error(t, err)
}

func TestOTPLoginFlow(t *testing.T) {
	svc, userRepo, sender := newTestService(t)
	user := registerUser(t, svc)
	user.OTPEnabled = true
	require.NoError(t, userRepo.UpdateUser(user))

	// 第一阶段：密码正确但只返回 requires_otp
	resp, err := svc.Login(&model.LoginRequest{Email: "alice@example.com", Password: "secret123"}, "127.0.0.1")
	require.NoError(t, err)
	assert.True(t, resp.RequiresOTP)
	assert.Empty(t, resp.Token)
	require.Len(t, sender.lastCode, 6)

	// 错误验证码
	_, err = svc.VerifyOTP(&model.VerifyOTPRequest{UserID: user.ID, OTPCode: "000000x"}, "127.0.0.1")
	assert.Error(t, err)

	// 正确验证码换token
	resp, err = svc.VerifyOTP(&model.VerifyOTPRequest{UserID: user.ID, OTPCode: sender.lastCode}, "127.0.0.1")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)

	// 验证码一次有效
	_, err = svc.VerifyOTP(&model.VerifyOTPRequest{UserID: user.ID, OTPCode: sender.lastCode}, "127.0.0.1")
	assert.Error(t, err)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.ValidateToken("not-a-token")
	assert.Error(t, err)
}
