package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/yuvalk87/mofet-forms-app/internal/model"
	"github.com/yuvalk87/mofet-forms-app/internal/repository"
	"github.com/yuvalk87/mofet-forms-app/pkg/logger"
	"github.com/yuvalk87/mofet-forms-app/pkg/redis"
	"github.com/yuvalk87/mofet-forms-app/pkg/twofactor"
)

// JWT Claims
type Claims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// OTPSender 验证码下发通道（短信网关等）
type OTPSender interface {
	SendOTP(user *model.User, code string)
}

type AuthService struct {
	repo         *repository.UserRepository
	otpRepo      *repository.OTPRepository
	TwoFactorSvc *twofactor.TwoFactorService
	otpSender    OTPSender
	jwtSecret    []byte
	tokenTTL     time.Duration
	otpTTL       time.Duration
}

// NewAuthService 创建认证服务
// jwtSecret: JWT签名密钥（建议64字节或更长，更安全）
func NewAuthService(repo *repository.UserRepository, otpRepo *repository.OTPRepository, otpSender OTPSender, jwtSecret string, tokenTTL, otpTTL time.Duration) *AuthService {
	jwtKey := []byte(jwtSecret)
	if len(jwtKey) == 0 {
		// 如果没有配置，使用默认值（仅用于开发环境）
		jwtKey = []byte("mofet-forms-dev-secret-do-not-use-in-production!")
	}
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	if otpTTL <= 0 {
		otpTTL = 5 * time.Minute
	}

	return &AuthService{
		repo:         repo,
		otpRepo:      otpRepo,
		TwoFactorSvc: twofactor.NewTwoFactorService("MofetForms"),
		otpSender:    otpSender,
		jwtSecret:    jwtKey,
		tokenTTL:     tokenTTL,
		otpTTL:       otpTTL,
	}
}

// Register 用户注册
func (s *AuthService) Register(req *model.RegisterRequest) (*model.User, error) {
	// 检查用户名是否已存在
	if _, err := s.repo.FindUserByUsername(req.Username); err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("检查用户名失败: %w", err)
		}
	} else {
		return nil, errors.New("用户名已存在")
	}

	// 检查邮箱是否已存在
	if req.Email != "" {
		if _, err := s.repo.FindUserByEmail(req.Email); err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("检查邮箱失败: %w", err)
			}
		} else {
			return nil, errors.New("邮箱已被使用")
		}
	}

	// 加密密码
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("密码加密失败: %w", err)
	}

	user := &model.User{
		ID:       uuid.New().String(),
		Username: req.Username,
		Password: string(hashed),
		Email:    req.Email,
		FullName: req.FullName,
		Phone:    req.Phone,
		Role:     "user",
		Status:   "active",
	}
	if err := s.repo.CreateUser(user); err != nil {
		return nil, fmt.Errorf("创建用户失败: %w", err)
	}
	return user, nil
}

// Login 邮箱+密码登录。
// 开启OTP的用户第一阶段只返回 requires_otp，验证码走短信通道；
// 开启TOTP的用户必须带动态码。
func (s *AuthService) Login(req *model.LoginRequest, loginIP string) (*model.LoginResponse, error) {
	user, err := s.repo.FindUserByEmail(req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("邮箱或密码错误")
		}
		return nil, err
	}
	if !user.IsActive() {
		return nil, errors.New("账号已被禁用")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, errors.New("邮箱或密码错误")
	}

	// TOTP二次验证
	if user.TwoFactorEnabled {
		if req.TwoFactorCode == "" {
			return nil, errors.New("需要两步验证码")
		}
		if !s.TwoFactorSvc.ValidateCode(user.TwoFactorSecret, req.TwoFactorCode) {
			return nil, errors.New("两步验证码错误")
		}
	}

	// 短信OTP：先发码，持有验证码再换token
	if user.OTPEnabled {
		if err := s.issueOTP(user); err != nil {
			return nil, err
		}
		return &model.LoginResponse{RequiresOTP: true, UserID: user.ID}, nil
	}

	return s.completeLogin(user, loginIP)
}

// VerifyOTP 校验短信验证码并签发token
func (s *AuthService) VerifyOTP(req *model.VerifyOTPRequest, loginIP string) (*model.LoginResponse, error) {
	user, err := s.repo.FindUserByID(req.UserID)
	if err != nil {
		return nil, errors.New("用户不存在")
	}
	if !user.IsActive() {
		return nil, errors.New("账号已被禁用")
	}

	ok, err := s.consumeOTP(user.ID, req.OTPCode)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("验证码错误或已过期")
	}
	return s.completeLogin(user, loginIP)
}

func (s *AuthService) completeLogin(user *model.User, loginIP string) (*model.LoginResponse, error) {
	token, err := s.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateUserLastLogin(user.ID, time.Now(), loginIP); err != nil {
		logger.Warnf("更新最后登录信息失败: %v", err)
	}
	return &model.LoginResponse{Token: token, User: user}, nil
}

// GenerateToken 签发JWT
func (s *AuthService) GenerateToken(user *model.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			Subject:   user.ID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateToken 校验并解析JWT
func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("无效的token")
	}
	return claims, nil
}

// ===== 2FA (TOTP) =====

// Setup2FA 生成TOTP密钥和二维码，密钥暂存用户记录，启用前不生效
func (s *AuthService) Setup2FA(userID string) (secret, qrCode string, err error) {
	user, err := s.repo.FindUserByID(userID)
	if err != nil {
		return "", "", errors.New("用户不存在")
	}

	newSecret, err := s.TwoFactorSvc.GenerateSecret(user.Email)
	if err != nil {
		return "", "", fmt.Errorf("生成2FA密钥失败: %w", err)
	}
	qr, err := s.TwoFactorSvc.GenerateQRCode(user.Email, newSecret)
	if err != nil {
		return "", "", fmt.Errorf("生成二维码失败: %w", err)
	}

	user.TwoFactorSecret = newSecret
	user.TwoFactorEnabled = false
	if err := s.repo.UpdateUser(user); err != nil {
		return "", "", err
	}
	return newSecret, qr, nil
}

// Enable2FA 验证一次动态码后正式启用
func (s *AuthService) Enable2FA(userID, code string) error {
	user, err := s.repo.FindUserByID(userID)
	if err != nil {
		return errors.New("用户不存在")
	}
	if user.TwoFactorSecret == "" {
		return errors.New("请先生成2FA密钥")
	}
	if !s.TwoFactorSvc.ValidateCode(user.TwoFactorSecret, code) {
		return errors.New("动态码错误")
	}

	now := time.Now()
	user.TwoFactorEnabled = true
	user.TwoFactorVerifiedAt = &now
	return s.repo.UpdateUser(user)
}

// Disable2FA 关闭两步验证
func (s *AuthService) Disable2FA(userID string) error {
	user, err := s.repo.FindUserByID(userID)
	if err != nil {
		return errors.New("用户不存在")
	}
	user.TwoFactorEnabled = false
	user.TwoFactorSecret = ""
	user.TwoFactorVerifiedAt = nil
	return s.repo.UpdateUser(user)
}

// ===== 短信OTP =====

// issueOTP 生成6位验证码。优先写Redis（自带TTL），
// Redis未启用时落数据库表。
func (s *AuthService) issueOTP(user *model.User) error {
	code, err := generateOTPCode()
	if err != nil {
		return fmt.Errorf("生成验证码失败: %w", err)
	}

	if redis.IsEnabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		err = redis.GetClient().Set(ctx, otpCacheKey(user.ID), code, s.otpTTL).Err()
		if err != nil {
			return fmt.Errorf("保存验证码失败: %w", err)
		}
	} else {
		if err := s.otpRepo.SaveCode(user.ID, code, s.otpTTL); err != nil {
			return fmt.Errorf("保存验证码失败: %w", err)
		}
	}

	if s.otpSender != nil {
		s.otpSender.SendOTP(user, code)
	} else {
		logger.Warnf("OTP下发通道未配置，用户 %s 的验证码无法送达", user.ID)
	}
	return nil
}

func (s *AuthService) consumeOTP(userID, code string) (bool, error) {
	if redis.IsEnabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		key := otpCacheKey(userID)
		stored, err := redis.GetClient().Get(ctx, key).Result()
		if err != nil {
			return false, nil // 不存在或已过期
		}
		if stored != code {
			return false, nil
		}
		redis.GetClient().Del(ctx, key)
		return true, nil
	}
	return s.otpRepo.ConsumeCode(userID, code)
}

func otpCacheKey(userID string) string {
	return "otp:login:" + userID
}

// generateOTPCode 6位数字验证码，密码学随机
func generateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
