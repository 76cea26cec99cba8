package model

import (
	"time"
)

// User 平台用户
type User struct {
	ID       string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Username string `json:"username" gorm:"type:varchar(50);uniqueIndex;not null"`
	Password string `json:"-" gorm:"type:varchar(255);not null"` // 不在JSON中暴露
	Email    string `json:"email" gorm:"type:varchar(100);uniqueIndex"`
	FullName string `json:"fullName" gorm:"type:varchar(100)"`
	Phone    string `json:"phone,omitempty" gorm:"type:varchar(20)"`
	Role     string `json:"role" gorm:"type:varchar(20);default:'user'"` // admin, user
	Status   string `json:"status" gorm:"type:varchar(20);default:'active';index"`

	// 登录OTP（短信验证码）开关，启用后登录需二次验证
	OTPEnabled bool `json:"otpEnabled" gorm:"column:otp_enabled;type:boolean;default:false"`

	// 2FA相关字段（TOTP，与短信OTP独立）
	TwoFactorEnabled     bool       `json:"twoFactorEnabled" gorm:"column:two_factor_enabled;type:boolean;default:false"`
	TwoFactorSecret      string     `json:"-" gorm:"column:two_factor_secret;type:varchar(255)"` // 2FA密钥，不在JSON中暴露
	TwoFactorVerifiedAt  *time.Time `json:"twoFactorVerifiedAt,omitempty" gorm:"column:two_factor_verified_at;type:timestamp"`

	LastLoginTime *time.Time `json:"lastLoginTime" gorm:"type:timestamp"`
	LastLoginIP   string     `json:"lastLoginIp" gorm:"type:varchar(45)"`

	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}

// IsActive 用户是否可登录/可被解析为审批人
func (u *User) IsActive() bool {
	return u.Status == "active"
}

// UserWithRoles 用户及其审批角色
type UserWithRoles struct {
	User
	RoleIDs []uint `json:"roleIds" gorm:"-"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	// TOTP验证码（仅开启2FA的用户需要）
	TwoFactorCode string `json:"twoFactorCode,omitempty"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token string `json:"token,omitempty"`
	User  *User  `json:"user,omitempty"`
	// 短信OTP二次验证
	RequiresOTP bool   `json:"requiresOtp,omitempty"`
	UserID      string `json:"userId,omitempty"`
}

// VerifyOTPRequest 短信验证码校验请求
type VerifyOTPRequest struct {
	UserID  string `json:"user_id" binding:"required"`
	OTPCode string `json:"otp_code" binding:"required"`
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
	Email    string `json:"email" binding:"required,email"`
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
}
