package model

import "time"

// OTPCode 登录短信验证码。Redis 启用时验证码走 Redis，此表仅在数据库模式下使用。
type OTPCode struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"type:varchar(36);not null;index" json:"user_id"`
	Code      string    `gorm:"type:varchar(10);not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	Used      bool      `gorm:"default:false" json:"used"`
	CreatedAt time.Time `json:"created_at"`
}

func (OTPCode) TableName() string {
	return "otp_codes"
}

// IsValid 验证码是否可用
func (o *OTPCode) IsValid(now time.Time) bool {
	return !o.Used && now.Before(o.ExpiresAt)
}
