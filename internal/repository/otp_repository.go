package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/yuvalk87/mofet-forms-app/internal/model"
)

// OTPRepository 一次性验证码的数据库存储，Redis不可用时的降级路径
type OTPRepository struct {
	db *gorm.DB
}

func NewOTPRepository(db *gorm.DB) *OTPRepository {
	return &OTPRepository{db: db}
}

// SaveCode 写入新验证码并作废该用户的旧码
func (r *OTPRepository) SaveCode(userID, code string, ttl time.Duration) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&model.OTPCode{}).
			Where("user_id = ? AND used = ?", userID, false).
			Update("used", true).Error
		if err != nil {
			return err
		}
		return tx.Create(&model.OTPCode{
			UserID:    userID,
			Code:      code,
			ExpiresAt: time.Now().Add(ttl),
		}).Error
	})
}

// ConsumeCode 校验并消费验证码，一次有效
func (r *OTPRepository) ConsumeCode(userID, code string) (bool, error) {
	var record model.OTPCode
	err := r.db.Where("user_id = ? AND code = ? AND used = ?", userID, code, false).
		Order("created_at DESC").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	if !record.IsValid(time.Now()) {
		return false, nil
	}
	record.Used = true
	if err := r.db.Save(&record).Error; err != nil {
		return false, err
	}
	return true, nil
}

// PurgeExpired 清理过期验证码
func (r *OTPRepository) PurgeExpired() error {
	return r.db.Where("expires_at < ?", time.Now()).Delete(&model.OTPCode{}).Error
}
