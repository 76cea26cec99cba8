package twofactor

import (
	"bytes"
	"encoding/base32"
	"encoding/base64"
	"image/png"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
	"github.com/pquerna/otp/totp"
)

// TwoFactorService 双因素认证服务
type TwoFactorService struct {
	issuer string
}

// NewTwoFactorService 创建2FA服务
func NewTwoFactorService(issuer string) *TwoFactorService {
	return &TwoFactorService{
		issuer: issuer,
	}
}

// GenerateSecret 生成2FA密钥
func (s *TwoFactorService) GenerateSecret(username string) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: username,
		// 使用默认设置：30秒周期，6位数字，SHA1算法
	})
	if err != nil {
		return "", err
	}
	return key.Secret(), nil
}

// GenerateQRCode 生成二维码数据URL
func (s *TwoFactorService) GenerateQRCode(username, secret string) (string, error) {
	// 将 base32 编码的密钥转换为字节数组
	secretBytes, err := base32.StdEncoding.DecodeString(secret)
	if err != nil {
		return "", err
	}

	// 使用已生成的密钥创建TOTP对象
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: username,
		Secret:      secretBytes,
	})
	if err != nil {
		return "", err
	}

	// 生成二维码图片
	qrCode, err := qr.Encode(key.URL(), qr.M, qr.Auto)
	if err != nil {
		return "", err
	}

	// 缩放二维码以提高清晰度
	qrCode, err = barcode.Scale(qrCode, 200, 200)
	if err != nil {
		return "", err
	}

	// 将二维码转换为PNG图片
	var buf bytes.Buffer
	if err := png.Encode(&buf, qrCode); err != nil {
		return "", err
	}

	// 转换为base64数据URL
	base64Str := base64.StdEncoding.EncodeToString(buf.Bytes())
	return "data:image/png;base64," + base64Str, nil
}

// ValidateCode 验证TOTP代码
func (s *TwoFactorService) ValidateCode(secret, code string) bool {
	// 标准验证，与Google Authenticator等应用兼容
	return totp.Validate(code, secret)
}
