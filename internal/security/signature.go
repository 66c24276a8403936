package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Verifier 设备签名校验器
// 设备端与服务端共享一个 salt 密钥；签名为 HMAC-SHA256(deviceId) 的 hex 摘要
type Verifier struct {
	secret []byte
}

// NewVerifier 创建校验器
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Sign 计算设备签名（设备注册工具和测试使用）
func (v *Verifier) Sign(deviceID string) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(deviceID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify 校验签名是否来自注册设备
func (v *Verifier) Verify(deviceID, signature string) bool {
	if deviceID == "" || signature == "" {
		return false
	}
	expected := v.Sign(deviceID)
	return hmac.Equal([]byte(expected), []byte(signature))
}
