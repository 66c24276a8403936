package domain

import (
	"errors"
	"fmt"
)

// ErrorKind 错误分类（服务层统一错误分类，HTTP 层据此映射状态码）
type ErrorKind int

const (
	KindValidation   ErrorKind = iota + 1 // 参数缺失/非法
	KindUnauthorized                      // 设备签名无效
	KindForbidden                         // 设备不匹配/挑战过期等授权失败
	KindNotFound                          // 会话/记录不存在
	KindConflict                          // 重复的活跃会话等真实冲突
	KindInternal                          // 存储或其他内部错误
)

// Error 带分类和稳定 reason 码的领域错误
type Error struct {
	Kind    ErrorKind
	Reason  string // 稳定的机器可读码，如 "device_mismatch"
	Message string // 面向调用方的可读信息
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Reason, e.Message)
	}
	return e.Reason
}

// E 构造领域错误
func E(kind ErrorKind, reason, message string) *Error {
	return &Error{Kind: kind, Reason: reason, Message: message}
}

// KindOf 提取错误分类；非领域错误一律视为 Internal
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// AsError 提取领域错误（失败返回 nil）
func AsError(err error) *Error {
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	return nil
}

// ErrDuplicate 存储层唯一约束冲突（服务层决定是冲突还是幂等成功）
var ErrDuplicate = errors.New("duplicate key")
