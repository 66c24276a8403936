// Package beacon 提供会话信标挑战的解析与轮换窗口判定
//
// 信标周期性轮换其广播的 minor 标识；学生端必须上报当前标识
// 才能证明此刻确实在教室内。窗口策略：
//   - 开课时使用宽松窗口（默认 60 分钟），此时信标还未开始轮换
//   - 信标控制器开始轮换后，窗口收紧（默认 3 分钟），过期或重放的
//     标识会被快速拒绝
package beacon

import (
	"time"

	"github.com/Avyoraj/Attend-Fresh/internal/domain"
)

// CurrentChallenge 会话当前期望的挑战标识
// 已轮换时为 CurrentMinorID，否则回退到开课时的原始 BeaconMinor
func CurrentChallenge(s *domain.Session) int {
	if s.CurrentMinorID != nil {
		return *s.CurrentMinorID
	}
	return s.BeaconMinor
}

// WithinRotationWindow 上报是否仍在轮换有效窗口内
// 从未轮换（LastRotationAt 为空）或未配置窗口时恒为 true
func WithinRotationWindow(s *domain.Session, now time.Time) bool {
	if s.LastRotationAt == nil || s.RotationIntervalMins <= 0 {
		return true
	}
	return now.Sub(*s.LastRotationAt) <= time.Duration(s.RotationIntervalMins)*time.Minute
}

// Rotate 应用一次信标轮换：更新当前挑战、轮换时间并收紧窗口
// 只有活跃会话接受轮换；已结束的会话不可变
func Rotate(s *domain.Session, newMinor int, now time.Time, windowMins int) error {
	if !s.IsActive() {
		return domain.E(domain.KindNotFound, "session_not_active", "Active session not found")
	}
	minor := newMinor
	s.CurrentMinorID = &minor
	rotatedAt := now
	s.LastRotationAt = &rotatedAt
	if windowMins > 0 {
		s.RotationIntervalMins = windowMins
	}
	return nil
}
