package domain

import "time"

// 会话状态
const (
	SessionActive = "active"
	SessionEnded  = "ended"
)

// Session 课堂会话领域模型（对应 sessions 表）
// 一个会话把教室（信标）和一节课绑定在一起；同一教室同时只允许一个活跃会话
type Session struct {
	ID          string `db:"id"`
	RoomID      string `db:"room_id"`
	ClassID     string `db:"class_id"`
	ClassName   string `db:"class_name"`
	TeacherID   string `db:"teacher_id"`
	TeacherName string `db:"teacher_name"`

	// 信标标识
	BeaconMajor int `db:"beacon_major"`
	// BeaconMinor 开课时的原始 minor
	BeaconMinor int `db:"beacon_minor"`
	// CurrentMinorID 轮换后的当前 minor；为空时回退到 BeaconMinor
	CurrentMinorID *int `db:"current_minor_id"`

	// 轮换窗口
	LastRotationAt       *time.Time `db:"last_rotation_at"`
	RotationIntervalMins int        `db:"rotation_interval_mins"`

	Status      string     `db:"status"` // 'active' / 'ended'
	ActualStart *time.Time `db:"actual_start"`
	ActualEnd   *time.Time `db:"actual_end"`
}

// IsActive 会话是否活跃
func (s *Session) IsActive() bool {
	return s != nil && s.Status == SessionActive
}
