package domain

import "time"

// AttendanceStatus 出勤记录状态（封闭枚举）
type AttendanceStatus string

const (
	// StatusProvisional 初始签到，待二次验证
	StatusProvisional AttendanceStatus = "provisional"
	// StatusStep2Verified 已通过轮换后的二次挑战，待分析定论
	StatusStep2Verified AttendanceStatus = "step2_verified"
	// StatusConfirmed 终态：确认在场
	StatusConfirmed AttendanceStatus = "confirmed"
	// StatusFlagged 终态：疑似代理，待教师复核
	StatusFlagged AttendanceStatus = "flagged"
)

// attendanceTransitions 状态机转移表
// 所有转移单向前进：confirmed / flagged 之后不再有任何自动转移
var attendanceTransitions = map[AttendanceStatus][]AttendanceStatus{
	StatusProvisional:   {StatusStep2Verified, StatusConfirmed, StatusFlagged},
	StatusStep2Verified: {StatusConfirmed, StatusFlagged},
}

// CanTransition 状态机是否允许 from -> to
func CanTransition(from, to AttendanceStatus) bool {
	for _, next := range attendanceTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TransitionSources 能够到达 to 的源状态列表（存储层做条件更新时使用）
func TransitionSources(to AttendanceStatus) []AttendanceStatus {
	var sources []AttendanceStatus
	for from, nexts := range attendanceTransitions {
		for _, next := range nexts {
			if next == to {
				sources = append(sources, from)
			}
		}
	}
	return sources
}

// IsTerminal 是否为终态
func (s AttendanceStatus) IsTerminal() bool {
	return s == StatusConfirmed || s == StatusFlagged
}

// AttendanceRecord 出勤记录领域模型（对应 attendance 表）
// 每个 (student, session) 至多一条，由唯一约束保证；只向前流转，从不删除
type AttendanceRecord struct {
	ID        string `db:"id"`
	StudentID string `db:"student_id"`
	ClassID   string `db:"class_id"`
	SessionID string `db:"session_id"`
	DeviceID  string `db:"device_id"`

	Status AttendanceStatus `db:"status"`

	// RSSI 签到时上报的信号强度
	RSSI int `db:"rssi"`
	// BeaconMinor 签到时上报的挑战标识（二次验证必须与之不同）
	BeaconMinor int `db:"beacon_minor"`
	// SessionDate 会话日期（YYYY-MM-DD，采样流按天归档）
	SessionDate string `db:"session_date"`

	CheckedInAt         time.Time  `db:"checked_in_at"`
	Step2VerifiedAt     *time.Time `db:"step2_verified_at"`
	ConfirmedAt         *time.Time `db:"confirmed_at"`
	BiometricVerifiedAt *time.Time `db:"biometric_verified_at"`
	// PhysicalVerifiedBy 手动确认时的验证教师
	PhysicalVerifiedBy string `db:"physical_verified_by"`
}
