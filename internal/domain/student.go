package domain

import "database/sql"

// Student 学生领域模型（对应 students 表）
// DeviceID 为一次性设备绑定：首次签到时写入，只能由教师显式重置清除
type Student struct {
	StudentID string         `db:"student_id"`
	DeviceID  sql.NullString `db:"device_id"` // nullable，未绑定时为 NULL
}

// DeviceBound 是否已绑定设备
func (s *Student) DeviceBound() bool {
	return s != nil && s.DeviceID.Valid && s.DeviceID.String != ""
}

// DeviceMatches 绑定设备是否与给定设备一致（未绑定视为不冲突）
func (s *Student) DeviceMatches(deviceID string) bool {
	if !s.DeviceBound() {
		return true
	}
	return s.DeviceID.String == deviceID
}
