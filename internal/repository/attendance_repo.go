package repository

import (
	"context"
	"time"

	"github.com/Avyoraj/Attend-Fresh/internal/domain"
)

// AttendanceRepository 出勤记录Repository接口
//
// (student_id, session_id) 唯一约束是签到幂等性的事实来源：
// 重复插入返回 domain.ErrDuplicate，服务层视为幂等成功。
// 各 Mark* 方法按状态机转移表做条件更新（WHERE status IN 源状态），
// 返回是否发生转移；false 表示记录已处于目标态或终态
type AttendanceRepository interface {
	// InsertAttendance 插入 provisional 记录；重复返回 domain.ErrDuplicate
	InsertAttendance(ctx context.Context, record *domain.AttendanceRecord) error
	// GetByID 按记录 ID 查询；不存在时返回 (nil, nil)
	GetByID(ctx context.Context, attendanceID string) (*domain.AttendanceRecord, error)
	// GetBySessionStudent 按 (session, student) 查询；不存在时返回 (nil, nil)
	GetBySessionStudent(ctx context.Context, sessionID, studentID string) (*domain.AttendanceRecord, error)
	// MarkStep2Verified provisional -> step2_verified
	MarkStep2Verified(ctx context.Context, attendanceID string, verifiedAt time.Time) (bool, error)
	// MarkConfirmed {provisional, step2_verified} -> confirmed
	// biometricAt 非空时同时记录生物识别时间；verifiedBy 为手动确认教师
	MarkConfirmed(ctx context.Context, attendanceID string, confirmedAt time.Time, biometricAt *time.Time, verifiedBy string) (bool, error)
	// MarkFlagged {provisional, step2_verified} -> flagged
	MarkFlagged(ctx context.Context, attendanceID string) (bool, error)
}
