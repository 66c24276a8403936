package domain

import "time"

// 异常记录状态
const (
	AnomalyPending = "pending"
)

// Anomaly 两两相关性异常记录（对应 anomalies 表）
// 仅作为教师复核的线索，本身不驱动出勤状态变化
type Anomaly struct {
	AnomalyID        string    `db:"anomaly_id"`
	StudentID1       string    `db:"student_id_1"`
	StudentID2       string    `db:"student_id_2"`
	ClassID          string    `db:"class_id"`
	SessionDate      string    `db:"session_date"`
	CorrelationScore float64   `db:"correlation_score"`
	Status           string    `db:"status"` // 'pending'
	CreatedAt        time.Time `db:"created_at"`
}
