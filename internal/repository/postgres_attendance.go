package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Avyoraj/Attend-Fresh/internal/domain"

	"github.com/lib/pq"
)

// PostgresAttendanceRepo 出勤记录Repository的Postgres实现
//
// 签到幂等性依赖唯一约束：
//
//	CREATE UNIQUE INDEX attendance_student_session
//	    ON attendance (student_id, session_id);
//
// 状态转移都是条件更新（WHERE status IN 转移表源状态），
// 非法转移在存储层就不会发生
type PostgresAttendanceRepo struct {
	db *sql.DB
}

// NewPostgresAttendanceRepo 创建出勤记录Repository
func NewPostgresAttendanceRepo(db *sql.DB) *PostgresAttendanceRepo {
	return &PostgresAttendanceRepo{db: db}
}

var _ AttendanceRepository = (*PostgresAttendanceRepo)(nil)

const attendanceColumns = `id, student_id, class_id, session_id, device_id, status,
	rssi, beacon_minor, session_date, checked_in_at,
	step2_verified_at, confirmed_at, biometric_verified_at, physical_verified_by`

func (r *PostgresAttendanceRepo) InsertAttendance(ctx context.Context, record *domain.AttendanceRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO attendance (`+attendanceColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		record.ID, record.StudentID, record.ClassID, record.SessionID, record.DeviceID,
		string(record.Status), record.RSSI, record.BeaconMinor, record.SessionDate,
		record.CheckedInAt,
		nullableTime(record.Step2VerifiedAt), nullableTime(record.ConfirmedAt),
		nullableTime(record.BiometricVerifiedAt), record.PhysicalVerifiedBy,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("attendance exists for (student, session): %w", domain.ErrDuplicate)
		}
		return fmt.Errorf("failed to insert attendance: %w", err)
	}
	return nil
}

func (r *PostgresAttendanceRepo) GetByID(ctx context.Context, attendanceID string) (*domain.AttendanceRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+attendanceColumns+` FROM attendance WHERE id = $1`, attendanceID)
	return scanAttendance(row)
}

func (r *PostgresAttendanceRepo) GetBySessionStudent(ctx context.Context, sessionID, studentID string) (*domain.AttendanceRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+attendanceColumns+` FROM attendance
		 WHERE session_id = $1 AND student_id = $2`, sessionID, studentID)
	return scanAttendance(row)
}

func (r *PostgresAttendanceRepo) MarkStep2Verified(ctx context.Context, attendanceID string, verifiedAt time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE attendance SET status = $2, step2_verified_at = $3
		 WHERE id = $1 AND status = ANY($4)`,
		attendanceID, string(domain.StatusStep2Verified), verifiedAt,
		pq.Array(transitionSourceStrings(domain.StatusStep2Verified)),
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark step2_verified: %w", err)
	}
	return rowsChanged(result)
}

func (r *PostgresAttendanceRepo) MarkConfirmed(ctx context.Context, attendanceID string, confirmedAt time.Time, biometricAt *time.Time, verifiedBy string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE attendance
		 SET status = $2, confirmed_at = $3, biometric_verified_at = $4,
		     physical_verified_by = COALESCE(NULLIF($5, ''), physical_verified_by)
		 WHERE id = $1 AND status = ANY($6)`,
		attendanceID, string(domain.StatusConfirmed), confirmedAt,
		nullableTime(biometricAt), verifiedBy,
		pq.Array(transitionSourceStrings(domain.StatusConfirmed)),
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark confirmed: %w", err)
	}
	return rowsChanged(result)
}

func (r *PostgresAttendanceRepo) MarkFlagged(ctx context.Context, attendanceID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE attendance SET status = $2
		 WHERE id = $1 AND status = ANY($3)`,
		attendanceID, string(domain.StatusFlagged),
		pq.Array(transitionSourceStrings(domain.StatusFlagged)),
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark flagged: %w", err)
	}
	return rowsChanged(result)
}

// scanAttendance 扫描单条出勤记录；无行时返回 (nil, nil)
func scanAttendance(row *sql.Row) (*domain.AttendanceRecord, error) {
	var rec domain.AttendanceRecord
	var status string
	var step2At, confirmedAt, biometricAt sql.NullTime
	var verifiedBy sql.NullString

	err := row.Scan(
		&rec.ID, &rec.StudentID, &rec.ClassID, &rec.SessionID, &rec.DeviceID, &status,
		&rec.RSSI, &rec.BeaconMinor, &rec.SessionDate, &rec.CheckedInAt,
		&step2At, &confirmedAt, &biometricAt, &verifiedBy,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan attendance: %w", err)
	}

	rec.Status = domain.AttendanceStatus(status)
	if step2At.Valid {
		t := step2At.Time
		rec.Step2VerifiedAt = &t
	}
	if confirmedAt.Valid {
		t := confirmedAt.Time
		rec.ConfirmedAt = &t
	}
	if biometricAt.Valid {
		t := biometricAt.Time
		rec.BiometricVerifiedAt = &t
	}
	if verifiedBy.Valid {
		rec.PhysicalVerifiedBy = verifiedBy.String
	}
	return &rec, nil
}

func transitionSourceStrings(to domain.AttendanceStatus) []string {
	sources := domain.TransitionSources(to)
	out := make([]string, 0, len(sources))
	for _, s := range sources {
		out = append(out, string(s))
	}
	return out
}

func rowsChanged(result sql.Result) (bool, error) {
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected > 0, nil
}
