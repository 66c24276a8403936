package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Avyoraj/Attend-Fresh/internal/domain"

	"github.com/lib/pq"
)

// PostgresSessionsRepo 会话Repository的Postgres实现
//
// "同一教室至多一个活跃会话" 由部分唯一索引保证：
//
//	CREATE UNIQUE INDEX sessions_one_active_per_room
//	    ON sessions (room_id) WHERE status = 'active';
type PostgresSessionsRepo struct {
	db *sql.DB
}

// NewPostgresSessionsRepo 创建会话Repository
func NewPostgresSessionsRepo(db *sql.DB) *PostgresSessionsRepo {
	return &PostgresSessionsRepo{db: db}
}

var _ SessionsRepository = (*PostgresSessionsRepo)(nil)

const sessionColumns = `id, room_id, class_id, class_name, teacher_id, teacher_name,
	beacon_major, beacon_minor, current_minor_id, last_rotation_at,
	rotation_interval_mins, status, actual_start, actual_end`

func (r *PostgresSessionsRepo) CreateSession(ctx context.Context, session *domain.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		session.ID, session.RoomID, session.ClassID, session.ClassName,
		session.TeacherID, session.TeacherName,
		session.BeaconMajor, session.BeaconMinor,
		nullableInt(session.CurrentMinorID), nullableTime(session.LastRotationAt),
		session.RotationIntervalMins, session.Status,
		nullableTime(session.ActualStart), nullableTime(session.ActualEnd),
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("room already has an active session: %w", domain.ErrDuplicate)
		}
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *PostgresSessionsRepo) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, sessionID)
	return scanSession(row)
}

func (r *PostgresSessionsRepo) EndSession(ctx context.Context, sessionID string, endedAt time.Time) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE sessions SET status = 'ended', actual_end = $2
		 WHERE id = $1 AND status = 'active'
		 RETURNING `+sessionColumns,
		sessionID, endedAt)
	return scanSession(row)
}

func (r *PostgresSessionsRepo) UpdateRotation(ctx context.Context, sessionID string, newMinor int, rotatedAt time.Time, windowMins int) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE sessions
		 SET current_minor_id = $2, last_rotation_at = $3, rotation_interval_mins = $4
		 WHERE id = $1 AND status = 'active'
		 RETURNING `+sessionColumns,
		sessionID, newMinor, rotatedAt, windowMins)
	return scanSession(row)
}

func (r *PostgresSessionsRepo) FindActiveByMinor(ctx context.Context, minor int) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE status = 'active' AND (current_minor_id = $1 OR beacon_minor = $1)
		 LIMIT 1`, minor)
	return scanSession(row)
}

// scanSession 扫描单条会话记录；无行时返回 (nil, nil)
func scanSession(row *sql.Row) (*domain.Session, error) {
	var s domain.Session
	var currentMinor sql.NullInt64
	var lastRotation, actualStart, actualEnd sql.NullTime

	err := row.Scan(
		&s.ID, &s.RoomID, &s.ClassID, &s.ClassName, &s.TeacherID, &s.TeacherName,
		&s.BeaconMajor, &s.BeaconMinor, &currentMinor, &lastRotation,
		&s.RotationIntervalMins, &s.Status, &actualStart, &actualEnd,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}

	if currentMinor.Valid {
		v := int(currentMinor.Int64)
		s.CurrentMinorID = &v
	}
	if lastRotation.Valid {
		t := lastRotation.Time
		s.LastRotationAt = &t
	}
	if actualStart.Valid {
		t := actualStart.Time
		s.ActualStart = &t
	}
	if actualEnd.Valid {
		t := actualEnd.Time
		s.ActualEnd = &t
	}
	return &s, nil
}

func nullableInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableTime(v *time.Time) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
