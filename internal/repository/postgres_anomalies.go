package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Avyoraj/Attend-Fresh/internal/domain"
)

// PostgresAnomaliesRepo 异常记录Repository的Postgres实现
type PostgresAnomaliesRepo struct {
	db *sql.DB
}

// NewPostgresAnomaliesRepo 创建异常记录Repository
func NewPostgresAnomaliesRepo(db *sql.DB) *PostgresAnomaliesRepo {
	return &PostgresAnomaliesRepo{db: db}
}

var _ AnomaliesRepository = (*PostgresAnomaliesRepo)(nil)

func (r *PostgresAnomaliesRepo) CreateAnomaly(ctx context.Context, anomaly *domain.Anomaly) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO anomalies (anomaly_id, student_id_1, student_id_2, class_id,
		     session_date, correlation_score, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		anomaly.AnomalyID, anomaly.StudentID1, anomaly.StudentID2, anomaly.ClassID,
		anomaly.SessionDate, anomaly.CorrelationScore, anomaly.Status, anomaly.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create anomaly: %w", err)
	}
	return nil
}

func (r *PostgresAnomaliesRepo) ListPending(ctx context.Context, classID string) ([]*domain.Anomaly, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT anomaly_id, student_id_1, student_id_2, class_id,
		     session_date, correlation_score, status, created_at
		 FROM anomalies
		 WHERE class_id = $1 AND status = $2
		 ORDER BY created_at DESC`,
		classID, domain.AnomalyPending,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list anomalies: %w", err)
	}
	defer rows.Close()

	var anomalies []*domain.Anomaly
	for rows.Next() {
		var a domain.Anomaly
		if err := rows.Scan(
			&a.AnomalyID, &a.StudentID1, &a.StudentID2, &a.ClassID,
			&a.SessionDate, &a.CorrelationScore, &a.Status, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan anomaly: %w", err)
		}
		anomalies = append(anomalies, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate anomalies: %w", err)
	}
	return anomalies, nil
}
