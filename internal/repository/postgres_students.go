package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Avyoraj/Attend-Fresh/internal/domain"
)

// PostgresStudentsRepo 学生Repository的Postgres实现
type PostgresStudentsRepo struct {
	db *sql.DB
}

// NewPostgresStudentsRepo 创建学生Repository
func NewPostgresStudentsRepo(db *sql.DB) *PostgresStudentsRepo {
	return &PostgresStudentsRepo{db: db}
}

// 确保实现了接口
var _ StudentsRepository = (*PostgresStudentsRepo)(nil)

func (r *PostgresStudentsRepo) GetStudent(ctx context.Context, studentID string) (*domain.Student, error) {
	var student domain.Student
	err := r.db.QueryRowContext(ctx,
		`SELECT student_id, device_id FROM students WHERE student_id = $1`,
		studentID,
	).Scan(&student.StudentID, &student.DeviceID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return &student, nil
}

// BindDevice 条件绑定：仅当 device_id 为 NULL 时写入
// 并发的首次签到只有一方能绑定成功；失败方重新读取后走不匹配检查
func (r *PostgresStudentsRepo) BindDevice(ctx context.Context, studentID, deviceID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO students (student_id, device_id)
		 VALUES ($1, $2)
		 ON CONFLICT (student_id)
		 DO UPDATE SET device_id = EXCLUDED.device_id
		 WHERE students.device_id IS NULL`,
		studentID, deviceID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to bind device: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to bind device: %w", err)
	}
	return affected > 0, nil
}

func (r *PostgresStudentsRepo) ResetDevice(ctx context.Context, studentID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE students SET device_id = NULL WHERE student_id = $1`,
		studentID,
	)
	if err != nil {
		return fmt.Errorf("failed to reset device: %w", err)
	}
	return nil
}
