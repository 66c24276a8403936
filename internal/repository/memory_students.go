package repository

import (
	"context"
	"database/sql"
	"sync"

	"github.com/Avyoraj/Attend-Fresh/internal/domain"
)

// MemoryStudentsRepo 学生Repository的内存实现（测试与无 DB 联调）
type MemoryStudentsRepo struct {
	mu       sync.Mutex
	students map[string]*domain.Student
}

// NewMemoryStudentsRepo 创建内存学生Repository
func NewMemoryStudentsRepo() *MemoryStudentsRepo {
	return &MemoryStudentsRepo{students: map[string]*domain.Student{}}
}

var _ StudentsRepository = (*MemoryStudentsRepo)(nil)

func (r *MemoryStudentsRepo) GetStudent(_ context.Context, studentID string) (*domain.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.students[studentID]
	if !ok {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

// BindDevice 与 Postgres 实现同语义：仅未绑定时写入，持锁保证条件检查原子
func (r *MemoryStudentsRepo) BindDevice(_ context.Context, studentID, deviceID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.students[studentID]
	if !ok {
		r.students[studentID] = &domain.Student{
			StudentID: studentID,
			DeviceID:  sql.NullString{String: deviceID, Valid: true},
		}
		return true, nil
	}
	if s.DeviceBound() {
		return false, nil
	}
	s.DeviceID = sql.NullString{String: deviceID, Valid: true}
	return true, nil
}

func (r *MemoryStudentsRepo) ResetDevice(_ context.Context, studentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.students[studentID]; ok {
		s.DeviceID = sql.NullString{}
	}
	return nil
}
