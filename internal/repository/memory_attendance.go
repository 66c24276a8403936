package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Avyoraj/Attend-Fresh/internal/domain"
)

// MemoryAttendanceRepo 出勤记录Repository的内存实现（测试与无 DB 联调）
type MemoryAttendanceRepo struct {
	mu      sync.Mutex
	records map[string]*domain.AttendanceRecord // id -> record
	byPair  map[string]string                   // sessionID|studentID -> id
}

// NewMemoryAttendanceRepo 创建内存出勤Repository
func NewMemoryAttendanceRepo() *MemoryAttendanceRepo {
	return &MemoryAttendanceRepo{
		records: map[string]*domain.AttendanceRecord{},
		byPair:  map[string]string{},
	}
}

var _ AttendanceRepository = (*MemoryAttendanceRepo)(nil)

func pairKey(sessionID, studentID string) string {
	return sessionID + "|" + studentID
}

func (r *MemoryAttendanceRepo) InsertAttendance(_ context.Context, record *domain.AttendanceRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pairKey(record.SessionID, record.StudentID)
	if _, exists := r.byPair[key]; exists {
		return fmt.Errorf("attendance exists for (student, session): %w", domain.ErrDuplicate)
	}
	copied := *record
	r.records[record.ID] = &copied
	r.byPair[key] = record.ID
	return nil
}

func (r *MemoryAttendanceRepo) GetByID(_ context.Context, attendanceID string) (*domain.AttendanceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[attendanceID]
	if !ok {
		return nil, nil
	}
	copied := *rec
	return &copied, nil
}

func (r *MemoryAttendanceRepo) GetBySessionStudent(_ context.Context, sessionID, studentID string) (*domain.AttendanceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byPair[pairKey(sessionID, studentID)]
	if !ok {
		return nil, nil
	}
	copied := *r.records[id]
	return &copied, nil
}

func (r *MemoryAttendanceRepo) MarkStep2Verified(_ context.Context, attendanceID string, verifiedAt time.Time) (bool, error) {
	return r.transition(attendanceID, domain.StatusStep2Verified, func(rec *domain.AttendanceRecord) {
		t := verifiedAt
		rec.Step2VerifiedAt = &t
	})
}

func (r *MemoryAttendanceRepo) MarkConfirmed(_ context.Context, attendanceID string, confirmedAt time.Time, biometricAt *time.Time, verifiedBy string) (bool, error) {
	return r.transition(attendanceID, domain.StatusConfirmed, func(rec *domain.AttendanceRecord) {
		t := confirmedAt
		rec.ConfirmedAt = &t
		if biometricAt != nil {
			bt := *biometricAt
			rec.BiometricVerifiedAt = &bt
		}
		if verifiedBy != "" {
			rec.PhysicalVerifiedBy = verifiedBy
		}
	})
}

func (r *MemoryAttendanceRepo) MarkFlagged(_ context.Context, attendanceID string) (bool, error) {
	return r.transition(attendanceID, domain.StatusFlagged, nil)
}

// transition 按状态机转移表做条件更新，与 Postgres 实现同语义
func (r *MemoryAttendanceRepo) transition(attendanceID string, to domain.AttendanceStatus, apply func(*domain.AttendanceRecord)) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[attendanceID]
	if !ok {
		return false, nil
	}
	if !domain.CanTransition(rec.Status, to) {
		return false, nil
	}
	rec.Status = to
	if apply != nil {
		apply(rec)
	}
	return true, nil
}
