package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Avyoraj/Attend-Fresh/internal/domain"
)

// MemorySessionsRepo 会话Repository的内存实现（测试与无 DB 联调）
// 与 Postgres 实现保持同样的约束语义：同一教室至多一个活跃会话
type MemorySessionsRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
}

// NewMemorySessionsRepo 创建内存会话Repository
func NewMemorySessionsRepo() *MemorySessionsRepo {
	return &MemorySessionsRepo{sessions: map[string]*domain.Session{}}
}

var _ SessionsRepository = (*MemorySessionsRepo)(nil)

func (r *MemorySessionsRepo) CreateSession(_ context.Context, session *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.sessions {
		if s.RoomID == session.RoomID && s.Status == domain.SessionActive {
			return fmt.Errorf("room already has an active session: %w", domain.ErrDuplicate)
		}
	}
	copied := *session
	r.sessions[session.ID] = &copied
	return nil
}

func (r *MemorySessionsRepo) GetSession(_ context.Context, sessionID string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (r *MemorySessionsRepo) EndSession(_ context.Context, sessionID string, endedAt time.Time) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok || s.Status != domain.SessionActive {
		return nil, nil
	}
	s.Status = domain.SessionEnded
	t := endedAt
	s.ActualEnd = &t
	copied := *s
	return &copied, nil
}

func (r *MemorySessionsRepo) UpdateRotation(_ context.Context, sessionID string, newMinor int, rotatedAt time.Time, windowMins int) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok || s.Status != domain.SessionActive {
		return nil, nil
	}
	minor := newMinor
	s.CurrentMinorID = &minor
	t := rotatedAt
	s.LastRotationAt = &t
	if windowMins > 0 {
		s.RotationIntervalMins = windowMins
	}
	copied := *s
	return &copied, nil
}

func (r *MemorySessionsRepo) FindActiveByMinor(_ context.Context, minor int) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.sessions {
		if s.Status != domain.SessionActive {
			continue
		}
		if (s.CurrentMinorID != nil && *s.CurrentMinorID == minor) || s.BeaconMinor == minor {
			copied := *s
			return &copied, nil
		}
	}
	return nil, nil
}
