package repository

import (
	"context"
	"time"

	"github.com/Avyoraj/Attend-Fresh/internal/domain"
)

// SessionsRepository 会话Repository接口
// "同一教室至多一个活跃会话" 由存储层唯一约束保证，
// 违反时 CreateSession 返回 domain.ErrDuplicate
type SessionsRepository interface {
	// CreateSession 创建活跃会话；教室已有活跃会话时返回 domain.ErrDuplicate
	CreateSession(ctx context.Context, session *domain.Session) error
	// GetSession 按 ID 查询；不存在时返回 (nil, nil)
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
	// EndSession 结束活跃会话；不存在或已结束时返回 (nil, nil)
	EndSession(ctx context.Context, sessionID string, endedAt time.Time) (*domain.Session, error)
	// UpdateRotation 持久化一次信标轮换（仅活跃会话）；返回更新后的会话，
	// 会话不活跃时返回 (nil, nil)。并发下为幂等覆盖，验证总是读最新值
	UpdateRotation(ctx context.Context, sessionID string, newMinor int, rotatedAt time.Time, windowMins int) (*domain.Session, error)
	// FindActiveByMinor 按当前或原始 minor 查找活跃会话；无匹配返回 (nil, nil)
	FindActiveByMinor(ctx context.Context, minor int) (*domain.Session, error)
}
