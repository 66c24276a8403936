package repository

import (
	"context"

	"github.com/Avyoraj/Attend-Fresh/internal/domain"
)

// AnomaliesRepository 异常记录Repository接口
type AnomaliesRepository interface {
	// CreateAnomaly 持久化一条两两相关性异常（status=pending）
	CreateAnomaly(ctx context.Context, anomaly *domain.Anomaly) error
	// ListPending 按班级列出待复核的异常记录
	ListPending(ctx context.Context, classID string) ([]*domain.Anomaly, error)
}
