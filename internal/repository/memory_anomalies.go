package repository

import (
	"context"
	"sync"

	"github.com/Avyoraj/Attend-Fresh/internal/domain"
)

// MemoryAnomaliesRepo 异常记录Repository的内存实现（测试与无 DB 联调）
type MemoryAnomaliesRepo struct {
	mu        sync.Mutex
	anomalies []*domain.Anomaly
}

// NewMemoryAnomaliesRepo 创建内存异常Repository
func NewMemoryAnomaliesRepo() *MemoryAnomaliesRepo {
	return &MemoryAnomaliesRepo{}
}

var _ AnomaliesRepository = (*MemoryAnomaliesRepo)(nil)

func (r *MemoryAnomaliesRepo) CreateAnomaly(_ context.Context, anomaly *domain.Anomaly) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *anomaly
	r.anomalies = append(r.anomalies, &copied)
	return nil
}

func (r *MemoryAnomaliesRepo) ListPending(_ context.Context, classID string) ([]*domain.Anomaly, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []*domain.Anomaly
	for _, a := range r.anomalies {
		if a.ClassID == classID && a.Status == domain.AnomalyPending {
			copied := *a
			result = append(result, &copied)
		}
	}
	return result, nil
}
