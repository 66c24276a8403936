package repository

import (
	"context"
	"sync"

	"github.com/Avyoraj/Attend-Fresh/internal/domain"
)

// MemoryRssiStreamsRepo 采样流Repository的内存实现（测试与无 Redis 联调）
// 追加持锁完成，与 Redis RPUSH 同样不会丢失并发写入
type MemoryRssiStreamsRepo struct {
	mu      sync.Mutex
	streams map[string][]domain.RssiSample // class|student|day -> samples
}

// NewMemoryRssiStreamsRepo 创建内存采样流Repository
func NewMemoryRssiStreamsRepo() *MemoryRssiStreamsRepo {
	return &MemoryRssiStreamsRepo{streams: map[string][]domain.RssiSample{}}
}

var _ RssiStreamsRepository = (*MemoryRssiStreamsRepo)(nil)

type memoryStreamKey struct{ classID, studentID, sessionDate string }

func (k memoryStreamKey) String() string {
	return k.classID + "|" + k.studentID + "|" + k.sessionDate
}

func (r *MemoryRssiStreamsRepo) AppendSamples(_ context.Context, classID, studentID, sessionDate string, samples []domain.RssiSample) error {
	if len(samples) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	key := memoryStreamKey{classID, studentID, sessionDate}.String()
	r.streams[key] = append(r.streams[key], samples...)
	return nil
}

func (r *MemoryRssiStreamsRepo) GetStream(_ context.Context, classID, studentID, sessionDate string) ([]domain.RssiSample, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := memoryStreamKey{classID, studentID, sessionDate}.String()
	samples := make([]domain.RssiSample, len(r.streams[key]))
	copy(samples, r.streams[key])
	return samples, nil
}

func (r *MemoryRssiStreamsRepo) ListClassStreams(_ context.Context, classID, sessionDate string) (map[string][]domain.RssiSample, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prefix := classID + "|"
	suffix := "|" + sessionDate
	result := make(map[string][]domain.RssiSample)
	for key, samples := range r.streams {
		if len(key) <= len(prefix)+len(suffix) {
			continue
		}
		if key[:len(prefix)] != prefix || key[len(key)-len(suffix):] != suffix {
			continue
		}
		studentID := key[len(prefix) : len(key)-len(suffix)]
		copied := make([]domain.RssiSample, len(samples))
		copy(copied, samples)
		result[studentID] = copied
	}
	return result, nil
}
