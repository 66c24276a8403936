package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Avyoraj/Attend-Fresh/internal/domain"

	"github.com/go-redis/redis/v8"
)

// RedisRssiStreamsRepo RSSI 采样流的 Redis 实现
//
// 每 (class, student, day) 一个 list，key 形如 rssi:{class}:{student}:{day}。
// 追加使用 RPUSH（存储级原子追加），并发上报不会互相覆盖——
// 这取代了历史实现里 JSONB 数组的读-改-写，消除了丢采样的竞态。
// 流按天组织，通过 TTL 自动过期
type RedisRssiStreamsRepo struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRssiStreamsRepo 创建采样流Repository
func NewRedisRssiStreamsRepo(client *redis.Client, ttl time.Duration) *RedisRssiStreamsRepo {
	return &RedisRssiStreamsRepo{client: client, ttl: ttl}
}

var _ RssiStreamsRepository = (*RedisRssiStreamsRepo)(nil)

func streamKey(classID, studentID, sessionDate string) string {
	return fmt.Sprintf("rssi:%s:%s:%s", classID, studentID, sessionDate)
}

func (r *RedisRssiStreamsRepo) AppendSamples(ctx context.Context, classID, studentID, sessionDate string, samples []domain.RssiSample) error {
	if len(samples) == 0 {
		return nil
	}

	values := make([]interface{}, 0, len(samples))
	for _, s := range samples {
		data, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("failed to marshal sample: %w", err)
		}
		values = append(values, data)
	}

	key := streamKey(classID, studentID, sessionDate)
	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, key, values...)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append samples: %w", err)
	}
	return nil
}

func (r *RedisRssiStreamsRepo) GetStream(ctx context.Context, classID, studentID, sessionDate string) ([]domain.RssiSample, error) {
	raw, err := r.client.LRange(ctx, streamKey(classID, studentID, sessionDate), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read stream: %w", err)
	}
	return decodeSamples(raw)
}

func (r *RedisRssiStreamsRepo) ListClassStreams(ctx context.Context, classID, sessionDate string) (map[string][]domain.RssiSample, error) {
	pattern := fmt.Sprintf("rssi:%s:*:%s", classID, sessionDate)

	streams := make(map[string][]domain.RssiSample)
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan streams: %w", err)
		}
		for _, key := range keys {
			studentID, ok := studentIDFromKey(key, classID, sessionDate)
			if !ok {
				continue
			}
			raw, err := r.client.LRange(ctx, key, 0, -1).Result()
			if err != nil {
				return nil, fmt.Errorf("failed to read stream %s: %w", key, err)
			}
			samples, err := decodeSamples(raw)
			if err != nil {
				return nil, err
			}
			streams[studentID] = samples
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return streams, nil
}

func studentIDFromKey(key, classID, sessionDate string) (string, bool) {
	prefix := "rssi:" + classID + ":"
	suffix := ":" + sessionDate
	if !strings.HasPrefix(key, prefix) || !strings.HasSuffix(key, suffix) {
		return "", false
	}
	studentID := strings.TrimSuffix(strings.TrimPrefix(key, prefix), suffix)
	return studentID, studentID != ""
}

func decodeSamples(raw []string) ([]domain.RssiSample, error) {
	samples := make([]domain.RssiSample, 0, len(raw))
	for _, item := range raw {
		var s domain.RssiSample
		if err := json.Unmarshal([]byte(item), &s); err != nil {
			return nil, fmt.Errorf("failed to unmarshal sample: %w", err)
		}
		samples = append(samples, s)
	}
	return samples, nil
}
