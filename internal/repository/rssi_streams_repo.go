package repository

import (
	"context"

	"github.com/Avyoraj/Attend-Fresh/internal/domain"
)

// RssiStreamsRepository RSSI 采样流Repository接口
//
// 每 (class, student, day) 一条仅追加的采样流。Append 必须是存储级
// 原子追加：并发上报不做读-改-写，不会丢失竞争写入方的采样。
// 分析侧只跨学生读取，从不跨学生写入
type RssiStreamsRepository interface {
	// AppendSamples 原子追加一批采样
	AppendSamples(ctx context.Context, classID, studentID, sessionDate string, samples []domain.RssiSample) error
	// GetStream 读取单个学生当天的完整采样流；无数据返回空切片
	GetStream(ctx context.Context, classID, studentID, sessionDate string) ([]domain.RssiSample, error)
	// ListClassStreams 读取同班当天所有学生的采样流，按学号索引
	ListClassStreams(ctx context.Context, classID, sessionDate string) (map[string][]domain.RssiSample, error)
}
