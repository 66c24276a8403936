package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Avyoraj/Attend-Fresh/internal/config"
	"github.com/Avyoraj/Attend-Fresh/internal/mqtt"
	"github.com/Avyoraj/Attend-Fresh/internal/service"

	"go.uber.org/zap"
)

// rotationMessage 信标控制器上报的轮换消息
type rotationMessage struct {
	SessionID  string `json:"sessionId"`
	NewMinorID int    `json:"newMinorId"`
}

// RotationConsumer 订阅信标轮换主题，把控制器心跳转发给会话服务
// 与 HTTP 的 PATCH /sessions/sync-minor 等价，供离线部署的控制器使用
type RotationConsumer struct {
	client   *mqtt.Client
	sessions *service.SessionService
	topic    string
	logger   *zap.Logger
}

// NewRotationConsumer 创建轮换消费者
func NewRotationConsumer(client *mqtt.Client, sessions *service.SessionService, cfg *config.MQTTConfig, logger *zap.Logger) *RotationConsumer {
	return &RotationConsumer{
		client:   client,
		sessions: sessions,
		topic:    cfg.Topic,
		logger:   logger,
	}
}

// Start 订阅轮换主题
func (c *RotationConsumer) Start(ctx context.Context) error {
	if err := c.client.Subscribe(c.topic, 1, func(topic string, payload []byte) error {
		return c.handleMessage(ctx, payload)
	}); err != nil {
		return fmt.Errorf("failed to subscribe to rotation topic: %w", err)
	}

	c.logger.Info("rotation consumer started", zap.String("topic", c.topic))
	return nil
}

// Stop 取消订阅并断开连接
func (c *RotationConsumer) Stop() {
	if err := c.client.Unsubscribe(c.topic); err != nil {
		c.logger.Warn("failed to unsubscribe rotation topic", zap.Error(err))
	}
	c.client.Disconnect()
	c.logger.Info("rotation consumer stopped")
}

// handleMessage 处理单条轮换消息
// 会话不存在或已结束只记日志，不让消费循环失败
func (c *RotationConsumer) handleMessage(ctx context.Context, payload []byte) error {
	var msg rotationMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("failed to parse rotation message: %w", err)
	}

	if _, err := c.sessions.SyncMinor(ctx, msg.SessionID, msg.NewMinorID); err != nil {
		c.logger.Warn("rotation sync rejected",
			zap.String("session_id", msg.SessionID),
			zap.Int("new_minor", msg.NewMinorID),
			zap.Error(err),
		)
		return nil
	}

	c.logger.Debug("rotation applied via mqtt",
		zap.String("session_id", msg.SessionID),
		zap.Int("new_minor", msg.NewMinorID),
	)
	return nil
}
