package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config attend-fresh（出勤验证 HTTP API）配置
type Config struct {
	HTTP struct {
		Addr string
	}
	DBEnabled bool
	Database  DatabaseConfig
	Redis     RedisConfig
	MQTT      MQTTConfig
	Log       struct {
		Level  string
		Format string
	}
	Security SecurityConfig
	Beacon   BeaconConfig
	Detector DetectorConfig
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis配置（RSSI 采样流存储）
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// StreamTTLHours RSSI 流的过期时间（按天组织，过期自动清理）
	StreamTTLHours int
}

// MQTTConfig MQTT配置（用于接收信标轮换通知，默认禁用）
type MQTTConfig struct {
	Enabled  bool
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
	QoS      byte
}

// SecurityConfig 设备签名配置
type SecurityConfig struct {
	// DeviceSecret HMAC-SHA256 签名密钥（与设备端共享）
	DeviceSecret string
}

// BeaconConfig 信标轮换窗口配置
type BeaconConfig struct {
	// InitialWindowMins 开课时的宽松验证窗口（信标尚未轮换）
	InitialWindowMins int
	// RotatedWindowMins 信标开始轮换后的收紧窗口
	RotatedWindowMins int
	// DefaultMajor / DefaultMinor 创建会话时的默认信标标识
	DefaultMajor int
	DefaultMinor int
}

// DetectorConfig 代理检测策略阈值
// 所有阈值与分值都是策略常量，可独立调整
type DetectorConfig struct {
	// MotionRatioThreshold 有效采样中运动占比低于该值视为静止设备
	MotionRatioThreshold float64
	// JitterThreshold RSSI 抖动低于该值视为桌面静置
	JitterThreshold float64
	// JitterMinSamples 抖动评分所需的最少有效采样数
	JitterMinSamples int
	// CorrelationThreshold Pearson 相关系数高于该值视为同步移动
	CorrelationThreshold float64
	// MissedFlagCount 漏报采样达到该数量直接判定 flagged
	MissedFlagCount int
	// ScoreLowMotion / ScoreLowJitter / ScoreMissed / ScoreCorrelation 风险分值
	ScoreLowMotion    int
	ScoreLowJitter    int
	ScoreMissed       int
	ScoreCorrelation  int
	// FlagRiskScore 单人分析的 flagged 判定阈值
	FlagRiskScore int
	// PairMinSamples 两两风险评分的最小序列长度（完整对比）
	PairMinSamples int
	// AnalysisMinSamples 单人分析内两两相关性检查的最小对齐长度
	// 注意：与 PairMinSamples 不同是沿用历史行为，见 DESIGN.md
	AnalysisMinSamples int
	// JitterDeltaThreshold 两设备抖动差低于该值视为移动模式一致
	JitterDeltaThreshold float64
	// ScorePairJitter / ScorePairCount 两两评分的分值
	ScorePairJitter int
	ScorePairCount  int
	// PairFlagRiskScore 两两评分的 flagged 判定阈值
	PairFlagRiskScore int
}

// Load 从环境变量加载配置
func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":5000")

	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "attendfresh")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "10"), 10)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)
	cfg.Redis.StreamTTLHours = parseInt(getEnv("RSSI_STREAM_TTL_HOURS", "24"), 24)

	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "attend-fresh-rotation")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.Topic = getEnv("MQTT_TOPIC", "attend/rotation")
	cfg.MQTT.QoS = byte(parseInt(getEnv("MQTT_QOS", "1"), 1))

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.Security.DeviceSecret = getEnv("DEVICE_SALT_SECRET", "default_salt")

	cfg.Beacon.InitialWindowMins = parseInt(getEnv("BEACON_INITIAL_WINDOW_MINS", "60"), 60)
	cfg.Beacon.RotatedWindowMins = parseInt(getEnv("BEACON_ROTATED_WINDOW_MINS", "3"), 3)
	cfg.Beacon.DefaultMajor = parseInt(getEnv("BEACON_DEFAULT_MAJOR", "1"), 1)
	cfg.Beacon.DefaultMinor = parseInt(getEnv("BEACON_DEFAULT_MINOR", "101"), 101)

	cfg.Detector.MotionRatioThreshold = parseFloat(getEnv("DETECTOR_MOTION_RATIO", "0.3"), 0.3)
	cfg.Detector.JitterThreshold = parseFloat(getEnv("DETECTOR_JITTER_THRESHOLD", "0.5"), 0.5)
	cfg.Detector.JitterMinSamples = parseInt(getEnv("DETECTOR_JITTER_MIN_SAMPLES", "3"), 3)
	cfg.Detector.CorrelationThreshold = parseFloat(getEnv("DETECTOR_CORRELATION_THRESHOLD", "0.85"), 0.85)
	cfg.Detector.MissedFlagCount = parseInt(getEnv("DETECTOR_MISSED_FLAG_COUNT", "2"), 2)
	cfg.Detector.ScoreLowMotion = parseInt(getEnv("DETECTOR_SCORE_LOW_MOTION", "40"), 40)
	cfg.Detector.ScoreLowJitter = parseInt(getEnv("DETECTOR_SCORE_LOW_JITTER", "30"), 30)
	cfg.Detector.ScoreMissed = parseInt(getEnv("DETECTOR_SCORE_MISSED", "20"), 20)
	cfg.Detector.ScoreCorrelation = parseInt(getEnv("DETECTOR_SCORE_CORRELATION", "50"), 50)
	cfg.Detector.FlagRiskScore = parseInt(getEnv("DETECTOR_FLAG_RISK_SCORE", "60"), 60)
	cfg.Detector.PairMinSamples = parseInt(getEnv("DETECTOR_PAIR_MIN_SAMPLES", "5"), 5)
	cfg.Detector.AnalysisMinSamples = parseInt(getEnv("DETECTOR_ANALYSIS_MIN_SAMPLES", "3"), 3)
	cfg.Detector.JitterDeltaThreshold = parseFloat(getEnv("DETECTOR_JITTER_DELTA_THRESHOLD", "0.5"), 0.5)
	cfg.Detector.ScorePairJitter = parseInt(getEnv("DETECTOR_SCORE_PAIR_JITTER", "30"), 30)
	cfg.Detector.ScorePairCount = parseInt(getEnv("DETECTOR_SCORE_PAIR_COUNT", "20"), 20)
	cfg.Detector.PairFlagRiskScore = parseInt(getEnv("DETECTOR_PAIR_FLAG_RISK_SCORE", "70"), 70)

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseFloat(s string, def float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}
