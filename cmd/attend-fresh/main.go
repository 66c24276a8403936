package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Avyoraj/Attend-Fresh/internal/config"
	"github.com/Avyoraj/Attend-Fresh/internal/consumer"
	"github.com/Avyoraj/Attend-Fresh/internal/database"
	"github.com/Avyoraj/Attend-Fresh/internal/detector"
	httpapi "github.com/Avyoraj/Attend-Fresh/internal/http"
	"github.com/Avyoraj/Attend-Fresh/internal/logger"
	"github.com/Avyoraj/Attend-Fresh/internal/mqtt"
	"github.com/Avyoraj/Attend-Fresh/internal/repository"
	"github.com/Avyoraj/Attend-Fresh/internal/security"
	"github.com/Avyoraj/Attend-Fresh/internal/service"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "attend-fresh")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// RSSI 采样流优先走 Redis；连不上时退化为内存实现（仅限联测）
	var rssiRepo repository.RssiStreamsRepository
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn("Redis unavailable, falling back to in-memory RSSI streams", zap.Error(err))
		_ = redisClient.Close()
		redisClient = nil
		rssiRepo = repository.NewMemoryRssiStreamsRepo()
	} else {
		ttl := time.Duration(cfg.Redis.StreamTTLHours) * time.Hour
		rssiRepo = repository.NewRedisRssiStreamsRepo(redisClient, ttl)
	}

	// 主存储优先走 Postgres；DB 未就绪时用内存 repo 支持联测
	var (
		db             *sql.DB
		studentsRepo   repository.StudentsRepository
		sessionsRepo   repository.SessionsRepository
		attendanceRepo repository.AttendanceRepository
		anomaliesRepo  repository.AnomaliesRepository
	)
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			log.Info("DB enabled for attend-fresh")
		} else {
			log.Warn("DB enabled but connection failed, falling back to memory repos", zap.Error(err))
		}
	}
	if db != nil {
		studentsRepo = repository.NewPostgresStudentsRepo(db)
		sessionsRepo = repository.NewPostgresSessionsRepo(db)
		attendanceRepo = repository.NewPostgresAttendanceRepo(db)
		anomaliesRepo = repository.NewPostgresAnomaliesRepo(db)
	} else {
		studentsRepo = repository.NewMemoryStudentsRepo()
		sessionsRepo = repository.NewMemorySessionsRepo()
		attendanceRepo = repository.NewMemoryAttendanceRepo()
		anomaliesRepo = repository.NewMemoryAnomaliesRepo()
	}

	verifier := security.NewVerifier(cfg.Security.DeviceSecret)
	proxyDetector := detector.NewProxyDetector(cfg.Detector, log)

	sessionService := service.NewSessionService(sessionsRepo, cfg.Beacon, log)
	attendanceService := service.NewAttendanceService(studentsRepo, sessionsRepo, attendanceRepo, rssiRepo, verifier, log)
	anomalyService := service.NewAnomalyService(rssiRepo, attendanceRepo, anomaliesRepo, proxyDetector, log)

	router := httpapi.NewRouter(log)
	router.RegisterRoutes(
		httpapi.NewSessionHandler(sessionService, log),
		httpapi.NewAttendanceHandler(attendanceService, log),
		httpapi.NewAnomalyHandler(anomalyService, log),
	)

	// 可选：信标控制器通过 MQTT 上报轮换（默认走 HTTP 心跳）
	var rotationConsumer *consumer.RotationConsumer
	if cfg.MQTT.Enabled {
		mqttClient, err := mqtt.NewClient(&cfg.MQTT)
		if err != nil {
			log.Warn("MQTT enabled but connection failed, rotation consumer disabled", zap.Error(err))
		} else {
			rotationConsumer = consumer.NewRotationConsumer(mqttClient, sessionService, &cfg.MQTT, log)
			if err := rotationConsumer.Start(ctx); err != nil {
				log.Warn("failed to start rotation consumer", zap.Error(err))
				rotationConsumer = nil
			}
		}
	}

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		cancel()
	case <-errCh:
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	if rotationConsumer != nil {
		rotationConsumer.Stop()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if db != nil {
		_ = db.Close()
	}
}
