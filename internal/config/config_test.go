package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":5000", cfg.HTTP.Addr)
	assert.True(t, cfg.DBEnabled)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "attendfresh", cfg.Database.Database)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 24, cfg.Redis.StreamTTLHours)
	assert.False(t, cfg.MQTT.Enabled)
	assert.Equal(t, "attend/rotation", cfg.MQTT.Topic)
	assert.Equal(t, "default_salt", cfg.Security.DeviceSecret)

	assert.Equal(t, 60, cfg.Beacon.InitialWindowMins)
	assert.Equal(t, 3, cfg.Beacon.RotatedWindowMins)
	assert.Equal(t, 1, cfg.Beacon.DefaultMajor)
	assert.Equal(t, 101, cfg.Beacon.DefaultMinor)

	assert.Equal(t, 0.3, cfg.Detector.MotionRatioThreshold)
	assert.Equal(t, 0.5, cfg.Detector.JitterThreshold)
	assert.Equal(t, 3, cfg.Detector.JitterMinSamples)
	assert.Equal(t, 0.85, cfg.Detector.CorrelationThreshold)
	assert.Equal(t, 2, cfg.Detector.MissedFlagCount)
	assert.Equal(t, 60, cfg.Detector.FlagRiskScore)
	assert.Equal(t, 5, cfg.Detector.PairMinSamples)
	assert.Equal(t, 3, cfg.Detector.AnalysisMinSamples)
	assert.Equal(t, 70, cfg.Detector.PairFlagRiskScore)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":8080")
	t.Setenv("DB_ENABLED", "false")
	t.Setenv("DEVICE_SALT_SECRET", "prod_salt")
	t.Setenv("BEACON_ROTATED_WINDOW_MINS", "5")
	t.Setenv("DETECTOR_CORRELATION_THRESHOLD", "0.9")
	t.Setenv("MQTT_ENABLED", "true")

	cfg := Load()

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.False(t, cfg.DBEnabled)
	assert.Equal(t, "prod_salt", cfg.Security.DeviceSecret)
	assert.Equal(t, 5, cfg.Beacon.RotatedWindowMins)
	assert.Equal(t, 0.9, cfg.Detector.CorrelationThreshold)
	assert.True(t, cfg.MQTT.Enabled)
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("DB_PORT", "not-a-number")
	t.Setenv("DETECTOR_MOTION_RATIO", "abc")

	cfg := Load()

	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 0.3, cfg.Detector.MotionRatioThreshold)
}

func TestGetDSN(t *testing.T) {
	c := DatabaseConfig{
		Host: "db", Port: 5433, User: "u", Password: "p",
		Database: "attendfresh", SSLMode: "disable",
	}
	assert.Equal(t,
		"host=db port=5433 user=u password=p dbname=attendfresh sslmode=disable",
		c.GetDSN())
}
