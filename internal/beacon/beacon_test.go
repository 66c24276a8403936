package beacon

import (
	"testing"
	"time"

	"github.com/Avyoraj/Attend-Fresh/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activeSession(minor int) *domain.Session {
	return &domain.Session{
		ID:          "session-1",
		BeaconMinor: minor,
		Status:      domain.SessionActive,
	}
}

func TestCurrentChallenge_FallsBackToOriginalMinor(t *testing.T) {
	s := activeSession(101)
	assert.Equal(t, 101, CurrentChallenge(s))

	rotated := 205
	s.CurrentMinorID = &rotated
	assert.Equal(t, 205, CurrentChallenge(s))
}

func TestWithinRotationWindow_NeverRotated(t *testing.T) {
	s := activeSession(101)
	s.RotationIntervalMins = 3
	assert.True(t, WithinRotationWindow(s, time.Now()))
}

func TestWithinRotationWindow_NoIntervalConfigured(t *testing.T) {
	s := activeSession(101)
	past := time.Now().Add(-2 * time.Hour)
	s.LastRotationAt = &past
	assert.True(t, WithinRotationWindow(s, time.Now()))
}

func TestWithinRotationWindow_InsideAndOutside(t *testing.T) {
	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	s := activeSession(101)
	s.RotationIntervalMins = 3

	rotatedAt := now.Add(-2 * time.Minute)
	s.LastRotationAt = &rotatedAt
	assert.True(t, WithinRotationWindow(s, now))

	rotatedAt = now.Add(-3 * time.Minute)
	s.LastRotationAt = &rotatedAt
	assert.True(t, WithinRotationWindow(s, now), "boundary is inclusive")

	rotatedAt = now.Add(-3*time.Minute - time.Second)
	s.LastRotationAt = &rotatedAt
	assert.False(t, WithinRotationWindow(s, now))
}

func TestRotate_TightensWindow(t *testing.T) {
	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	s := activeSession(101)
	s.RotationIntervalMins = 60

	err := Rotate(s, 207, now, 3)
	require.NoError(t, err)

	require.NotNil(t, s.CurrentMinorID)
	assert.Equal(t, 207, *s.CurrentMinorID)
	require.NotNil(t, s.LastRotationAt)
	assert.Equal(t, now, *s.LastRotationAt)
	assert.Equal(t, 3, s.RotationIntervalMins)
}

func TestRotate_EndedSessionRejected(t *testing.T) {
	s := activeSession(101)
	s.Status = domain.SessionEnded

	err := Rotate(s, 207, time.Now(), 3)
	require.Error(t, err)
	de := domain.AsError(err)
	require.NotNil(t, de)
	assert.Equal(t, domain.KindNotFound, de.Kind)
	assert.Equal(t, "session_not_active", de.Reason)
	assert.Nil(t, s.CurrentMinorID)
}
