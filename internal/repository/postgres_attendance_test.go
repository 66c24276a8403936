package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Avyoraj/Attend-Fresh/internal/domain"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord() *domain.AttendanceRecord {
	return &domain.AttendanceRecord{
		ID:          "att-1",
		StudentID:   "alice",
		ClassID:     "cs101",
		SessionID:   "session-1",
		DeviceID:    "device-1",
		Status:      domain.StatusProvisional,
		RSSI:        -70,
		BeaconMinor: 101,
		SessionDate: "2026-02-10",
		CheckedInAt: time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC),
	}
}

func TestPostgresAttendance_InsertDuplicateMapsToErrDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresAttendanceRepo(db)

	mock.ExpectExec(`INSERT INTO attendance`).
		WillReturnError(&pq.Error{Code: "23505"})

	err = repo.InsertAttendance(context.Background(), testRecord())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDuplicate))
}

func TestPostgresAttendance_InsertOtherErrorNotDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresAttendanceRepo(db)

	mock.ExpectExec(`INSERT INTO attendance`).
		WillReturnError(&pq.Error{Code: "23503"})

	err = repo.InsertAttendance(context.Background(), testRecord())
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrDuplicate))
}

func TestPostgresAttendance_MarkStep2VerifiedGuarded(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresAttendanceRepo(db)

	verifiedAt := time.Date(2026, 2, 10, 9, 5, 0, 0, time.UTC)
	mock.ExpectExec(`UPDATE attendance SET status`).
		WithArgs("att-1", string(domain.StatusStep2Verified), verifiedAt,
			pq.Array([]string{"provisional"})).
		WillReturnResult(sqlmock.NewResult(0, 1))

	changed, err := repo.MarkStep2Verified(context.Background(), "att-1", verifiedAt)
	require.NoError(t, err)
	assert.True(t, changed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAttendance_MarkStep2VerifiedTerminalStateUnchanged(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresAttendanceRepo(db)

	// 记录已是 confirmed/flagged：条件更新不命中
	mock.ExpectExec(`UPDATE attendance SET status`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	changed, err := repo.MarkStep2Verified(context.Background(), "att-1", time.Now())
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestPostgresAttendance_MarkFlaggedSourceStates(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresAttendanceRepo(db)

	sources := transitionSourceStrings(domain.StatusFlagged)
	assert.ElementsMatch(t, []string{"provisional", "step2_verified"}, sources)

	mock.ExpectExec(`UPDATE attendance SET status`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	changed, err := repo.MarkFlagged(context.Background(), "att-1")
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestPostgresAttendance_GetBySessionStudent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresAttendanceRepo(db)

	checkedIn := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "student_id", "class_id", "session_id", "device_id", "status",
		"rssi", "beacon_minor", "session_date", "checked_in_at",
		"step2_verified_at", "confirmed_at", "biometric_verified_at", "physical_verified_by",
	}).AddRow("att-1", "alice", "cs101", "session-1", "device-1", "provisional",
		-70, 101, "2026-02-10", checkedIn, nil, nil, nil, nil)

	mock.ExpectQuery(`SELECT .+ FROM attendance`).
		WithArgs("session-1", "alice").
		WillReturnRows(rows)

	rec, err := repo.GetBySessionStudent(context.Background(), "session-1", "alice")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, domain.StatusProvisional, rec.Status)
	assert.Nil(t, rec.Step2VerifiedAt)
	assert.Empty(t, rec.PhysicalVerifiedBy)
}
