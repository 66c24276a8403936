package repository

import (
	"context"
	"database/sql"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresStudents_GetStudent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresStudentsRepo(db)

	rows := sqlmock.NewRows([]string{"student_id", "device_id"}).
		AddRow("alice", "device-1")
	mock.ExpectQuery(`SELECT student_id, device_id FROM students`).
		WithArgs("alice").
		WillReturnRows(rows)

	student, err := repo.GetStudent(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, student)
	assert.Equal(t, "alice", student.StudentID)
	assert.True(t, student.DeviceMatches("device-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStudents_GetStudentNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresStudentsRepo(db)

	mock.ExpectQuery(`SELECT student_id, device_id FROM students`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	student, err := repo.GetStudent(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, student)
}

func TestPostgresStudents_BindDeviceFirstWriterWins(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresStudentsRepo(db)

	mock.ExpectExec(`INSERT INTO students`).
		WithArgs("alice", "device-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	bound, err := repo.BindDevice(context.Background(), "alice", "device-1")
	require.NoError(t, err)
	assert.True(t, bound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStudents_BindDeviceAlreadyBound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresStudentsRepo(db)

	// device_id 非 NULL 时条件更新不命中任何行
	mock.ExpectExec(`INSERT INTO students`).
		WithArgs("alice", "device-2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	bound, err := repo.BindDevice(context.Background(), "alice", "device-2")
	require.NoError(t, err)
	assert.False(t, bound)
}

func TestPostgresStudents_ResetDevice(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresStudentsRepo(db)

	mock.ExpectExec(`UPDATE students SET device_id = NULL`).
		WithArgs("alice").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.ResetDevice(context.Background(), "alice"))
	require.NoError(t, mock.ExpectationsWereMet())
}
