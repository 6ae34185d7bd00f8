package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-seating-api/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func studentRows(regNos ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"reg_no", "full_name", "subject", "created_at", "updated_at"})
	now := time.Now()
	for _, regNo := range regNos {
		rows.AddRow(regNo, "Student "+regNo, "MATH", now, now)
	}
	return rows
}

func TestStudentRepositoryListAllKeepsInsertionOrder(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStudentRepository(db)

	mock.ExpectQuery(`SELECT reg_no, full_name, subject, created_at, updated_at\s+FROM students ORDER BY created_at, reg_no`).
		WillReturnRows(studentRows("s1", "s2", "s3"))

	students, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, students, 3)
	assert.Equal(t, "s1", students[0].RegNo)
	assert.Equal(t, "s3", students[2].RegNo)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListFiltersBySubject(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStudentRepository(db)

	mock.ExpectQuery(`SELECT s.reg_no, .* FROM students s WHERE 1=1 AND s.subject = \$1 ORDER BY s.reg_no ASC LIMIT 20 OFFSET 0`).
		WithArgs("MATH").
		WillReturnRows(studentRows("s1"))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM students s WHERE 1=1 AND s.subject = \$1`).
		WithArgs("MATH").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	students, total, err := repo.List(context.Background(), models.StudentFilter{Subject: "MATH"})
	require.NoError(t, err)
	assert.Len(t, students, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateReturnsTimestamps(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStudentRepository(db)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO students`).
		WithArgs("s1", "Ana", "MATH").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	student := &models.Student{RegNo: "s1", FullName: "Ana", Subject: "MATH"}
	require.NoError(t, repo.Create(context.Background(), student))
	assert.Equal(t, now, student.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryBulkCreateRollsBackOnFailure(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO students`).
		WithArgs("s1", "Ana", "MATH").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO students`).
		WithArgs("s2", "Ben", "BIO").
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	err := repo.BulkCreate(context.Background(), []models.Student{
		{RegNo: "s1", FullName: "Ana", Subject: "MATH"},
		{RegNo: "s2", FullName: "Ben", Subject: "BIO"},
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpdateMissingRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStudentRepository(db)

	mock.ExpectQuery(`UPDATE students SET`).
		WithArgs("ghost", "Nobody", "MATH").
		WillReturnError(sql.ErrNoRows)

	err := repo.Update(context.Background(), &models.Student{RegNo: "ghost", FullName: "Nobody", Subject: "MATH"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryDeleteMissingRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStudentRepository(db)

	mock.ExpectExec(`DELETE FROM students WHERE reg_no = \$1`).
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "ghost")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
