package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-seating-api/internal/models"
)

func hallRows(ids ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "name", "rows", "columns", "blocked", "created_at", "updated_at"})
	now := time.Now()
	for _, id := range ids {
		rows.AddRow(id, "Hall "+id, 3, 4, []byte(`[{"row":0,"col":0}]`), now, now)
	}
	return rows
}

func TestHallRepositoryFindByIDDecodesBlockedSeats(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewHallRepository(db)

	mock.ExpectQuery(`SELECT id, name, rows, columns, blocked, created_at, updated_at\s+FROM halls WHERE id = \$1`).
		WithArgs("h1").
		WillReturnRows(hallRows("h1"))

	hall, err := repo.FindByID(context.Background(), "h1")
	require.NoError(t, err)
	assert.Equal(t, 3, hall.Rows)
	assert.Equal(t, []models.Coordinate{{Row: 0, Col: 0}}, hall.Blocked)
	assert.Equal(t, 11, hall.Capacity())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHallRepositoryFindByIDsPreservesRequestedOrder(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewHallRepository(db)

	mock.ExpectQuery(`SELECT id, name, rows, columns, blocked, created_at, updated_at\s+FROM halls WHERE id IN`).
		WithArgs("h2", "h1").
		WillReturnRows(hallRows("h1", "h2"))

	halls, err := repo.FindByIDs(context.Background(), []string{"h2", "h1"})
	require.NoError(t, err)
	require.Len(t, halls, 2)
	assert.Equal(t, "h2", halls[0].ID)
	assert.Equal(t, "h1", halls[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHallRepositoryFindByIDsSkipsMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewHallRepository(db)

	mock.ExpectQuery(`FROM halls WHERE id IN`).
		WithArgs("h1", "ghost").
		WillReturnRows(hallRows("h1"))

	halls, err := repo.FindByIDs(context.Background(), []string{"h1", "ghost"})
	require.NoError(t, err)
	require.Len(t, halls, 1)
	assert.Equal(t, "h1", halls[0].ID)
}

func TestHallRepositoryFindByIDsEmptyInput(t *testing.T) {
	db, _ := newMockDB(t)
	repo := NewHallRepository(db)

	halls, err := repo.FindByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, halls)
}

func TestHallRepositoryCreateEncodesBlockedSeats(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewHallRepository(db)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO halls`).
		WithArgs("h1", "Main", 2, 2, []byte(`[{"row":1,"col":1}]`)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	hall := &models.Hall{
		ID: "h1", Name: "Main", Rows: 2, Columns: 2,
		Blocked: []models.Coordinate{{Row: 1, Col: 1}},
	}
	require.NoError(t, repo.Create(context.Background(), hall))
	assert.Equal(t, now, hall.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHallRepositoryCreateNilBlockedBecomesEmptyArray(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewHallRepository(db)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO halls`).
		WithArgs("h1", "Main", 2, 2, []byte(`[]`)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	hall := &models.Hall{ID: "h1", Name: "Main", Rows: 2, Columns: 2}
	require.NoError(t, repo.Create(context.Background(), hall))
	assert.NoError(t, mock.ExpectationsWereMet())
}
