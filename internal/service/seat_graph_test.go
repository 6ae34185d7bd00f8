package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-seating-api/internal/models"
	appErrors "github.com/noah-isme/exam-seating-api/pkg/errors"
)

func TestSeatGraphRejectsNonPositiveDimensions(t *testing.T) {
	_, err := NewSeatGraph([]models.Hall{{ID: "h1", Rows: 0, Columns: 3}})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTopology.Code, appErrors.FromError(err).Code)

	_, err = NewSeatGraph([]models.Hall{{ID: "h1", Rows: 3, Columns: -1}})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTopology.Code, appErrors.FromError(err).Code)
}

func TestSeatGraphRejectsDuplicateHallIDs(t *testing.T) {
	_, err := NewSeatGraph([]models.Hall{
		{ID: "h1", Rows: 2, Columns: 2},
		{ID: "h1", Rows: 3, Columns: 3},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTopology.Code, appErrors.FromError(err).Code)
}

func TestSeatGraphRejectsBlockedSeatOutsideGrid(t *testing.T) {
	_, err := NewSeatGraph([]models.Hall{{
		ID: "h1", Rows: 2, Columns: 2,
		Blocked: []models.Coordinate{{Row: 2, Col: 0}},
	}})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTopology.Code, appErrors.FromError(err).Code)
}

func TestSeatGraphEmptyHallSetIsValid(t *testing.T) {
	graph, err := NewSeatGraph(nil)
	require.NoError(t, err)
	assert.Empty(t, graph.Halls())
	assert.Zero(t, graph.TotalCapacity())
}

func TestSeatGraphCapacityExcludesBlockedSeats(t *testing.T) {
	graph, err := NewSeatGraph([]models.Hall{{
		ID: "h1", Rows: 3, Columns: 3,
		Blocked: []models.Coordinate{{Row: 0, Col: 0}, {Row: 2, Col: 2}},
	}})
	require.NoError(t, err)
	assert.Equal(t, 7, graph.Capacity("h1"))
	assert.Equal(t, 7, graph.TotalCapacity())
	assert.Zero(t, graph.Capacity("unknown"))
}

func TestSeatGraphSeatsAreRowMajorAndSkipBlocked(t *testing.T) {
	graph, err := NewSeatGraph([]models.Hall{{
		ID: "h1", Rows: 2, Columns: 2,
		Blocked: []models.Coordinate{{Row: 0, Col: 1}},
	}})
	require.NoError(t, err)

	seats := graph.Seats("h1")
	require.Equal(t, []models.Coordinate{
		{Row: 0, Col: 0},
		{Row: 1, Col: 0},
		{Row: 1, Col: 1},
	}, seats)
}

func TestSeatGraphNeighborsAreFourDirectional(t *testing.T) {
	graph, err := NewSeatGraph([]models.Hall{{ID: "h1", Rows: 3, Columns: 3}})
	require.NoError(t, err)

	neighbors := graph.Neighbors("h1", models.Coordinate{Row: 1, Col: 1})
	assert.Len(t, neighbors, 4)
	assert.NotContains(t, neighbors, models.Coordinate{Row: 0, Col: 0}, "diagonals are not adjacent")
	assert.NotContains(t, neighbors, models.Coordinate{Row: 2, Col: 2})

	corner := graph.Neighbors("h1", models.Coordinate{Row: 0, Col: 0})
	assert.ElementsMatch(t, []models.Coordinate{{Row: 0, Col: 1}, {Row: 1, Col: 0}}, corner)
}

func TestSeatGraphNeighborsSkipBlockedSeats(t *testing.T) {
	graph, err := NewSeatGraph([]models.Hall{{
		ID: "h1", Rows: 3, Columns: 3,
		Blocked: []models.Coordinate{{Row: 0, Col: 1}},
	}})
	require.NoError(t, err)

	neighbors := graph.Neighbors("h1", models.Coordinate{Row: 1, Col: 1})
	assert.NotContains(t, neighbors, models.Coordinate{Row: 0, Col: 1})
	assert.Len(t, neighbors, 3)
}

func TestSeatGraphNeighborsUnknownHall(t *testing.T) {
	graph, err := NewSeatGraph([]models.Hall{{ID: "h1", Rows: 2, Columns: 2}})
	require.NoError(t, err)
	assert.Nil(t, graph.Neighbors("missing", models.Coordinate{Row: 0, Col: 0}))
	assert.Nil(t, graph.Neighbors("h1", models.Coordinate{Row: 9, Col: 9}))
}
