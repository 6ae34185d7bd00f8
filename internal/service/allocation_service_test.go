package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-seating-api/internal/dto"
	"github.com/noah-isme/exam-seating-api/internal/models"
	appErrors "github.com/noah-isme/exam-seating-api/pkg/errors"
)

func newAllocationFixture() *AllocationService {
	return NewAllocationService(nil, nil, nil, nil, nil, nil, AllocationConfig{
		PlanTTL:     time.Minute,
		HallWorkers: 2,
	})
}

func inlineStudents(pairs ...[2]string) []dto.StudentRecord {
	records := make([]dto.StudentRecord, 0, len(pairs))
	for _, pair := range pairs {
		records = append(records, dto.StudentRecord{
			RegNo:    pair[0],
			FullName: "Student " + pair[0],
			Subject:  pair[1],
		})
	}
	return records
}

// assertNoSameSubjectNeighbors verifies the core invariant directly on the
// plan: no two occupied seats one step apart hold the same subject.
func assertNoSameSubjectNeighbors(t *testing.T, plan *models.SeatingPlan) {
	t.Helper()
	occupied := make(map[string]map[models.Coordinate]string)
	for _, p := range plan.Placements {
		if occupied[p.HallID] == nil {
			occupied[p.HallID] = make(map[models.Coordinate]string)
		}
		occupied[p.HallID][p.Seat] = p.Student.Subject
	}
	steps := []models.Coordinate{{Row: -1}, {Row: 1}, {Col: -1}, {Col: 1}}
	for hallID, seats := range occupied {
		for seat, subject := range seats {
			for _, step := range steps {
				neighbor := models.Coordinate{Row: seat.Row + step.Row, Col: seat.Col + step.Col}
				if other, ok := seats[neighbor]; ok {
					assert.NotEqual(t, subject, other,
						"hall %s seats (%d,%d) and (%d,%d) share subject %s",
						hallID, seat.Row, seat.Col, neighbor.Row, neighbor.Col, subject)
				}
			}
		}
	}
}

func TestGenerateTwoSubjectsFillSquareWithoutConflicts(t *testing.T) {
	svc := newAllocationFixture()

	resp, err := svc.Generate(context.Background(), dto.GenerateAllocationRequest{
		Students: inlineStudents(
			[2]string{"s1", "MATH"}, [2]string{"s2", "MATH"},
			[2]string{"s3", "PHYSICS"}, [2]string{"s4", "PHYSICS"},
		),
		Halls: []dto.HallDefinition{{ID: "h1", Name: "Hall 1", Rows: 2, Columns: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, resp.Summary.Seated)
	assert.Zero(t, resp.Summary.Unplaced)
	assert.Zero(t, resp.Summary.Conflicts)

	plan, err := svc.Get(context.Background(), resp.PlanID)
	require.NoError(t, err)
	assertNoSameSubjectNeighbors(t, plan)
}

func TestGenerateSingleSubjectRowReportsPigeonholeConflicts(t *testing.T) {
	svc := newAllocationFixture()

	resp, err := svc.Generate(context.Background(), dto.GenerateAllocationRequest{
		Students: inlineStudents(
			[2]string{"s1", "MATH"}, [2]string{"s2", "MATH"}, [2]string{"s3", "MATH"},
			[2]string{"s4", "MATH"}, [2]string{"s5", "MATH"},
		),
		Halls: []dto.HallDefinition{{ID: "h1", Rows: 1, Columns: 5}},
	})
	require.NoError(t, err)
	assert.Equal(t, 5, resp.Summary.Seated, "everyone is still seated")
	assert.Zero(t, resp.Summary.Unplaced)
	// Each seat after the first collides with exactly its left neighbor.
	assert.Equal(t, 4, resp.Summary.Conflicts)
	for _, conflict := range resp.Conflicts {
		assert.Equal(t, "MATH", conflict.Subject)
		assert.Equal(t, "h1", conflict.HallID)
	}
}

func TestGenerateDiagonalSeatsMayShareSubject(t *testing.T) {
	svc := newAllocationFixture()

	resp, err := svc.Generate(context.Background(), dto.GenerateAllocationRequest{
		Students: inlineStudents(
			[2]string{"s1", "MATH"}, [2]string{"s2", "MATH"},
			[2]string{"s3", "CHEM"}, [2]string{"s4", "CHEM"},
		),
		Halls: []dto.HallDefinition{{ID: "h1", Rows: 2, Columns: 2}},
	})
	require.NoError(t, err)
	// A 2x2 grid only works because diagonal seats are not adjacent.
	assert.Zero(t, resp.Summary.Conflicts)
	assert.Equal(t, 4, resp.Summary.Seated)
}

func TestGenerateOverflowLandsInUnplaced(t *testing.T) {
	svc := newAllocationFixture()

	resp, err := svc.Generate(context.Background(), dto.GenerateAllocationRequest{
		Students: inlineStudents(
			[2]string{"s1", "MATH"}, [2]string{"s2", "MATH"}, [2]string{"s3", "MATH"},
			[2]string{"s4", "BIO"}, [2]string{"s5", "BIO"}, [2]string{"s6", "BIO"},
		),
		Halls: []dto.HallDefinition{{ID: "h1", Rows: 2, Columns: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, resp.Summary.Seated)
	assert.Equal(t, 2, resp.Summary.Unplaced)
	assert.Equal(t, 6, resp.Summary.Seated+resp.Summary.Unplaced, "seated plus unplaced covers the roster")
	for _, u := range resp.Unplaced {
		assert.Equal(t, models.UnplacedNoSeatAvailable, u.Reason)
	}
}

func TestGenerateEmptyRosterProducesEmptyPlan(t *testing.T) {
	svc := newAllocationFixture()

	resp, err := svc.Generate(context.Background(), dto.GenerateAllocationRequest{
		Halls: []dto.HallDefinition{{ID: "h1", Rows: 3, Columns: 3}},
	})
	require.NoError(t, err)
	assert.Zero(t, resp.Summary.Seated)
	assert.Zero(t, resp.Summary.Unplaced)
	assert.Zero(t, resp.Summary.Conflicts)
	assert.Equal(t, 1, resp.Summary.Halls)
	assert.NotEmpty(t, resp.PlanID)
}

func TestGenerateWithoutHallsLeavesEveryoneUnplaced(t *testing.T) {
	svc := newAllocationFixture()

	students := make([]dto.StudentRecord, 0, 10)
	for _, pair := range [][2]string{
		{"s1", "MATH"}, {"s2", "MATH"}, {"s3", "MATH"}, {"s4", "BIO"}, {"s5", "BIO"},
		{"s6", "BIO"}, {"s7", "CHEM"}, {"s8", "CHEM"}, {"s9", "CHEM"}, {"s10", "CHEM"},
	} {
		students = append(students, dto.StudentRecord{RegNo: pair[0], FullName: pair[0], Subject: pair[1]})
	}

	resp, err := svc.Generate(context.Background(), dto.GenerateAllocationRequest{Students: students})
	require.NoError(t, err, "zero halls with a roster is an outcome, not an error")
	assert.Zero(t, resp.Summary.Seated)
	assert.Equal(t, 10, resp.Summary.Unplaced)
	assert.Zero(t, resp.Summary.Conflicts)
	for _, u := range resp.Unplaced {
		assert.Equal(t, models.UnplacedNoSeatAvailable, u.Reason)
	}
}

func TestGenerateNeverSeatsBlockedCoordinates(t *testing.T) {
	svc := newAllocationFixture()
	blocked := []models.Coordinate{{Row: 0, Col: 0}, {Row: 1, Col: 1}}

	resp, err := svc.Generate(context.Background(), dto.GenerateAllocationRequest{
		Students: inlineStudents(
			[2]string{"s1", "MATH"}, [2]string{"s2", "BIO"},
			[2]string{"s3", "MATH"}, [2]string{"s4", "BIO"},
		),
		Halls: []dto.HallDefinition{{ID: "h1", Rows: 2, Columns: 2, Blocked: blocked}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Summary.Seated)
	assert.Equal(t, 2, resp.Summary.Unplaced)

	plan, err := svc.Get(context.Background(), resp.PlanID)
	require.NoError(t, err)
	for _, p := range plan.Placements {
		assert.NotContains(t, blocked, p.Seat)
	}
}

func TestGenerateSpreadsRosterAcrossHalls(t *testing.T) {
	svc := newAllocationFixture()

	resp, err := svc.Generate(context.Background(), dto.GenerateAllocationRequest{
		Students: inlineStudents(
			[2]string{"s1", "MATH"}, [2]string{"s2", "MATH"},
			[2]string{"s3", "BIO"}, [2]string{"s4", "BIO"},
		),
		Halls: []dto.HallDefinition{
			{ID: "h1", Rows: 1, Columns: 2},
			{ID: "h2", Rows: 1, Columns: 2},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, resp.Summary.Seated)
	assert.Zero(t, resp.Summary.Conflicts)

	plan, err := svc.Get(context.Background(), resp.PlanID)
	require.NoError(t, err)
	perHall := make(map[string]int)
	for _, p := range plan.Placements {
		perHall[p.HallID]++
	}
	assert.Equal(t, 2, perHall["h1"])
	assert.Equal(t, 2, perHall["h2"])
	assertNoSameSubjectNeighbors(t, plan)
}

func TestGenerateIsDeterministic(t *testing.T) {
	req := dto.GenerateAllocationRequest{
		Students: inlineStudents(
			[2]string{"s1", "MATH"}, [2]string{"s2", "BIO"}, [2]string{"s3", "MATH"},
			[2]string{"s4", "CHEM"}, [2]string{"s5", "BIO"}, [2]string{"s6", "MATH"},
			[2]string{"s7", "CHEM"}, [2]string{"s8", "BIO"}, [2]string{"s9", "MATH"},
		),
		Halls: []dto.HallDefinition{
			{ID: "h1", Rows: 2, Columns: 3},
			{ID: "h2", Rows: 2, Columns: 2},
		},
	}

	svc := newAllocationFixture()
	first, err := svc.Generate(context.Background(), req)
	require.NoError(t, err)
	firstPlan, err := svc.Get(context.Background(), first.PlanID)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		resp, err := svc.Generate(context.Background(), req)
		require.NoError(t, err)
		plan, err := svc.Get(context.Background(), resp.PlanID)
		require.NoError(t, err)
		assert.Equal(t, firstPlan.Placements, plan.Placements, "run %d diverged", i)
		assert.Equal(t, firstPlan.Conflicts, plan.Conflicts)
		assert.Equal(t, firstPlan.Unplaced, plan.Unplaced)
	}
}

func TestGenerateRejectsDuplicateRegistrationNumbers(t *testing.T) {
	svc := newAllocationFixture()

	_, err := svc.Generate(context.Background(), dto.GenerateAllocationRequest{
		Students: inlineStudents([2]string{"s1", "MATH"}, [2]string{"s1", "BIO"}),
		Halls:    []dto.HallDefinition{{ID: "h1", Rows: 2, Columns: 2}},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidRoster.Code, appErrors.FromError(err).Code)
}

func TestGenerateRejectsInvalidHallDimensions(t *testing.T) {
	svc := newAllocationFixture()

	_, err := svc.Generate(context.Background(), dto.GenerateAllocationRequest{
		Students: []dto.StudentRecord{{RegNo: "s1", FullName: "One", Subject: "MATH"}},
		Halls:    []dto.HallDefinition{{ID: "h1", Rows: 0, Columns: 2}},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTopology.Code, appErrors.FromError(err).Code)
}

func TestGenerateUnknownStoredHallsFail(t *testing.T) {
	svc := NewAllocationService(nil, stubHallReader{}, nil, nil, nil, nil, AllocationConfig{})

	_, err := svc.Generate(context.Background(), dto.GenerateAllocationRequest{
		Students: inlineStudents([2]string{"s1", "MATH"}),
		HallIDs:  []string{"missing-1", "missing-2"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNoHalls.Code, appErrors.FromError(err).Code)
}

type stubHallReader struct {
	halls []models.Hall
}

func (s stubHallReader) ListAll(_ context.Context) ([]models.Hall, error) {
	return s.halls, nil
}

func (s stubHallReader) FindByIDs(_ context.Context, ids []string) ([]models.Hall, error) {
	found := make([]models.Hall, 0)
	for _, id := range ids {
		for _, hall := range s.halls {
			if hall.ID == id {
				found = append(found, hall)
			}
		}
	}
	return found, nil
}

func TestGetExpiredPlanIsGone(t *testing.T) {
	svc := NewAllocationService(nil, nil, nil, nil, nil, nil, AllocationConfig{
		PlanTTL: time.Nanosecond,
	})

	resp, err := svc.Generate(context.Background(), dto.GenerateAllocationRequest{
		Students: inlineStudents([2]string{"s1", "MATH"}),
		Halls:    []dto.HallDefinition{{ID: "h1", Rows: 1, Columns: 1}},
	})
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)
	_, err = svc.Get(context.Background(), resp.PlanID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestHallGridRendersLegendAndCells(t *testing.T) {
	svc := newAllocationFixture()

	resp, err := svc.Generate(context.Background(), dto.GenerateAllocationRequest{
		Students: inlineStudents(
			[2]string{"s1", "MATH"}, [2]string{"s2", "MATH"},
			[2]string{"s3", "BIO"},
		),
		Halls: []dto.HallDefinition{{
			ID: "h1", Name: "Main Hall", Rows: 2, Columns: 2,
			Blocked: []models.Coordinate{{Row: 1, Col: 1}},
		}},
	})
	require.NoError(t, err)

	grid, cacheHit, err := svc.HallGrid(context.Background(), resp.PlanID, "h1")
	require.NoError(t, err)
	assert.False(t, cacheHit)
	assert.Equal(t, "Main Hall", grid.Name)
	assert.Equal(t, 2, grid.Rows)
	assert.Equal(t, 2, grid.Cols)
	assert.Equal(t, models.CellBlocked, grid.Grid[1][1].Kind)
	assert.Equal(t, 2, grid.Legend["MATH"])
	assert.Equal(t, 1, grid.Legend["BIO"])
	assert.Equal(t, 3, grid.Counts.Seated)
}

func TestHallGridUnknownHall(t *testing.T) {
	svc := newAllocationFixture()

	resp, err := svc.Generate(context.Background(), dto.GenerateAllocationRequest{
		Students: inlineStudents([2]string{"s1", "MATH"}),
		Halls:    []dto.HallDefinition{{ID: "h1", Rows: 1, Columns: 1}},
	})
	require.NoError(t, err)

	_, _, err = svc.HallGrid(context.Background(), resp.PlanID, "nope")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSubjectPoolDrawInterleavedPrefersLargestGroup(t *testing.T) {
	pool := newSubjectPool([]models.Student{
		{RegNo: "m1", Subject: "MATH"},
		{RegNo: "m2", Subject: "MATH"},
		{RegNo: "m3", Subject: "MATH"},
		{RegNo: "b1", Subject: "BIO"},
	})

	drawn := pool.drawInterleaved(2)
	require.Len(t, drawn, 2)
	assert.Equal(t, "m1", drawn[0].RegNo)
	assert.Equal(t, "m2", drawn[1].RegNo, "MATH stays largest after one draw")
	assert.Equal(t, 2, pool.size())

	left := pool.remaining()
	assert.Equal(t, "m3", left[0].RegNo)
	assert.Equal(t, "b1", left[1].RegNo)
}

func TestSubjectPoolTieBreaksByFirstSeenSubject(t *testing.T) {
	pool := newSubjectPool([]models.Student{
		{RegNo: "b1", Subject: "BIO"},
		{RegNo: "m1", Subject: "MATH"},
	})

	subject, ok := pool.largestExcluding(nil)
	require.True(t, ok)
	assert.Equal(t, "BIO", subject)

	subject, ok = pool.largestExcluding(map[string]bool{"BIO": true})
	require.True(t, ok)
	assert.Equal(t, "MATH", subject)

	_, ok = pool.largestExcluding(map[string]bool{"BIO": true, "MATH": true})
	assert.False(t, ok)
}
