package service

import (
	"fmt"

	"github.com/noah-isme/exam-seating-api/internal/models"
	appErrors "github.com/noah-isme/exam-seating-api/pkg/errors"
)

// SeatGraph is pure derived data: for each hall, the row-major set of
// assignable seat coordinates plus a bounds-checked 4-directional adjacency
// lookup. Seats in different halls are never adjacent. The graph is built
// once from hall definitions and never mutated.
type SeatGraph struct {
	halls []models.Hall
	grids map[string]*hallGrid
}

// hallGrid is the per-hall arena: a row-major availability bitmap instead of
// a pointer graph, so neighbor queries are index arithmetic.
type hallGrid struct {
	hall      models.Hall
	available []bool
	capacity  int
}

func (g *hallGrid) index(c models.Coordinate) int {
	return c.Row*g.hall.Columns + c.Col
}

func (g *hallGrid) inBounds(c models.Coordinate) bool {
	return c.Row >= 0 && c.Row < g.hall.Rows && c.Col >= 0 && c.Col < g.hall.Columns
}

func (g *hallGrid) isAvailable(c models.Coordinate) bool {
	return g.inBounds(c) && g.available[g.index(c)]
}

// neighborSteps fixes the adjacency relation: up, down, left, right.
// Diagonal seats are deliberately not neighbors.
var neighborSteps = [4]models.Coordinate{
	{Row: -1, Col: 0},
	{Row: 1, Col: 0},
	{Row: 0, Col: -1},
	{Row: 0, Col: 1},
}

// NewSeatGraph validates hall definitions and derives the seat arena for
// each. It fails on non-positive dimensions, duplicate hall IDs and blocked
// coordinates outside the grid bounds.
func NewSeatGraph(halls []models.Hall) (*SeatGraph, error) {
	graph := &SeatGraph{
		halls: make([]models.Hall, 0, len(halls)),
		grids: make(map[string]*hallGrid, len(halls)),
	}
	for _, hall := range halls {
		if hall.ID == "" {
			return nil, appErrors.Clone(appErrors.ErrInvalidTopology, "hall id is required")
		}
		if _, exists := graph.grids[hall.ID]; exists {
			return nil, appErrors.Clone(appErrors.ErrInvalidTopology, fmt.Sprintf("duplicate hall id %s", hall.ID))
		}
		if hall.Rows < 1 || hall.Columns < 1 {
			return nil, appErrors.Clone(appErrors.ErrInvalidTopology, fmt.Sprintf("hall %s must have at least one row and one column", hall.ID))
		}

		grid := &hallGrid{
			hall:      hall,
			available: make([]bool, hall.Rows*hall.Columns),
		}
		for i := range grid.available {
			grid.available[i] = true
		}
		for _, blocked := range hall.Blocked {
			if !grid.inBounds(blocked) {
				return nil, appErrors.Clone(appErrors.ErrInvalidTopology,
					fmt.Sprintf("hall %s blocked seat (%d,%d) is outside the %dx%d grid", hall.ID, blocked.Row, blocked.Col, hall.Rows, hall.Columns))
			}
			grid.available[grid.index(blocked)] = false
		}
		for _, free := range grid.available {
			if free {
				grid.capacity++
			}
		}

		graph.halls = append(graph.halls, hall)
		graph.grids[hall.ID] = grid
	}
	return graph, nil
}

// Halls returns hall definitions in declaration order.
func (g *SeatGraph) Halls() []models.Hall {
	return g.halls
}

// Capacity returns the number of assignable seats in one hall.
func (g *SeatGraph) Capacity(hallID string) int {
	grid, ok := g.grids[hallID]
	if !ok {
		return 0
	}
	return grid.capacity
}

// TotalCapacity sums assignable seats across every hall.
func (g *SeatGraph) TotalCapacity() int {
	total := 0
	for _, grid := range g.grids {
		total += grid.capacity
	}
	return total
}

// Seats enumerates the assignable coordinates of one hall in row-major
// order: row 0 left to right, then row 1, and so on. The fixed order is what
// makes allocation runs reproducible.
func (g *SeatGraph) Seats(hallID string) []models.Coordinate {
	grid, ok := g.grids[hallID]
	if !ok {
		return nil
	}
	seats := make([]models.Coordinate, 0, grid.capacity)
	for row := 0; row < grid.hall.Rows; row++ {
		for col := 0; col < grid.hall.Columns; col++ {
			c := models.Coordinate{Row: row, Col: col}
			if grid.available[grid.index(c)] {
				seats = append(seats, c)
			}
		}
	}
	return seats
}

// Neighbors returns the in-bounds, unblocked seats one step up, down, left
// or right of the given coordinate. It is empty for unknown halls and for
// out-of-bounds coordinates.
func (g *SeatGraph) Neighbors(hallID string, c models.Coordinate) []models.Coordinate {
	grid, ok := g.grids[hallID]
	if !ok || !grid.inBounds(c) {
		return nil
	}
	neighbors := make([]models.Coordinate, 0, 4)
	for _, step := range neighborSteps {
		candidate := models.Coordinate{Row: c.Row + step.Row, Col: c.Col + step.Col}
		if grid.isAvailable(candidate) {
			neighbors = append(neighbors, candidate)
		}
	}
	return neighbors
}
