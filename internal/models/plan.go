package models

import "time"

// UnplacedReason explains why a student could not be seated.
type UnplacedReason string

const (
	// UnplacedNoSeatAvailable means every assignable seat was already taken.
	UnplacedNoSeatAvailable UnplacedReason = "NO_SEAT_AVAILABLE"
)

// Placement binds one student to exactly one seat.
type Placement struct {
	HallID  string     `json:"hall_id"`
	Seat    Coordinate `json:"seat"`
	Student Student    `json:"student"`
}

// Unplaced records a student the engine could not seat, with the reason.
type Unplaced struct {
	Student Student        `json:"student"`
	Reason  UnplacedReason `json:"reason"`
}

// Conflict is a pair of adjacent occupied seats whose occupants share a
// subject. A clean plan has none; residual conflicts are reported, never
// silently accepted.
type Conflict struct {
	HallID      string     `json:"hall_id"`
	First       Coordinate `json:"first"`
	Second      Coordinate `json:"second"`
	FirstRegNo  string     `json:"first_reg_no"`
	SecondRegNo string     `json:"second_reg_no"`
	Subject     string     `json:"subject"`
}

// GridCellKind enumerates the renderable states of a single seat.
type GridCellKind string

const (
	CellOccupied GridCellKind = "occupied"
	CellEmpty    GridCellKind = "empty"
	CellBlocked  GridCellKind = "blocked"
)

// GridCell is one renderable seat in a hall grid.
type GridCell struct {
	Kind    GridCellKind `json:"kind"`
	Student *Student     `json:"student,omitempty"`
}

// SeatingPlan is the final allocation artifact. It is assembled once by the
// allocation engine and handed to renderers and the chat layer read-only.
type SeatingPlan struct {
	PlanID      string      `json:"plan_id"`
	Halls       []Hall      `json:"halls"`
	Placements  []Placement `json:"placements"`
	Unplaced    []Unplaced  `json:"unplaced"`
	Conflicts   []Conflict  `json:"conflicts"`
	GeneratedAt time.Time   `json:"generated_at"`
}

// PlanSummary provides the headline counts for quick validation.
type PlanSummary struct {
	Halls     int `json:"halls"`
	Seated    int `json:"seated"`
	Unplaced  int `json:"unplaced"`
	Conflicts int `json:"conflicts"`
}

// Summary derives headline counts from the plan.
func (p *SeatingPlan) Summary() PlanSummary {
	return PlanSummary{
		Halls:     len(p.Halls),
		Seated:    len(p.Placements),
		Unplaced:  len(p.Unplaced),
		Conflicts: len(p.Conflicts),
	}
}

// ForHall materialises the row-major grid for one hall, the exact shape the
// spreadsheet renderer consumes: one cell per seat, occupied, empty or
// blocked. The second return is false when the hall is not part of the plan.
func (p *SeatingPlan) ForHall(hallID string) ([][]GridCell, bool) {
	var hall *Hall
	for i := range p.Halls {
		if p.Halls[i].ID == hallID {
			hall = &p.Halls[i]
			break
		}
	}
	if hall == nil {
		return nil, false
	}

	grid := make([][]GridCell, hall.Rows)
	for r := range grid {
		grid[r] = make([]GridCell, hall.Columns)
		for c := range grid[r] {
			grid[r][c] = GridCell{Kind: CellEmpty}
		}
	}
	for _, blocked := range hall.Blocked {
		if blocked.Row >= 0 && blocked.Row < hall.Rows && blocked.Col >= 0 && blocked.Col < hall.Columns {
			grid[blocked.Row][blocked.Col] = GridCell{Kind: CellBlocked}
		}
	}
	for i := range p.Placements {
		placement := p.Placements[i]
		if placement.HallID != hallID {
			continue
		}
		student := placement.Student
		grid[placement.Seat.Row][placement.Seat.Col] = GridCell{Kind: CellOccupied, Student: &student}
	}
	return grid, true
}

// Locate finds the placement for a registration number, if the student was
// seated.
func (p *SeatingPlan) Locate(regNo string) (Placement, bool) {
	for i := range p.Placements {
		if p.Placements[i].Student.RegNo == regNo {
			return p.Placements[i], true
		}
	}
	return Placement{}, false
}
