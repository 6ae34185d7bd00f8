package models

import "time"

// Coordinate addresses a seat inside a hall grid, 0-indexed from the
// front-left corner.
type Coordinate struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Hall describes one physical exam room as a fixed row/column grid. Blocked
// coordinates are seats that do not physically exist (broken furniture,
// pillars) and are never assignable.
type Hall struct {
	ID        string       `db:"id" json:"id"`
	Name      string       `db:"name" json:"name"`
	Rows      int          `db:"rows" json:"rows"`
	Columns   int          `db:"columns" json:"columns"`
	Blocked   []Coordinate `json:"blocked,omitempty"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}

// Capacity returns the number of assignable seats in the hall.
func (h Hall) Capacity() int {
	capacity := h.Rows*h.Columns - len(h.Blocked)
	if capacity < 0 {
		return 0
	}
	return capacity
}

// HallFilter encapsulates allowed search parameters for listing halls.
type HallFilter struct {
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
