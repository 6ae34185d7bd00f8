package dto

import "github.com/noah-isme/exam-seating-api/internal/models"

// StudentRecord is one clean roster entry supplied inline with a request.
// Upstream normalisation guarantees unique registration numbers and
// non-empty subject codes; the engine still verifies both.
type StudentRecord struct {
	RegNo    string `json:"regNo" validate:"required"`
	FullName string `json:"fullName" validate:"required"`
	Subject  string `json:"subject" validate:"required"`
}

// HallDefinition describes one hall grid supplied inline with a request.
type HallDefinition struct {
	ID      string              `json:"id" validate:"required"`
	Name    string              `json:"name"`
	Rows    int                 `json:"rows" validate:"required,min=1"`
	Columns int                 `json:"columns" validate:"required,min=1"`
	Blocked []models.Coordinate `json:"blocked" validate:"omitempty,dive"`
}

// GenerateAllocationRequest asks the engine for a seating plan. Students and
// halls may be given inline, or resolved from stored records when the inline
// lists are empty. Input order is significant: it fixes every tie-break.
type GenerateAllocationRequest struct {
	Students    []StudentRecord  `json:"students" validate:"omitempty,dive"`
	Halls       []HallDefinition `json:"halls" validate:"omitempty,dive"`
	HallIDs     []string         `json:"hallIds"`
	UseStored   bool             `json:"useStored"`
	Description string           `json:"description"`
}

// GenerateAllocationResponse returns the generated plan identity and its
// headline outcome.
type GenerateAllocationResponse struct {
	PlanID    string             `json:"planId"`
	Summary   models.PlanSummary `json:"summary"`
	Unplaced  []models.Unplaced  `json:"unplaced"`
	Conflicts []models.Conflict  `json:"conflicts"`
}

// HallGridResponse carries the row-major grid for one hall.
type HallGridResponse struct {
	HallID string              `json:"hallId"`
	Name   string              `json:"name"`
	Rows   int                 `json:"rows"`
	Cols   int                 `json:"cols"`
	Grid   [][]models.GridCell `json:"grid"`
	Legend map[string]int      `json:"legend"`
	Counts models.PlanSummary  `json:"counts"`
}
