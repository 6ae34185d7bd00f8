package dto

import "github.com/noah-isme/exam-seating-api/internal/models"

// CreateHallRequest registers one hall grid definition.
type CreateHallRequest struct {
	ID      string              `json:"id" validate:"required"`
	Name    string              `json:"name" validate:"required"`
	Rows    int                 `json:"rows" validate:"required,min=1"`
	Columns int                 `json:"columns" validate:"required,min=1"`
	Blocked []models.Coordinate `json:"blocked" validate:"omitempty,dive"`
}

// UpdateHallRequest amends a hall definition.
type UpdateHallRequest struct {
	Name    string              `json:"name" validate:"required"`
	Rows    int                 `json:"rows" validate:"required,min=1"`
	Columns int                 `json:"columns" validate:"required,min=1"`
	Blocked []models.Coordinate `json:"blocked" validate:"omitempty,dive"`
}
