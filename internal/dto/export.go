package dto

import "github.com/noah-isme/exam-seating-api/internal/models"

// CreateExportRequest enqueues a seating chart export for a plan. When
// HallID is empty the export covers every hall in the plan.
type CreateExportRequest struct {
	Format models.ExportFormat `json:"format" validate:"required,oneof=csv pdf"`
	HallID string              `json:"hallId"`
}

// CreateExportResponse acknowledges the queued job.
type CreateExportResponse struct {
	JobID  string              `json:"jobId"`
	Status models.ExportStatus `json:"status"`
}
