package service

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-seating-api/internal/dto"
	"github.com/noah-isme/exam-seating-api/internal/models"
	appErrors "github.com/noah-isme/exam-seating-api/pkg/errors"
	"github.com/noah-isme/exam-seating-api/pkg/export"
	"github.com/noah-isme/exam-seating-api/pkg/jobs"
	"github.com/noah-isme/exam-seating-api/pkg/storage"
)

type planReader interface {
	Get(ctx context.Context, planID string) (*models.SeatingPlan, error)
}

type csvRenderer interface {
	Render(grids []export.Grid) ([]byte, error)
}

type pdfRenderer interface {
	Render(grids []export.Grid, title string) ([]byte, error)
}

type exportPayload struct {
	JobID  string
	PlanID string
	HallID string
	Format models.ExportFormat
}

// ExportService turns seating plans into downloadable charts. Jobs run on the
// background queue; finished artifacts land on local storage behind signed
// download tokens.
type ExportService struct {
	plans   planReader
	csv     csvRenderer
	pdf     pdfRenderer
	storage *storage.LocalStorage
	signer  *storage.SignedURLSigner

	validator *validator.Validate
	logger    *zap.Logger

	queue *jobs.Queue

	mu      sync.RWMutex
	entries map[string]*models.ExportJob
}

// ExportConfig carries queue sizing for the export worker pool.
type ExportConfig struct {
	Workers    int
	MaxRetries int
}

// NewExportService wires the export pipeline. Start must be called before
// jobs are accepted.
func NewExportService(
	plans planReader,
	store *storage.LocalStorage,
	signer *storage.SignedURLSigner,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg ExportConfig,
) *ExportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ExportService{
		plans:     plans,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		storage:   store,
		signer:    signer,
		validator: validate,
		logger:    logger,
		entries:   make(map[string]*models.ExportJob),
	}
	s.queue = jobs.NewQueue("exports", s.process, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		Logger:     logger,
	})
	return s
}

// Start launches the export workers.
func (s *ExportService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the export workers.
func (s *ExportService) Stop() {
	s.queue.Stop()
}

// CreateJob validates the request, registers a job record and enqueues the
// render. The plan must still be resident; exports of expired plans fail
// eagerly rather than in the worker.
func (s *ExportService) CreateJob(ctx context.Context, planID string, req dto.CreateExportRequest) (*models.ExportJob, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export payload")
	}

	plan, err := s.plans.Get(ctx, planID)
	if err != nil {
		return nil, err
	}
	if req.HallID != "" {
		if _, ok := plan.ForHall(req.HallID); !ok {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "hall not part of plan")
		}
	}

	job := &models.ExportJob{
		ID:        uuid.New().String(),
		PlanID:    planID,
		HallID:    req.HallID,
		Format:    models.ExportFormat(req.Format),
		Status:    models.ExportStatusQueued,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.entries[job.ID] = job
	s.mu.Unlock()

	err = s.queue.Enqueue(jobs.Job{
		ID:   job.ID,
		Type: "export",
		Payload: exportPayload{
			JobID:  job.ID,
			PlanID: planID,
			HallID: req.HallID,
			Format: job.Format,
		},
	})
	if err != nil {
		s.markFailed(job.ID, err)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export")
	}

	snapshot := *job
	return &snapshot, nil
}

// GetJob returns the current state of an export job.
func (s *ExportService) GetJob(_ context.Context, jobID string) (*models.ExportJob, error) {
	s.mu.RLock()
	job, ok := s.entries[jobID]
	var snapshot models.ExportJob
	if ok {
		snapshot = *job
	}
	s.mu.RUnlock()
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	return &snapshot, nil
}

// OpenDownload validates a signed token and returns the artifact plus its
// download filename.
func (s *ExportService) OpenDownload(_ context.Context, token string) (*os.File, string, error) {
	jobID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid download token")
	}

	s.mu.RLock()
	job, ok := s.entries[jobID]
	s.mu.RUnlock()
	if !ok || job.Status != models.ExportStatusFinished {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export artifact not available")
	}

	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export artifact missing")
	}
	return file, fmt.Sprintf("seating-%s.%s", job.PlanID, job.Format), nil
}

func (s *ExportService) process(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(exportPayload)
	if !ok {
		s.logger.Error("unexpected export payload", zap.String("job_id", job.ID))
		return nil
	}

	s.setStatus(payload.JobID, models.ExportStatusProcessing)

	plan, err := s.plans.Get(ctx, payload.PlanID)
	if err != nil {
		s.markFailed(payload.JobID, err)
		return nil
	}

	grids, err := buildGrids(plan, payload.HallID)
	if err != nil {
		s.markFailed(payload.JobID, err)
		return nil
	}

	var data []byte
	var ext string
	switch payload.Format {
	case models.ExportFormatPDF:
		data, err = s.pdf.Render(grids, "Exam Seating Chart")
		ext = "pdf"
	default:
		data, err = s.csv.Render(grids)
		ext = "csv"
	}
	if err != nil {
		s.markFailed(payload.JobID, err)
		return nil
	}

	relPath := fmt.Sprintf("plans/%s/%s.%s", payload.PlanID, payload.JobID, ext)
	if _, err := s.storage.Save(relPath, data); err != nil {
		s.markFailed(payload.JobID, err)
		return err
	}

	token, expiresAt, err := s.signer.Generate(payload.JobID, relPath)
	if err != nil {
		s.markFailed(payload.JobID, err)
		return nil
	}

	now := time.Now().UTC()
	s.mu.Lock()
	if entry, found := s.entries[payload.JobID]; found {
		entry.Status = models.ExportStatusFinished
		entry.ResultURL = &token
		entry.ExpiresAt = &expiresAt
		entry.FinishedAt = &now
	}
	s.mu.Unlock()

	s.logger.Info("export finished",
		zap.String("job_id", payload.JobID),
		zap.String("plan_id", payload.PlanID),
		zap.String("format", string(payload.Format)),
		zap.Int("bytes", len(data)))
	return nil
}

// buildGrids renders every hall in the plan, or a single hall when hallID is
// set. Occupied seats carry the registration number, empty seats a dash,
// blocked seats an X.
func buildGrids(plan *models.SeatingPlan, hallID string) ([]export.Grid, error) {
	halls := plan.Halls
	if hallID != "" {
		halls = nil
		for _, hall := range plan.Halls {
			if hall.ID == hallID {
				halls = []models.Hall{hall}
				break
			}
		}
	}
	if len(halls) == 0 {
		return nil, fmt.Errorf("no halls to export")
	}

	grids := make([]export.Grid, 0, len(halls))
	for _, hall := range halls {
		cells, ok := plan.ForHall(hall.ID)
		if !ok {
			continue
		}
		rows := make([][]string, len(cells))
		for r, row := range cells {
			rows[r] = make([]string, len(row))
			for c, cell := range row {
				switch cell.Kind {
				case models.CellOccupied:
					rows[r][c] = cell.Student.RegNo
				case models.CellBlocked:
					rows[r][c] = "X"
				default:
					rows[r][c] = "-"
				}
			}
		}
		title := hall.Name
		if title == "" {
			title = hall.ID
		}
		grids = append(grids, export.Grid{Title: title, Cells: rows})
	}
	return grids, nil
}

func (s *ExportService) setStatus(jobID string, status models.ExportStatus) {
	s.mu.Lock()
	if entry, ok := s.entries[jobID]; ok {
		entry.Status = status
	}
	s.mu.Unlock()
}

func (s *ExportService) markFailed(jobID string, cause error) {
	message := cause.Error()
	now := time.Now().UTC()
	s.mu.Lock()
	if entry, ok := s.entries[jobID]; ok {
		entry.Status = models.ExportStatusFailed
		entry.ErrorMessage = &message
		entry.FinishedAt = &now
	}
	s.mu.Unlock()
	s.logger.Warn("export failed", zap.String("job_id", jobID), zap.Error(cause))
}
