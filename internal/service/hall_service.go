package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-seating-api/internal/dto"
	"github.com/noah-isme/exam-seating-api/internal/models"
	appErrors "github.com/noah-isme/exam-seating-api/pkg/errors"
)

type hallRepository interface {
	List(ctx context.Context, filter models.HallFilter) ([]models.Hall, int, error)
	ListAll(ctx context.Context) ([]models.Hall, error)
	FindByID(ctx context.Context, id string) (*models.Hall, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Hall, error)
	Create(ctx context.Context, hall *models.Hall) error
	Update(ctx context.Context, hall *models.Hall) error
	Delete(ctx context.Context, id string) error
}

// HallService manages stored hall definitions. Topology is validated eagerly
// so a bad grid is rejected at write time, not at allocation time.
type HallService struct {
	halls     hallRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewHallService wires hall dependencies.
func NewHallService(halls hallRepository, validate *validator.Validate, logger *zap.Logger) *HallService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HallService{halls: halls, validator: validate, logger: logger}
}

// List returns hall definitions with pagination metadata.
func (s *HallService) List(ctx context.Context, filter models.HallFilter) ([]models.Hall, *models.Pagination, error) {
	halls, total, err := s.halls.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list halls")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return halls, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get fetches one hall definition.
func (s *HallService) Get(ctx context.Context, id string) (*models.Hall, error) {
	hall, err := s.halls.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "hall not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load hall")
	}
	return hall, nil
}

// Create stores a hall definition after checking its topology.
func (s *HallService) Create(ctx context.Context, req dto.CreateHallRequest) (*models.Hall, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid hall payload")
	}
	hall := &models.Hall{
		ID:      req.ID,
		Name:    req.Name,
		Rows:    req.Rows,
		Columns: req.Columns,
		Blocked: req.Blocked,
	}
	if _, err := NewSeatGraph([]models.Hall{*hall}); err != nil {
		return nil, err
	}
	if existing, err := s.halls.FindByID(ctx, hall.ID); err == nil && existing != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "hall id already exists")
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check hall")
	}
	if err := s.halls.Create(ctx, hall); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create hall")
	}
	s.logger.Info("hall created",
		zap.String("hall_id", hall.ID),
		zap.Int("capacity", hall.Capacity()))
	return hall, nil
}

// Update replaces a stored hall definition, re-checking topology.
func (s *HallService) Update(ctx context.Context, id string, req dto.UpdateHallRequest) (*models.Hall, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid hall payload")
	}
	hall := &models.Hall{
		ID:      id,
		Name:    req.Name,
		Rows:    req.Rows,
		Columns: req.Columns,
		Blocked: req.Blocked,
	}
	if _, err := NewSeatGraph([]models.Hall{*hall}); err != nil {
		return nil, err
	}
	if err := s.halls.Update(ctx, hall); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "hall not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update hall")
	}
	return hall, nil
}

// Delete removes one hall definition.
func (s *HallService) Delete(ctx context.Context, id string) error {
	if err := s.halls.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "hall not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete hall")
	}
	return nil
}
