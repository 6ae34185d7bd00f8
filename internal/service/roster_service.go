package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-seating-api/internal/dto"
	"github.com/noah-isme/exam-seating-api/internal/models"
	appErrors "github.com/noah-isme/exam-seating-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	ListAll(ctx context.Context) ([]models.Student, error)
	FindByRegNo(ctx context.Context, regNo string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	BulkCreate(ctx context.Context, students []models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, regNo string) error
}

// RosterService manages the stored student roster. It enforces the roster
// contract the engine relies on: unique registration numbers and non-empty
// subject codes.
type RosterService struct {
	students  studentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRosterService wires roster dependencies.
func NewRosterService(students studentRepository, validate *validator.Validate, logger *zap.Logger) *RosterService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{students: students, validator: validate, logger: logger}
}

// List returns roster records with pagination metadata.
func (s *RosterService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.students.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get fetches one roster record.
func (s *RosterService) Get(ctx context.Context, regNo string) (*models.Student, error) {
	if regNo == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "registration number is required")
	}
	student, err := s.students.FindByRegNo(ctx, regNo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create registers one roster record, rejecting duplicates eagerly.
func (s *RosterService) Create(ctx context.Context, req dto.CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if existing, err := s.students.FindByRegNo(ctx, req.RegNo); err == nil && existing != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidRoster, fmt.Sprintf("duplicate registration number %s", req.RegNo))
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check roster")
	}

	student := &models.Student{
		RegNo:    req.RegNo,
		FullName: req.FullName,
		Subject:  req.Subject,
	}
	if err := s.students.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	return student, nil
}

// BulkCreate loads a pre-parsed roster. The whole batch is validated before
// anything is written: a duplicate registration number anywhere aborts the
// load.
func (s *RosterService) BulkCreate(ctx context.Context, req dto.BulkCreateStudentsRequest) (int, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid roster payload")
	}

	seen := make(map[string]struct{}, len(req.Students))
	students := make([]models.Student, 0, len(req.Students))
	for _, record := range req.Students {
		if _, dup := seen[record.RegNo]; dup {
			return 0, appErrors.Clone(appErrors.ErrInvalidRoster, fmt.Sprintf("duplicate registration number %s", record.RegNo))
		}
		seen[record.RegNo] = struct{}{}
		students = append(students, models.Student{
			RegNo:    record.RegNo,
			FullName: record.FullName,
			Subject:  record.Subject,
		})
	}

	if err := s.students.BulkCreate(ctx, students); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	s.logger.Info("roster loaded", zap.Int("students", len(students)))
	return len(students), nil
}

// Update amends the mutable fields of one roster record.
func (s *RosterService) Update(ctx context.Context, regNo string, req dto.UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student := &models.Student{
		RegNo:    regNo,
		FullName: req.FullName,
		Subject:  req.Subject,
	}
	if err := s.students.Update(ctx, student); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return student, nil
}

// Delete removes one roster record.
func (s *RosterService) Delete(ctx context.Context, regNo string) error {
	if err := s.students.Delete(ctx, regNo); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	return nil
}
