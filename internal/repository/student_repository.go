package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/exam-seating-api/internal/models"
)

// StudentRepository manages persistence for roster records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	base := "FROM students s"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Subject != "" {
		conditions = append(conditions, fmt.Sprintf("s.subject = $%d", len(args)+1))
		args = append(args, filter.Subject)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.full_name) LIKE $%d OR LOWER(s.reg_no) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"full_name":  "s.full_name",
		"reg_no":     "s.reg_no",
		"subject":    "s.subject",
		"created_at": "s.created_at",
	}
	if sortBy == "" {
		sortBy = "reg_no"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "s.reg_no"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT s.reg_no, s.full_name, s.subject, s.created_at, s.updated_at
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base, column, order, size, offset)

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// ListAll returns the full roster in registration order. Listing order is
// what fixes allocation tie-breaks, so it must be stable.
func (r *StudentRepository) ListAll(ctx context.Context) ([]models.Student, error) {
	query := `SELECT reg_no, full_name, subject, created_at, updated_at
        FROM students ORDER BY created_at, reg_no`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("list all students: %w", err)
	}
	return students, nil
}

// FindByRegNo fetches one roster record.
func (r *StudentRepository) FindByRegNo(ctx context.Context, regNo string) (*models.Student, error) {
	query := `SELECT reg_no, full_name, subject, created_at, updated_at
        FROM students WHERE reg_no = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, regNo); err != nil {
		return nil, err
	}
	return &student, nil
}

// Create inserts one roster record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	query := `INSERT INTO students (reg_no, full_name, subject, created_at, updated_at)
        VALUES ($1, $2, $3, NOW(), NOW())
        RETURNING created_at, updated_at`
	if err := r.db.QueryRowxContext(ctx, query, student.RegNo, student.FullName, student.Subject).
		Scan(&student.CreatedAt, &student.UpdatedAt); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// BulkCreate inserts a batch of roster records in one transaction.
func (r *StudentRepository) BulkCreate(ctx context.Context, students []models.Student) error {
	if len(students) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk insert: %w", err)
	}
	query := `INSERT INTO students (reg_no, full_name, subject, created_at, updated_at)
        VALUES ($1, $2, $3, NOW(), NOW())`
	for _, student := range students {
		if _, err := tx.ExecContext(ctx, query, student.RegNo, student.FullName, student.Subject); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("bulk insert student %s: %w", student.RegNo, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk insert: %w", err)
	}
	return nil
}

// Update amends the mutable fields of a roster record.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	query := `UPDATE students SET full_name = $2, subject = $3, updated_at = NOW()
        WHERE reg_no = $1 RETURNING updated_at`
	if err := r.db.QueryRowxContext(ctx, query, student.RegNo, student.FullName, student.Subject).
		Scan(&student.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return sql.ErrNoRows
		}
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// Delete removes one roster record.
func (r *StudentRepository) Delete(ctx context.Context, regNo string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE reg_no = $1`, regNo)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
