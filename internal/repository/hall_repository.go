package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/exam-seating-api/internal/models"
)

// HallRepository manages persistence for hall grid definitions. Blocked
// coordinates are stored as a JSONB column.
type HallRepository struct {
	db *sqlx.DB
}

// NewHallRepository constructs a HallRepository.
func NewHallRepository(db *sqlx.DB) *HallRepository {
	return &HallRepository{db: db}
}

type hallRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Rows      int       `db:"rows"`
	Columns   int       `db:"columns"`
	Blocked   []byte    `db:"blocked"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (row hallRow) toModel() (models.Hall, error) {
	hall := models.Hall{
		ID:        row.ID,
		Name:      row.Name,
		Rows:      row.Rows,
		Columns:   row.Columns,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if len(row.Blocked) > 0 {
		if err := json.Unmarshal(row.Blocked, &hall.Blocked); err != nil {
			return models.Hall{}, fmt.Errorf("decode blocked seats for hall %s: %w", row.ID, err)
		}
	}
	return hall, nil
}

func marshalBlocked(blocked []models.Coordinate) ([]byte, error) {
	if blocked == nil {
		blocked = []models.Coordinate{}
	}
	raw, err := json.Marshal(blocked)
	if err != nil {
		return nil, fmt.Errorf("encode blocked seats: %w", err)
	}
	return raw, nil
}

// List returns halls matching the provided filters.
func (r *HallRepository) List(ctx context.Context, filter models.HallFilter) ([]models.Hall, int, error) {
	base := "FROM halls h"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(h.name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"name":       "h.name",
		"created_at": "h.created_at",
	}
	if sortBy == "" {
		sortBy = "created_at"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "h.created_at"
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

	query := fmt.Sprintf(`SELECT h.id, h.name, h.rows, h.columns, h.blocked, h.created_at, h.updated_at
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base, column, order, size, offset)

	var rows []hallRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list halls: %w", err)
	}
	halls := make([]models.Hall, 0, len(rows))
	for _, row := range rows {
		hall, err := row.toModel()
		if err != nil {
			return nil, 0, err
		}
		halls = append(halls, hall)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count halls: %w", err)
	}
	return halls, total, nil
}

// ListAll returns every hall in creation order.
func (r *HallRepository) ListAll(ctx context.Context) ([]models.Hall, error) {
	query := `SELECT id, name, rows, columns, blocked, created_at, updated_at
        FROM halls ORDER BY created_at, id`
	var rows []hallRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list all halls: %w", err)
	}
	halls := make([]models.Hall, 0, len(rows))
	for _, row := range rows {
		hall, err := row.toModel()
		if err != nil {
			return nil, err
		}
		halls = append(halls, hall)
	}
	return halls, nil
}

// FindByID fetches one hall definition.
func (r *HallRepository) FindByID(ctx context.Context, id string) (*models.Hall, error) {
	query := `SELECT id, name, rows, columns, blocked, created_at, updated_at
        FROM halls WHERE id = $1`
	var row hallRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	hall, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &hall, nil
}

// FindByIDs fetches hall definitions preserving the requested order.
func (r *HallRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Hall, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT id, name, rows, columns, blocked, created_at, updated_at
        FROM halls WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("build hall query: %w", err)
	}
	query = r.db.Rebind(query)
	var rows []hallRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("find halls: %w", err)
	}
	byID := make(map[string]models.Hall, len(rows))
	for _, row := range rows {
		hall, err := row.toModel()
		if err != nil {
			return nil, err
		}
		byID[hall.ID] = hall
	}
	halls := make([]models.Hall, 0, len(ids))
	for _, id := range ids {
		if hall, ok := byID[id]; ok {
			halls = append(halls, hall)
		}
	}
	return halls, nil
}

// Create inserts one hall definition.
func (r *HallRepository) Create(ctx context.Context, hall *models.Hall) error {
	raw, err := marshalBlocked(hall.Blocked)
	if err != nil {
		return err
	}
	query := `INSERT INTO halls (id, name, rows, columns, blocked, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
        RETURNING created_at, updated_at`
	if err := r.db.QueryRowxContext(ctx, query, hall.ID, hall.Name, hall.Rows, hall.Columns, raw).
		Scan(&hall.CreatedAt, &hall.UpdatedAt); err != nil {
		return fmt.Errorf("create hall: %w", err)
	}
	return nil
}

// Update amends one hall definition.
func (r *HallRepository) Update(ctx context.Context, hall *models.Hall) error {
	raw, err := marshalBlocked(hall.Blocked)
	if err != nil {
		return err
	}
	query := `UPDATE halls SET name = $2, rows = $3, columns = $4, blocked = $5, updated_at = NOW()
        WHERE id = $1 RETURNING updated_at`
	if err := r.db.QueryRowxContext(ctx, query, hall.ID, hall.Name, hall.Rows, hall.Columns, raw).
		Scan(&hall.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return sql.ErrNoRows
		}
		return fmt.Errorf("update hall: %w", err)
	}
	return nil
}

// Delete removes one hall definition.
func (r *HallRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM halls WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete hall: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete hall: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
