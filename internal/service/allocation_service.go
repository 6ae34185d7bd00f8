package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-seating-api/internal/dto"
	"github.com/noah-isme/exam-seating-api/internal/models"
	appErrors "github.com/noah-isme/exam-seating-api/pkg/errors"
)

type allocationRosterReader interface {
	ListAll(ctx context.Context) ([]models.Student, error)
}

type allocationHallReader interface {
	ListAll(ctx context.Context) ([]models.Hall, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Hall, error)
}

// GridCache stores rendered hall grids between requests. Plans are immutable
// so entries are only ever invalidated by TTL.
type GridCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// AllocationService is the seat-assignment engine. It turns a roster and a
// set of hall grids into a seating plan where no two adjacent seats hold
// students of the same subject, or reports exactly which conflicts and
// unplaced students remain when that is impossible.
type AllocationService struct {
	roster    allocationRosterReader
	halls     allocationHallReader
	cache     GridCache
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	store     *planStore
	workers   int
	cacheTTL  time.Duration
}

// AllocationConfig governs engine behaviour.
type AllocationConfig struct {
	PlanTTL     time.Duration
	HallWorkers int
	CacheTTL    time.Duration
}

// NewAllocationService wires allocation dependencies.
func NewAllocationService(
	roster allocationRosterReader,
	halls allocationHallReader,
	cache GridCache,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg AllocationConfig,
) *AllocationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PlanTTL <= 0 {
		cfg.PlanTTL = 2 * time.Hour
	}
	if cfg.HallWorkers <= 0 {
		cfg.HallWorkers = 4
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	return &AllocationService{
		roster:    roster,
		halls:     halls,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		store:     newPlanStore(cfg.PlanTTL),
		workers:   cfg.HallWorkers,
		cacheTTL:  cfg.CacheTTL,
	}
}

// Generate runs the full allocation pipeline: eager input validation, seat
// graph construction, the greedy interleaved fill, and plan assembly. An
// empty roster is a valid degenerate run producing an empty plan. Unplaced
// students and residual conflicts are outcomes, not errors.
func (s *AllocationService) Generate(ctx context.Context, req dto.GenerateAllocationRequest) (*dto.GenerateAllocationResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid allocation payload")
	}

	students, err := s.resolveStudents(ctx, req)
	if err != nil {
		return nil, err
	}
	halls, err := s.resolveHalls(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := validateRoster(students); err != nil {
		return nil, err
	}

	graph, err := NewSeatGraph(halls)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	plan := s.allocate(graph, students)
	plan.PlanID = uuid.NewString()
	plan.GeneratedAt = time.Now().UTC()
	duration := time.Since(start)

	if s.metrics != nil {
		s.metrics.ObserveAllocation(plan.Summary(), duration)
	}
	s.logger.Info("allocation generated",
		zap.String("plan_id", plan.PlanID),
		zap.Int("halls", len(plan.Halls)),
		zap.Int("seated", len(plan.Placements)),
		zap.Int("unplaced", len(plan.Unplaced)),
		zap.Int("conflicts", len(plan.Conflicts)),
		zap.Duration("duration", duration),
	)
	s.store.Save(plan)

	return &dto.GenerateAllocationResponse{
		PlanID:    plan.PlanID,
		Summary:   plan.Summary(),
		Unplaced:  plan.Unplaced,
		Conflicts: plan.Conflicts,
	}, nil
}

// Get returns a stored plan or ErrNotFound once it expired.
func (s *AllocationService) Get(ctx context.Context, planID string) (*models.SeatingPlan, error) {
	if planID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "plan id is required")
	}
	plan, ok := s.store.Get(planID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "plan not found or expired")
	}
	return plan, nil
}

// HallGrid materialises the row-major renderer grid for one hall of a plan.
// Plans are immutable, so grids are cached aggressively when a cache is
// configured. The second return reports whether the cache served the grid.
func (s *AllocationService) HallGrid(ctx context.Context, planID, hallID string) (*dto.HallGridResponse, bool, error) {
	cacheKey := fmt.Sprintf("plan:%s:hall:%s", planID, hallID)
	if s.cache != nil {
		var cached dto.HallGridResponse
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, true, nil
		}
	}

	plan, err := s.Get(ctx, planID)
	if err != nil {
		return nil, false, err
	}
	grid, ok := plan.ForHall(hallID)
	if !ok {
		return nil, false, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("hall %s is not part of this plan", hallID))
	}

	var hall models.Hall
	for _, h := range plan.Halls {
		if h.ID == hallID {
			hall = h
			break
		}
	}
	legend := make(map[string]int)
	seated := 0
	for _, row := range grid {
		for _, cell := range row {
			if cell.Kind == models.CellOccupied {
				legend[cell.Student.Subject]++
				seated++
			}
		}
	}
	resp := &dto.HallGridResponse{
		HallID: hallID,
		Name:   hall.Name,
		Rows:   hall.Rows,
		Cols:   hall.Columns,
		Grid:   grid,
		Legend: legend,
		Counts: models.PlanSummary{Halls: 1, Seated: seated},
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, resp, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache hall grid", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return resp, false, nil
}

func (s *AllocationService) resolveStudents(ctx context.Context, req dto.GenerateAllocationRequest) ([]models.Student, error) {
	if len(req.Students) > 0 {
		students := make([]models.Student, 0, len(req.Students))
		for _, record := range req.Students {
			students = append(students, models.Student{
				RegNo:    record.RegNo,
				FullName: record.FullName,
				Subject:  record.Subject,
			})
		}
		return students, nil
	}
	if req.UseStored {
		if s.roster == nil {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "stored roster unavailable")
		}
		students, err := s.roster.ListAll(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load stored roster")
		}
		return students, nil
	}
	return nil, nil
}

func (s *AllocationService) resolveHalls(ctx context.Context, req dto.GenerateAllocationRequest) ([]models.Hall, error) {
	if len(req.Halls) > 0 {
		halls := make([]models.Hall, 0, len(req.Halls))
		for _, def := range req.Halls {
			halls = append(halls, models.Hall{
				ID:      def.ID,
				Name:    def.Name,
				Rows:    def.Rows,
				Columns: def.Columns,
				Blocked: def.Blocked,
			})
		}
		return halls, nil
	}
	if len(req.HallIDs) > 0 {
		if s.halls == nil {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "stored halls unavailable")
		}
		halls, err := s.halls.FindByIDs(ctx, req.HallIDs)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load halls")
		}
		if len(halls) == 0 {
			return nil, appErrors.Clone(appErrors.ErrNoHalls, "none of the requested halls exist")
		}
		return halls, nil
	}
	if req.UseStored {
		if s.halls == nil {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "stored halls unavailable")
		}
		halls, err := s.halls.ListAll(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load halls")
		}
		return halls, nil
	}
	return nil, nil
}

// validateRoster fails fast on duplicate registration numbers and missing
// subject codes rather than silently deduplicating.
func validateRoster(students []models.Student) error {
	seen := make(map[string]struct{}, len(students))
	for _, student := range students {
		if student.RegNo == "" {
			return appErrors.Clone(appErrors.ErrInvalidRoster, "registration number is required")
		}
		if student.Subject == "" {
			return appErrors.Clone(appErrors.ErrInvalidRoster, fmt.Sprintf("student %s has no subject code", student.RegNo))
		}
		if _, dup := seen[student.RegNo]; dup {
			return appErrors.Clone(appErrors.ErrInvalidRoster, fmt.Sprintf("duplicate registration number %s", student.RegNo))
		}
		seen[student.RegNo] = struct{}{}
	}
	return nil
}

// --- Allocation core ---

// allocate partitions the roster across halls, fills each hall concurrently
// and merges the results in hall order. The partition happens sequentially
// before fan-out, so concurrency never influences the outcome: identical
// input yields an identical plan.
func (s *AllocationService) allocate(graph *SeatGraph, students []models.Student) *models.SeatingPlan {
	halls := graph.Halls()
	plan := &models.SeatingPlan{
		Halls:      halls,
		Placements: make([]models.Placement, 0, len(students)),
		Unplaced:   make([]models.Unplaced, 0),
		Conflicts:  make([]models.Conflict, 0),
	}

	pool := newSubjectPool(students)
	hallRosters := make([][]models.Student, len(halls))
	for i, hall := range halls {
		hallRosters[i] = pool.drawInterleaved(graph.Capacity(hall.ID))
	}
	// Whatever is left over after every seat is spoken for stays unplaced.
	for _, student := range pool.remaining() {
		plan.Unplaced = append(plan.Unplaced, models.Unplaced{
			Student: student,
			Reason:  models.UnplacedNoSeatAvailable,
		})
	}

	results := make([]hallResult, len(halls))
	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup
	for i := range halls {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[idx] = fillHall(graph, halls[idx].ID, hallRosters[idx])
		}(i)
	}
	wg.Wait()

	for _, result := range results {
		plan.Placements = append(plan.Placements, result.placements...)
		plan.Conflicts = append(plan.Conflicts, result.conflicts...)
	}
	return plan
}

type hallResult struct {
	placements []models.Placement
	conflicts  []models.Conflict
}

// fillHall walks the hall's seats in row-major order. For each seat it takes
// a student whose subject differs from every already-occupied neighbor,
// preferring the subject with the most remaining members so large groups get
// spread out while flexibility is highest. When no subject qualifies it
// falls back to the overall largest group and records the resulting
// conflict(s) instead of looping or giving up.
func fillHall(graph *SeatGraph, hallID string, students []models.Student) hallResult {
	result := hallResult{
		placements: make([]models.Placement, 0, len(students)),
		conflicts:  make([]models.Conflict, 0),
	}
	if len(students) == 0 {
		return result
	}

	pool := newSubjectPool(students)
	occupied := make(map[models.Coordinate]models.Student, len(students))

	for _, seat := range graph.Seats(hallID) {
		if pool.size() == 0 {
			break
		}

		excluded := make(map[string]bool, 4)
		for _, neighbor := range graph.Neighbors(hallID, seat) {
			if taken, ok := occupied[neighbor]; ok {
				excluded[taken.Subject] = true
			}
		}

		subject, ok := pool.largestExcluding(excluded)
		if !ok {
			// Pigeonhole case: every remaining subject collides here.
			subject, _ = pool.largestExcluding(nil)
		}
		student := pool.take(subject)
		if !ok {
			for _, neighbor := range graph.Neighbors(hallID, seat) {
				if taken, exists := occupied[neighbor]; exists && taken.Subject == student.Subject {
					result.conflicts = append(result.conflicts, models.Conflict{
						HallID:      hallID,
						First:       neighbor,
						Second:      seat,
						FirstRegNo:  taken.RegNo,
						SecondRegNo: student.RegNo,
						Subject:     student.Subject,
					})
				}
			}
		}

		occupied[seat] = student
		result.placements = append(result.placements, models.Placement{
			HallID:  hallID,
			Seat:    seat,
			Student: student,
		})
	}
	return result
}

// --- Subject pool ---

// subjectPool tracks not-yet-placed students grouped by subject. Queues
// preserve roster order and subjects keep their first-seen order, which
// fixes every tie-break deterministically.
type subjectPool struct {
	order  []string
	queues map[string][]models.Student
	total  int
}

func newSubjectPool(students []models.Student) *subjectPool {
	pool := &subjectPool{
		order:  make([]string, 0),
		queues: make(map[string][]models.Student),
		total:  len(students),
	}
	for _, student := range students {
		if _, seen := pool.queues[student.Subject]; !seen {
			pool.order = append(pool.order, student.Subject)
		}
		pool.queues[student.Subject] = append(pool.queues[student.Subject], student)
	}
	return pool
}

func (p *subjectPool) size() int {
	return p.total
}

// largestExcluding picks the subject with the most remaining students whose
// code is not in the excluded set. Ties go to the subject seen first in the
// roster.
func (p *subjectPool) largestExcluding(excluded map[string]bool) (string, bool) {
	best := ""
	bestCount := 0
	for _, subject := range p.order {
		count := len(p.queues[subject])
		if count == 0 || excluded[subject] {
			continue
		}
		if count > bestCount {
			best = subject
			bestCount = count
		}
	}
	return best, best != ""
}

// take pops the head of the subject queue.
func (p *subjectPool) take(subject string) models.Student {
	queue := p.queues[subject]
	student := queue[0]
	p.queues[subject] = queue[1:]
	p.total--
	return student
}

// drawInterleaved removes up to n students, repeatedly taking from the
// largest remaining subject so each hall receives a well-mixed slice of the
// roster.
func (p *subjectPool) drawInterleaved(n int) []models.Student {
	drawn := make([]models.Student, 0, n)
	for len(drawn) < n {
		subject, ok := p.largestExcluding(nil)
		if !ok {
			break
		}
		drawn = append(drawn, p.take(subject))
	}
	return drawn
}

// remaining lists leftover students, subject groups in first-seen order.
func (p *subjectPool) remaining() []models.Student {
	left := make([]models.Student, 0, p.total)
	for _, subject := range p.order {
		left = append(left, p.queues[subject]...)
	}
	return left
}

// --- Plan store ---

// planStore keeps generated plans in memory with a TTL, mirroring the fact
// that plans are ephemeral proposals and never persisted.
type planStore struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]*models.SeatingPlan
}

func newPlanStore(ttl time.Duration) *planStore {
	return &planStore{
		ttl:   ttl,
		items: make(map[string]*models.SeatingPlan),
	}
}

func (s *planStore) Save(plan *models.SeatingPlan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[plan.PlanID] = plan
}

func (s *planStore) Get(id string) (*models.SeatingPlan, bool) {
	s.mu.RLock()
	plan, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Since(plan.GeneratedAt) > s.ttl {
		s.Delete(id)
		return nil, false
	}
	return plan, true
}

func (s *planStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}
