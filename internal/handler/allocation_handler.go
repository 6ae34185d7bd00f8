package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/exam-seating-api/internal/dto"
	"github.com/noah-isme/exam-seating-api/internal/middleware"
	"github.com/noah-isme/exam-seating-api/internal/models"
	"github.com/noah-isme/exam-seating-api/internal/service"
	appErrors "github.com/noah-isme/exam-seating-api/pkg/errors"
	"github.com/noah-isme/exam-seating-api/pkg/response"
)

const (
	maxInlineStudents = 10000
	maxInlineHalls    = 256
)

type allocationGenerator interface {
	Generate(ctx context.Context, req dto.GenerateAllocationRequest) (*dto.GenerateAllocationResponse, error)
	Get(ctx context.Context, planID string) (*models.SeatingPlan, error)
	HallGrid(ctx context.Context, planID, hallID string) (*dto.HallGridResponse, bool, error)
}

// AllocationHandler exposes the seating engine endpoints.
type AllocationHandler struct {
	service allocationGenerator
}

// NewAllocationHandler constructs the handler.
func NewAllocationHandler(svc *service.AllocationService) *AllocationHandler {
	return &AllocationHandler{service: svc}
}

// Generate godoc
// @Summary Generate a seating plan
// @Description Runs the constraint engine over the supplied roster and halls. Unplaced students and residual conflicts are reported in the plan, not as errors.
// @Tags Allocations
// @Accept json
// @Produce json
// @Param payload body dto.GenerateAllocationRequest true "Generate allocation payload"
// @Success 201 {object} response.Envelope
// @Router /allocations [post]
func (h *AllocationHandler) Generate(c *gin.Context) {
	var req dto.GenerateAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	if err := validateGenerateRequest(req); err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Get godoc
// @Summary Fetch a resident seating plan
// @Tags Allocations
// @Produce json
// @Param id path string true "Plan ID"
// @Success 200 {object} response.Envelope
// @Router /allocations/{id} [get]
func (h *AllocationHandler) Get(c *gin.Context) {
	plan, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan, nil)
}

// Summary godoc
// @Summary Headline counts for a plan
// @Tags Allocations
// @Produce json
// @Param id path string true "Plan ID"
// @Success 200 {object} response.Envelope
// @Router /allocations/{id}/summary [get]
func (h *AllocationHandler) Summary(c *gin.Context) {
	plan, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan.Summary(), nil)
}

// HallGrid godoc
// @Summary Row-major seat grid for one hall of a plan
// @Tags Allocations
// @Produce json
// @Param id path string true "Plan ID"
// @Param hallId path string true "Hall ID"
// @Success 200 {object} response.Envelope
// @Router /allocations/{id}/halls/{hallId} [get]
func (h *AllocationHandler) HallGrid(c *gin.Context) {
	grid, cacheHit, err := h.service.HallGrid(c.Request.Context(), c.Param("id"), c.Param("hallId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, grid, nil, middleware.ExtractMeta(c))
}

// Conflicts godoc
// @Summary Residual same-subject adjacencies in a plan
// @Tags Allocations
// @Produce json
// @Param id path string true "Plan ID"
// @Success 200 {object} response.Envelope
// @Router /allocations/{id}/conflicts [get]
func (h *AllocationHandler) Conflicts(c *gin.Context) {
	plan, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan.Conflicts, nil, map[string]interface{}{"count": len(plan.Conflicts)})
}

// Unplaced godoc
// @Summary Students the engine could not seat
// @Tags Allocations
// @Produce json
// @Param id path string true "Plan ID"
// @Success 200 {object} response.Envelope
// @Router /allocations/{id}/unplaced [get]
func (h *AllocationHandler) Unplaced(c *gin.Context) {
	plan, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan.Unplaced, nil, map[string]interface{}{"count": len(plan.Unplaced)})
}

func validateGenerateRequest(req dto.GenerateAllocationRequest) error {
	if len(req.Students) > maxInlineStudents {
		return appErrors.Clone(appErrors.ErrValidation, "students exceeds supported limit")
	}
	if len(req.Halls) > maxInlineHalls {
		return appErrors.Clone(appErrors.ErrValidation, "halls exceeds supported limit")
	}
	return nil
}
