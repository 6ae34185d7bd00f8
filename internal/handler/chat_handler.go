package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/exam-seating-api/internal/dto"
	"github.com/noah-isme/exam-seating-api/internal/service"
	appErrors "github.com/noah-isme/exam-seating-api/pkg/errors"
	"github.com/noah-isme/exam-seating-api/pkg/response"
)

type planAnswerer interface {
	Ask(ctx context.Context, planID string, req dto.ChatRequest) (*dto.ChatResponse, error)
}

// ChatHandler exposes the read-only plan question endpoint.
type ChatHandler struct {
	service planAnswerer
}

// NewChatHandler constructs the handler.
func NewChatHandler(svc *service.ChatService) *ChatHandler {
	return &ChatHandler{service: svc}
}

// Ask godoc
// @Summary Ask a question about a seating plan
// @Description Answers from the generated plan only. The chat layer never modifies plans.
// @Tags Chat
// @Accept json
// @Produce json
// @Param id path string true "Plan ID"
// @Param payload body dto.ChatRequest true "Question payload"
// @Success 200 {object} response.Envelope
// @Router /allocations/{id}/chat [post]
func (h *ChatHandler) Ask(c *gin.Context) {
	var req dto.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid chat payload"))
		return
	}
	result, err := h.service.Ask(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
