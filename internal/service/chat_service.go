package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-seating-api/internal/dto"
	"github.com/noah-isme/exam-seating-api/internal/models"
	"github.com/noah-isme/exam-seating-api/pkg/ai"
	appErrors "github.com/noah-isme/exam-seating-api/pkg/errors"
)

const chatSystemPrompt = `You are an assistant for invigilators reading an exam seating plan.
Answer questions strictly from the FACTS section below. The plan is read-only:
never propose moving students, never invent seats or names, and say so when
the facts do not cover the question. Keep answers short and factual.`

// maxFactPlacements bounds the prompt size for very large plans.
const maxFactPlacements = 400

type answerer interface {
	Answer(ctx context.Context, systemPrompt, question string) (string, error)
}

// ChatService answers natural language questions about a generated plan. The
// plan is serialised into a fact base and sent with every question; the model
// never mutates anything.
type ChatService struct {
	plans     planReader
	client    answerer
	enabled   bool
	validator *validator.Validate
	logger    *zap.Logger
}

// NewChatService wires the chat layer. A nil client leaves the feature
// disabled regardless of the flag.
func NewChatService(plans planReader, client *ai.Client, enabled bool, validate *validator.Validate, logger *zap.Logger) *ChatService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &ChatService{
		plans:     plans,
		enabled:   enabled,
		validator: validate,
		logger:    logger,
	}
	if client != nil {
		svc.client = client
	} else {
		svc.enabled = false
	}
	return svc
}

// Enabled reports whether the chat layer is usable.
func (s *ChatService) Enabled() bool {
	return s.enabled
}

// Ask answers one question about the referenced plan.
func (s *ChatService) Ask(ctx context.Context, planID string, req dto.ChatRequest) (*dto.ChatResponse, error) {
	if !s.enabled {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "chat is not enabled")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid chat payload")
	}

	plan, err := s.plans.Get(ctx, planID)
	if err != nil {
		return nil, err
	}

	prompt := chatSystemPrompt + "\n\nFACTS:\n" + buildFactBase(plan)
	answer, err := s.client.Answer(ctx, prompt, req.Question)
	if err != nil {
		s.logger.Warn("chat completion failed", zap.String("plan_id", planID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "chat completion failed")
	}

	return &dto.ChatResponse{PlanID: planID, Answer: answer}, nil
}

// buildFactBase flattens a plan into plain text lines the model can quote
// from. Placements are truncated on very large plans; the summary always
// carries the true totals.
func buildFactBase(plan *models.SeatingPlan) string {
	var b strings.Builder
	summary := plan.Summary()
	fmt.Fprintf(&b, "Plan %s generated at %s.\n", plan.PlanID, plan.GeneratedAt.Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(&b, "Totals: %d halls, %d seated, %d unplaced, %d conflicts.\n",
		summary.Halls, summary.Seated, summary.Unplaced, summary.Conflicts)

	for _, hall := range plan.Halls {
		seated := 0
		for i := range plan.Placements {
			if plan.Placements[i].HallID == hall.ID {
				seated++
			}
		}
		fmt.Fprintf(&b, "Hall %s (%s): %d rows x %d columns, capacity %d, %d seated.\n",
			hall.ID, hall.Name, hall.Rows, hall.Columns, hall.Capacity(), seated)
	}

	limit := len(plan.Placements)
	if limit > maxFactPlacements {
		limit = maxFactPlacements
	}
	for i := 0; i < limit; i++ {
		p := plan.Placements[i]
		fmt.Fprintf(&b, "Seat: %s (%s, subject %s) sits in hall %s row %d column %d.\n",
			p.Student.RegNo, p.Student.FullName, p.Student.Subject, p.HallID, p.Seat.Row, p.Seat.Col)
	}
	if limit < len(plan.Placements) {
		fmt.Fprintf(&b, "(%d further placements omitted.)\n", len(plan.Placements)-limit)
	}

	for _, u := range plan.Unplaced {
		fmt.Fprintf(&b, "Unplaced: %s (subject %s), reason %s.\n", u.Student.RegNo, u.Student.Subject, u.Reason)
	}
	for _, c := range plan.Conflicts {
		fmt.Fprintf(&b, "Conflict: %s and %s share subject %s on adjacent seats in hall %s.\n",
			c.FirstRegNo, c.SecondRegNo, c.Subject, c.HallID)
	}
	return b.String()
}
