package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-seating-api/internal/dto"
	"github.com/noah-isme/exam-seating-api/internal/models"
	appErrors "github.com/noah-isme/exam-seating-api/pkg/errors"
)

type stubAnswerer struct {
	lastSystem   string
	lastQuestion string
	answer       string
	err          error
}

func (s *stubAnswerer) Answer(_ context.Context, systemPrompt, question string) (string, error) {
	s.lastSystem = systemPrompt
	s.lastQuestion = question
	return s.answer, s.err
}

func chatTestPlan() *models.SeatingPlan {
	return &models.SeatingPlan{
		PlanID: "plan-1",
		Halls:  []models.Hall{{ID: "h1", Name: "Main Hall", Rows: 1, Columns: 2}},
		Placements: []models.Placement{
			{HallID: "h1", Seat: models.Coordinate{Row: 0, Col: 0}, Student: models.Student{RegNo: "s1", FullName: "Ana", Subject: "MATH"}},
		},
		Unplaced: []models.Unplaced{
			{Student: models.Student{RegNo: "s9", Subject: "BIO"}, Reason: models.UnplacedNoSeatAvailable},
		},
		Conflicts: []models.Conflict{
			{HallID: "h1", FirstRegNo: "s1", SecondRegNo: "s2", Subject: "MATH"},
		},
		GeneratedAt: time.Now().UTC(),
	}
}

func newChatFixture(answer *stubAnswerer) *ChatService {
	return &ChatService{
		plans:     stubPlanReader{plan: chatTestPlan()},
		client:    answer,
		enabled:   true,
		validator: validator.New(),
		logger:    zap.NewNop(),
	}
}

func TestChatAskSendsPlanFacts(t *testing.T) {
	stub := &stubAnswerer{answer: "Ana sits in Main Hall, row 0 column 0."}
	svc := newChatFixture(stub)

	resp, err := svc.Ask(context.Background(), "plan-1", dto.ChatRequest{Question: "Where does Ana sit?"})
	require.NoError(t, err)
	assert.Equal(t, "plan-1", resp.PlanID)
	assert.Equal(t, stub.answer, resp.Answer)

	assert.Equal(t, "Where does Ana sit?", stub.lastQuestion)
	assert.Contains(t, stub.lastSystem, "FACTS:")
	assert.Contains(t, stub.lastSystem, "s1 (Ana, subject MATH)")
	assert.Contains(t, stub.lastSystem, "Unplaced: s9")
	assert.Contains(t, stub.lastSystem, "Conflict: s1 and s2")
	assert.Contains(t, stub.lastSystem, "read-only")
}

func TestChatAskDisabled(t *testing.T) {
	svc := NewChatService(stubPlanReader{plan: chatTestPlan()}, nil, true, nil, nil)
	assert.False(t, svc.Enabled())

	_, err := svc.Ask(context.Background(), "plan-1", dto.ChatRequest{Question: "anything"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestChatAskUnknownPlan(t *testing.T) {
	svc := newChatFixture(&stubAnswerer{})

	_, err := svc.Ask(context.Background(), "missing", dto.ChatRequest{Question: "who sits where"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestChatAskRejectsEmptyQuestion(t *testing.T) {
	svc := newChatFixture(&stubAnswerer{})

	_, err := svc.Ask(context.Background(), "plan-1", dto.ChatRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestBuildFactBaseTruncatesLargePlans(t *testing.T) {
	plan := chatTestPlan()
	plan.Placements = nil
	for i := 0; i < maxFactPlacements+10; i++ {
		plan.Placements = append(plan.Placements, models.Placement{
			HallID:  "h1",
			Seat:    models.Coordinate{Row: 0, Col: i},
			Student: models.Student{RegNo: "s", Subject: "MATH"},
		})
	}

	facts := buildFactBase(plan)
	assert.Contains(t, facts, "10 further placements omitted")
}
