package dto

// ChatRequest asks a natural-language question about a generated plan.
type ChatRequest struct {
	Question string `json:"question" validate:"required,max=2000"`
}

// ChatResponse carries the model answer. The plan itself is never modified
// by the chat layer.
type ChatResponse struct {
	PlanID string `json:"planId"`
	Answer string `json:"answer"`
}
