package domain

// ChatRequest is a question for the mentor agent, optionally scoped to a step.
type ChatRequest struct {
	Question string `json:"question"`
	TrailID  string `json:"trail_id,omitempty"`
	StepID   string `json:"step_id,omitempty"`
}

// ChatResponse is the agent answer.
type ChatResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources,omitempty"`
}
