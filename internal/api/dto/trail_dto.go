package dto

import "github.com/spec-kit/tr4ction-console/internal/domain"

// SchemaUpdateRequest replaces the fields of a step form.
type SchemaUpdateRequest struct {
	StepName string         `json:"step_name"`
	Fields   []domain.Field `json:"fields"`
}

// ChatAnswer is the chat payload inside the success envelope.
type ChatAnswer struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources,omitempty"`
}
