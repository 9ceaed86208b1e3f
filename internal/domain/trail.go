package domain

// Trail is a multi-step program template with ordered steps. The founder
// listing fills Steps; the admin listing fills StepsCount and Status instead.
type Trail struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Steps       []Step `json:"steps,omitempty"`
	StepsCount  int    `json:"steps_count,omitempty"`
	Status      string `json:"status,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// Step is one stage within a Trail.
type Step struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Locked      bool   `json:"locked"`
	Completed   bool   `json:"completed"`
	Progress    int    `json:"progress"`
}

// Field describes one input of a step form.
type Field struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Label    string   `json:"label"`
	Required bool     `json:"required"`
	Options  []string `json:"options,omitempty"`
}

// StepSchema lists the form fields of a step.
type StepSchema struct {
	TrailID  string  `json:"trail_id"`
	StepID   string  `json:"step_id"`
	StepName string  `json:"step_name"`
	Fields   []Field `json:"fields"`
}

// StepProgress is the saved state of a founder's step form.
type StepProgress struct {
	TrailID  string         `json:"trail_id"`
	StepID   string         `json:"step_id"`
	IsLocked bool           `json:"isLocked"`
	FormData map[string]any `json:"formData"`
}

// SaveProgressRequest is the body of POST .../steps/{step}/progress.
type SaveProgressRequest struct {
	FormData map[string]any `json:"formData"`
}

// SaveProgressResult echoes what the backend stored.
type SaveProgressResult struct {
	TrailID   string `json:"trail_id"`
	StepID    string `json:"step_id"`
	Saved     bool   `json:"saved"`
	Progress  int    `json:"progress"`
	Timestamp string `json:"timestamp"`
}
