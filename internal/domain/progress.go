package domain

// Risk classifies how far behind a founder is.
type Risk string

const (
	RiskLow    Risk = "low"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

// FounderProgress is one row of the admin dashboard.
type FounderProgress struct {
	ID          ID     `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	TrailID     string `json:"trailId"`
	CurrentStep string `json:"currentStep"`
	Progress    int    `json:"progress"`
	Risk        Risk   `json:"risk"`
	Steps       []Step `json:"steps"`
}

// UnlockResult confirms an admin unlock.
type UnlockResult struct {
	UserID   string `json:"user_id"`
	StepID   string `json:"step_id"`
	TrailID  string `json:"trail_id"`
	Unlocked bool   `json:"unlocked"`
}

// StepPercent scores a step by how many fields were answered, 25 points each.
func StepPercent(formData map[string]any) int {
	return min(100, 25*len(formData))
}

// TrailPercent is the integer mean of the step percentages.
func TrailPercent(steps []Step) int {
	if len(steps) == 0 {
		return 0
	}
	total := 0
	for _, s := range steps {
		total += s.Progress
	}
	return total / len(steps)
}

// RiskFor classifies an average progress percentage.
func RiskFor(avg int) Risk {
	switch {
	case avg >= 60:
		return RiskLow
	case avg >= 30:
		return RiskMedium
	default:
		return RiskHigh
	}
}
