package models

import "time"

// Session is the process-local runtime state for one in-progress workflow
// traversal. Sessions are never persisted past the process lifetime.
type Session struct {
	ID             string            `json:"id"`
	WorkflowID     string            `json:"workflow_id"`
	WorkflowName   string            `json:"workflow_name"`
	CurrentStep    int               `json:"current_step"`
	TotalSteps     int               `json:"total_steps"`
	CompletedSteps []int             `json:"completed_steps"`
	Context        map[string]string `json:"context,omitempty"`
	StartedAt      time.Time         `json:"started_at"`
}
