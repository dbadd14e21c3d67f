package models

// Step is a single numbered step inside a Workflow.
type Step struct {
	Number         int      `json:"number"`
	Title          string   `json:"title"`
	Instruction    string   `json:"instruction"`
	ExpectedOutput []string `json:"expected_output,omitempty"`
	DecisionPoint  string   `json:"decision_point,omitempty"`
}

// Workflow is a multi-step guide parsed from an Item in the chains category.
// Step numbers come from the source headings but traversal always treats the
// steps as a 1..N sequence sized by count, not by label.
type Workflow struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	Overview      string   `json:"overview,omitempty"`
	Prerequisites []string `json:"prerequisites,omitempty"`
	Steps         []Step   `json:"steps"`
	Tips          []string `json:"tips,omitempty"`
	Source        *Item    `json:"-"`
}
