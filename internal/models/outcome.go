// ABOUTME: Outcome is the orchestrator's externally visible value
// ABOUTME: Holds either a narrative or an error description, never both
package models

// Outcome is the final answer to one query
type Outcome struct {
	Narrative string      `json:"narrative,omitempty"`
	Error     string      `json:"error,omitempty"`
	Kind      FailureKind `json:"kind,omitempty"`
}

// NarrativeOutcome builds a successful outcome
func NarrativeOutcome(text string) Outcome {
	return Outcome{Narrative: text}
}

// FailedOutcome builds an error outcome
func FailedOutcome(kind FailureKind, reason string) Outcome {
	return Outcome{Error: reason, Kind: kind}
}

// Failed reports whether the outcome carries an error
func (o Outcome) Failed() bool { return o.Error != "" || o.Kind != "" }

// Text returns the single user-visible string
func (o Outcome) Text() string {
	if o.Failed() {
		return o.Error
	}
	return o.Narrative
}
