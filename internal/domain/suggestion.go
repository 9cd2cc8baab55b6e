package domain

import "context"

// Suggestion is a proposed field-value change for a CRM contact, derived
// from transcript analysis and pending user approval. Suggestions are
// ephemeral per session and never persisted past submission.
type Suggestion struct {
	Field        string `json:"field"`
	Label        string `json:"label"`
	CurrentValue string `json:"current_value"`
	NewValue     string `json:"new_value"`
	Apply        bool   `json:"apply"`
	Context      string `json:"context,omitempty"`
}

// SuggestionGenerator produces field-update suggestions for a contact from
// a meeting transcript. The generation backend is an external collaborator.
type SuggestionGenerator interface {
	GenerateSuggestions(ctx context.Context, contact Contact, transcript string) ([]Suggestion, error)
}
