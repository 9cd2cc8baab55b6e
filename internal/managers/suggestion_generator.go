package managers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/recaphq/recap/internal/domain"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
)

const suggestionSystemPrompt = `You extract CRM contact field updates from meeting transcripts.
Given the current contact record and a transcript, propose updated values for fields the
transcript contradicts or fills in. Respond with a JSON object of the form
{"suggestions": [{"field": "...", "label": "...", "current_value": "...", "new_value": "...", "context": "..."}]}.
Only use these field names: %s. The context value must quote the transcript excerpt the
suggestion is based on. Do not suggest a field whose value is already correct.`

type openAISuggestionManager struct {
	client *openai.Client
	model  string
}

type OpenAISuggestionManagerDependencies struct {
	APIKey string
	Model  string
}

func NewOpenAISuggestionManager(deps OpenAISuggestionManagerDependencies) domain.SuggestionGenerator {
	model := deps.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	return &openAISuggestionManager{
		client: openai.NewClient(deps.APIKey),
		model:  model,
	}
}

type suggestionPayload struct {
	Suggestions []struct {
		Field        string `json:"field"`
		Label        string `json:"label"`
		CurrentValue string `json:"current_value"`
		NewValue     string `json:"new_value"`
		Context      string `json:"context"`
	} `json:"suggestions"`
}

func (m *openAISuggestionManager) GenerateSuggestions(ctx context.Context, contact domain.Contact, transcript string) ([]domain.Suggestion, error) {
	contactJSON, err := json.Marshal(contact)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal contact: %w", err)
	}

	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: m.model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf(suggestionSystemPrompt, strings.Join(domain.KnownContactFields, ", ")),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Contact:\n%s\n\nTranscript:\n%s", contactJSON, transcript),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate suggestions: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("suggestion completion returned no choices")
	}

	var payload suggestionPayload
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal suggestions: %w", err)
	}

	known := make(map[string]bool, len(domain.KnownContactFields))
	for _, field := range domain.KnownContactFields {
		known[field] = true
	}

	suggestions := make([]domain.Suggestion, 0, len(payload.Suggestions))

	for _, s := range payload.Suggestions {
		if !known[s.Field] {
			log.Warn().Str("field", s.Field).Msg("Dropping suggestion for unknown contact field")
			continue
		}

		suggestions = append(suggestions, domain.Suggestion{
			Field:        s.Field,
			Label:        s.Label,
			CurrentValue: s.CurrentValue,
			NewValue:     s.NewValue,
			Context:      s.Context,
		})
	}

	return suggestions, nil
}
