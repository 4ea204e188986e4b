// Package suggest asks a model for the most likely category of a free-form
// transaction description, constrained to the known category set.
package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/dvloznov/budget-tracker/internal/budget"
)

// DefaultModelName is the Gemini model used for category suggestion.
const DefaultModelName = "gemini-2.0-flash"

// Suggestion is the model's answer for one description.
type Suggestion struct {
	Category   budget.Category `json:"category"`
	Confidence float64         `json:"confidence"`
}

// Generator abstracts the model call so tests can fake the response text.
type Generator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// genaiGenerator calls Gemini through the genai SDK.
type genaiGenerator struct {
	model string
}

// NewGenerator creates the production generator. Credentials come from the
// environment the same way the rest of the Google SDKs pick them up.
func NewGenerator(model string) Generator {
	if model == "" {
		model = DefaultModelName
	}
	return &genaiGenerator{model: model}
}

func (g *genaiGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return "", fmt.Errorf("GenerateText: create genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: prompt},
			},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("GenerateText: generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("GenerateText: empty response from model")
	}
	return text, nil
}

// buildPrompt constrains the model to the category registry and demands
// strict JSON.
func buildPrompt(description string) string {
	var b strings.Builder
	b.WriteString("You are a personal budget assistant. Classify the transaction description below.\n\n")
	b.WriteString("Use ONLY one of the following categories (case-sensitive):\n")
	for _, cat := range budget.Categories() {
		b.WriteString("  - " + string(cat) + "\n")
	}
	b.WriteString("\nOutput STRICT JSON only (no comments, no extra text):\n")
	b.WriteString("{\"category\": \"<one of the categories above>\", \"confidence\": <number 0..1>}\n")
	b.WriteString("If you are unsure, use category \"Other\" with a low confidence.\n")
	b.WriteString("Do NOT wrap the response in code fences.\n\n")
	b.WriteString("Description: " + description + "\n")
	return b.String()
}

// Category asks the model for a category suggestion. Answers outside the
// registry fall back to Other so a creative model never widens the taxonomy.
func Category(ctx context.Context, gen Generator, description string) (*Suggestion, error) {
	if strings.TrimSpace(description) == "" {
		return nil, fmt.Errorf("description must not be empty")
	}

	raw, err := gen.GenerateText(ctx, buildPrompt(description))
	if err != nil {
		return nil, err
	}

	clean := cleanModelJSON(raw)

	var s Suggestion
	if err := json.Unmarshal([]byte(clean), &s); err != nil {
		return nil, fmt.Errorf("unmarshal suggestion: %w\nraw response: %s", err, raw)
	}

	if !s.Category.Valid() {
		s.Category = budget.CategoryOther
		s.Confidence = 0
	}
	if s.Confidence < 0 {
		s.Confidence = 0
	}
	if s.Confidence > 1 {
		s.Confidence = 1
	}
	return &s, nil
}

// cleanModelJSON strips Markdown fences and surrounding junk when the model
// ignores the formatting instructions.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}
