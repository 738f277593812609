package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"

	"github.com/medagg/medagg/internal/domain/anomaly"
	"github.com/medagg/medagg/internal/domain/record"
)

// Generator produces a summary draft from a patient's entries and detected
// anomalies. Implementations must respect the context deadline.
type Generator interface {
	Generate(ctx context.Context, entries []*record.Entry, anomalies []anomaly.Anomaly) (*Draft, error)
}

// ClaudeGenerator asks an Anthropic model for the draft. The model sees the
// full entry set plus the already-detected anomalies; it must analyze
// everything and may exclude nothing.
type ClaudeGenerator struct {
	client anthropic.Client
	model  string
}

func NewClaudeGenerator(client anthropic.Client, model string) *ClaudeGenerator {
	return &ClaudeGenerator{client: client, model: model}
}

func (g *ClaudeGenerator) Generate(ctx context.Context, entries []*record.Entry, anomalies []anomaly.Anomaly) (*Draft, error) {
	prompt, err := buildPrompt(entries, anomalies)
	if err != nil {
		return nil, err
	}

	msg, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: 2048,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("summary model call: %w", err)
	}
	if len(msg.Content) == 0 {
		return nil, fmt.Errorf("summary model returned no content")
	}

	jsonStr, err := extractJSON(msg.Content[0].Text)
	if err != nil {
		return nil, err
	}
	var draft Draft
	if err := json.Unmarshal([]byte(jsonStr), &draft); err != nil {
		return nil, fmt.Errorf("decode summary draft: %w", err)
	}
	if draft.ClinicianSummary == "" || draft.PatientSummary == "" {
		return nil, fmt.Errorf("summary draft missing required fields")
	}
	return &draft, nil
}

func buildPrompt(entries []*record.Entry, anomalies []anomaly.Anomaly) (string, error) {
	entriesJSON, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal entries: %w", err)
	}
	anomaliesJSON, err := json.MarshalIndent(anomalies, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal anomalies: %w", err)
	}

	return fmt.Sprintf(`You are a medical data analyst. Analyze the following patient records aggregated from multiple hospitals.

RULES:
1. You cannot delete or exclude any data; analyze everything provided.
2. The detected anomalies are authoritative. Mention them, do not re-derive or dismiss them.
3. This is informational analysis, not medical advice.

Records:
%s

Detected anomalies:
%s

Output ONLY a valid JSON object matching this exact schema:
{
  "clinician_summary": "<bullet-point clinical summary: key findings, trends across hospitals, concerns>",
  "patient_summary": "<plain-language explanation of the data for the patient>"
}

Focus on vital trends (BMI, blood pressure), lab results (cholesterol, A1C), medication history, and discrepancies between hospitals. Output only the JSON, no markdown.`,
		entriesJSON, anomaliesJSON), nil
}

// extractJSON returns the first complete JSON object in a model response,
// tolerating stray prose or fencing around it.
func extractJSON(s string) (string, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return "", fmt.Errorf("no JSON object in model response")
	}
	out := s[start : end+1]
	if !json.Valid([]byte(out)) {
		return "", fmt.Errorf("model response is not valid JSON")
	}
	return out, nil
}

// latestWith finds the newest entry in the slice carrying the named field.
// Entries arrive in store order; ties keep the later entry.
func latestWith(entries []*record.Entry, field string) *record.Entry {
	var best *record.Entry
	for _, e := range entries {
		if _, ok := e.Fields[field]; !ok {
			continue
		}
		if best == nil {
			best = e
			continue
		}
		switch {
		case e.Date == nil && best.Date != nil:
		case e.Date != nil && best.Date == nil:
			best = e
		case e.Date == nil && best.Date == nil:
			best = e
		case !e.Date.Before(*best.Date):
			best = e
		}
	}
	return best
}
