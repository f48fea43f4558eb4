package insight

import (
	"encoding/json"
	"fmt"
	"strings"
)

// richPayload is the structure the completion backend is asked to emit.
type richPayload struct {
	Summary         string   `json:"summary"`
	Strengths       []string `json:"strengths"`
	FocusAreas      []string `json:"focus_areas"`
	Recommendations []string `json:"recommendations"`
}

// parseRich extracts the payload from raw completion output. Models wrap
// JSON in markdown fences or prose more often than not, so the parser
// hunts for the JSON object rather than demanding a clean body.
func parseRich(raw string) (*richPayload, error) {
	body := extractJSON(raw)
	if body == "" {
		return nil, fmt.Errorf("no JSON object in completion output")
	}

	var payload richPayload
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return nil, fmt.Errorf("decoding completion output: %w", err)
	}
	if strings.TrimSpace(payload.Summary) == "" {
		return nil, fmt.Errorf("completion output missing summary")
	}
	return &payload, nil
}

// extractJSON returns the outermost brace-bounded substring, with any
// markdown code fences stripped first. Empty when no object is present.
func extractJSON(raw string) string {
	body := strings.TrimSpace(raw)

	if after, ok := strings.CutPrefix(body, "```json"); ok {
		body = after
	} else if after, ok := strings.CutPrefix(body, "```"); ok {
		body = after
	}
	body = strings.TrimSuffix(strings.TrimSpace(body), "```")

	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start < 0 || end <= start {
		return ""
	}
	return body[start : end+1]
}
