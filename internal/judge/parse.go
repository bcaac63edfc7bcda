package judge

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// ParseJudgment extracts the JSON verdict from model output. The model is
// instructed to emit bare JSON, but prose or code fences around the object
// are tolerated; anything without a complete object is an error.
func ParseJudgment(text string) (*Judgment, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, eris.New("judge: no JSON object in model output")
	}

	var raw struct {
		Score      *float64 `json:"score"`
		Confidence *float64 `json:"confidence"`
		Evidence   string   `json:"evidence"`
		Reasoning  string   `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return nil, eris.Wrap(err, "judge: malformed verdict JSON")
	}
	if raw.Score == nil {
		return nil, eris.New("judge: verdict missing score")
	}
	if raw.Confidence == nil {
		return nil, eris.New("judge: verdict missing confidence")
	}

	return &Judgment{
		Score:      *raw.Score,
		Confidence: *raw.Confidence,
		Evidence:   raw.Evidence,
		Reasoning:  raw.Reasoning,
	}, nil
}
