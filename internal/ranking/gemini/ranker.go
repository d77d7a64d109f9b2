package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/okeeper/okeeper/internal/ranking"
	"github.com/okeeper/okeeper/internal/util"

	"go.uber.org/zap"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

//go:embed prompt.md
var promptTemplate string

const defaultMaxLogLength = 200

// Ranker orders candidates against a profile using a Gemini model as the
// ranking oracle.
type Ranker struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewRanker(generator contentGenerator, maxLogLength int, logger *zap.Logger) *Ranker {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Ranker{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

var _ ranking.Client = (*Ranker)(nil)

func (r *Ranker) Rank(ctx context.Context, profileText string, candidates []ranking.Candidate, topK int) ([]string, error) {
	if topK < 1 {
		return nil, fmt.Errorf("%w: topK must be >= 1", ranking.ErrRanking)
	}

	candidatesJSON, err := json.MarshalIndent(candidates, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: marshal candidates: %v", ranking.ErrRanking, err)
	}

	prompt := buildPrompt(profileText, string(candidatesJSON), topK)

	r.logger.Debug("gemini rank request",
		zap.Int("candidates", len(candidates)),
		zap.Int("top_k", topK),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", util.TruncateForLog(prompt, r.maxLogLen)),
	)

	raw, err := r.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ranking.ErrRanking, err)
	}

	r.logger.Debug("gemini rank response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", util.TruncateForLog(raw, r.maxLogLen)),
	)

	ids, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}

	usable := ranking.FilterKnownIDs(ids, candidates)
	if len(usable) == 0 {
		return nil, fmt.Errorf("%w: model returned no usable ids", ranking.ErrRanking)
	}

	if len(usable) > topK {
		usable = usable[:topK]
	}

	return usable, nil
}

func buildPrompt(profileText, candidatesJSON string, topK int) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Profile:\n{{PROFILE_TEXT}}\n\nCandidates:\n{{CANDIDATES_JSON}}\n\nReturn the best {{TOP_K}} candidate ids as JSON: {\"ids\": [...]}"
	}

	prompt := strings.ReplaceAll(template, "{{PROFILE_TEXT}}", profileText)
	prompt = strings.ReplaceAll(prompt, "{{CANDIDATES_JSON}}", candidatesJSON)
	prompt = strings.ReplaceAll(prompt, "{{TOP_K}}", strconv.Itoa(topK))

	return prompt
}

func parseResponse(raw string) ([]string, error) {
	cleaned := extractJSON(strings.TrimSpace(raw))

	var data struct {
		IDs []any `json:"ids"`
	}
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("%w: parse gemini response: %v", ranking.ErrRanking, err)
	}

	ids := make([]string, 0, len(data.IDs))
	for _, v := range data.IDs {
		if id := coerceString(v); id != "" {
			ids = append(ids, id)
		}
	}

	return ids, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return ""
	}
}
