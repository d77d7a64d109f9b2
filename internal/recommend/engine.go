package recommend

import (
	"context"

	"github.com/okeeper/okeeper/internal/metrics"
	"github.com/okeeper/okeeper/internal/ranking"

	"go.uber.org/zap"
)

// Engine orchestrates the ranking client over a candidate pool and applies
// the fallback policy when the oracle cannot produce a usable ordering.
type Engine struct {
	client ranking.Client
	logger *zap.Logger
}

func NewEngine(client ranking.Client, logger *zap.Logger) *Engine {
	return &Engine{client: client, logger: logger}
}

// Recommend returns up to topK candidates ordered by relevance. Oracle
// failures are never surfaced: the engine falls back to the first topK
// candidates in the pool's existing order, which is stable and reproducible,
// so the user gets a non-empty result whenever at least one candidate
// exists.
func (e *Engine) Recommend(ctx context.Context, profileText string, candidates []ranking.Candidate, topK int) []ranking.Candidate {
	if len(candidates) == 0 || topK < 1 {
		return nil
	}

	ids, err := e.client.Rank(ctx, profileText, candidates, topK)
	if err != nil {
		metrics.RankingFailures.Inc()
		metrics.RankingFallbacks.Inc()
		e.logger.Warn("ranking oracle failed, using fallback order", zap.Error(err))

		return firstK(candidates, topK)
	}

	byID := make(map[string]ranking.Candidate, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c
	}

	// The pool may have been filtered between ranking and mapping; drop any
	// id that no longer matches a candidate.
	out := make([]ranking.Candidate, 0, len(ids))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			out = append(out, c)
		}
	}

	if len(out) == 0 {
		metrics.RankingFallbacks.Inc()
		e.logger.Warn("no ranked id matched the candidate pool, using fallback order")
		return firstK(candidates, topK)
	}

	if len(out) > topK {
		out = out[:topK]
	}

	metrics.RecommendationsServed.Inc()
	return out
}

func firstK(candidates []ranking.Candidate, k int) []ranking.Candidate {
	if k > len(candidates) {
		k = len(candidates)
	}

	out := make([]ranking.Candidate, k)
	copy(out, candidates[:k])
	return out
}
