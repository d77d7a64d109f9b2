package recommend

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"github.com/okeeper/okeeper/internal/ranking"

	"go.uber.org/zap"
)

type stubClient struct {
	ids []string
	err error
}

func (s *stubClient) Rank(context.Context, string, []ranking.Candidate, int) ([]string, error) {
	return s.ids, s.err
}

func pool(ids ...string) []ranking.Candidate {
	out := make([]ranking.Candidate, 0, len(ids))
	for _, id := range ids {
		out = append(out, ranking.Candidate{ID: id})
	}
	return out
}

func idsOf(candidates []ranking.Candidate) []string {
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.ID)
	}
	return out
}

func TestRecommendMapsRankedOrder(t *testing.T) {
	engine := NewEngine(&stubClient{ids: []string{"c", "a"}}, zap.NewNop())

	got := engine.Recommend(context.Background(), "p", pool("a", "b", "c", "d"), 2)

	if !reflect.DeepEqual(idsOf(got), []string{"c", "a"}) {
		t.Fatalf("expected [c a], got %v", idsOf(got))
	}
}

func TestRecommendFallbackOnOracleFailure(t *testing.T) {
	engine := NewEngine(&stubClient{err: fmt.Errorf("%w: oracle down", ranking.ErrRanking)}, zap.NewNop())

	got := engine.Recommend(context.Background(), "p", pool("A", "B", "C", "D"), 3)

	if !reflect.DeepEqual(idsOf(got), []string{"A", "B", "C"}) {
		t.Fatalf("expected [A B C], got %v", idsOf(got))
	}

	// The fallback must be stable: the same input always yields the same output.
	again := engine.Recommend(context.Background(), "p", pool("A", "B", "C", "D"), 3)
	if !reflect.DeepEqual(idsOf(again), idsOf(got)) {
		t.Fatalf("fallback is not deterministic: %v vs %v", idsOf(again), idsOf(got))
	}
}

func TestRecommendFallbackWithSmallPool(t *testing.T) {
	engine := NewEngine(&stubClient{err: ranking.ErrRanking}, zap.NewNop())

	got := engine.Recommend(context.Background(), "p", pool("only"), 3)

	if !reflect.DeepEqual(idsOf(got), []string{"only"}) {
		t.Fatalf("expected the single candidate, got %v", idsOf(got))
	}
}

func TestRecommendDropsStaleRankedIDs(t *testing.T) {
	// The pool may have been filtered between ranking and mapping.
	engine := NewEngine(&stubClient{ids: []string{"gone", "b"}}, zap.NewNop())

	got := engine.Recommend(context.Background(), "p", pool("a", "b"), 2)

	if !reflect.DeepEqual(idsOf(got), []string{"b"}) {
		t.Fatalf("expected [b], got %v", idsOf(got))
	}
}

func TestRecommendAllRankedIDsStale(t *testing.T) {
	engine := NewEngine(&stubClient{ids: []string{"gone"}}, zap.NewNop())

	got := engine.Recommend(context.Background(), "p", pool("a", "b"), 1)

	if !reflect.DeepEqual(idsOf(got), []string{"a"}) {
		t.Fatalf("expected fallback [a], got %v", idsOf(got))
	}
}

func TestRecommendEmptyPool(t *testing.T) {
	engine := NewEngine(&stubClient{ids: []string{"a"}}, zap.NewNop())

	if got := engine.Recommend(context.Background(), "p", nil, 3); len(got) != 0 {
		t.Fatalf("expected no recommendations, got %v", idsOf(got))
	}
}
