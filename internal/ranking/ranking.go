package ranking

import (
	"context"
	"errors"
)

// ErrRanking is returned when the ranking oracle is unreachable, responds
// with something unusable, or no returned ID survives validation.
var ErrRanking = errors.New("ranking failed")

// Candidate is one entry of the pool to rank. Candidates are sourced
// externally per invocation and never persisted here.
type Candidate struct {
	ID          string   `json:"id"`
	Affiliation string   `json:"affiliation,omitempty"`
	Topics      []string `json:"topics,omitempty"`
}

// Client orders candidates by relevance to a free-text profile and returns
// their IDs, best match first.
type Client interface {
	Rank(ctx context.Context, profileText string, candidates []Candidate, topK int) ([]string, error)
}

// FilterKnownIDs keeps only IDs present in the candidate set, preserving
// order and dropping duplicates. The oracle's IDs are never trusted blindly:
// a hallucinated ID must neither crash the caller nor recommend a
// nonexistent candidate.
func FilterKnownIDs(ids []string, candidates []Candidate) []string {
	known := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		known[c.ID] = true
	}

	usable := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !known[id] || seen[id] {
			continue
		}
		seen[id] = true
		usable = append(usable, id)
	}

	return usable
}
