package recommend

import (
	"context"
	"fmt"
	"strings"

	"github.com/okeeper/okeeper/internal/outreach"
	"github.com/okeeper/okeeper/internal/ranking"

	"go.uber.org/zap"
)

// Filter represents a single filtering step applied to the candidate pool
// before ranking.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool
	Apply(ctx context.Context, candidates []ranking.Candidate) ([]ranking.Candidate, Step, error)
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// DisableByName marks a filter with the provided name as disabled while
// keeping it in the list.
func DisableByName(steps []Filter, name, reason string) {
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
		}
	}
}

// Run executes the supplied filters sequentially and returns the surviving
// candidates.
func Run(ctx context.Context, logger *zap.Logger, steps []Filter, candidates []ranking.Candidate) ([]ranking.Candidate, error) {
	for _, step := range steps {
		if !step.IsEnabled() {
			logger.Info("filter disabled", zap.String("name", step.Name()))
			continue
		}

		next, info, err := step.Apply(ctx, candidates)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		logger.Info("filter step",
			zap.String("name", step.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)

		candidates = next
	}

	return candidates, nil
}

type affiliationFilter struct {
	affiliation string
}

// NewAffiliation creates a filter that keeps only candidates whose
// affiliation matches the configured one. An empty affiliation keeps
// everything.
func NewAffiliation(affiliation string) Filter {
	return &affiliationFilter{affiliation: strings.TrimSpace(affiliation)}
}

func (f *affiliationFilter) Name() string { return "affiliation" }

func (f *affiliationFilter) Disable(string) {}

func (f *affiliationFilter) IsEnabled() bool { return true }

func (f *affiliationFilter) Apply(_ context.Context, candidates []ranking.Candidate) ([]ranking.Candidate, Step, error) {
	initial := len(candidates)
	if f.affiliation == "" {
		return candidates, Step{Initial: initial, Dropped: 0, Left: initial}, nil
	}

	kept := make([]ranking.Candidate, 0, initial)
	for _, c := range candidates {
		if strings.EqualFold(strings.TrimSpace(c.Affiliation), f.affiliation) {
			kept = append(kept, c)
		}
	}

	return kept, Step{Initial: initial, Dropped: initial - len(kept), Left: len(kept)}, nil
}

type outreachLister interface {
	ListOutreach(ctx context.Context, ownerID string) ([]*outreach.Record, error)
}

type alreadyContactedFilter struct {
	lifecycle outreachLister
	ownerID   string
	disabled  bool
	reason    string
}

// NewAlreadyContacted creates a filter that drops candidates the owner has
// already contacted.
func NewAlreadyContacted(lifecycle outreachLister, ownerID string) Filter {
	return &alreadyContactedFilter{lifecycle: lifecycle, ownerID: ownerID}
}

func (f *alreadyContactedFilter) Name() string { return "already_contacted" }

func (f *alreadyContactedFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *alreadyContactedFilter) IsEnabled() bool { return !f.disabled }

func (f *alreadyContactedFilter) Apply(ctx context.Context, candidates []ranking.Candidate) ([]ranking.Candidate, Step, error) {
	initial := len(candidates)
	if f.lifecycle == nil {
		return candidates, Step{Initial: initial, Dropped: 0, Left: initial}, nil
	}

	records, err := f.lifecycle.ListOutreach(ctx, f.ownerID)
	if err != nil {
		return nil, Step{}, fmt.Errorf("listing outreach records: %w", err)
	}

	contacted := make(map[string]bool, len(records))
	for _, rec := range records {
		contacted[rec.ContactID] = true
	}

	kept := make([]ranking.Candidate, 0, initial)
	for _, c := range candidates {
		if !contacted[c.ID] {
			kept = append(kept, c)
		}
	}

	return kept, Step{Initial: initial, Dropped: initial - len(kept), Left: len(kept)}, nil
}
