package recommend

import (
	"context"
	"reflect"
	"testing"

	"github.com/okeeper/okeeper/internal/outreach"
	"github.com/okeeper/okeeper/internal/ranking"

	"go.uber.org/zap"
)

type stubLister struct {
	records []*outreach.Record
	err     error
}

func (s *stubLister) ListOutreach(context.Context, string) ([]*outreach.Record, error) {
	return s.records, s.err
}

func TestAffiliationFilter(t *testing.T) {
	filter := NewAffiliation("MIT")

	candidates := []ranking.Candidate{
		{ID: "a", Affiliation: "MIT"},
		{ID: "b", Affiliation: "Stanford"},
		{ID: "c", Affiliation: "mit"},
	}

	kept, step, err := filter.Apply(context.Background(), candidates)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(idsOf(kept), []string{"a", "c"}) {
		t.Fatalf("expected [a c], got %v", idsOf(kept))
	}
	if step.Dropped != 1 || step.Left != 2 {
		t.Fatalf("unexpected step counts: %+v", step)
	}
}

func TestAffiliationFilterEmptyKeepsAll(t *testing.T) {
	filter := NewAffiliation("")

	candidates := []ranking.Candidate{{ID: "a"}, {ID: "b"}}

	kept, _, err := filter.Apply(context.Background(), candidates)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(kept) != 2 {
		t.Fatalf("expected all candidates kept, got %v", idsOf(kept))
	}
}

func TestAlreadyContactedFilter(t *testing.T) {
	lister := &stubLister{records: []*outreach.Record{
		{ContactID: "a"},
		{ContactID: "c"},
	}}

	filter := NewAlreadyContacted(lister, "owner-1")

	candidates := []ranking.Candidate{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	kept, step, err := filter.Apply(context.Background(), candidates)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(idsOf(kept), []string{"b"}) {
		t.Fatalf("expected [b], got %v", idsOf(kept))
	}
	if step.Dropped != 2 {
		t.Fatalf("expected 2 dropped, got %d", step.Dropped)
	}
}

func TestDisableByName(t *testing.T) {
	lister := &stubLister{records: []*outreach.Record{{ContactID: "a"}}}

	steps := []Filter{
		NewAffiliation(""),
		NewAlreadyContacted(lister, "owner-1"),
	}

	DisableByName(steps, "already_contacted", "flag is set")

	kept, err := Run(context.Background(), zap.NewNop(), steps, []ranking.Candidate{{ID: "a"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(idsOf(kept), []string{"a"}) {
		t.Fatalf("disabled filter must not drop candidates, got %v", idsOf(kept))
	}
}

func TestRunExecutesStepsInOrder(t *testing.T) {
	lister := &stubLister{records: []*outreach.Record{{ContactID: "m2"}}}

	steps := []Filter{
		NewAffiliation("MIT"),
		NewAlreadyContacted(lister, "owner-1"),
	}

	candidates := []ranking.Candidate{
		{ID: "m1", Affiliation: "MIT"},
		{ID: "m2", Affiliation: "MIT"},
		{ID: "s1", Affiliation: "Stanford"},
	}

	kept, err := Run(context.Background(), zap.NewNop(), steps, candidates)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(idsOf(kept), []string{"m1"}) {
		t.Fatalf("expected [m1], got %v", idsOf(kept))
	}
}
