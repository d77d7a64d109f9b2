package ranking

import (
	"reflect"
	"testing"
)

func TestFilterKnownIDs(t *testing.T) {
	candidates := []Candidate{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	got := FilterKnownIDs([]string{"b", "ghost", "a", "b"}, candidates)

	want := []string{"b", "a"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestFilterKnownIDsAllUnknown(t *testing.T) {
	candidates := []Candidate{{ID: "a"}}

	got := FilterKnownIDs([]string{"x", "y"}, candidates)
	if len(got) != 0 {
		t.Fatalf("expected no usable ids, got %v", got)
	}
}
