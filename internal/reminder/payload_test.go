package reminder

import "testing"

func TestPayloadRoundTrip(t *testing.T) {
	payload := Payload("r1")

	id, ok := ResolveWakeUp(payload)
	if !ok {
		t.Fatalf("expected payload to resolve")
	}
	if id != "r1" {
		t.Fatalf("expected r1, got %q", id)
	}
}

func TestPayloadRoundTripEscapedID(t *testing.T) {
	payload := Payload("r 1/ü")

	id, ok := ResolveWakeUp(payload)
	if !ok {
		t.Fatalf("expected payload to resolve")
	}
	if id != "r 1/ü" {
		t.Fatalf("record id must round-trip unchanged, got %q", id)
	}
}

func TestResolveWakeUpRejectsForeignPayloads(t *testing.T) {
	cases := []string{
		"",
		"plain text, not a reminder",
		"https://example.com/followup?recordId=r1",
		"okeeper://other?recordId=r1",
		"okeeper://followup",
		"okeeper://followup?otherKey=r1",
	}

	for _, payload := range cases {
		if id, ok := ResolveWakeUp(payload); ok {
			t.Fatalf("expected %q not to resolve, got %q", payload, id)
		}
	}
}
