package reminder

import (
	"fmt"
	"net/url"
)

const (
	// Scheme is the deep-link scheme reminders carry.
	Scheme = "okeeper"
	// followUpHost routes a wake-up back to the follow-up flow.
	followUpHost = "followup"
	// recordIDKey is part of the wire contract and must round-trip unchanged.
	recordIDKey = "recordId"
)

// Payload builds the opaque wake-up payload for a record. The payload is a
// deep link of the form okeeper://followup?recordId=<id>.
func Payload(recordID string) string {
	return fmt.Sprintf("%s://%s?%s=%s", Scheme, followUpHost, recordIDKey, url.QueryEscape(recordID))
}

// ResolveWakeUp extracts the record ID embedded in an inbound wake-up or
// deep-link payload. Payloads not produced by this scheduler resolve to
// ok == false so unrelated notifications and links pass through untouched.
func ResolveWakeUp(payload string) (string, bool) {
	u, err := url.Parse(payload)
	if err != nil {
		return "", false
	}

	if u.Scheme != Scheme || u.Host != followUpHost {
		return "", false
	}

	id := u.Query().Get(recordIDKey)
	if id == "" {
		return "", false
	}

	return id, true
}
