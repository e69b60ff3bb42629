package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainEvent separates event identity hashes from any other hash domain.
const DomainEvent = "acctql/event/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// EventID computes the content-addressed ID of an event.
// Two events with the same topic, seq, kind and payload share an ID.
func EventID(topic string, seq int64, kind EventKind, payload map[string]any) (string, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	canonical, err := MarshalCanonical(map[string]any{
		"topic":   topic,
		"seq":     seq,
		"kind":    string(kind),
		"payload": payload,
	})
	if err != nil {
		return "", fmt.Errorf("EventID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainEvent, canonical), nil
}
