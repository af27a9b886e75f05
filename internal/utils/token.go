package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// rawTokenBytes gives 160 bits of entropy per token
const rawTokenBytes = 20

// IssueToken generates a raw single-use credential token and its expiry.
// The caller supplies its single authoritative clock read so expiry is
// computed against the same instant used for any validation in the request.
func IssueToken(now time.Time, ttl time.Duration) (string, time.Time, error) {
	buf := make([]byte, rawTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(buf), now.Add(ttl), nil
}

// NewSessionID generates a random session handle
func NewSessionID() (string, error) {
	buf := make([]byte, rawTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
