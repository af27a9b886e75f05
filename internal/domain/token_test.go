package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenPairValid(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	token := "abc123"
	blank := ""

	pair := func(value *string, expires time.Time) TokenPair {
		return TokenPair{Token: value, Expires: &expires}
	}

	tests := []struct {
		name  string
		pair  TokenPair
		valid bool
	}{
		{"unset", TokenPair{}, false},
		{"token without expiry", TokenPair{Token: &token}, false},
		{"blank token value", pair(&blank, now.Add(time.Hour)), false},
		{"before expiry", pair(&token, now.Add(time.Second)), true},
		{"at the expiry instant", pair(&token, now), false},
		{"after expiry", pair(&token, now.Add(-time.Second)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.pair.Valid(now))
		})
	}
}
