package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		valid    bool
	}{
		{"Password1", true},
		{"Aa1aaaaa", true},
		{"short1A", false},
		{"nouppercase1", false},
		{"NOLOWERCASE1", false},
		{"NoNumbersHere", false},
		{"Aa1" + string(make([]byte, 40)), false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.valid, ValidatePassword(tt.password), "password %q", tt.password)
	}
}

func TestSanitizeEmail(t *testing.T) {
	assert.Equal(t, "user@example.com", SanitizeEmail("  User@Example.COM "))
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Hello World", "hello-world"},
		{"  Multiple   Spaces  ", "multiple-spaces"},
		{"Special!@#Chars", "specialchars"},
		{"already-a-slug", "already-a-slug"},
		{"Numbers 123", "numbers-123"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.name), "name %q", tt.name)
	}
}
