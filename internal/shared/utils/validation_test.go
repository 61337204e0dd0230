package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateString(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		minLen   int
		maxLen   int
		required bool
		wantErr  bool
	}{
		{"valid", "pricing", 1, 64, true, false},
		{"empty required", "", 1, 64, true, true},
		{"empty optional", "", 1, 64, false, false},
		{"too short", "a", 2, 64, true, true},
		{"too long", strings.Repeat("a", 65), 1, 64, true, true},
		{"null byte", "pri\x00cing", 1, 64, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateString(tt.value, "field", tt.minLen, tt.maxLen, tt.required)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateDependencyName(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"simple", "pricing", false},
		{"with hyphen", "workout-db", false},
		{"with underscore", "analytics_v2", false},
		{"with colon", "pricing:v1", true},
		{"with space", "pricing api", true},
		{"with slash", "pricing/api", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDependencyName(tt.value, true)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"namespaced digest", "pricing:a1b2c3d4", false},
		{"dotted", "workouts.daily", false},
		{"with space", "pricing key", true},
		{"empty required", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKey(tt.value, "key", true)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePayload(t *testing.T) {
	assert.NoError(t, ValidatePayload(nil, "static default"))
	assert.NoError(t, ValidatePayload(map[string]interface{}{"rate": 0}, "static default"))

	big := strings.Repeat("x", MaxPayloadSize+1)
	assert.Error(t, ValidatePayload(big, "static default"))
}
