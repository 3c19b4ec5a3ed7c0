package sanitizer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/canonid/canonid/pkg/sanitizer"
)

func TestNormalizeEmail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercase and trim", "  John.Doe@Example.COM  ", "john.doe@example.com"},
		{"consecutive dots in local part", "john...doe@example.com", "john.doe@example.com"},
		{"leading and trailing dots", ".john.@example.com", "john@example.com"},
		{"already normalized", "a@x.com", "a@x.com"},
		{"not an email", "  NotAnEmail  ", "notanemail"},
		{"multiple at signs", "a@b@c.com", "a@b@c.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, sanitizer.NormalizeEmail(tt.input))
		})
	}
}

func TestExtractEmailDomain(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "example.com", sanitizer.ExtractEmailDomain("user@Example.Com"))
	assert.Equal(t, "", sanitizer.ExtractEmailDomain("no-at-sign"))
}

func TestMaskEmail(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "j*******@example.com", sanitizer.MaskEmail("john.doe@example.com"))
	assert.Equal(t, "*@example.com", sanitizer.MaskEmail("j@example.com"))
	assert.Equal(t, "not-an-email", sanitizer.MaskEmail("not-an-email"))
}
