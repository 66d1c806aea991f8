package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_KeepsFirstFailurePerField(t *testing.T) {
	v := New()

	v.Check(false, "title", "must be provided")
	v.Check(false, "title", "must not be more than 255 characters long")
	v.Check(true, "year", "must be provided")
	v.Check(false, "genres", "must contain at least 1 genre")

	require.False(t, v.Valid())
	assert.Equal(t, []FieldError{
		{Field: "title", Message: "must be provided"},
		{Field: "genres", Message: "must contain at least 1 genre"},
	}, v.Errors())
	assert.Equal(t, "title: must be provided", v.FirstError())

	var verr *Error
	require.True(t, errors.As(v.Err(), &verr))
	assert.Equal(t, "title: must be provided", verr.Error())
}

func TestValidator_Valid(t *testing.T) {
	v := New()
	v.Check(true, "title", "must be provided")

	assert.True(t, v.Valid())
	assert.Empty(t, v.FirstError())
	assert.NoError(t, v.Err())
}

func TestHelpers(t *testing.T) {
	tests := []struct {
		name string
		got  bool
		want bool
	}{
		{"not blank", NotBlank("Cowboy Bebop"), true},
		{"blank", NotBlank("   "), false},
		{"max chars counts runes", MaxChars("進撃の巨人", 5), true},
		{"max chars exceeded", MaxChars("abcdef", 5), false},
		{"min bytes", MinBytes("pa55word", 8), true},
		{"min bytes short", MinBytes("short", 8), false},
		{"max bytes", MaxBytes("pa55word", 72), true},
		{"between inclusive", Between(1900, 1900, 2026), true},
		{"between below", Between(1899, 1900, 2026), false},
		{"permitted", PermittedValue("Winter", "Winter", "Spring"), true},
		{"not permitted", PermittedValue("winter", "Winter", "Spring"), false},
		{"unique", Unique([]string{"Action", "Drama"}), true},
		{"duplicates", Unique([]string{"Action", "Action"}), false},
		{"email", Matches("kany.joz@example.com", EmailRX), true},
		{"email uppercase", Matches("Kany@Example.COM", EmailRX), true},
		{"email missing tld", Matches("kany@example", EmailRX), false},
		{"email missing at", Matches("kany.example.com", EmailRX), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}
