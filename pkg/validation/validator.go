package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// EmailRX matches the addresses accepted at registration
var EmailRX = regexp.MustCompile(`(?i)^[_a-z0-9-]+(\.[_a-z0-9-]+)*@[a-z0-9-]+(\.[a-z0-9-]+)*(\.[a-z]{2,})$`)

// FieldError is a single failed check
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is returned by Validator.Err
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	return e.Fields[0].Field + ": " + e.Fields[0].Message
}

// Validator records failed checks in order
type Validator struct {
	errors []FieldError
	seen   map[string]bool
}

// New creates an empty validator
func New() *Validator {
	return &Validator{seen: make(map[string]bool)}
}

// Valid reports whether no check has failed
func (v *Validator) Valid() bool {
	return len(v.errors) == 0
}

// AddError records message for field unless field already failed
func (v *Validator) AddError(field, message string) {
	if v.seen[field] {
		return
	}
	v.seen[field] = true
	v.errors = append(v.errors, FieldError{Field: field, Message: message})
}

// Check records message for field when ok is false
func (v *Validator) Check(ok bool, field, message string) {
	if !ok {
		v.AddError(field, message)
	}
}

// Errors returns the recorded failures in order
func (v *Validator) Errors() []FieldError {
	return append([]FieldError(nil), v.errors...)
}

// FirstError renders the first failure as "field: message"
func (v *Validator) FirstError() string {
	if v.Valid() {
		return ""
	}
	return v.errors[0].Field + ": " + v.errors[0].Message
}

// Err returns nil when valid, an *Error otherwise
func (v *Validator) Err() error {
	if v.Valid() {
		return nil
	}
	return &Error{Fields: v.Errors()}
}

// NotBlank reports whether value has non-whitespace content
func NotBlank(value string) bool {
	return strings.TrimSpace(value) != ""
}

// MaxChars reports whether value has at most n characters
func MaxChars(value string, n int) bool {
	return utf8.RuneCountInString(value) <= n
}

// MinBytes reports whether value is at least n bytes long
func MinBytes(value string, n int) bool {
	return len(value) >= n
}

// MaxBytes reports whether value is at most n bytes long
func MaxBytes(value string, n int) bool {
	return len(value) <= n
}

// Between reports whether lo <= n <= hi
func Between(n, lo, hi int) bool {
	return n >= lo && n <= hi
}

// Matches reports whether value matches rx
func Matches(value string, rx *regexp.Regexp) bool {
	return rx.MatchString(value)
}

// PermittedValue reports whether value is one of permitted
func PermittedValue[T comparable](value T, permitted ...T) bool {
	for _, p := range permitted {
		if value == p {
			return true
		}
	}
	return false
}

// Unique reports whether values contains no duplicates
func Unique[T comparable](values []T) bool {
	seen := make(map[T]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			return false
		}
		seen[v] = struct{}{}
	}
	return true
}
