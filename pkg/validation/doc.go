// Package validation collects field-level validation failures for request
// payloads.
//
// Checks are recorded in call order and only the first failure per field is
// kept:
//
//	v := validation.New()
//	v.Check(validation.NotBlank(input.Title), "title", "must be provided")
//	v.Check(validation.MaxChars(input.Title, 255), "title", "must not be more than 255 characters long")
//	if !v.Valid() {
//		return v.Err()
//	}
//
// Err returns an *Error whose message is the first failure rendered as
// "field: message".
package validation
