package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/animerged/pkg/validation"
)

// MaxBodyBytes caps JSON request bodies
const MaxBodyBytes = 1 << 20

// ErrInvalidJSON is returned for any body that does not decode into a single JSON value
var ErrInvalidJSON = errors.New("invalid JSON")

// ParseJSON decodes a single JSON value from the request body into dest
func ParseJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dest); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: body must only contain a single JSON value", ErrInvalidJSON)
	}
	return nil
}

// ParseJSONOrError decodes JSON and writes a 422 on failure
func ParseJSONOrError(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := ParseJSON(w, r, dest); err != nil {
		WriteBadJSON(w, r)
		return false
	}
	return true
}

// ParsePathInt64 extracts and parses a positive int64 path parameter
func ParsePathInt64(r *http.Request, key string) (int64, error) {
	str := mux.Vars(r)[key]
	if str == "" {
		return 0, fmt.Errorf("missing path parameter: %s", key)
	}
	val, err := strconv.ParseInt(str, 10, 64)
	if err != nil || val < 1 {
		return 0, fmt.Errorf("invalid integer for %s: %s", key, str)
	}
	return val, nil
}

// ParsePathInt64OrNotFound extracts an id path parameter. A bad id is
// indistinguishable from a missing record, so it writes a 404.
func ParsePathInt64OrNotFound(w http.ResponseWriter, r *http.Request, key string) (int64, bool) {
	val, err := ParsePathInt64(r, key)
	if err != nil {
		WriteNotFound(w, r)
		return 0, false
	}
	return val, true
}

// ReadString returns a query value or defaultVal when absent
func ReadString(qs url.Values, key string, defaultVal string) string {
	val := qs.Get(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// ReadCSV splits a comma separated query value. Empty items are dropped.
func ReadCSV(qs url.Values, key string, defaultVal []string) []string {
	val := qs.Get(key)
	if val == "" {
		return defaultVal
	}

	var items []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// ReadInt parses an integer query value. A malformed value is recorded on v
// and defaultVal is returned.
func ReadInt(qs url.Values, key string, defaultVal int, v *validation.Validator) int {
	str := qs.Get(key)
	if str == "" {
		return defaultVal
	}

	val, err := strconv.Atoi(str)
	if err != nil {
		v.AddError(key, "must be an integer value")
		return defaultVal
	}
	return val
}
