package api

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/platinummonkey/animerged/pkg/validation"
)

// Season an animation aired in
type Season string

const (
	SeasonWinter Season = "Winter"
	SeasonSpring Season = "Spring"
	SeasonSummer Season = "Summer"
	SeasonAutumn Season = "Autumn"
)

var seasons = []Season{SeasonWinter, SeasonSpring, SeasonSummer, SeasonAutumn}

// ParseSeason accepts a season name with a lowercase first letter as well
func ParseSeason(s string) (Season, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	season := Season(strings.ToUpper(s[:1]) + s[1:])
	return season, slices.Contains(seasons, season)
}

// Animation is the versioned catalogue record
type Animation struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Year      int       `json:"year,omitempty"`
	Season    Season    `json:"season,omitempty"`
	Genres    []string  `json:"genres,omitempty"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// AnimationInput is the request body of create and update calls.
// Nil fields were absent from the payload.
type AnimationInput struct {
	Title  *string  `json:"title"`
	Year   *int     `json:"year"`
	Season *string  `json:"season"`
	Genres []string `json:"genres"`
}

// Apply copies the present fields of in onto a copy of a
func (in AnimationInput) Apply(a Animation) Animation {
	if in.Title != nil {
		a.Title = *in.Title
	}
	if in.Year != nil {
		a.Year = *in.Year
	}
	if in.Season != nil {
		a.Season, _ = ParseSeason(*in.Season)
	}
	if in.Genres != nil {
		a.Genres = slices.Clone(in.Genres)
	}
	return a
}

// ValidateAnimationInput checks in. With partial set, absent fields are skipped.
func ValidateAnimationInput(v *validation.Validator, in AnimationInput, partial bool, now time.Time) {
	if in.Title != nil || !partial {
		title := deref(in.Title)
		v.Check(validation.NotBlank(title), "title", "This field cannot be blank")
		v.Check(validation.MaxChars(title, 255), "title", "This field must be at most 255 characters long")
	}

	if in.Year != nil || !partial {
		year := deref(in.Year)
		v.Check(in.Year != nil, "year", "This field must be an integer")
		v.Check(year >= 1900, "year", "This field must be at least 1900")
		v.Check(year <= now.Year(), "year", fmt.Sprintf("This field must be at most %d", now.Year()))
	}

	if in.Season != nil || !partial {
		season := deref(in.Season)
		v.Check(validation.NotBlank(season), "season", "This field cannot be blank")
		_, ok := ParseSeason(season)
		v.Check(ok, "season", "Possible values: Winter|Summer|Autumn|Spring")
	}

	if in.Genres != nil || !partial {
		v.Check(len(in.Genres) >= 1, "genres", "This field must contain at least 1 element")
		v.Check(len(in.Genres) <= 10, "genres", "This field must contain at most 10 elements")
		v.Check(validation.Unique(in.Genres), "genres", "This field must not contain duplicate values")
	}
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// Filters holds pagination and sorting options of list endpoints
type Filters struct {
	Page         int
	PageSize     int
	Sort         string
	SortSafelist []string
}

// AnimationSortSafelist lists the accepted sort values of the animations index
var AnimationSortSafelist = []string{"id", "title", "year", "season", "-id", "-title", "-year", "-season"}

// ValidateFilters checks paging bounds and the sort value
func ValidateFilters(v *validation.Validator, f Filters) {
	v.Check(f.Page > 0, "page", "must be greater than zero")
	v.Check(f.Page <= 10_000, "page", "must be a maximum of 10 thousand")
	v.Check(f.PageSize > 0, "page_size", "must be greater than zero")
	v.Check(f.PageSize <= 100, "page_size", "must be a maximum of 100")
	v.Check(validation.PermittedValue(f.Sort, f.SortSafelist...), "sort", "invalid sort value")
}

// SortColumn returns the column to order by. It refuses anything outside
// the safelist since the value ends up in SQL.
func (f Filters) SortColumn() (string, error) {
	if !slices.Contains(f.SortSafelist, f.Sort) {
		return "", fmt.Errorf("unsafe sort parameter: %q", f.Sort)
	}
	return strings.TrimPrefix(f.Sort, "-"), nil
}

// SortDirection returns DESC for a "-" prefixed sort value
func (f Filters) SortDirection() string {
	if strings.HasPrefix(f.Sort, "-") {
		return "DESC"
	}
	return "ASC"
}

// Limit is the page size
func (f Filters) Limit() int {
	return f.PageSize
}

// Offset is the number of rows before the page
func (f Filters) Offset() int {
	return (f.Page - 1) * f.PageSize
}

// RegisterInput is the body of POST /v1/users
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ValidateEmail checks a login or registration email
func ValidateEmail(v *validation.Validator, email string) {
	v.Check(validation.NotBlank(email), "email", "must be provided")
	v.Check(validation.Matches(email, validation.EmailRX), "email", "must be a valid email address")
}

// ValidatePassword checks a plaintext password. bcrypt ignores input past 72 bytes.
func ValidatePassword(v *validation.Validator, password string) {
	v.Check(validation.NotBlank(password), "password", "must be provided")
	v.Check(validation.MinBytes(password, 8), "password", "must be at least 8 characters long")
	v.Check(validation.MaxBytes(password, 72), "password", "must not be more than 72 characters long")
}

// ValidateRegistration checks a registration payload
func ValidateRegistration(v *validation.Validator, in RegisterInput) {
	ValidateEmail(v, in.Email)
	ValidatePassword(v, in.Password)
	v.Check(validation.NotBlank(in.Name), "name", "must be provided")
	v.Check(validation.MaxChars(in.Name, 255), "name", "must not be more than 255 characters long")
}
