package core

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	Income  Type = "income"
	Expense Type = "expense"
)

const (
	// DateLayout is the wire and storage format of a calendar date.
	DateLayout = "2006-01-02"

	MaxCategoryLength    = 100
	MaxDescriptionLength = 500
)

type (
	Type string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Transaction is a single ledger entry. ID and CreatedAt are owned by the store.
	Transaction struct {
		ID          int64     `json:"id"`
		Type        Type      `json:"type"`
		Amount      Money     `json:"amount"`
		Category    string    `json:"category"`
		Description string    `json:"description"`
		Date        Date      `json:"date"`
		CreatedAt   time.Time `json:"createdAt"`
	}
)

var (
	ErrNotFound           = errors.New("transaction not found")
	ErrInvalidType        = errors.New("type must be 'income' or 'expense'")
	ErrInvalidAmount      = errors.New("amount must be a number greater than 0")
	ErrEmptyCategory      = errors.New("category is required")
	ErrCategoryTooLong    = errors.New("category too long (max 100 characters)")
	ErrDescriptionTooLong = errors.New("description too long (max 500 characters)")
	ErrInvalidDate        = errors.New("date must be a valid YYYY-MM-DD date")
	ErrFutureDate         = errors.New("date cannot be in the future")
	ErrInvalidMonth       = errors.New("month must be between 1 and 12")
	ErrInvalidYear        = errors.New("year must be between 1 and 9999")
	ErrInvalidSortOrder   = errors.New("sortOrder must be 'asc' or 'desc'")
	ErrIncompleteScope    = errors.New("year and month must be given together")
	ErrInvalidID          = errors.New("id must be a positive integer")
)

// ValidationError reports malformed or out-of-range input on a named field.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Invalid wraps err as a ValidationError on field.
func Invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ParseType accepts "income" or "expense", ignoring surrounding whitespace.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if err := t.Validate(); err != nil {
		return "", err
	}
	return t, nil
}

func (t Type) Validate() error {
	switch t {
	case Income, Expense:
		return nil
	default:
		return ErrInvalidType
	}
}

func (t Type) String() string {
	return string(t)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the calendar date of now in now's location.
func Today(now time.Time) Date {
	y, m, d := now.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses YYYY-MM-DD. A full RFC 3339 timestamp is accepted and
// truncated to its date part, which is what browsers send for date inputs
// serialised through Date.toISOString.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrInvalidDate
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return Date{Time: t}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return NewDate(t.Year(), int(t.Month()), t.Day()), nil
	}
	return Date{}, ErrInvalidDate
}

// MustParseDate is ParseDate for literals in tests and fixtures.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return ErrInvalidDate
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MonthRange returns the first and last day of the given month.
func MonthRange(year, month int) (Date, Date) {
	first := NewDate(year, month, 1)
	last := Date{Time: first.AddDate(0, 1, -1)}
	return first, last
}

// ValidateYearMonth checks a (year, month) scope.
func ValidateYearMonth(year, month int) error {
	if year < 1 || year > 9999 {
		return Invalid("year", ErrInvalidYear)
	}
	if month < 1 || month > 12 {
		return Invalid("month", ErrInvalidMonth)
	}
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 || m.Cents > MaxAmountCents {
		return ErrInvalidAmount
	}
	return nil
}

// Normalize trims text fields in place.
func (tx *Transaction) Normalize() {
	tx.Category = strings.TrimSpace(tx.Category)
	tx.Description = strings.TrimSpace(tx.Description)
}

// Validate checks every field constraint of a ledger entry. now is the
// submission clock used to reject future dates.
func (tx Transaction) Validate(now time.Time) error {
	if err := tx.Type.Validate(); err != nil {
		return Invalid("type", err)
	}
	if err := tx.Amount.Validate(); err != nil {
		return Invalid("amount", err)
	}
	if strings.TrimSpace(tx.Category) == "" {
		return Invalid("category", ErrEmptyCategory)
	}
	if utf8.RuneCountInString(tx.Category) > MaxCategoryLength {
		return Invalid("category", ErrCategoryTooLong)
	}
	if utf8.RuneCountInString(tx.Description) > MaxDescriptionLength {
		return Invalid("description", ErrDescriptionTooLong)
	}
	if err := tx.Date.Validate(); err != nil {
		return Invalid("date", err)
	}
	if tx.Date.After(Today(now).Time) {
		return Invalid("date", ErrFutureDate)
	}
	return nil
}

// SameContent reports whether two entries carry the same user-editable fields.
func (tx Transaction) SameContent(other Transaction) bool {
	return tx.Type == other.Type &&
		tx.Amount == other.Amount &&
		tx.Category == other.Category &&
		tx.Description == other.Description &&
		tx.Date.Equal(other.Date.Time)
}
