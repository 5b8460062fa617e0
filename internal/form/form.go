// Package form defines the registration form model and its validation.
//
// A submission is valid iff all five fields are present after trimming and
// the email matches a basic local@domain.tld shape. There is no field
// defaulting: absence is a hard validation failure. Validation either
// produces an immutable Submission or a tagged error; it never panics.
package form

import (
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Field length caps. The modal enforces the same limits client-side, but
// the payload is untrusted input and is re-checked here.
const (
	MaxFullNameLen = 100
	MaxMessageLen  = 500
)

// Validation errors.
var (
	// ErrMissingFields indicates one or more required fields are empty.
	ErrMissingFields = errors.New("form: missing required fields")

	// ErrInvalidEmail indicates the email does not match local@domain.tld.
	ErrInvalidEmail = errors.New("form: invalid email format")

	// ErrFieldTooLong indicates a free-text field exceeds its length cap.
	ErrFieldTooLong = errors.New("form: field exceeds maximum length")
)

// emailPattern requires at least one @ with a dot after it and no whitespace.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Requester identifies the Slack user who submitted the form.
type Requester struct {
	ID   string
	Name string
}

// Option is a department choice: a machine value and a display label.
// The label is what gets persisted; the value only confirms a selection.
type Option struct {
	Value string
	Label string
}

// Departments is the fixed catalog offered by the registration modal.
var Departments = []Option{
	{Value: "ventas", Label: "💼 Ventas"},
	{Value: "marketing", Label: "📈 Marketing"},
	{Value: "desarrollo", Label: "💻 Desarrollo/IT"},
	{Value: "rrhh", Label: "👥 Recursos Humanos"},
	{Value: "soporte", Label: "🎧 Soporte al Cliente"},
	{Value: "admin", Label: "📊 Administración"},
	{Value: "operaciones", Label: "🏭 Operaciones"},
	{Value: "otro", Label: "🎯 Otro"},
}

// Fields carries the raw submitted values keyed by logical field name,
// before validation.
type Fields struct {
	FullName   string
	Email      string
	Department Option
	Message    string
}

// Submission is a validated, immutable form submission.
type Submission struct {
	ID          string
	Requester   Requester
	FullName    string
	Email       string
	Department  string // display label, not the machine value
	Message     string
	SubmittedAt time.Time
}

// Parse validates raw fields and produces a Submission.
//
// Checks run in order and the first failure wins:
//  1. any required field empty after trim -> ErrMissingFields
//  2. email fails the format check       -> ErrInvalidEmail
//  3. full name or message over its cap  -> ErrFieldTooLong
func Parse(f Fields, requester Requester, now time.Time) (*Submission, error) {
	fullName := strings.TrimSpace(f.FullName)
	email := strings.TrimSpace(f.Email)
	message := strings.TrimSpace(f.Message)

	if fullName == "" || email == "" || f.Department.Value == "" || f.Department.Label == "" || message == "" {
		return nil, ErrMissingFields
	}

	if !emailPattern.MatchString(email) {
		return nil, ErrInvalidEmail
	}

	if utf8.RuneCountInString(fullName) > MaxFullNameLen || utf8.RuneCountInString(message) > MaxMessageLen {
		return nil, ErrFieldTooLong
	}

	return &Submission{
		ID:          uuid.New().String(),
		Requester:   requester,
		FullName:    fullName,
		Email:       email,
		Department:  f.Department.Label,
		Message:     message,
		SubmittedAt: now,
	}, nil
}
