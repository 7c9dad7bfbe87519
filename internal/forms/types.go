// File: internal/forms/types.go
// Description: Core data model for form analysis and submission logging.
package forms

import (
	"fmt"
	"strings"
	"time"
)

// Provider identifies a supported form platform.
type Provider string

const (
	ProviderMicrosoftForms Provider = "microsoft_forms"
	ProviderGoogleForms    Provider = "google_forms"
	ProviderMoodle         Provider = "moodle"
	ProviderUnknown        Provider = "unknown"
)

// DetectionMethod records how the form's fields were identified.
type DetectionMethod string

const (
	DetectionRuleBased      DetectionMethod = "rule_based"
	DetectionAIAssisted     DetectionMethod = "ai_assisted"
	DetectionLearnedPattern DetectionMethod = "learned_pattern"
)

// Status is the terminal state of a submission attempt.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusCaptcha Status = "captcha"
	StatusSkipped Status = "skipped"
)

// UserData is the identity written into a form. Validated at construction and
// immutable afterwards.
type UserData struct {
	StudentName string
	StudentID   string
}

// NewUserData trims and validates the student identity.
func NewUserData(name, id string) (UserData, error) {
	name = strings.TrimSpace(name)
	id = strings.TrimSpace(id)
	if name == "" {
		return UserData{}, fmt.Errorf("student name cannot be empty")
	}
	if id == "" {
		return UserData{}, fmt.Errorf("student ID cannot be empty")
	}
	return UserData{StudentName: name, StudentID: id}, nil
}

// FieldMapping is the result of form analysis: stable selectors for the four
// semantic targets plus a confidence score in [0,1]. A mapping is constructed
// fresh per analysis call and must not be mutated once returned to the caller.
// An empty selector means the field was not found.
type FieldMapping struct {
	NameField       string
	StudentIDField  string
	AttendanceField string
	SubmitButton    string

	Confidence float64
}

// IsComplete reports whether all four selectors were discovered.
func (m *FieldMapping) IsComplete() bool {
	return m.NameField != "" &&
		m.StudentIDField != "" &&
		m.AttendanceField != "" &&
		m.SubmitButton != ""
}

// MissingFields lists the semantic targets that analysis failed to locate.
func (m *FieldMapping) MissingFields() []string {
	var missing []string
	if m.NameField == "" {
		missing = append(missing, "name_field")
	}
	if m.StudentIDField == "" {
		missing = append(missing, "student_id_field")
	}
	if m.AttendanceField == "" {
		missing = append(missing, "attendance_field")
	}
	if m.SubmitButton == "" {
		missing = append(missing, "submit_button")
	}
	return missing
}

// Finalize computes the confidence score: (4 - missing) / 4, or exactly 1.0
// when all four fields are present. Called once by the analyzing plugin before
// the mapping is handed out.
func (m *FieldMapping) Finalize() {
	if m.IsComplete() {
		m.Confidence = 1.0
		return
	}
	m.Confidence = float64(4-len(m.MissingFields())) / 4.0
}

// Submission is one audit record of a form attempt. Created once per pipeline
// invocation, persisted exactly once, never mutated after persistence.
type Submission struct {
	ID        int64
	Timestamp time.Time

	FormURL  string
	Provider Provider

	DetectionMethod DetectionMethod
	Confidence      float64

	StudentName string
	StudentID   string

	Status       Status
	ErrorMessage string

	ScreenshotBefore string
	ScreenshotFilled string
	ScreenshotAfter  string
	DOMSnapshot      string

	ProcessingTime time.Duration
}

// DailyStats summarizes today's submission records.
type DailyStats struct {
	Total             int           `json:"total"`
	Successful        int           `json:"successful"`
	Failed            int           `json:"failed"`
	Captcha           int           `json:"captcha"`
	AvgProcessingTime time.Duration `json:"avg_processing_time"`
}

// FieldPattern is a learned field mapping for a recurring form structure,
// keyed by a structural signature. Written on verified successes so future
// analyses can be seeded; not consulted by the rule-based pipeline yet.
type FieldPattern struct {
	ID            int64
	FormSignature string
	Provider      Provider
	Mapping       FieldMapping
	SuccessCount  int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
