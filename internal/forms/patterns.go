// File: internal/forms/patterns.go
package forms

import "regexp"

// fieldKind is the semantic classification of a question label.
type fieldKind int

const (
	fieldNone fieldKind = iota
	fieldName
	fieldStudentID
	fieldAttendance
)

// Question labels are matched against three independent pattern sets, tuned
// for Turkish educational forms with English fallbacks. Classification is
// first-match-wins in the order name, student ID, attendance; anything else
// is skipped.
var (
	namePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(ad|isim|name).*soyad`),
		regexp.MustCompile(`ad\s*(ve|-)?\s*soyad`),
		regexp.MustCompile(`tam\s*ad`),
		regexp.MustCompile(`öğrenci\s*ad`),
		regexp.MustCompile(`student\s*name`),
		regexp.MustCompile(`full\s*name`),
	}

	studentIDPatterns = []*regexp.Regexp{
		regexp.MustCompile(`öğrenci\s*no`),
		regexp.MustCompile(`öğrenci\s*numara`),
		regexp.MustCompile(`student\s*id`),
		regexp.MustCompile(`student\s*number`),
		regexp.MustCompile(`numara`),
		// Bare "no" needs word boundaries: "soyadınız" must not match.
		regexp.MustCompile(`\bno\b`),
	}

	attendancePatterns = []*regexp.Regexp{
		regexp.MustCompile(`katılım`),
		regexp.MustCompile(`onay`),
		regexp.MustCompile(`attendance`),
		regexp.MustCompile(`ders.*onay`),
		regexp.MustCompile(`e-onay`),
		regexp.MustCompile(`confirm`),
	}
)

// classifyQuestion maps a lower-cased, trimmed question label to its semantic
// field. The input must already be normalized by the caller.
func classifyQuestion(text string) fieldKind {
	if matchesAny(text, namePatterns) {
		return fieldName
	}
	if matchesAny(text, studentIDPatterns) {
		return fieldStudentID
	}
	if matchesAny(text, attendancePatterns) {
		return fieldAttendance
	}
	return fieldNone
}

func matchesAny(text string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}
