// File: internal/forms/patterns_test.go
package forms

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyQuestion(t *testing.T) {
	testCases := []struct {
		label string
		want  fieldKind
	}{
		// Name variants.
		{"ad soyad", fieldName},
		{"adınız ve soyadınız", fieldName},
		{"isim soyad", fieldName},
		{"tam adınız", fieldName},
		{"öğrenci adı", fieldName},
		{"student name", fieldName},
		{"full name", fieldName},

		// Student ID variants.
		{"öğrenci no", fieldStudentID},
		{"öğrenci numarası", fieldStudentID},
		{"okul numaranız", fieldStudentID},
		{"student id", fieldStudentID},
		{"student number", fieldStudentID},
		{"no", fieldStudentID},

		// Attendance variants.
		{"katılım onayı", fieldAttendance},
		{"derse katılımınızı onaylayın", fieldAttendance},
		{"attendance confirmation", fieldAttendance},
		{"e-onay", fieldAttendance},
		{"please confirm", fieldAttendance},

		// Unclassifiable.
		{"favorite color", fieldNone},
		{"yorumlarınız", fieldNone},
		{"", fieldNone},
	}

	for _, tc := range testCases {
		t.Run(tc.label, func(t *testing.T) {
			assert.Equal(t, tc.want, classifyQuestion(tc.label))
		})
	}
}

func TestClassifyQuestionPriority(t *testing.T) {
	// A label matching both the name and the ID sets resolves to name: the
	// sets are consulted in a fixed order and the first match wins.
	assert.Equal(t, fieldName, classifyQuestion("ad soyad ve öğrenci no"))
}

func TestBareNoNeedsWordBoundary(t *testing.T) {
	// "notlarınız" starts with "no" but must not classify as a student ID
	// question: the bare-"no" pattern requires word boundaries.
	assert.Equal(t, fieldNone, classifyQuestion("notlarınız"))
}
