// File: internal/forms/types_test.go
package forms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUserData(t *testing.T) {
	t.Run("trims whitespace", func(t *testing.T) {
		u, err := NewUserData("  Ada Lovelace ", " 20260042\n")
		require.NoError(t, err)
		assert.Equal(t, "Ada Lovelace", u.StudentName)
		assert.Equal(t, "20260042", u.StudentID)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := NewUserData("   ", "20260042")
		assert.Error(t, err)
	})

	t.Run("rejects empty id", func(t *testing.T) {
		_, err := NewUserData("Ada Lovelace", "")
		assert.Error(t, err)
	})
}

func TestFieldMappingFinalize(t *testing.T) {
	testCases := []struct {
		name     string
		mapping  FieldMapping
		want     float64
		complete bool
	}{
		{
			name: "all four targets",
			mapping: FieldMapping{
				NameField:       "#n",
				StudentIDField:  "#i",
				AttendanceField: "#a",
				SubmitButton:    "#s",
			},
			want:     1.0,
			complete: true,
		},
		{
			name: "missing submit",
			mapping: FieldMapping{
				NameField:       "#n",
				StudentIDField:  "#i",
				AttendanceField: "#a",
			},
			want:     0.75,
			complete: false,
		},
		{
			name:     "only name",
			mapping:  FieldMapping{NameField: "#n"},
			want:     0.25,
			complete: false,
		},
		{
			name:     "nothing found",
			mapping:  FieldMapping{},
			want:     0.0,
			complete: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tc.mapping.Finalize()
			assert.InDelta(t, tc.want, tc.mapping.Confidence, 1e-9)
			assert.Equal(t, tc.complete, tc.mapping.IsComplete())
		})
	}
}

func TestFieldMappingMissingFields(t *testing.T) {
	m := FieldMapping{NameField: "#n", SubmitButton: "#s"}
	missing := m.MissingFields()
	assert.ElementsMatch(t, []string{"student_id_field", "attendance_field"}, missing)

	full := FieldMapping{
		NameField:       "#n",
		StudentIDField:  "#i",
		AttendanceField: "#a",
		SubmitButton:    "#s",
	}
	assert.Empty(t, full.MissingFields())
}
