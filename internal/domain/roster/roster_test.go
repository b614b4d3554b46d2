package roster

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParentFullName(t *testing.T) {
	tests := []struct {
		name   string
		parent Parent
		want   string
	}{
		{"both", Parent{FirstName: sql.NullString{String: "Marie", Valid: true}, LastName: sql.NullString{String: "Dupont", Valid: true}}, "Marie Dupont"},
		{"first only", Parent{FirstName: sql.NullString{String: "Marie", Valid: true}}, "Marie"},
		{"none", Parent{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.parent.FullName())
		})
	}
}

func TestParentReachability(t *testing.T) {
	p := Parent{Phone: sql.NullString{String: "+33612345678", Valid: true}}
	assert.False(t, p.WhatsAppReachable(), "opt-in required")

	p.WhatsAppOptIn = true
	assert.True(t, p.WhatsAppReachable())

	p.Phone = sql.NullString{String: "  ", Valid: true}
	assert.False(t, p.WhatsAppReachable())

	assert.False(t, p.EmailReachable())
	p.Email = sql.NullString{String: "marie@example.com", Valid: true}
	assert.True(t, p.EmailReachable())
}

func TestProfessorSubjectList(t *testing.T) {
	p := Professor{Subjects: " Maths, Physique ,,SVT "}
	assert.Equal(t, []string{"Maths", "Physique", "SVT"}, p.SubjectList())
}
