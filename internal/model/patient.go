package model

import (
	"strings"

	"github.com/google/uuid"
)

// Patient is an established clinic patient. Patients are onboarded elsewhere and
// only read here.
type Patient struct {
	Base
	FirstName    string  `db:"first_name" json:"first_name"`
	LastName     string  `db:"last_name" json:"last_name"`
	Email        string  `db:"email" json:"email"`
	Phone        string  `db:"phone" json:"phone"`
	GHLContactID *string `db:"ghl_contact_id" json:"ghl_contact_id,omitempty"`
}

func (p *Patient) DisplayName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// PatientSummary is the short form of a patient embedded in link results.
type PatientSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

func (p *Patient) Summary() PatientSummary {
	return PatientSummary{ID: p.ID, Name: p.DisplayName(), Email: p.Email}
}
