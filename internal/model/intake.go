package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Intake is a submitted new-patient form. PatientID stays nil until the record
// linker associates it with a patient; once set it is never cleared.
type Intake struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	FirstName    string     `db:"first_name" json:"first_name"`
	LastName     string     `db:"last_name" json:"last_name"`
	Email        string     `db:"email" json:"email"`
	Phone        string     `db:"phone" json:"phone"`
	GHLContactID *string    `db:"ghl_contact_id" json:"ghl_contact_id,omitempty"`
	PatientID    *uuid.UUID `db:"patient_id" json:"patient_id,omitempty"`
	SubmittedAt  time.Time  `db:"submitted_at" json:"submitted_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

func (i *Intake) DisplayName() string {
	return strings.TrimSpace(i.FirstName + " " + i.LastName)
}

func (i *Intake) Linked() bool {
	return i.PatientID != nil
}
