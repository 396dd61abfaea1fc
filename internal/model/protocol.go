package model

import (
	"time"

	"github.com/google/uuid"
)

// ProtocolType identifies a treatment program.
type ProtocolType string

const (
	ProtocolCellularEnergy ProtocolType = "cellular_energy"
)

// Fixed structure of the cellular energy program.
const (
	ProtocolWeeks          = 6
	MaxSessionsPerWeek     = 3
	MaxSessionsPerModality = ProtocolWeeks * MaxSessionsPerWeek
	MinRating              = 1
	MaxRating              = 10
)

// Protocol is a patient's enrollment in a program.
type Protocol struct {
	Base
	PatientID         uuid.UUID    `db:"patient_id" json:"patient_id"`
	ProtocolType      ProtocolType `db:"protocol_type" json:"protocol_type"`
	StartDate         time.Time    `db:"start_date" json:"start_date"`
	CurrentWeek       int          `db:"current_week" json:"current_week"`
	TotalRLTSessions  int          `db:"total_rlt_sessions" json:"total_rlt_sessions"`
	TotalHBOTSessions int          `db:"total_hbot_sessions" json:"total_hbot_sessions"`
}

// ActiveProtocol is an enrollment joined with its patient's name and the number of
// weeks that have a recorded check-in.
type ActiveProtocol struct {
	Protocol
	FirstName      string `db:"first_name"`
	LastName       string `db:"last_name"`
	WeeksCompleted int    `db:"weeks_completed"`
}
