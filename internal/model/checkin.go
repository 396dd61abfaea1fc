package model

import (
	"github.com/google/uuid"
)

// Checkin is one week's recorded ratings and session counts for an enrollment.
// There is at most one per (ProtocolID, WeekNumber).
type Checkin struct {
	Base
	ProtocolID            uuid.UUID `db:"protocol_id" json:"protocol_id"`
	PatientID             uuid.UUID `db:"patient_id" json:"patient_id"`
	WeekNumber            int       `db:"week_number" json:"week_number"`
	EnergyLevel           int       `db:"energy_level" json:"energy_level"`
	SleepQuality          int       `db:"sleep_quality" json:"sleep_quality"`
	Recovery              int       `db:"recovery" json:"recovery"`
	MentalClarity         int       `db:"mental_clarity" json:"mental_clarity"`
	RLTSessionsCompleted  int       `db:"rlt_sessions_completed" json:"rlt_sessions_completed"`
	HBOTSessionsCompleted int       `db:"hbot_sessions_completed" json:"hbot_sessions_completed"`
	Notes                 string    `db:"notes" json:"notes"`
	RecordedBy            string    `db:"recorded_by" json:"recorded_by"`
}

// Improvement is the signed change in each rating between week 1 and the latest
// recorded week.
type Improvement struct {
	FromWeek      int `json:"from_week"`
	ToWeek        int `json:"to_week"`
	EnergyLevel   int `json:"energy_level"`
	SleepQuality  int `json:"sleep_quality"`
	Recovery      int `json:"recovery"`
	MentalClarity int `json:"mental_clarity"`
}
