package checkin

import (
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/wellness-api/internal/model"
)

// CheckinInput is the body of a check-in save. Numeric fields are pointers so
// that a missing value is rejected instead of read as zero.
type CheckinInput struct {
	ProtocolID            string `json:"protocol_id" validate:"required,uuid"`
	PatientID             string `json:"patient_id" validate:"required,uuid"`
	WeekNumber            *int   `json:"week_number" validate:"required,min=1,max=6"`
	EnergyLevel           *int   `json:"energy_level" validate:"required,min=1,max=10"`
	SleepQuality          *int   `json:"sleep_quality" validate:"required,min=1,max=10"`
	Recovery              *int   `json:"recovery" validate:"required,min=1,max=10"`
	MentalClarity         *int   `json:"mental_clarity" validate:"required,min=1,max=10"`
	RLTSessionsCompleted  *int   `json:"rlt_sessions_completed" validate:"required,min=0,max=3"`
	HBOTSessionsCompleted *int   `json:"hbot_sessions_completed" validate:"required,min=0,max=3"`
	Notes                 string `json:"notes" validate:"max=4000"`
	RecordedBy            string `json:"recorded_by" validate:"max=200"`
}

// ActivePatient is one row of the tracker's patient list.
type ActivePatient struct {
	PatientID         uuid.UUID `json:"patient_id"`
	FirstName         string    `json:"first_name"`
	LastName          string    `json:"last_name"`
	ProtocolID        uuid.UUID `json:"protocol_id"`
	StartDate         time.Time `json:"start_date"`
	CurrentWeek       int       `json:"current_week"`
	TotalRLTSessions  int       `json:"total_rlt_sessions"`
	TotalHBOTSessions int       `json:"total_hbot_sessions"`
	WeeksCompleted    int       `json:"weeks_completed"`
	// Progress is WeeksCompleted over the program length, 0..1.
	Progress float64 `json:"progress"`
}

func newActivePatient(p *model.ActiveProtocol) ActivePatient {
	progress := float64(p.WeeksCompleted) / float64(model.ProtocolWeeks)
	if progress > 1 {
		progress = 1
	}
	return ActivePatient{
		PatientID:         p.PatientID,
		FirstName:         p.FirstName,
		LastName:          p.LastName,
		ProtocolID:        p.ID,
		StartDate:         p.StartDate,
		CurrentWeek:       p.CurrentWeek,
		TotalRLTSessions:  p.TotalRLTSessions,
		TotalHBOTSessions: p.TotalHBOTSessions,
		WeeksCompleted:    p.WeeksCompleted,
		Progress:          progress,
	}
}

// Improvement returns latest minus week 1 for each rating, where latest is the
// highest recorded week. It is nil unless week 1 and at least one later week
// are recorded.
func Improvement(checkins []*model.Checkin) *model.Improvement {
	if len(checkins) < 2 {
		return nil
	}
	var first, latest *model.Checkin
	for _, c := range checkins {
		if c.WeekNumber == 1 {
			first = c
		}
		if latest == nil || c.WeekNumber > latest.WeekNumber {
			latest = c
		}
	}
	if first == nil || latest == first {
		return nil
	}
	return &model.Improvement{
		FromWeek:      first.WeekNumber,
		ToWeek:        latest.WeekNumber,
		EnergyLevel:   latest.EnergyLevel - first.EnergyLevel,
		SleepQuality:  latest.SleepQuality - first.SleepQuality,
		Recovery:      latest.Recovery - first.Recovery,
		MentalClarity: latest.MentalClarity - first.MentalClarity,
	}
}
