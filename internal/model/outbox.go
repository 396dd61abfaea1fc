package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "pending"
	OutboxStatusRetry      OutboxStatus = "retry"
	OutboxStatusProcessed  OutboxStatus = "processed"
	OutboxStatusFailed     OutboxStatus = "failed"
	OutboxStatusProcessing OutboxStatus = "processing"
)

// Event types written to the outbox.
const (
	EventIntakeLinked = "intake.linked"
	EventCheckinSaved = "checkin.saved"
)

type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"event_type"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       string          `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	RetryCount   int             `db:"retry_count" json:"retry_count"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

type IntakeLinkedPayload struct {
	IntakeID  uuid.UUID `json:"intake_id"`
	PatientID uuid.UUID `json:"patient_id"`
	Method    string    `json:"method"`
}

type CheckinSavedPayload struct {
	CheckinID  uuid.UUID `json:"checkin_id"`
	ProtocolID uuid.UUID `json:"protocol_id"`
	PatientID  uuid.UUID `json:"patient_id"`
	WeekNumber int       `json:"week_number"`
	RecordedBy string    `json:"recorded_by"`
}
