package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/wellness-api/internal/model"
)

// All repository interfaces in one file
type (
	// PatientRepository reads established patients.
	PatientRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		// List returns every patient, oldest first.
		List(ctx context.Context) ([]*model.Patient, error)
	}

	// IntakeRepository reads intake submissions and links them to patients.
	IntakeRepository interface {
		// ListUnlinked returns intakes without a patient, most recent submission first.
		ListUnlinked(ctx context.Context) ([]*model.Intake, error)
		// LinkPatient sets the patient reference on an intake that has none.
		LinkPatient(ctx context.Context, intakeID, patientID uuid.UUID) error
	}

	ProtocolRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Protocol, error)
		// ListActive returns every enrollment of the given type with patient names
		// and recorded week counts.
		ListActive(ctx context.Context, protocolType model.ProtocolType) ([]*model.ActiveProtocol, error)
		// LatestForPatient returns the patient's most recent enrollment of the type.
		LatestForPatient(ctx context.Context, patientID uuid.UUID, protocolType model.ProtocolType) (*model.Protocol, error)
	}

	CheckinRepository interface {
		// Upsert inserts or fully replaces the check-in for (ProtocolID, WeekNumber)
		// and refreshes the enrollment's session totals and current week.
		Upsert(ctx context.Context, checkin *model.Checkin) (*model.Checkin, error)
		// ListByProtocol returns the enrollment's check-ins ordered by week.
		ListByProtocol(ctx context.Context, protocolID uuid.UUID) ([]*model.Checkin, error)
	}

	// EventRecorder stores domain events for asynchronous delivery.
	EventRecorder interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
	}

	// OutboxRepository is the relay side of the outbox.
	OutboxRepository interface {
		EventRecorder
		// ClaimPending marks up to limit pending or retryable events as processing
		// and returns them. Concurrent callers never claim the same event.
		ClaimPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
