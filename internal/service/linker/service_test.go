package linker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/wellness-api/internal/model"
	"github.com/jwalitptl/wellness-api/internal/repository"
	"github.com/jwalitptl/wellness-api/internal/repository/memory"
	"github.com/jwalitptl/wellness-api/internal/service/event"
	"github.com/jwalitptl/wellness-api/pkg/logger"
	"github.com/jwalitptl/wellness-api/pkg/metrics"
)

func strPtr(s string) *string { return &s }

func newService(store *memory.Store, intakes repository.IntakeRepository) *Service {
	if intakes == nil {
		intakes = store.Intakes()
	}
	return NewService(store.Patients(), intakes, event.NewEventService(store.Outbox()), logger.Nop(), metrics.New("test", nil))
}

// failingIntakes fails LinkPatient for one intake id.
type failingIntakes struct {
	repository.IntakeRepository
	failID uuid.UUID
}

func (f failingIntakes) LinkPatient(ctx context.Context, intakeID, patientID uuid.UUID) error {
	if intakeID == f.failID {
		return errors.New("write timeout")
	}
	return f.IntakeRepository.LinkPatient(ctx, intakeID, patientID)
}

type brokenPatients struct{}

func (brokenPatients) Get(context.Context, uuid.UUID) (*model.Patient, error) { return nil, nil }
func (brokenPatients) List(context.Context) ([]*model.Patient, error) {
	return nil, errors.New("store unreachable")
}

func TestComputeLinks_EndToEnd(t *testing.T) {
	store := memory.NewStore()
	now := time.Now()
	a := store.AddPatient(model.Patient{FirstName: "Amy", Email: "a@x.com", Base: model.Base{CreatedAt: now.Add(-3 * time.Hour)}})
	store.AddPatient(model.Patient{FirstName: "Bob", Email: "b@x.com", Base: model.Base{CreatedAt: now.Add(-2 * time.Hour)}})
	c := store.AddPatient(model.Patient{FirstName: "Cal", Email: "c@x.com", GHLContactID: strPtr("ghl-c"), Base: model.Base{CreatedAt: now.Add(-time.Hour)}})

	i1 := store.AddIntake(model.Intake{FirstName: "Amy", Email: "A@X.com", SubmittedAt: now.Add(-30 * time.Minute)})
	i2 := store.AddIntake(model.Intake{FirstName: "Zed", Email: "unknown@x.com", SubmittedAt: now.Add(-20 * time.Minute)})
	i3 := store.AddIntake(model.Intake{FirstName: "Cal", Email: "cal@other.com", GHLContactID: strPtr("ghl-c"), SubmittedAt: now.Add(-10 * time.Minute)})

	svc := newService(store, nil)
	ctx := context.Background()

	preview, err := svc.ComputeLinks(ctx, ModePreview)
	require.NoError(t, err)
	assert.Equal(t, "preview", preview.Mode)
	assert.Equal(t, Summary{TotalUnlinked: 3, MatchedCount: 2, UnmatchedCount: 1}, preview.Summary)
	require.Len(t, preview.Matched, 2)
	// Most recent submission first.
	assert.Equal(t, i3.ID, preview.Matched[0].IntakeID)
	assert.Equal(t, MethodContactID, preview.Matched[0].Method)
	assert.Equal(t, c.ID, preview.Matched[0].Patient.ID)
	assert.Equal(t, i1.ID, preview.Matched[1].IntakeID)
	assert.Equal(t, MethodEmail, preview.Matched[1].Method)
	assert.Equal(t, a.ID, preview.Matched[1].Patient.ID)
	require.Len(t, preview.Unmatched, 1)
	assert.Equal(t, i2.ID, preview.Unmatched[0].IntakeID)
	assert.Empty(t, store.Events())

	applied, err := svc.ComputeLinks(ctx, ModeApply)
	require.NoError(t, err)
	assert.Equal(t, "applied", applied.Mode)
	assert.Equal(t, 2, applied.Summary.LinkedCount)

	got1, _ := store.Intake(i1.ID)
	require.NotNil(t, got1.PatientID)
	assert.Equal(t, a.ID, *got1.PatientID)
	got3, _ := store.Intake(i3.ID)
	require.NotNil(t, got3.PatientID)
	assert.Equal(t, c.ID, *got3.PatientID)
	got2, _ := store.Intake(i2.ID)
	assert.Nil(t, got2.PatientID)

	events := store.Events()
	require.Len(t, events, 2)
	assert.Equal(t, model.EventIntakeLinked, events[0].EventType)
}

func TestComputeLinks_PreviewIsIdempotent(t *testing.T) {
	store := memory.NewStore()
	store.AddPatient(model.Patient{Email: "a@x.com", Phone: "9499973988"})
	store.AddIntake(model.Intake{Email: "a@x.com"})
	store.AddIntake(model.Intake{Phone: "(949) 997-3988"})
	store.AddIntake(model.Intake{Email: "nobody@x.com"})

	svc := newService(store, nil)
	first, err := svc.ComputeLinks(context.Background(), ModePreview)
	require.NoError(t, err)
	second, err := svc.ComputeLinks(context.Background(), ModePreview)
	require.NoError(t, err)

	assert.Equal(t, first.Matched, second.Matched)
	assert.Equal(t, first.Unmatched, second.Unmatched)
}

func TestComputeLinks_ContactIDWinsOverEmailAndPhone(t *testing.T) {
	store := memory.NewStore()
	byID := store.AddPatient(model.Patient{GHLContactID: strPtr("crm-1"), Email: "id@x.com"})
	store.AddPatient(model.Patient{Email: "shared@x.com"})
	store.AddPatient(model.Patient{Phone: "9499973988"})
	store.AddIntake(model.Intake{GHLContactID: strPtr("crm-1"), Email: "shared@x.com", Phone: "949-997-3988"})

	res, err := newService(store, nil).ComputeLinks(context.Background(), ModePreview)
	require.NoError(t, err)
	require.Len(t, res.Matched, 1)
	assert.Equal(t, byID.ID, res.Matched[0].Patient.ID)
	assert.Equal(t, MethodContactID, res.Matched[0].Method)
}

func TestComputeLinks_PhoneNormalization(t *testing.T) {
	store := memory.NewStore()
	p := store.AddPatient(model.Patient{Phone: "19499973988"})
	store.AddPatient(model.Patient{Phone: "123"})
	matched := store.AddIntake(model.Intake{Phone: "(949) 997-3988"})
	short := store.AddIntake(model.Intake{Phone: "123"})

	res, err := newService(store, nil).ComputeLinks(context.Background(), ModePreview)
	require.NoError(t, err)
	require.Len(t, res.Matched, 1)
	assert.Equal(t, matched.ID, res.Matched[0].IntakeID)
	assert.Equal(t, p.ID, res.Matched[0].Patient.ID)
	assert.Equal(t, MethodPhone, res.Matched[0].Method)
	require.Len(t, res.Unmatched, 1)
	assert.Equal(t, short.ID, res.Unmatched[0].IntakeID)
}

func TestComputeLinks_OldestPatientWinsCollisions(t *testing.T) {
	store := memory.NewStore()
	now := time.Now()
	oldest := store.AddPatient(model.Patient{Email: "dup@x.com", Base: model.Base{CreatedAt: now.Add(-time.Hour)}})
	store.AddPatient(model.Patient{Email: "DUP@x.com", Base: model.Base{CreatedAt: now}})
	store.AddIntake(model.Intake{Email: "dup@x.com"})

	res, err := newService(store, nil).ComputeLinks(context.Background(), ModePreview)
	require.NoError(t, err)
	require.Len(t, res.Matched, 1)
	assert.Equal(t, oldest.ID, res.Matched[0].Patient.ID)
}

func TestComputeLinks_EmptyKeysNeverMatch(t *testing.T) {
	store := memory.NewStore()
	store.AddPatient(model.Patient{GHLContactID: strPtr(""), Email: ""})
	store.AddIntake(model.Intake{GHLContactID: strPtr(""), Email: "  "})

	res, err := newService(store, nil).ComputeLinks(context.Background(), ModePreview)
	require.NoError(t, err)
	assert.Empty(t, res.Matched)
	assert.Len(t, res.Unmatched, 1)
}

func TestComputeLinks_ApplyContinuesPastFailure(t *testing.T) {
	store := memory.NewStore()
	now := time.Now()
	store.AddPatient(model.Patient{Email: "a@x.com"})
	store.AddPatient(model.Patient{Email: "b@x.com"})
	store.AddPatient(model.Patient{Email: "c@x.com"})
	i1 := store.AddIntake(model.Intake{Email: "a@x.com", SubmittedAt: now.Add(-3 * time.Minute)})
	i2 := store.AddIntake(model.Intake{Email: "b@x.com", SubmittedAt: now.Add(-2 * time.Minute)})
	i3 := store.AddIntake(model.Intake{Email: "c@x.com", SubmittedAt: now.Add(-time.Minute)})

	svc := newService(store, failingIntakes{IntakeRepository: store.Intakes(), failID: i2.ID})
	res, err := svc.ComputeLinks(context.Background(), ModeApply)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Summary.MatchedCount)
	assert.Equal(t, 2, res.Summary.LinkedCount)
	require.Len(t, res.Matched, 3)
	for _, m := range res.Matched {
		if m.IntakeID == i2.ID {
			assert.False(t, m.Linked)
			assert.Contains(t, m.Error, "write timeout")
		} else {
			assert.True(t, m.Linked)
		}
	}

	for _, id := range []uuid.UUID{i1.ID, i3.ID} {
		got, _ := store.Intake(id)
		assert.NotNil(t, got.PatientID)
	}
	got2, _ := store.Intake(i2.ID)
	assert.Nil(t, got2.PatientID)
	assert.Contains(t, res.Message, "1 failed")
}

func TestComputeLinks_BulkReadFailure(t *testing.T) {
	store := memory.NewStore()
	store.AddIntake(model.Intake{Email: "a@x.com"})
	svc := NewService(brokenPatients{}, store.Intakes(), nil, logger.Nop(), metrics.New("test", nil))

	res, err := svc.ComputeLinks(context.Background(), ModeApply)
	assert.Nil(t, res)
	assert.ErrorContains(t, err, "store unreachable")
}

func TestComputeLinks_RejectsUnknownMode(t *testing.T) {
	_, err := newService(memory.NewStore(), nil).ComputeLinks(context.Background(), Mode("dry"))
	assert.Error(t, err)
}
