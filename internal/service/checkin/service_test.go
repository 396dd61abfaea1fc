package checkin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/wellness-api/internal/model"
	"github.com/jwalitptl/wellness-api/internal/repository"
	"github.com/jwalitptl/wellness-api/internal/repository/memory"
	"github.com/jwalitptl/wellness-api/internal/service/event"
	apperrors "github.com/jwalitptl/wellness-api/pkg/errors"
	"github.com/jwalitptl/wellness-api/pkg/logger"
	"github.com/jwalitptl/wellness-api/pkg/metrics"
)

func intPtr(i int) *int { return &i }

type fixture struct {
	store    *memory.Store
	svc      *Service
	patient  *model.Patient
	protocol *model.Protocol
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	p := store.AddPatient(model.Patient{FirstName: "Ana", LastName: "Lopez", Email: "ana@x.com"})
	pr := store.AddProtocol(model.Protocol{PatientID: p.ID, StartDate: time.Now().Add(-14 * 24 * time.Hour)})
	svc := NewService(store.Protocols(), store.Checkins(), event.NewEventService(store.Outbox()),
		cache.New(time.Minute, time.Minute), logger.Nop(), metrics.New("test", nil))
	return &fixture{store: store, svc: svc, patient: p, protocol: pr}
}

func (f *fixture) input(week, energy int) CheckinInput {
	return CheckinInput{
		ProtocolID:            f.protocol.ID.String(),
		PatientID:             f.patient.ID.String(),
		WeekNumber:            intPtr(week),
		EnergyLevel:           intPtr(energy),
		SleepQuality:          intPtr(6),
		Recovery:              intPtr(6),
		MentalClarity:         intPtr(6),
		RLTSessionsCompleted:  intPtr(3),
		HBOTSessionsCompleted: intPtr(2),
		Notes:                 "felt good",
	}
}

func TestUpsertCheckin_ReplacesSameWeek(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.UpsertCheckin(ctx, f.input(3, 5), "Dr. Kim")
	require.NoError(t, err)
	saved, err := f.svc.UpsertCheckin(ctx, f.input(3, 8), "Dr. Kim")
	require.NoError(t, err)
	assert.Equal(t, 8, saved.EnergyLevel)
	assert.Equal(t, "Dr. Kim", saved.RecordedBy)

	_, checkins, err := f.svc.ListCheckins(ctx, f.protocol.ID)
	require.NoError(t, err)
	require.Len(t, checkins, 1)
	assert.Equal(t, 3, checkins[0].WeekNumber)
	assert.Equal(t, 8, checkins[0].EnergyLevel)

	got, err := f.store.Protocols().Get(ctx, f.protocol.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.CurrentWeek)
	assert.Equal(t, 3, got.TotalRLTSessions)
	assert.Equal(t, 2, got.TotalHBOTSessions)

	events := f.store.Events()
	require.Len(t, events, 2)
	assert.Equal(t, model.EventCheckinSaved, events[1].EventType)
}

func TestUpsertCheckin_RangeValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		edit  func(*CheckinInput)
		field string
	}{
		{"week 7", func(in *CheckinInput) { in.WeekNumber = intPtr(7) }, "week_number"},
		{"week 0", func(in *CheckinInput) { in.WeekNumber = intPtr(0) }, "week_number"},
		{"energy 11", func(in *CheckinInput) { in.EnergyLevel = intPtr(11) }, "energy_level"},
		{"missing sleep", func(in *CheckinInput) { in.SleepQuality = nil }, "sleep_quality"},
		{"hbot 4", func(in *CheckinInput) { in.HBOTSessionsCompleted = intPtr(4) }, "hbot_sessions_completed"},
		{"rlt -1", func(in *CheckinInput) { in.RLTSessionsCompleted = intPtr(-1) }, "rlt_sessions_completed"},
		{"bad protocol id", func(in *CheckinInput) { in.ProtocolID = "abc" }, "protocol_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := f.input(2, 5)
			tt.edit(&in)
			_, err := f.svc.UpsertCheckin(ctx, in, "staff")
			appErr, ok := apperrors.As(err)
			require.True(t, ok)
			assert.Equal(t, apperrors.ErrValidation, appErr.Code)
			assert.Equal(t, tt.field, appErr.Field)
		})
	}

	_, checkins, err := f.svc.ListCheckins(ctx, f.protocol.ID)
	require.NoError(t, err)
	assert.Empty(t, checkins)
	assert.Empty(t, f.store.Events())
}

func TestUpsertCheckin_UnknownEnrollment(t *testing.T) {
	f := newFixture(t)
	in := f.input(1, 5)
	in.ProtocolID = uuid.NewString()

	_, err := f.svc.UpsertCheckin(context.Background(), in, "staff")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestUpsertCheckin_PatientMismatch(t *testing.T) {
	f := newFixture(t)
	in := f.input(1, 5)
	in.PatientID = uuid.NewString()

	_, err := f.svc.UpsertCheckin(context.Background(), in, "staff")
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "patient_id", appErr.Field)
}

type failingCheckins struct {
	repository.CheckinRepository
}

func (failingCheckins) Upsert(context.Context, *model.Checkin) (*model.Checkin, error) {
	return nil, apperrors.NewPersistence("save check-in", errors.New("connection refused"))
}

func TestUpsertCheckin_PersistenceErrorIsRetryable(t *testing.T) {
	f := newFixture(t)
	svc := NewService(f.store.Protocols(), failingCheckins{f.store.Checkins()}, nil, nil, logger.Nop(), metrics.New("test", nil))

	_, err := svc.UpsertCheckin(context.Background(), f.input(1, 5), "staff")
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.True(t, appErr.Retryable())
}

func TestListActivePatients_ProgressAndCacheInvalidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	patients, err := f.svc.ListActivePatients(ctx)
	require.NoError(t, err)
	require.Len(t, patients, 1)
	assert.Equal(t, 0, patients[0].WeeksCompleted)
	assert.Equal(t, f.protocol.ID, patients[0].ProtocolID)

	_, err = f.svc.UpsertCheckin(ctx, f.input(1, 4), "staff")
	require.NoError(t, err)
	_, err = f.svc.UpsertCheckin(ctx, f.input(2, 5), "staff")
	require.NoError(t, err)
	_, err = f.svc.UpsertCheckin(ctx, f.input(3, 6), "staff")
	require.NoError(t, err)

	patients, err = f.svc.ListActivePatients(ctx)
	require.NoError(t, err)
	require.Len(t, patients, 1)
	assert.Equal(t, 3, patients[0].WeeksCompleted)
	assert.InDelta(t, 0.5, patients[0].Progress, 1e-9)
	assert.Equal(t, 9, patients[0].TotalRLTSessions)
	assert.Equal(t, "Lopez", patients[0].LastName)
}

func TestListActivePatients_CallersCannotCorruptCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.ListActivePatients(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)
	first[0].LastName = "changed"

	second, err := f.svc.ListActivePatients(ctx)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "Lopez", second[0].LastName)
	second[0].WeeksCompleted = 99

	third, err := f.svc.ListActivePatients(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Lopez", third[0].LastName)
	assert.Equal(t, 0, third[0].WeeksCompleted)
}

func TestListCheckinsForPatient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.UpsertCheckin(ctx, f.input(1, 4), "staff")
	require.NoError(t, err)

	protocol, checkins, err := f.svc.ListCheckinsForPatient(ctx, f.patient.ID)
	require.NoError(t, err)
	assert.Equal(t, f.protocol.ID, protocol.ID)
	assert.Len(t, checkins, 1)

	_, _, err = f.svc.ListCheckinsForPatient(ctx, uuid.New())
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestImprovement(t *testing.T) {
	week1 := &model.Checkin{WeekNumber: 1, EnergyLevel: 4, SleepQuality: 5, Recovery: 6, MentalClarity: 7}
	week3 := &model.Checkin{WeekNumber: 3, EnergyLevel: 9, SleepQuality: 5, Recovery: 6, MentalClarity: 7}
	week5 := &model.Checkin{WeekNumber: 5, EnergyLevel: 7, SleepQuality: 4, Recovery: 8, MentalClarity: 7}

	got := Improvement([]*model.Checkin{week1, week3, week5})
	require.NotNil(t, got)
	assert.Equal(t, model.Improvement{FromWeek: 1, ToWeek: 5, EnergyLevel: 3, SleepQuality: -1, Recovery: 2, MentalClarity: 0}, *got)

	assert.Nil(t, Improvement([]*model.Checkin{week1}))
	assert.Nil(t, Improvement(nil))
	assert.Nil(t, Improvement([]*model.Checkin{week3, week5}))
}
