package memory

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/wellness-api/internal/model"
	apperrors "github.com/jwalitptl/wellness-api/pkg/errors"
)

func TestIntakes_LinkOnlyOnce(t *testing.T) {
	s := NewStore()
	p := s.AddPatient(model.Patient{FirstName: "Ana"})
	i := s.AddIntake(model.Intake{FirstName: "Ana"})
	ctx := context.Background()

	require.NoError(t, s.Intakes().LinkPatient(ctx, i.ID, p.ID))
	err := s.Intakes().LinkPatient(ctx, i.ID, p.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	unlinked, err := s.Intakes().ListUnlinked(ctx)
	require.NoError(t, err)
	assert.Empty(t, unlinked)
}

func TestIntakes_ListUnlinkedNewestFirst(t *testing.T) {
	s := NewStore()
	now := time.Now()
	old := s.AddIntake(model.Intake{SubmittedAt: now.Add(-time.Hour)})
	recent := s.AddIntake(model.Intake{SubmittedAt: now})

	unlinked, err := s.Intakes().ListUnlinked(context.Background())
	require.NoError(t, err)
	require.Len(t, unlinked, 2)
	assert.Equal(t, recent.ID, unlinked[0].ID)
	assert.Equal(t, old.ID, unlinked[1].ID)
}

func TestCheckins_UpsertReplacesAndRefreshesTotals(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	p := s.AddPatient(model.Patient{FirstName: "Ana", LastName: "Lopez"})
	pr := s.AddProtocol(model.Protocol{PatientID: p.ID})

	_, err := s.Checkins().Upsert(ctx, &model.Checkin{ProtocolID: pr.ID, PatientID: p.ID, WeekNumber: 1, RLTSessionsCompleted: 3, HBOTSessionsCompleted: 3})
	require.NoError(t, err)
	_, err = s.Checkins().Upsert(ctx, &model.Checkin{ProtocolID: pr.ID, PatientID: p.ID, WeekNumber: 3, RLTSessionsCompleted: 2, HBOTSessionsCompleted: 1})
	require.NoError(t, err)
	_, err = s.Checkins().Upsert(ctx, &model.Checkin{ProtocolID: pr.ID, PatientID: p.ID, WeekNumber: 1, RLTSessionsCompleted: 1, HBOTSessionsCompleted: 0})
	require.NoError(t, err)

	checkins, err := s.Checkins().ListByProtocol(ctx, pr.ID)
	require.NoError(t, err)
	require.Len(t, checkins, 2)
	assert.Equal(t, 1, checkins[0].RLTSessionsCompleted)

	got, err := s.Protocols().Get(ctx, pr.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.TotalRLTSessions)
	assert.Equal(t, 1, got.TotalHBOTSessions)
	assert.Equal(t, 3, got.CurrentWeek)

	active, err := s.Protocols().ListActive(ctx, model.ProtocolCellularEnergy)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, 2, active[0].WeeksCompleted)
	assert.Equal(t, "Lopez", active[0].LastName)
}

func TestOutbox_Lifecycle(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	ob := s.Outbox()

	require.NoError(t, ob.Create(ctx, &model.OutboxEvent{EventType: model.EventIntakeLinked, Payload: json.RawMessage(`{}`)}))
	claimed, err := ob.ClaimPending(ctx, 5)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	again, err := ob.ClaimPending(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, again)

	require.NoError(t, ob.UpdateStatus(ctx, claimed[0].ID, model.OutboxStatusProcessed, nil))
	deleted, err := ob.DeleteProcessedBefore(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)
	assert.Empty(t, s.Events())
}
