// Package memory keeps every repository in process memory. It backs the
// "memory" datastore driver for local runs and the service tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/wellness-api/internal/model"
	"github.com/jwalitptl/wellness-api/internal/repository"
	apperrors "github.com/jwalitptl/wellness-api/pkg/errors"
)

type Store struct {
	mu        sync.RWMutex
	patients  map[uuid.UUID]*model.Patient
	intakes   map[uuid.UUID]*model.Intake
	protocols map[uuid.UUID]*model.Protocol
	checkins  map[uuid.UUID]*model.Checkin
	events    []*model.OutboxEvent
}

func NewStore() *Store {
	return &Store{
		patients:  make(map[uuid.UUID]*model.Patient),
		intakes:   make(map[uuid.UUID]*model.Intake),
		protocols: make(map[uuid.UUID]*model.Protocol),
		checkins:  make(map[uuid.UUID]*model.Checkin),
	}
}

// AddPatient stores a copy of p, assigning an ID and timestamps when missing.
func (s *Store) AddPatient(p model.Patient) *model.Patient {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	s.patients[p.ID] = &p
	out := p
	return &out
}

func (s *Store) AddIntake(i model.Intake) *model.Intake {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	if i.SubmittedAt.IsZero() {
		i.SubmittedAt = time.Now().UTC()
	}
	if i.UpdatedAt.IsZero() {
		i.UpdatedAt = i.SubmittedAt
	}
	s.intakes[i.ID] = &i
	out := i
	return &out
}

func (s *Store) AddProtocol(p model.Protocol) *model.Protocol {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.ProtocolType == "" {
		p.ProtocolType = model.ProtocolCellularEnergy
	}
	if p.CurrentWeek == 0 {
		p.CurrentWeek = 1
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.StartDate.IsZero() {
		p.StartDate = p.CreatedAt
	}
	p.UpdatedAt = p.CreatedAt
	s.protocols[p.ID] = &p
	out := p
	return &out
}

// Intake returns a copy of the stored intake.
func (s *Store) Intake(id uuid.UUID) (*model.Intake, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.intakes[id]
	if !ok {
		return nil, false
	}
	out := *i
	return &out, true
}

// Events returns a snapshot of every recorded outbox event.
func (s *Store) Events() []model.OutboxEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.OutboxEvent, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, *e)
	}
	return out
}

func (s *Store) Patients() repository.PatientRepository   { return patientRepository{s} }
func (s *Store) Intakes() repository.IntakeRepository     { return intakeRepository{s} }
func (s *Store) Protocols() repository.ProtocolRepository { return protocolRepository{s} }
func (s *Store) Checkins() repository.CheckinRepository   { return checkinRepository{s} }
func (s *Store) Outbox() repository.OutboxRepository      { return outboxRepository{s} }

type patientRepository struct{ s *Store }

func (r patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.patients[id]
	if !ok {
		return nil, apperrors.NewNotFound("patient", nil)
	}
	out := *p
	return &out, nil
}

func (r patientRepository) List(ctx context.Context) ([]*model.Patient, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*model.Patient, 0, len(r.s.patients))
	for _, p := range r.s.patients {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

type intakeRepository struct{ s *Store }

func (r intakeRepository) ListUnlinked(ctx context.Context) ([]*model.Intake, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*model.Intake, 0)
	for _, i := range r.s.intakes {
		if i.PatientID != nil {
			continue
		}
		cp := *i
		out = append(out, &cp)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].SubmittedAt.Equal(out[b].SubmittedAt) {
			return out[a].ID.String() < out[b].ID.String()
		}
		return out[a].SubmittedAt.After(out[b].SubmittedAt)
	})
	return out, nil
}

func (r intakeRepository) LinkPatient(ctx context.Context, intakeID, patientID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i, ok := r.s.intakes[intakeID]
	if !ok || i.PatientID != nil {
		return apperrors.NewNotFound("unlinked intake", fmt.Errorf("intake %s is missing or already linked", intakeID))
	}
	pid := patientID
	i.PatientID = &pid
	i.UpdatedAt = time.Now().UTC()
	return nil
}

type protocolRepository struct{ s *Store }

func (r protocolRepository) Get(ctx context.Context, id uuid.UUID) (*model.Protocol, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.protocols[id]
	if !ok {
		return nil, apperrors.NewNotFound("protocol", nil)
	}
	out := *p
	return &out, nil
}

func (r protocolRepository) ListActive(ctx context.Context, protocolType model.ProtocolType) ([]*model.ActiveProtocol, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	weeks := make(map[uuid.UUID]map[int]struct{})
	for _, c := range r.s.checkins {
		if weeks[c.ProtocolID] == nil {
			weeks[c.ProtocolID] = make(map[int]struct{})
		}
		weeks[c.ProtocolID][c.WeekNumber] = struct{}{}
	}

	out := make([]*model.ActiveProtocol, 0)
	for _, p := range r.s.protocols {
		if p.ProtocolType != protocolType {
			continue
		}
		patient, ok := r.s.patients[p.PatientID]
		if !ok {
			continue
		}
		out = append(out, &model.ActiveProtocol{
			Protocol:       *p,
			FirstName:      patient.FirstName,
			LastName:       patient.LastName,
			WeeksCompleted: len(weeks[p.ID]),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].StartDate.After(out[j].StartDate)
	})
	return out, nil
}

func (r protocolRepository) LatestForPatient(ctx context.Context, patientID uuid.UUID, protocolType model.ProtocolType) (*model.Protocol, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var latest *model.Protocol
	for _, p := range r.s.protocols {
		if p.PatientID != patientID || p.ProtocolType != protocolType {
			continue
		}
		if latest == nil || p.StartDate.After(latest.StartDate) {
			latest = p
		}
	}
	if latest == nil {
		return nil, apperrors.NewNotFound("protocol", nil)
	}
	out := *latest
	return &out, nil
}

type checkinRepository struct{ s *Store }

func (r checkinRepository) Upsert(ctx context.Context, checkin *model.Checkin) (*model.Checkin, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	protocol, ok := r.s.protocols[checkin.ProtocolID]
	if !ok {
		return nil, apperrors.NewNotFound("protocol", nil)
	}

	now := time.Now().UTC()
	saved := *checkin
	saved.UpdatedAt = now
	if existing := r.s.findCheckin(checkin.ProtocolID, checkin.WeekNumber); existing != nil {
		saved.ID = existing.ID
		saved.CreatedAt = existing.CreatedAt
	} else {
		if saved.ID == uuid.Nil {
			saved.ID = uuid.New()
		}
		saved.CreatedAt = now
	}
	r.s.checkins[saved.ID] = &saved

	rlt, hbot := 0, 0
	for _, c := range r.s.checkins {
		if c.ProtocolID == protocol.ID {
			rlt += c.RLTSessionsCompleted
			hbot += c.HBOTSessionsCompleted
		}
	}
	protocol.TotalRLTSessions = rlt
	protocol.TotalHBOTSessions = hbot
	if saved.WeekNumber > protocol.CurrentWeek {
		protocol.CurrentWeek = saved.WeekNumber
	}
	protocol.UpdatedAt = now

	out := saved
	return &out, nil
}

// findCheckin requires s.mu to be held.
func (s *Store) findCheckin(protocolID uuid.UUID, week int) *model.Checkin {
	for _, c := range s.checkins {
		if c.ProtocolID == protocolID && c.WeekNumber == week {
			return c
		}
	}
	return nil
}

func (r checkinRepository) ListByProtocol(ctx context.Context, protocolID uuid.UUID) ([]*model.Checkin, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*model.Checkin, 0)
	for _, c := range r.s.checkins {
		if c.ProtocolID == protocolID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WeekNumber < out[j].WeekNumber })
	return out, nil
}

type outboxRepository struct{ s *Store }

func (r outboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	if event == nil || event.Payload == nil {
		return fmt.Errorf("event payload cannot be nil")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	event.ID = uuid.New()
	event.CreatedAt = time.Now().UTC()
	event.UpdatedAt = event.CreatedAt
	event.Status = string(model.OutboxStatusPending)
	cp := *event
	r.s.events = append(r.s.events, &cp)
	return nil
}

func (r outboxRepository) ClaimPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.OutboxEvent
	for _, e := range r.s.events {
		if len(out) >= limit {
			break
		}
		if e.Status != string(model.OutboxStatusPending) && e.Status != string(model.OutboxStatusRetry) {
			continue
		}
		e.Status = string(model.OutboxStatusProcessing)
		e.UpdatedAt = time.Now().UTC()
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (r outboxRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.events {
		if e.ID != id {
			continue
		}
		now := time.Now().UTC()
		e.Status = string(status)
		e.ErrorMessage = errMsg
		e.UpdatedAt = now
		if status == model.OutboxStatusProcessed {
			e.ProcessedAt = &now
		} else {
			e.RetryCount++
		}
		return nil
	}
	return apperrors.NewNotFound("outbox event", nil)
}

func (r outboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.events[:0]
	var deleted int64
	for _, e := range r.s.events {
		if e.Status == string(model.OutboxStatusProcessed) && e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	r.s.events = kept
	return deleted, nil
}
