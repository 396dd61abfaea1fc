package linker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/wellness-api/internal/model"
	"github.com/jwalitptl/wellness-api/internal/repository"
	"github.com/jwalitptl/wellness-api/internal/service/event"
	"github.com/jwalitptl/wellness-api/pkg/logger"
	"github.com/jwalitptl/wellness-api/pkg/metrics"
)

type Mode string

const (
	ModePreview Mode = "preview"
	ModeApply   Mode = "apply"
)

// MatchMethod names the rule that paired an intake with a patient.
type MatchMethod string

const (
	MethodContactID MatchMethod = "ghl_contact_id"
	MethodEmail     MatchMethod = "email"
	MethodPhone     MatchMethod = "phone"
)

type MatchedIntake struct {
	IntakeID uuid.UUID            `json:"intake_id"`
	Name     string               `json:"name"`
	Email    string               `json:"email"`
	Patient  model.PatientSummary `json:"patient"`
	Method   MatchMethod          `json:"match_method"`
	// Linked is set only in apply mode, after the link was stored.
	Linked bool   `json:"linked"`
	Error  string `json:"error,omitempty"`
}

type UnmatchedIntake struct {
	IntakeID uuid.UUID `json:"intake_id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Phone    string    `json:"phone"`
}

type Summary struct {
	TotalUnlinked  int `json:"total_unlinked"`
	MatchedCount   int `json:"matched_count"`
	UnmatchedCount int `json:"unmatched_count"`
	LinkedCount    int `json:"linked_count"`
}

type Result struct {
	Mode      string            `json:"mode"`
	Summary   Summary           `json:"summary"`
	Matched   []MatchedIntake   `json:"matched"`
	Unmatched []UnmatchedIntake `json:"unmatched"`
	Message   string            `json:"message"`
}

type Service struct {
	patients repository.PatientRepository
	intakes  repository.IntakeRepository
	events   event.Emitter
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewService(
	patients repository.PatientRepository,
	intakes repository.IntakeRepository,
	events event.Emitter,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Service {
	if events == nil {
		events = event.Discard{}
	}
	return &Service{
		patients: patients,
		intakes:  intakes,
		events:   events,
		logger:   logger,
		metrics:  metrics,
	}
}

// patientIndex holds the three lookups. The first patient seen for a key keeps it.
type patientIndex struct {
	byContactID map[string]*model.Patient
	byEmail     map[string]*model.Patient
	byPhone     map[string]*model.Patient
}

func buildIndex(patients []*model.Patient) *patientIndex {
	idx := &patientIndex{
		byContactID: make(map[string]*model.Patient, len(patients)),
		byEmail:     make(map[string]*model.Patient, len(patients)),
		byPhone:     make(map[string]*model.Patient, len(patients)),
	}
	put := func(m map[string]*model.Patient, key string, p *model.Patient) {
		if key == "" {
			return
		}
		if _, taken := m[key]; !taken {
			m[key] = p
		}
	}
	for _, p := range patients {
		put(idx.byContactID, normalizeContactID(p.GHLContactID), p)
		put(idx.byEmail, NormalizeEmail(p.Email), p)
		put(idx.byPhone, NormalizePhone(p.Phone), p)
	}
	return idx
}

// match tries contact id, then email, then phone, and stops at the first hit.
func (idx *patientIndex) match(intake *model.Intake) (*model.Patient, MatchMethod, bool) {
	if key := normalizeContactID(intake.GHLContactID); key != "" {
		if p, ok := idx.byContactID[key]; ok {
			return p, MethodContactID, true
		}
	}
	if key := NormalizeEmail(intake.Email); key != "" {
		if p, ok := idx.byEmail[key]; ok {
			return p, MethodEmail, true
		}
	}
	if key := NormalizePhone(intake.Phone); key != "" {
		if p, ok := idx.byPhone[key]; ok {
			return p, MethodPhone, true
		}
	}
	return nil, "", false
}

// ComputeLinks matches every unlinked intake to a patient. In apply mode each
// match is stored; a failed store is reported on that intake and the run goes on.
func (s *Service) ComputeLinks(ctx context.Context, mode Mode) (*Result, error) {
	if mode != ModePreview && mode != ModeApply {
		return nil, fmt.Errorf("unknown link mode %q", mode)
	}
	start := time.Now()
	defer func() {
		s.metrics.LinkRunDuration.Observe(time.Since(start).Seconds())
	}()

	patients, err := s.patients.List(ctx)
	if err != nil {
		s.metrics.LinkRuns.WithLabelValues(string(mode), "error").Inc()
		return nil, fmt.Errorf("failed to load patients: %w", err)
	}
	intakes, err := s.intakes.ListUnlinked(ctx)
	if err != nil {
		s.metrics.LinkRuns.WithLabelValues(string(mode), "error").Inc()
		return nil, fmt.Errorf("failed to load unlinked intakes: %w", err)
	}
	s.metrics.UnlinkedIntakes.Set(float64(len(intakes)))

	idx := buildIndex(patients)
	result := &Result{
		Mode:      resultMode(mode),
		Matched:   make([]MatchedIntake, 0),
		Unmatched: make([]UnmatchedIntake, 0),
	}

	for _, intake := range intakes {
		patient, method, ok := idx.match(intake)
		if !ok {
			result.Unmatched = append(result.Unmatched, UnmatchedIntake{
				IntakeID: intake.ID,
				Name:     intake.DisplayName(),
				Email:    intake.Email,
				Phone:    intake.Phone,
			})
			continue
		}
		s.metrics.LinkMatches.WithLabelValues(string(method)).Inc()

		m := MatchedIntake{
			IntakeID: intake.ID,
			Name:     intake.DisplayName(),
			Email:    intake.Email,
			Patient:  patient.Summary(),
			Method:   method,
		}
		if mode == ModeApply {
			s.link(ctx, intake, patient, &m)
			if m.Linked {
				result.Summary.LinkedCount++
			}
		}
		result.Matched = append(result.Matched, m)
	}

	result.Summary.TotalUnlinked = len(intakes)
	result.Summary.MatchedCount = len(result.Matched)
	result.Summary.UnmatchedCount = len(result.Unmatched)
	result.Message = resultMessage(mode, result.Summary)

	s.metrics.LinkRuns.WithLabelValues(string(mode), "ok").Inc()
	s.logger.Info("Record link run finished",
		"mode", string(mode),
		"total_unlinked", result.Summary.TotalUnlinked,
		"matched", result.Summary.MatchedCount,
		"unmatched", result.Summary.UnmatchedCount,
		"linked", result.Summary.LinkedCount,
		"duration", time.Since(start).String())

	return result, nil
}

func (s *Service) link(ctx context.Context, intake *model.Intake, patient *model.Patient, m *MatchedIntake) {
	if err := s.intakes.LinkPatient(ctx, intake.ID, patient.ID); err != nil {
		s.metrics.LinkFailures.Inc()
		s.logger.Warn("Failed to link intake",
			"intake_id", intake.ID.String(),
			"patient_id", patient.ID.String(),
			"error", err.Error())
		m.Error = err.Error()
		return
	}
	m.Linked = true

	payload := model.IntakeLinkedPayload{IntakeID: intake.ID, PatientID: patient.ID, Method: string(m.Method)}
	if err := s.events.Emit(ctx, model.EventIntakeLinked, payload); err != nil {
		s.logger.Error(err, "Failed to record link event", "intake_id", intake.ID.String())
	}
}

func resultMode(mode Mode) string {
	if mode == ModeApply {
		return "applied"
	}
	return string(ModePreview)
}

func resultMessage(mode Mode, sum Summary) string {
	if mode == ModeApply {
		msg := fmt.Sprintf("Linked %d of %d matched intakes", sum.LinkedCount, sum.MatchedCount)
		if failed := sum.MatchedCount - sum.LinkedCount; failed > 0 {
			msg += fmt.Sprintf(" (%d failed)", failed)
		}
		return msg
	}
	return fmt.Sprintf("Found %d matches among %d unlinked intakes. POST to apply.", sum.MatchedCount, sum.TotalUnlinked)
}
