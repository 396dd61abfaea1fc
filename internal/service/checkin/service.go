package checkin

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/wellness-api/internal/model"
	"github.com/jwalitptl/wellness-api/internal/repository"
	"github.com/jwalitptl/wellness-api/internal/service/event"
	apperrors "github.com/jwalitptl/wellness-api/pkg/errors"
	"github.com/jwalitptl/wellness-api/pkg/logger"
	"github.com/jwalitptl/wellness-api/pkg/metrics"
	"github.com/jwalitptl/wellness-api/pkg/validator"
)

const activePatientsKey = "active_patients"

type Service struct {
	protocols repository.ProtocolRepository
	checkins  repository.CheckinRepository
	events    event.Emitter
	validator validator.Validator
	cache     *cache.Cache
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

// NewService wires the tracker. A nil cache disables patient list caching.
func NewService(
	protocols repository.ProtocolRepository,
	checkins repository.CheckinRepository,
	events event.Emitter,
	c *cache.Cache,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Service {
	if events == nil {
		events = event.Discard{}
	}
	return &Service{
		protocols: protocols,
		checkins:  checkins,
		events:    events,
		validator: validator.New(),
		cache:     c,
		logger:    logger,
		metrics:   metrics,
	}
}

func (s *Service) ListActivePatients(ctx context.Context) ([]ActivePatient, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(activePatientsKey); ok {
			s.metrics.PatientCacheHits.Inc()
			return append([]ActivePatient(nil), cached.([]ActivePatient)...), nil
		}
		s.metrics.PatientCacheMisses.Inc()
	}

	protocols, err := s.protocols.ListActive(ctx, model.ProtocolCellularEnergy)
	if err != nil {
		return nil, fmt.Errorf("failed to list active patients: %w", err)
	}

	patients := make([]ActivePatient, 0, len(protocols))
	for _, p := range protocols {
		patients = append(patients, newActivePatient(p))
	}

	if s.cache != nil {
		s.cache.Set(activePatientsKey, append([]ActivePatient(nil), patients...), cache.DefaultExpiration)
	}
	return patients, nil
}

// UpsertCheckin validates the input and saves it as the week's only check-in,
// replacing any earlier one. staff is used when the input names no recorder.
func (s *Service) UpsertCheckin(ctx context.Context, in CheckinInput, staff string) (*model.Checkin, error) {
	if err := s.validator.Validate(&in); err != nil {
		s.reject(err)
		return nil, err
	}

	protocolID := uuid.MustParse(in.ProtocolID)
	patientID := uuid.MustParse(in.PatientID)

	protocol, err := s.protocols.Get(ctx, protocolID)
	if err != nil {
		return nil, err
	}
	if protocol.ProtocolType != model.ProtocolCellularEnergy {
		err := apperrors.NewValidation("protocol_id", "protocol_id is not a cellular energy enrollment")
		s.reject(err)
		return nil, err
	}
	if protocol.PatientID != patientID {
		err := apperrors.NewValidation("patient_id", "patient_id does not match the enrollment")
		s.reject(err)
		return nil, err
	}

	recordedBy := in.RecordedBy
	if recordedBy == "" {
		recordedBy = staff
	}

	saved, err := s.checkins.Upsert(ctx, &model.Checkin{
		ProtocolID:            protocolID,
		PatientID:             patientID,
		WeekNumber:            *in.WeekNumber,
		EnergyLevel:           *in.EnergyLevel,
		SleepQuality:          *in.SleepQuality,
		Recovery:              *in.Recovery,
		MentalClarity:         *in.MentalClarity,
		RLTSessionsCompleted:  *in.RLTSessionsCompleted,
		HBOTSessionsCompleted: *in.HBOTSessionsCompleted,
		Notes:                 in.Notes,
		RecordedBy:            recordedBy,
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Delete(activePatientsKey)
	}
	s.metrics.CheckinsSaved.Inc()
	s.logger.Info("Check-in saved",
		"protocol_id", protocolID.String(),
		"week_number", saved.WeekNumber,
		"recorded_by", recordedBy)

	payload := model.CheckinSavedPayload{
		CheckinID:  saved.ID,
		ProtocolID: saved.ProtocolID,
		PatientID:  saved.PatientID,
		WeekNumber: saved.WeekNumber,
		RecordedBy: saved.RecordedBy,
	}
	if err := s.events.Emit(ctx, model.EventCheckinSaved, payload); err != nil {
		s.logger.Error(err, "Failed to record check-in event", "checkin_id", saved.ID.String())
	}

	return saved, nil
}

func (s *Service) reject(err error) {
	field := "unknown"
	if appErr, ok := apperrors.As(err); ok && appErr.Field != "" {
		field = appErr.Field
	}
	s.metrics.CheckinsRejected.WithLabelValues(field).Inc()
}

// ListCheckins returns the enrollment's check-ins by week.
func (s *Service) ListCheckins(ctx context.Context, protocolID uuid.UUID) (*model.Protocol, []*model.Checkin, error) {
	protocol, err := s.protocols.Get(ctx, protocolID)
	if err != nil {
		return nil, nil, err
	}
	checkins, err := s.checkins.ListByProtocol(ctx, protocolID)
	if err != nil {
		return nil, nil, err
	}
	return protocol, checkins, nil
}

// ListCheckinsForPatient resolves the patient's latest enrollment first.
func (s *Service) ListCheckinsForPatient(ctx context.Context, patientID uuid.UUID) (*model.Protocol, []*model.Checkin, error) {
	protocol, err := s.protocols.LatestForPatient(ctx, patientID, model.ProtocolCellularEnergy)
	if err != nil {
		return nil, nil, err
	}
	checkins, err := s.checkins.ListByProtocol(ctx, protocol.ID)
	if err != nil {
		return nil, nil, err
	}
	return protocol, checkins, nil
}
