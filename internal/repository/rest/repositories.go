package rest

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/wellness-api/internal/model"
	apperrors "github.com/jwalitptl/wellness-api/pkg/errors"
)

type patientRepository struct{ s *Store }

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	var rows []*model.Patient
	resp, err := r.s.request(ctx).
		SetQueryParam("id", "eq."+id.String()).
		SetResult(&rows).
		Get(tablePatients)
	if err := r.s.check("get patient", resp, err); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperrors.NewNotFound("patient", nil)
	}
	return rows[0], nil
}

func (r *patientRepository) List(ctx context.Context) ([]*model.Patient, error) {
	var rows []*model.Patient
	resp, err := r.s.request(ctx).
		SetQueryParam("order", "created_at.asc,id.asc").
		SetResult(&rows).
		Get(tablePatients)
	if err := r.s.check("list patients", resp, err); err != nil {
		return nil, err
	}
	return rows, nil
}

type intakeRepository struct{ s *Store }

func (r *intakeRepository) ListUnlinked(ctx context.Context) ([]*model.Intake, error) {
	var rows []*model.Intake
	resp, err := r.s.request(ctx).
		SetQueryParams(map[string]string{
			"patient_id": "is.null",
			"order":      "submitted_at.desc",
		}).
		SetResult(&rows).
		Get(tableIntakes)
	if err := r.s.check("list unlinked intakes", resp, err); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *intakeRepository) LinkPatient(ctx context.Context, intakeID, patientID uuid.UUID) error {
	var rows []*model.Intake
	resp, err := r.s.request(ctx).
		SetQueryParams(map[string]string{
			"id":         "eq." + intakeID.String(),
			"patient_id": "is.null",
		}).
		SetHeader("Prefer", "return=representation").
		SetBody(map[string]interface{}{
			"patient_id": patientID,
			"updated_at": time.Now().UTC(),
		}).
		SetResult(&rows).
		Patch(tableIntakes)
	if err := r.s.check("link intake", resp, err); err != nil {
		return err
	}
	if len(rows) == 0 {
		return r.confirmLinked(ctx, intakeID, patientID)
	}
	return nil
}

// confirmLinked accepts an intake that already points at patientID, which is
// what an earlier attempt whose response never arrived leaves behind.
func (r *intakeRepository) confirmLinked(ctx context.Context, intakeID, patientID uuid.UUID) error {
	var rows []*model.Intake
	resp, err := r.s.request(ctx).
		SetQueryParams(map[string]string{
			"select": "id,patient_id",
			"id":     "eq." + intakeID.String(),
		}).
		SetResult(&rows).
		Get(tableIntakes)
	if err := r.s.check("read intake", resp, err); err != nil {
		return err
	}
	if len(rows) == 1 && rows[0].PatientID != nil && *rows[0].PatientID == patientID {
		return nil
	}
	return apperrors.NewNotFound("unlinked intake", fmt.Errorf("intake %s is missing or already linked", intakeID))
}

type protocolRepository struct{ s *Store }

type activeRow struct {
	model.Protocol
	Patient struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	} `json:"patients"`
}

func (r *protocolRepository) Get(ctx context.Context, id uuid.UUID) (*model.Protocol, error) {
	var rows []*model.Protocol
	resp, err := r.s.request(ctx).
		SetQueryParam("id", "eq."+id.String()).
		SetResult(&rows).
		Get(tableProtocols)
	if err := r.s.check("get protocol", resp, err); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperrors.NewNotFound("protocol", nil)
	}
	return rows[0], nil
}

func (r *protocolRepository) ListActive(ctx context.Context, protocolType model.ProtocolType) ([]*model.ActiveProtocol, error) {
	var rows []activeRow
	resp, err := r.s.request(ctx).
		SetQueryParams(map[string]string{
			"select":        "*,patients(first_name,last_name)",
			"protocol_type": "eq." + string(protocolType),
			"order":         "start_date.desc,id.asc",
		}).
		SetResult(&rows).
		Get(tableProtocols)
	if err := r.s.check("list active protocols", resp, err); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []*model.ActiveProtocol{}, nil
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID.String())
	}
	var weeks []struct {
		ProtocolID uuid.UUID `json:"protocol_id"`
		WeekNumber int       `json:"week_number"`
	}
	resp, err = r.s.request(ctx).
		SetQueryParams(map[string]string{
			"select":      "protocol_id,week_number",
			"protocol_id": "in.(" + strings.Join(ids, ",") + ")",
		}).
		SetResult(&weeks).
		Get(tableCheckins)
	if err := r.s.check("count check-in weeks", resp, err); err != nil {
		return nil, err
	}

	recorded := make(map[uuid.UUID]map[int]struct{})
	for _, w := range weeks {
		if recorded[w.ProtocolID] == nil {
			recorded[w.ProtocolID] = make(map[int]struct{})
		}
		recorded[w.ProtocolID][w.WeekNumber] = struct{}{}
	}

	out := make([]*model.ActiveProtocol, 0, len(rows))
	for _, row := range rows {
		out = append(out, &model.ActiveProtocol{
			Protocol:       row.Protocol,
			FirstName:      row.Patient.FirstName,
			LastName:       row.Patient.LastName,
			WeeksCompleted: len(recorded[row.ID]),
		})
	}
	return out, nil
}

func (r *protocolRepository) LatestForPatient(ctx context.Context, patientID uuid.UUID, protocolType model.ProtocolType) (*model.Protocol, error) {
	var rows []*model.Protocol
	resp, err := r.s.request(ctx).
		SetQueryParams(map[string]string{
			"patient_id":    "eq." + patientID.String(),
			"protocol_type": "eq." + string(protocolType),
			"order":         "start_date.desc,created_at.desc",
			"limit":         "1",
		}).
		SetResult(&rows).
		Get(tableProtocols)
	if err := r.s.check("get patient protocol", resp, err); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperrors.NewNotFound("protocol", nil)
	}
	return rows[0], nil
}

type checkinRepository struct{ s *Store }

// checkinWrite omits id and created_at so a merge on (protocol_id, week_number)
// keeps the original row identity.
type checkinWrite struct {
	ProtocolID            uuid.UUID `json:"protocol_id"`
	PatientID             uuid.UUID `json:"patient_id"`
	WeekNumber            int       `json:"week_number"`
	EnergyLevel           int       `json:"energy_level"`
	SleepQuality          int       `json:"sleep_quality"`
	Recovery              int       `json:"recovery"`
	MentalClarity         int       `json:"mental_clarity"`
	RLTSessionsCompleted  int       `json:"rlt_sessions_completed"`
	HBOTSessionsCompleted int       `json:"hbot_sessions_completed"`
	Notes                 string    `json:"notes"`
	RecordedBy            string    `json:"recorded_by"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// Upsert saves the check-in and then rewrites the enrollment totals. The two
// writes are separate requests; a failure between them leaves stale totals
// until the next save for that enrollment.
func (r *checkinRepository) Upsert(ctx context.Context, checkin *model.Checkin) (*model.Checkin, error) {
	body := checkinWrite{
		ProtocolID:            checkin.ProtocolID,
		PatientID:             checkin.PatientID,
		WeekNumber:            checkin.WeekNumber,
		EnergyLevel:           checkin.EnergyLevel,
		SleepQuality:          checkin.SleepQuality,
		Recovery:              checkin.Recovery,
		MentalClarity:         checkin.MentalClarity,
		RLTSessionsCompleted:  checkin.RLTSessionsCompleted,
		HBOTSessionsCompleted: checkin.HBOTSessionsCompleted,
		Notes:                 checkin.Notes,
		RecordedBy:            checkin.RecordedBy,
		UpdatedAt:             time.Now().UTC(),
	}

	var saved []*model.Checkin
	resp, err := r.s.request(ctx).
		SetQueryParam("on_conflict", "protocol_id,week_number").
		SetHeader("Prefer", "resolution=merge-duplicates,return=representation").
		SetBody([]checkinWrite{body}).
		SetResult(&saved).
		Post(tableCheckins)
	if err := r.s.check("save check-in", resp, err); err != nil {
		return nil, err
	}
	if len(saved) == 0 {
		return nil, apperrors.NewPersistence("save check-in", fmt.Errorf("empty representation"))
	}

	if err := r.refreshTotals(ctx, checkin.ProtocolID); err != nil {
		return nil, err
	}
	return saved[0], nil
}

func (r *checkinRepository) refreshTotals(ctx context.Context, protocolID uuid.UUID) error {
	checkins, err := r.ListByProtocol(ctx, protocolID)
	if err != nil {
		return err
	}
	rlt, hbot, week := 0, 0, 1
	for _, c := range checkins {
		rlt += c.RLTSessionsCompleted
		hbot += c.HBOTSessionsCompleted
		if c.WeekNumber > week {
			week = c.WeekNumber
		}
	}

	protocols := &protocolRepository{r.s}
	current, err := protocols.Get(ctx, protocolID)
	if err != nil {
		return err
	}
	if current.CurrentWeek > week {
		week = current.CurrentWeek
	}

	resp, err := r.s.request(ctx).
		SetQueryParam("id", "eq."+protocolID.String()).
		SetBody(map[string]interface{}{
			"total_rlt_sessions":  rlt,
			"total_hbot_sessions": hbot,
			"current_week":        week,
			"updated_at":          time.Now().UTC(),
		}).
		Patch(tableProtocols)
	return r.s.check("update protocol totals", resp, err)
}

func (r *checkinRepository) ListByProtocol(ctx context.Context, protocolID uuid.UUID) ([]*model.Checkin, error) {
	var rows []*model.Checkin
	resp, err := r.s.request(ctx).
		SetQueryParams(map[string]string{
			"protocol_id": "eq." + protocolID.String(),
			"order":       "week_number.asc",
		}).
		SetResult(&rows).
		Get(tableCheckins)
	if err := r.s.check("list check-ins", resp, err); err != nil {
		return nil, err
	}
	return rows, nil
}

type outboxRepository struct{ s *Store }

func (r *outboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	if event == nil || event.Payload == nil {
		return fmt.Errorf("event payload cannot be nil")
	}
	event.ID = uuid.New()
	event.CreatedAt = time.Now().UTC()
	event.UpdatedAt = event.CreatedAt
	event.Status = string(model.OutboxStatusPending)

	resp, err := r.s.request(ctx).
		SetBody(map[string]interface{}{
			"id":         event.ID,
			"event_type": event.EventType,
			"payload":    event.Payload,
			"status":     event.Status,
			"created_at": event.CreatedAt,
			"updated_at": event.UpdatedAt,
		}).
		Post(tableOutbox)
	return r.s.check("create outbox event", resp, err)
}

// ClaimPending reads candidates, then claims each with a conditional PATCH so
// that a concurrent relay cannot take the same event.
func (r *outboxRepository) ClaimPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	var candidates []*model.OutboxEvent
	resp, err := r.s.request(ctx).
		SetQueryParams(map[string]string{
			"status": "in.(pending,retry)",
			"order":  "created_at.asc",
			"limit":  strconv.Itoa(limit),
		}).
		SetResult(&candidates).
		Get(tableOutbox)
	if err := r.s.check("read pending events", resp, err); err != nil {
		return nil, err
	}

	claimed := make([]*model.OutboxEvent, 0, len(candidates))
	for _, c := range candidates {
		var rows []*model.OutboxEvent
		resp, err := r.s.request(ctx).
			SetQueryParams(map[string]string{
				"id":     "eq." + c.ID.String(),
				"status": "in.(pending,retry)",
			}).
			SetHeader("Prefer", "return=representation").
			SetBody(map[string]interface{}{
				"status":     model.OutboxStatusProcessing,
				"updated_at": time.Now().UTC(),
			}).
			SetResult(&rows).
			Patch(tableOutbox)
		if err := r.s.check("claim event", resp, err); err != nil {
			return claimed, err
		}
		claimed = append(claimed, rows...)
	}
	return claimed, nil
}

func (r *outboxRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string) error {
	now := time.Now().UTC()
	body := map[string]interface{}{
		"status":        status,
		"error_message": errMsg,
		"updated_at":    now,
	}
	if status == model.OutboxStatusProcessed {
		body["processed_at"] = now
	}
	resp, err := r.s.request(ctx).
		SetQueryParam("id", "eq."+id.String()).
		SetBody(body).
		Patch(tableOutbox)
	return r.s.check("update outbox event", resp, err)
}

func (r *outboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	var rows []struct {
		ID uuid.UUID `json:"id"`
	}
	resp, err := r.s.request(ctx).
		SetQueryParams(map[string]string{
			"status":       "eq.processed",
			"processed_at": "lt." + before.UTC().Format(time.RFC3339),
			"select":       "id",
		}).
		SetHeader("Prefer", "return=representation").
		SetResult(&rows).
		Delete(tableOutbox)
	if err := r.s.check("delete processed events", resp, err); err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}
