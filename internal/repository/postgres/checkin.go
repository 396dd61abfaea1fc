package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/wellness-api/internal/model"
	"github.com/jwalitptl/wellness-api/internal/repository"
)

const checkinColumns = `id, protocol_id, patient_id, week_number, energy_level, sleep_quality,
	recovery, mental_clarity, rlt_sessions_completed, hbot_sessions_completed,
	notes, recorded_by, created_at, updated_at`

type checkinRepository struct {
	BaseRepository
}

func NewCheckinRepository(db *sqlx.DB) repository.CheckinRepository {
	return &checkinRepository{NewBaseRepository(db)}
}

func (r *checkinRepository) Upsert(ctx context.Context, checkin *model.Checkin) (*model.Checkin, error) {
	upsert := `
		INSERT INTO protocol_checkins (
			id, protocol_id, patient_id, week_number, energy_level, sleep_quality,
			recovery, mental_clarity, rlt_sessions_completed, hbot_sessions_completed,
			notes, recorded_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
		ON CONFLICT (protocol_id, week_number) DO UPDATE SET
			patient_id = EXCLUDED.patient_id,
			energy_level = EXCLUDED.energy_level,
			sleep_quality = EXCLUDED.sleep_quality,
			recovery = EXCLUDED.recovery,
			mental_clarity = EXCLUDED.mental_clarity,
			rlt_sessions_completed = EXCLUDED.rlt_sessions_completed,
			hbot_sessions_completed = EXCLUDED.hbot_sessions_completed,
			notes = EXCLUDED.notes,
			recorded_by = EXCLUDED.recorded_by,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + checkinColumns

	refresh := `
		UPDATE patient_protocols pp SET
			total_rlt_sessions = t.rlt,
			total_hbot_sessions = t.hbot,
			current_week = GREATEST(pp.current_week, $2),
			updated_at = NOW()
		FROM (
			SELECT COALESCE(SUM(rlt_sessions_completed), 0) AS rlt,
				COALESCE(SUM(hbot_sessions_completed), 0) AS hbot
			FROM protocol_checkins
			WHERE protocol_id = $1
		) t
		WHERE pp.id = $1
	`

	if checkin.ID == uuid.Nil {
		checkin.ID = uuid.New()
	}
	now := time.Now().UTC()

	var saved model.Checkin
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &saved, upsert,
			checkin.ID,
			checkin.ProtocolID,
			checkin.PatientID,
			checkin.WeekNumber,
			checkin.EnergyLevel,
			checkin.SleepQuality,
			checkin.Recovery,
			checkin.MentalClarity,
			checkin.RLTSessionsCompleted,
			checkin.HBOTSessionsCompleted,
			checkin.Notes,
			checkin.RecordedBy,
			now,
		); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, refresh, checkin.ProtocolID, checkin.WeekNumber)
		return err
	})
	if err != nil {
		return nil, storeError("save check-in", "protocol", err)
	}
	return &saved, nil
}

func (r *checkinRepository) ListByProtocol(ctx context.Context, protocolID uuid.UUID) ([]*model.Checkin, error) {
	query := `SELECT ` + checkinColumns + ` FROM protocol_checkins WHERE protocol_id = $1 ORDER BY week_number ASC`
	var checkins []*model.Checkin
	if err := r.db.SelectContext(ctx, &checkins, query, protocolID); err != nil {
		return nil, storeError("list check-ins", "check-in", err)
	}
	return checkins, nil
}
