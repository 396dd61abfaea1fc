package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/wellness-api/internal/model"
	"github.com/jwalitptl/wellness-api/internal/repository"
)

const protocolColumns = `id, patient_id, protocol_type, start_date, current_week,
	total_rlt_sessions, total_hbot_sessions, created_at, updated_at`

type protocolRepository struct {
	db *sqlx.DB
}

func NewProtocolRepository(db *sqlx.DB) repository.ProtocolRepository {
	return &protocolRepository{db: db}
}

func (r *protocolRepository) Get(ctx context.Context, id uuid.UUID) (*model.Protocol, error) {
	query := `SELECT ` + protocolColumns + ` FROM patient_protocols WHERE id = $1`
	var protocol model.Protocol
	if err := r.db.GetContext(ctx, &protocol, query, id); err != nil {
		return nil, storeError("get protocol", "protocol", err)
	}
	return &protocol, nil
}

func (r *protocolRepository) ListActive(ctx context.Context, protocolType model.ProtocolType) ([]*model.ActiveProtocol, error) {
	query := `
		SELECT pp.id, pp.patient_id, pp.protocol_type, pp.start_date, pp.current_week,
			pp.total_rlt_sessions, pp.total_hbot_sessions, pp.created_at, pp.updated_at,
			p.first_name, p.last_name,
			COUNT(DISTINCT c.week_number) AS weeks_completed
		FROM patient_protocols pp
		JOIN patients p ON p.id = pp.patient_id
		LEFT JOIN protocol_checkins c ON c.protocol_id = pp.id
		WHERE pp.protocol_type = $1
		GROUP BY pp.id, p.id
		ORDER BY pp.start_date DESC, pp.id
	`
	var protocols []*model.ActiveProtocol
	if err := r.db.SelectContext(ctx, &protocols, query, protocolType); err != nil {
		return nil, storeError("list active protocols", "protocol", err)
	}
	return protocols, nil
}

func (r *protocolRepository) LatestForPatient(ctx context.Context, patientID uuid.UUID, protocolType model.ProtocolType) (*model.Protocol, error) {
	query := `
		SELECT ` + protocolColumns + `
		FROM patient_protocols
		WHERE patient_id = $1 AND protocol_type = $2
		ORDER BY start_date DESC, created_at DESC
		LIMIT 1
	`
	var protocol model.Protocol
	if err := r.db.GetContext(ctx, &protocol, query, patientID, protocolType); err != nil {
		return nil, storeError("get patient protocol", "protocol", err)
	}
	return &protocol, nil
}
