package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/wellness-api/internal/model"
	"github.com/jwalitptl/wellness-api/internal/repository"
	apperrors "github.com/jwalitptl/wellness-api/pkg/errors"
)

type intakeRepository struct {
	db *sqlx.DB
}

func NewIntakeRepository(db *sqlx.DB) repository.IntakeRepository {
	return &intakeRepository{db: db}
}

func (r *intakeRepository) ListUnlinked(ctx context.Context) ([]*model.Intake, error) {
	query := `
		SELECT id, first_name, last_name, email, phone, ghl_contact_id, patient_id, submitted_at, updated_at
		FROM patient_intakes
		WHERE patient_id IS NULL
		ORDER BY submitted_at DESC
	`
	var intakes []*model.Intake
	if err := r.db.SelectContext(ctx, &intakes, query); err != nil {
		return nil, storeError("list unlinked intakes", "intake", err)
	}
	return intakes, nil
}

func (r *intakeRepository) LinkPatient(ctx context.Context, intakeID, patientID uuid.UUID) error {
	query := `
		UPDATE patient_intakes
		SET patient_id = $1, updated_at = NOW()
		WHERE id = $2 AND patient_id IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, patientID, intakeID)
	if err != nil {
		return storeError("link intake", "intake", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return storeError("link intake", "intake", err)
	}
	if rows == 0 {
		return apperrors.NewNotFound("unlinked intake", fmt.Errorf("intake %s is missing or already linked", intakeID))
	}
	return nil
}
