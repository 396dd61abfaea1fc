// Package rest implements the repositories against a hosted PostgREST-style
// API (e.g. Supabase), for deployments without direct database access.
package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/jwalitptl/wellness-api/internal/config"
	"github.com/jwalitptl/wellness-api/internal/repository"
	apperrors "github.com/jwalitptl/wellness-api/pkg/errors"
	"github.com/jwalitptl/wellness-api/pkg/logger"
)

const (
	tablePatients  = "/patients"
	tableIntakes   = "/patient_intakes"
	tableProtocols = "/patient_protocols"
	tableCheckins  = "/protocol_checkins"
	tableOutbox    = "/outbox_events"
)

// Store is a PostgREST client shared by every repository it hands out.
type Store struct {
	http   *resty.Client
	logger *logger.Logger
}

func NewStore(cfg config.RESTConfig, log *logger.Logger) *Store {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := resty.New().
		SetBaseURL(cfg.URL).
		SetTimeout(timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(200*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("apikey", cfg.APIKey).SetAuthToken(cfg.APIKey)
	}
	// Only reads are retried. A guarded write that committed before its
	// response was lost would match no rows on a second attempt.
	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		if r == nil || r.Request == nil || r.Request.Method != http.MethodGet {
			return false
		}
		return err != nil || r.StatusCode() >= http.StatusInternalServerError
	})

	return &Store{http: client, logger: log}
}

func (s *Store) Patients() repository.PatientRepository   { return &patientRepository{s} }
func (s *Store) Intakes() repository.IntakeRepository     { return &intakeRepository{s} }
func (s *Store) Protocols() repository.ProtocolRepository { return &protocolRepository{s} }
func (s *Store) Checkins() repository.CheckinRepository   { return &checkinRepository{s} }
func (s *Store) Outbox() repository.OutboxRepository      { return &outboxRepository{s} }

// Ping checks that the API answers.
func (s *Store) Ping(ctx context.Context) error {
	resp, err := s.http.R().SetContext(ctx).SetQueryParam("limit", "0").Get(tablePatients)
	return s.check("ping datastore", resp, err)
}

func (s *Store) request(ctx context.Context) *resty.Request {
	return s.http.R().SetContext(ctx)
}

// check turns transport failures and non-2xx answers into persistence errors.
func (s *Store) check(op string, resp *resty.Response, err error) error {
	if err != nil {
		s.logger.Error(err, "Datastore request failed", "op", op)
		return apperrors.NewPersistence(op, err)
	}
	if resp.IsError() {
		err := fmt.Errorf("status %d: %s", resp.StatusCode(), resp.String())
		s.logger.Error(err, "Datastore returned error", "op", op, "status_code", resp.StatusCode())
		return apperrors.NewPersistence(op, err)
	}
	return nil
}
