// Package datastore opens the repositories for the configured driver.
package datastore

import (
	"context"
	"fmt"

	"github.com/jwalitptl/wellness-api/internal/config"
	"github.com/jwalitptl/wellness-api/internal/repository"
	"github.com/jwalitptl/wellness-api/internal/repository/memory"
	"github.com/jwalitptl/wellness-api/internal/repository/postgres"
	"github.com/jwalitptl/wellness-api/internal/repository/rest"
	"github.com/jwalitptl/wellness-api/pkg/logger"
)

type Datastore struct {
	Patients  repository.PatientRepository
	Intakes   repository.IntakeRepository
	Protocols repository.ProtocolRepository
	Checkins  repository.CheckinRepository
	Outbox    repository.OutboxRepository

	ping  func(ctx context.Context) error
	close func() error
}

// Open connects to the driver named in cfg.Datastore.Driver.
func Open(cfg *config.Config, log *logger.Logger) (*Datastore, error) {
	switch cfg.Datastore.Driver {
	case config.DriverPostgres:
		db, err := postgres.NewDB(cfg.Database)
		if err != nil {
			return nil, err
		}
		return &Datastore{
			Patients:  postgres.NewPatientRepository(db),
			Intakes:   postgres.NewIntakeRepository(db),
			Protocols: postgres.NewProtocolRepository(db),
			Checkins:  postgres.NewCheckinRepository(db),
			Outbox:    postgres.NewOutboxRepository(postgres.NewBaseRepository(db)),
			ping:      db.PingContext,
			close:     db.Close,
		}, nil

	case config.DriverREST:
		store := rest.NewStore(cfg.Datastore.REST, log)
		return &Datastore{
			Patients:  store.Patients(),
			Intakes:   store.Intakes(),
			Protocols: store.Protocols(),
			Checkins:  store.Checkins(),
			Outbox:    store.Outbox(),
			ping:      store.Ping,
		}, nil

	case config.DriverMemory:
		return FromMemory(memory.NewStore()), nil

	default:
		return nil, fmt.Errorf("unknown datastore driver %q", cfg.Datastore.Driver)
	}
}

// FromMemory wraps an in-process store, mainly for local runs and tests.
func FromMemory(store *memory.Store) *Datastore {
	return &Datastore{
		Patients:  store.Patients(),
		Intakes:   store.Intakes(),
		Protocols: store.Protocols(),
		Checkins:  store.Checkins(),
		Outbox:    store.Outbox(),
	}
}

// Ping reports whether the backing store is reachable.
func (d *Datastore) Ping(ctx context.Context) error {
	if d.ping == nil {
		return nil
	}
	return d.ping(ctx)
}

func (d *Datastore) Close() error {
	if d.close == nil {
		return nil
	}
	return d.close()
}
