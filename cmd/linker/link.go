package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/wellness-api/internal/datastore"
	"github.com/jwalitptl/wellness-api/internal/email"
	eventService "github.com/jwalitptl/wellness-api/internal/service/event"
	"github.com/jwalitptl/wellness-api/internal/service/linker"
	"github.com/jwalitptl/wellness-api/pkg/logger"
	"github.com/jwalitptl/wellness-api/pkg/metrics"
)

type linkOptions struct {
	mode     linker.Mode
	asJSON   bool
	notifyTo []string
}

func newLinkCommand(use, short string, apply bool) *cobra.Command {
	var (
		asJSON bool
		notify bool
	)

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}

			store, err := datastore.Open(cfg, log)
			if err != nil {
				return err
			}
			defer store.Close()

			opts := linkOptions{mode: linker.ModePreview, asJSON: asJSON}
			if apply {
				opts.mode = linker.ModeApply
			}

			var mailer email.Service
			if notify {
				if len(cfg.Notify.To) == 0 {
					return fmt.Errorf("--notify needs notify.to in the configuration")
				}
				smtp, err := email.NewSMTPService(cfg.SMTP)
				if err != nil {
					return err
				}
				mailer = smtp
				opts.notifyTo = cfg.Notify.To
			}

			return runLink(cmd.Context(), store, mailer, log, cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	cmd.Flags().BoolVar(&notify, "notify", false, "email the report to notify.to")

	return cmd
}

// runLink executes one link run and writes the report to out. A failed
// notification is returned after the report has been written.
func runLink(
	ctx context.Context,
	store *datastore.Datastore,
	mailer email.Service,
	log *logger.Logger,
	out io.Writer,
	opts linkOptions,
) error {

	events := eventService.NewEventService(store.Outbox)
	svc := linker.NewService(store.Patients, store.Intakes, events, log, metrics.New("wellness", prometheus.NewRegistry()))

	result, err := svc.ComputeLinks(ctx, opts.mode)
	if err != nil {
		return err
	}

	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		fmt.Fprint(out, result.Report())
	}

	if mailer == nil || len(opts.notifyTo) == 0 {
		return nil
	}
	subject := fmt.Sprintf("Intake link run: %s", result.Message)
	if err := mailer.Send(ctx, opts.notifyTo, subject, result.Report()); err != nil {
		return fmt.Errorf("failed to send link report: %w", err)
	}
	log.Info("Link report sent", "recipients", len(opts.notifyTo))
	return nil
}
