package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/baharkarakas/wallet-transfer/internal/apperr"
	"github.com/baharkarakas/wallet-transfer/internal/guard"
	"github.com/baharkarakas/wallet-transfer/internal/logger"
	"github.com/baharkarakas/wallet-transfer/internal/metrics"
	"github.com/baharkarakas/wallet-transfer/internal/models"
)

// ErrPermanent marks events that will never succeed on redelivery.
var ErrPermanent = errors.New("permanent notification failure")

// Service dispatches each event id at most once per dedup ttl.
type Service struct {
	dedup     *guard.Claimer
	ttl       time.Duration
	templates []Template
	channels  map[string]Channel
	log       *slog.Logger
}

func NewService(kv guard.KV, ttl time.Duration, templates []Template, channels []Channel, log *slog.Logger) *Service {
	byName := make(map[string]Channel, len(channels))
	for _, c := range channels {
		byName[c.Name()] = c
	}
	return &Service{
		dedup:     guard.NewClaimer(kv, "notif:"),
		ttl:       ttl,
		templates: templates,
		channels:  byName,
		log:       logger.Or(log).With("component", "notifications"),
	}
}

// Handle returns nil for duplicates, ErrPermanent for events no template or channel can
// serve, and any other error for retryable send failures.
func (s *Service) Handle(ctx context.Context, ev models.NotificationEvent) error {
	var claim guard.Claim
	if ev.EventID != "" {
		c, err := s.dedup.Claim(ctx, ev.EventID, s.ttl)
		if errors.Is(err, apperr.ErrDuplicateRequest) {
			metrics.Notifications.WithLabelValues("duplicate").Inc()
			s.log.Debug("duplicate notification skipped", "event_id", ev.EventID)
			return nil
		}
		if err != nil {
			return err
		}
		claim = c
	}

	if err := s.dispatch(ctx, ev); err != nil {
		metrics.Notifications.WithLabelValues("failed").Inc()
		if errors.Is(err, ErrPermanent) {
			return err
		}
		// let the redelivery through dedup
		if rerr := s.dedup.Release(ctx, claim); rerr != nil {
			s.log.Error("notification dedup release failed", "err", rerr, "event_id", ev.EventID)
		}
		return err
	}
	metrics.Notifications.WithLabelValues("sent").Inc()
	return nil
}

func (s *Service) dispatch(ctx context.Context, ev models.NotificationEvent) error {
	var tpl Template
	for _, t := range s.templates {
		if t.Supports(ev.Type) {
			tpl = t
			break
		}
	}
	if tpl == nil {
		return fmt.Errorf("%w: no template for type %q", ErrPermanent, ev.Type)
	}
	ch, ok := s.channels[tpl.Channel()]
	if !ok {
		return fmt.Errorf("%w: no channel %q", ErrPermanent, tpl.Channel())
	}
	return ch.Send(ctx, ev.ReceiverID, tpl.Title(ev), tpl.Body(ev), ev)
}
