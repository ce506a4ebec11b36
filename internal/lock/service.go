package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Checker-Finance/cardlock/internal/access"
	"github.com/Checker-Finance/cardlock/internal/metrics"
	"github.com/Checker-Finance/cardlock/pkg/credentials"
	"github.com/Checker-Finance/cardlock/pkg/model"
)

// Service modes.
const (
	ModeEnabled  = "enabled"
	ModeDegraded = "degraded"
)

// EventRecorder persists access events.
type EventRecorder interface {
	RecordEvent(ctx context.Context, ev model.AccessEvent) error
	RecentEvents(ctx context.Context, limit int) ([]model.AccessEvent, error)
}

// EventPublisher announces access events.
type EventPublisher interface {
	PublishAccessEvent(ctx context.Context, ev model.AccessEvent) error
}

// Summary describes the active table without exposing secrets.
type Summary struct {
	Mode     string              `json:"mode"`
	Table    credentials.Summary `json:"table"`
	Problems []string            `json:"problems,omitempty"`
	Distinct int                 `json:"distinct_authorized_cards"`
}

// Service checks presented cards against the credential table.
type Service struct {
	logger     *zap.Logger
	table      credentials.Table
	authorizer *access.Authorizer
	validErr   error
	recorder   EventRecorder
	publisher  EventPublisher
	now        func() time.Time
}

// NewService validates t and builds the authorizer. A table that fails
// validation puts the service in degraded mode, where every check is denied.
// recorder and publisher may be nil.
func NewService(logger *zap.Logger, t credentials.Table, recorder EventRecorder, publisher EventPublisher) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		logger:    logger,
		table:     t,
		recorder:  recorder,
		publisher: publisher,
		now:       time.Now,
	}

	if err := access.Validate(t); err != nil {
		s.validErr = err
		s.authorizer = access.Disabled()
		logger.Error("lock.table_invalid", zap.Error(err))
	} else {
		s.authorizer = access.NewAuthorizer(t)
		if dups := access.Duplicates(t); len(dups) > 0 {
			logger.Warn("lock.duplicate_cards", zap.Strings("uids", dups))
		}
	}

	metrics.SetDegraded(s.validErr != nil)
	metrics.AuthorizedCards.Set(float64(s.authorizer.Size()))
	logger.Info("lock.table_loaded", append(t.LogFields(), zap.String("mode", s.Mode()))...)
	return s
}

// Mode is ModeEnabled or ModeDegraded.
func (s *Service) Mode() string {
	if s.validErr != nil {
		return ModeDegraded
	}
	return ModeEnabled
}

// ValidationError returns the reason for degraded mode, or nil.
func (s *Service) ValidationError() error {
	return s.validErr
}

// Summary returns the masked table and the current mode.
func (s *Service) Summary() Summary {
	sum := Summary{
		Mode:     s.Mode(),
		Table:    s.table.Summary(),
		Distinct: s.authorizer.Size(),
	}
	var cfgErr *access.ConfigError
	if errors.As(s.validErr, &cfgErr) {
		for _, f := range cfgErr.Fields {
			sum.Problems = append(sum.Problems, f.Error())
		}
	}
	return sum
}

// Check decides on the card uid and records the decision. Audit and publish
// failures are logged and counted; they never change the decision.
func (s *Service) Check(ctx context.Context, uid string) access.Decision {
	start := s.now()
	defer metrics.ObserveSince(metrics.AccessCheckDuration, start)

	d := s.authorizer.Check(uid)
	metrics.IncAccessDecision(d.Granted, d.Reason)

	ev := model.AccessEvent{
		ID:        uuid.New(),
		UID:       d.UID,
		Granted:   d.Granted,
		Reason:    d.Reason,
		LockID:    s.table.LockID(),
		DecidedAt: start.UTC(),
	}

	if d.Granted {
		s.logger.Info("access.check_granted", zap.String("uid", d.UID))
	} else {
		s.logger.Warn("access.check_denied", zap.String("uid", d.UID), zap.String("reason", d.Reason))
	}

	if s.recorder != nil {
		if err := s.recorder.RecordEvent(ctx, ev); err != nil {
			s.logger.Error("access.record_failed", zap.String("event_id", ev.ID.String()), zap.Error(err))
			metrics.IncError("lock", "record_failed")
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishAccessEvent(ctx, ev); err != nil {
			s.logger.Error("access.publish_failed", zap.String("event_id", ev.ID.String()), zap.Error(err))
			metrics.IncError("lock", "publish_failed")
		}
	}
	return d
}

// RecentEvents returns the newest recorded decisions.
func (s *Service) RecentEvents(ctx context.Context, limit int) ([]model.AccessEvent, error) {
	if s.recorder == nil {
		return nil, nil
	}
	return s.recorder.RecentEvents(ctx, limit)
}
