package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/nimasrn/dues-ledger/internal/model"
	"github.com/nimasrn/dues-ledger/pkg/logger"
	"github.com/nimasrn/dues-ledger/pkg/prom"
)

// PhraseStore keeps server-issued confirmation phrases until they expire or
// are consumed.
type PhraseStore interface {
	Issue(ctx context.Context, phrase string, ttl time.Duration) (bool, error)
	Consume(ctx context.Context, phrase string) (bool, error)
}

type ResetConfig struct {
	RecoveryWindow time.Duration
	PhraseTTL      time.Duration
}

const auditEntityReset = "reset_request"

type ResetService struct {
	tx       Transactor
	resets   ResetRepository
	phrases  PhraseStore
	audit    AuditSink
	notifier Notifier
	config   ResetConfig
	now      func() time.Time
}

func NewResetService(tx Transactor, resets ResetRepository, phrases PhraseStore, audit AuditSink, notifier Notifier, config ResetConfig) *ResetService {
	if config.RecoveryWindow <= 0 {
		config.RecoveryWindow = 72 * time.Hour
	}
	if config.PhraseTTL <= 0 {
		config.PhraseTTL = 10 * time.Minute
	}
	return &ResetService{
		tx:       tx,
		resets:   resets,
		phrases:  phrases,
		audit:    audit,
		notifier: notifier,
		config:   config,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func newPhrase() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "RESET-" + strings.ToUpper(id[:8])
}

// IssuePhrase hands out a confirmation phrase that FactoryReset will accept
// once, until it expires.
func (s *ResetService) IssuePhrase(ctx context.Context) (*model.ResetPhrase, error) {
	for attempt := 0; attempt < 3; attempt++ {
		phrase := newPhrase()
		ok, err := s.phrases.Issue(ctx, phrase, s.config.PhraseTTL)
		if err != nil {
			return nil, classify(ErrTransactionFailed, errors.Wrap(err, "store reset phrase"))
		}
		if ok {
			return &model.ResetPhrase{Phrase: phrase, ExpiresAt: s.now().Add(s.config.PhraseTTL)}, nil
		}
	}
	return nil, classify(ErrTransactionFailed, errors.New("could not allocate a unique reset phrase"))
}

// FactoryReset tombstones every live row of every reset-managed table under
// a new pending reset request. Tables are stamped one by one; a rerun after a
// partial failure only touches rows still live.
func (s *ResetService) FactoryReset(ctx context.Context, req model.FactoryResetRequest) (*model.ResetTicket, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	consumed, err := s.phrases.Consume(ctx, req.ExpectedPhrase)
	if err != nil {
		return nil, classify(ErrTransactionFailed, errors.Wrap(err, "consume reset phrase"))
	}
	if !consumed {
		return nil, model.NewValidationError("expected_phrase", "was not issued or has expired")
	}

	now := s.now()
	reset, err := s.resets.Create(ctx, &model.ResetRequest{
		RequestedBy:  req.RequestedBy,
		Reason:       req.Reason,
		AutoDeleteAt: now.Add(s.config.RecoveryWindow),
	})
	if err != nil {
		return nil, txFailed(errors.Wrap(err, "create reset request"))
	}

	counts, err := s.resets.Stamp(ctx, reset.ID, now)
	total := sum(counts)
	if err != nil {
		logger.Error("factory reset stamping failed", "reset_request_id", reset.ID, "stamped", total, "error", err)
		return nil, txFailed(errors.Wrap(err, "stamp tombstones"))
	}
	if err := s.resets.SetAffectedRows(ctx, reset.ID, total); err != nil {
		logger.Warn("failed to store affected row count", "reset_request_id", reset.ID, "error", err)
	}

	s.record(ctx, "reset.requested", req.RequestedBy, reset.ID, counts)
	s.notify(ctx, model.NotifyResetRequested, reset.ID,
		fmt.Sprintf("Factory reset #%d requested by %s: %s. %d rows recoverable until %s.",
			reset.ID, req.RequestedBy, req.Reason, total, reset.AutoDeleteAt.Format(time.RFC3339)))
	prom.IncReset("requested")
	logger.Info("factory reset requested", "reset_request_id", reset.ID, "rows", total, "auto_delete_at", reset.AutoDeleteAt)

	return &model.ResetTicket{
		ResetRequestID: reset.ID,
		AutoDeleteAt:   reset.AutoDeleteAt,
		AffectedRows:   total,
	}, nil
}

// Restore brings back every row tombstoned by a pending reset request.
func (s *ResetService) Restore(ctx context.Context, id int64) error {
	var counts map[string]int64
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.resets.Resolve(ctx, id, model.ResetRestored, s.now()); err != nil {
			return err
		}
		c, err := s.resets.Restore(ctx, id)
		counts = c
		return err
	})
	if err != nil {
		return txFailed(err)
	}

	s.record(ctx, "reset.restored", "system", id, counts)
	s.notify(ctx, model.NotifyResetRestored, id, fmt.Sprintf("Factory reset #%d restored %d rows.", id, sum(counts)))
	prom.IncReset("restored")
	logger.Info("factory reset restored", "reset_request_id", id, "rows", sum(counts))
	return nil
}

// PurgeNow permanently deletes every row tombstoned by a pending reset
// request, children before parents.
func (s *ResetService) PurgeNow(ctx context.Context, id int64) error {
	var counts map[string]int64
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.resets.Resolve(ctx, id, model.ResetDeleted, s.now()); err != nil {
			return err
		}
		c, err := s.resets.Purge(ctx, id)
		counts = c
		return err
	})
	if err != nil {
		return txFailed(err)
	}

	s.record(ctx, "reset.purged", "system", id, counts)
	s.notify(ctx, model.NotifyResetPurged, id, fmt.Sprintf("Factory reset #%d permanently deleted %d rows.", id, sum(counts)))
	prom.IncReset("purged")
	logger.Info("factory reset purged", "reset_request_id", id, "rows", sum(counts))
	return nil
}

func (s *ResetService) Act(ctx context.Context, id int64, action model.ResetAction) error {
	switch action {
	case model.ActionRestore:
		return s.Restore(ctx, id)
	case model.ActionDelete:
		return s.PurgeNow(ctx, id)
	default:
		return model.NewValidationError("action", "must be restore or delete")
	}
}

// PurgeExpired purges every pending request whose recovery window has
// closed. A request resolved concurrently is skipped.
func (s *ResetService) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.resets.ListExpired(ctx, now)
	if err != nil {
		return 0, txFailed(errors.Wrap(err, "list expired reset requests"))
	}
	purged := 0
	var firstErr error
	for _, req := range expired {
		err := s.PurgeNow(ctx, req.ID)
		switch {
		case err == nil:
			purged++
		case errors.Is(err, ErrInvalidState):
			logger.Debug("reset request resolved concurrently", "reset_request_id", req.ID)
		default:
			logger.Error("failed to purge expired reset request", "reset_request_id", req.ID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return purged, firstErr
}

func (s *ResetService) List(ctx context.Context) ([]*model.ResetRequest, error) {
	list, err := s.resets.List(ctx)
	if err != nil {
		return nil, txFailed(err)
	}
	return list, nil
}

func (s *ResetService) Get(ctx context.Context, id int64) (*model.ResetRequest, error) {
	req, err := s.resets.Get(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return req, nil
}

func (s *ResetService) record(ctx context.Context, action, actor string, id int64, counts map[string]int64) {
	if s.audit == nil {
		return
	}
	details, _ := json.Marshal(counts)
	err := s.audit.Append(ctx, &model.AuditEntry{
		Action:   action,
		Actor:    actor,
		Entity:   auditEntityReset,
		EntityID: id,
		Details:  string(details),
	})
	if err != nil {
		logger.Warn("failed to write audit entry", "action", action, "reset_request_id", id, "error", err)
	}
}

func (s *ResetService) notify(ctx context.Context, kind model.NotificationKind, id int64, message string) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.Notify(ctx, &model.AdminNotification{
		ID:             uuid.NewString(),
		Kind:           kind,
		ResetRequestID: id,
		Message:        message,
		OccurredAt:     s.now(),
	})
	if err != nil {
		logger.Warn("failed to publish admin notification", "kind", string(kind), "reset_request_id", id, "error", err)
	}
}

func sum(counts map[string]int64) int64 {
	var total int64
	for _, n := range counts {
		total += n
	}
	return total
}
