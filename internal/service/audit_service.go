package service

import (
	"context"
	"sync"
	"time"

	"settlement-ledger/internal/core/domain"
	"settlement-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AuditService writes audit entries off the request path. A nil repository
// leaves the log line as the only record.
type AuditService struct {
	repo    ports.AuditRepository
	log     zerolog.Logger
	pending sync.WaitGroup
}

func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) *AuditService {
	return &AuditService{repo: repo, log: log.With().Str("component", "audit").Logger()}
}

// Log stamps entry and persists it in the background. The request context
// only carries values here; its cancellation does not stop the write.
func (s *AuditService) Log(ctx context.Context, entry *domain.AuditLog) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	ctx = context.WithoutCancel(ctx)

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		s.record(ctx, entry)
	}()
}

func (s *AuditService) record(ctx context.Context, entry *domain.AuditLog) {
	ev := s.log.Info().
		Str("action", string(entry.Action)).
		Str("resource_type", entry.ResourceType).
		Str("resource_id", entry.ResourceID).
		Str("ip", entry.IPAddress)
	if entry.Signer != nil {
		ev = ev.Stringer("signer", entry.Signer)
	}
	if entry.Operator != "" {
		ev = ev.Str("operator", entry.Operator)
	}
	ev.Msg("audit")

	if s.repo == nil {
		return
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		s.log.Warn().Err(err).
			Stringer("id", entry.ID).
			Str("action", string(entry.Action)).
			Msg("audit entry not persisted")
	}
}

// Wait blocks until every entry handed to Log has been written or has
// failed. Call it before closing the repository.
func (s *AuditService) Wait() {
	s.pending.Wait()
}
