package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/bookshelf/catalog-api/internal/core/domain"
	"github.com/bookshelf/catalog-api/internal/core/ports"
	"github.com/bookshelf/catalog-api/internal/infrastructure/metrics"
)

type auditService struct {
	repo ports.AuditRepository
	log  zerolog.Logger
}

// NewAuditService returns an AuditService that persists events through repo.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) ports.AuditService {
	return &auditService{repo: repo, log: log}
}

// Record persists a single catalog write.
func (s *auditService) Record(ctx context.Context, event domain.BookEvent) error {
	start := time.Now()
	defer func() { metrics.AuditRecordDuration.Observe(time.Since(start).Seconds()) }()

	if event.BookID == "" || event.Action == "" {
		metrics.AuditEventsTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("record audit event: missing book id or action")
	}

	if err := s.repo.InsertEvent(ctx, &event); err != nil {
		metrics.AuditEventsTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("record audit event: %w", err)
	}

	metrics.AuditEventsTotal.WithLabelValues("recorded").Inc()
	s.log.Debug().
		Str("book_id", event.BookID).
		Str("action", string(event.Action)).
		Msg("audit event recorded")
	return nil
}
