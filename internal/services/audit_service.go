package services

import (
	"context"
	"time"

	"github.com/sjperalta/pratiche-api/internal/jobs"
	"github.com/sjperalta/pratiche-api/internal/models"
	"github.com/sjperalta/pratiche-api/internal/repository"
	"github.com/sjperalta/pratiche-api/pkg/logger"
)

// AuditRecorder records lifecycle events. Implementations never fail the caller.
type AuditRecorder interface {
	Record(ctx context.Context, action, entity string, entityID uint, details string)
}

// AuditService writes audit entries in the background
type AuditService struct {
	repo   repository.AuditRepository
	worker *jobs.Worker
}

func NewAuditService(repo repository.AuditRepository, worker *jobs.Worker) *AuditService {
	return &AuditService{repo: repo, worker: worker}
}

// Record queues an audit entry attributed to the actor in ctx
func (s *AuditService) Record(ctx context.Context, action, entity string, entityID uint, details string) {
	entry := &models.AuditLog{
		UserID:    ActorFrom(ctx),
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		Details:   details,
		CreatedAt: time.Now(),
	}

	s.worker.EnqueueAsync("audit", func(ctx context.Context) error {
		if err := s.repo.Create(ctx, entry); err != nil {
			logger.Error("Failed to write audit entry", "action", action, "entity", entity, "entity_id", entityID, "error", err)
		}
		return nil
	})
}

// History returns the audit trail of one entity
func (s *AuditService) History(ctx context.Context, entity string, entityID uint) ([]models.AuditLog, error) {
	return s.repo.FindByEntity(ctx, entity, entityID)
}
