package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sjperalta/pratiche-api/internal/jobs"
	"github.com/sjperalta/pratiche-api/internal/models"
	"github.com/sjperalta/pratiche-api/internal/repository"
)

// slowAuditRepo simulates a database write that honours ctx
type slowAuditRepo struct {
	repository.AuditRepository
	mu      sync.Mutex
	entries []models.AuditLog
}

func (r *slowAuditRepo) Create(ctx context.Context, entry *models.AuditLog) error {
	select {
	case <-time.After(10 * time.Millisecond):
	case <-ctx.Done():
		return ctx.Err()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func TestAuditService_ShutdownFlushesPendingEntries(t *testing.T) {
	repo := &slowAuditRepo{}
	worker := jobs.NewWorker(1)
	svc := NewAuditService(repo, worker)

	ctx := WithActor(context.Background(), 42)
	for id := uint(1); id <= 4; id++ {
		svc.Record(ctx, models.AuditActionPay, models.AuditEntityInstallment, id, "")
	}
	worker.Shutdown()

	require.Len(t, repo.entries, 4)
	for _, e := range repo.entries {
		assert.Equal(t, uint(42), e.UserID)
		assert.Equal(t, models.AuditActionPay, e.Action)
	}
}
