package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/sjperalta/pratiche-api/internal/models"
)

// AuditRepository defines the interface for audit log persistence
type AuditRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	FindByEntity(ctx context.Context, entity string, entityID uint) ([]models.AuditLog, error)
}

type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	return dbFrom(ctx, r.db).Create(entry).Error
}

func (r *auditRepository) FindByEntity(ctx context.Context, entity string, entityID uint) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	err := dbFrom(ctx, r.db).
		Where("entity = ? AND entity_id = ?", entity, entityID).
		Order("created_at ASC").
		Find(&logs).Error
	return logs, err
}
