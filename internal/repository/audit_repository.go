package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"products-dashboard/internal/models"
)

const (
	DefaultAuditListLimit = 50
	MaxAuditListLimit     = 500
)

// AuditRepository persists the dashboard mutation trail.
// A nil *AuditRepository is valid and records nothing.
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Record stores an entry. ID and CreatedAt are filled by AuditEntry.BeforeCreate.
func (r *AuditRepository) Record(ctx context.Context, entry *models.AuditEntry) error {
	if r == nil || r.db == nil {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

// ListRecent returns the newest entries first
func (r *AuditRepository) ListRecent(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	if r == nil || r.db == nil {
		return []models.AuditEntry{}, nil
	}
	var entries []models.AuditEntry
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(clampLimit(limit)).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	return entries, nil
}

// ListByProduct returns the newest entries for one product first
func (r *AuditRepository) ListByProduct(ctx context.Context, productID models.ProductID, limit int) ([]models.AuditEntry, error) {
	if r == nil || r.db == nil {
		return []models.AuditEntry{}, nil
	}
	var entries []models.AuditEntry
	err := r.db.WithContext(ctx).
		Where("product_id = ?", models.NormalizeID(productID.String()).String()).
		Order("created_at DESC").
		Limit(clampLimit(limit)).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries for product %s: %w", productID, err)
	}
	return entries, nil
}

func clampLimit(limit int) int {
	if limit < 1 {
		return DefaultAuditListLimit
	}
	if limit > MaxAuditListLimit {
		return MaxAuditListLimit
	}
	return limit
}
