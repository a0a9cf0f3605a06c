// Package history is the append-only ledger of order status transitions.
// Rows are written once and never updated or deleted.
package history

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Entry describes one transition to record.
type Entry struct {
	OrderID   uuid.UUID
	OldStatus *enums.OrderStatus
	NewStatus enums.OrderStatus
	Note      string
	ActorID   *uuid.UUID
}

// Ledger is the persistence surface of the status history.
type Ledger interface {
	WithTx(tx *gorm.DB) Ledger
	Append(ctx context.Context, entry Entry) (*models.OrderStatusHistory, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error)
}

// Repository implements Ledger with GORM.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the ledger to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) Ledger {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Append inserts a history row.
func (r *Repository) Append(ctx context.Context, entry Entry) (*models.OrderStatusHistory, error) {
	if entry.OrderID == uuid.Nil {
		return nil, fmt.Errorf("order id required")
	}
	if !entry.NewStatus.IsValid() {
		return nil, fmt.Errorf("invalid new status %q", entry.NewStatus)
	}

	row := &models.OrderStatusHistory{
		OrderID:   entry.OrderID,
		OldStatus: entry.OldStatus,
		NewStatus: entry.NewStatus,
		ActorID:   entry.ActorID,
	}
	if entry.Note != "" {
		note := entry.Note
		row.Note = &note
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// ListByOrder returns the order's transitions, newest first.
func (r *Repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error) {
	var rows []models.OrderStatusHistory
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
