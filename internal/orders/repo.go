package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an order repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error
}

func (r *repository) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// LockByID loads the order with SELECT ... FOR UPDATE.
func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&items).Error
	return items, err
}

func (r *repository) FindItem(ctx context.Context, orderID, itemID uuid.UUID) (*models.OrderItem, error) {
	var item models.OrderItem
	if err := r.db.WithContext(ctx).
		Where("order_id = ? AND id = ?", orderID, itemID).
		First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) FindItemByProduct(ctx context.Context, orderID, productID uuid.UUID) (*models.OrderItem, error) {
	var item models.OrderItem
	if err := r.db.WithContext(ctx).
		Where("order_id = ? AND product_id = ?", orderID, productID).
		Order("created_at ASC").
		First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// SaveItem writes every column of the line, repricing it on the way.
func (r *repository) SaveItem(ctx context.Context, item *models.OrderItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *repository) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", itemID).Delete(&models.OrderItem{}).Error
}

func (r *repository) Update(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", orderID).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List returns a page of orders in filter.Ordering, newest first by default.
func (r *repository) List(ctx context.Context, filter ListFilter, params pagination.Params) (*OrderList, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *filter.PaymentStatus)
	}
	if strings.TrimSpace(filter.Search) != "" {
		p := searchPattern(filter.Search)
		query = query.Where(searchClause, p, p, p, p)
	}
	query, err := pagination.Seek(query, params, filter.Ordering.sort())
	if err != nil {
		return nil, err
	}

	var rows []models.Order
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	rows, next := pagination.Trim(rows, params.Limit, filter.Ordering.cursor)

	counts, err := r.lineCounts(ctx, rows)
	if err != nil {
		return nil, err
	}

	list := &OrderList{Orders: make([]OrderSummary, 0, len(rows)), NextCursor: next}
	for _, row := range rows {
		list.Orders = append(list.Orders, OrderSummary{
			ID:            row.ID,
			OrderNumber:   row.OrderNumber,
			UserID:        row.UserID,
			Status:        row.Status,
			PaymentStatus: row.PaymentStatus,
			Subtotal:      row.Subtotal,
			TotalAmount:   row.TotalAmount,
			ItemCount:     counts[row.ID],
			ShipTo:        row.ShippingAddress.Full(),
			CreatedAt:     row.CreatedAt,
		})
	}
	return list, nil
}

type lineCount struct {
	OrderID   uuid.UUID
	LineCount int
}

func (r *repository) lineCounts(ctx context.Context, rows []models.Order) (map[uuid.UUID]int, error) {
	out := make(map[uuid.UUID]int, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	var counts []lineCount
	if err := r.db.WithContext(ctx).Model(&models.OrderItem{}).
		Select("order_id, COUNT(*) AS line_count").
		Where("order_id IN ?", ids).
		Group("order_id").
		Scan(&counts).Error; err != nil {
		return nil, fmt.Errorf("count order lines: %w", err)
	}
	for _, c := range counts {
		out[c.OrderID] = c.LineCount
	}
	return out, nil
}

type statusCount struct {
	Status enums.OrderStatus
	Total  int64
}

// Stats counts orders by status and sums the totals of paid orders.
func (r *repository) Stats(ctx context.Context, userID *uuid.UUID) (*Stats, error) {
	scoped := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.Order{})
		if userID != nil {
			q = q.Where("user_id = ?", *userID)
		}
		return q
	}

	var counts []statusCount
	if err := scoped().
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&counts).Error; err != nil {
		return nil, err
	}

	stats := &Stats{TotalRevenue: decimal.Zero}
	for _, c := range counts {
		stats.TotalOrders += c.Total
		switch c.Status {
		case enums.OrderStatusPending:
			stats.PendingOrders = c.Total
		case enums.OrderStatusDelivered:
			stats.CompletedOrders = c.Total
		case enums.OrderStatusCancelled:
			stats.CancelledOrders = c.Total
		}
	}

	var revenue decimal.NullDecimal
	if err := scoped().
		Select("SUM(total_amount)").
		Where("payment_status = ?", enums.PaymentStatusPaid).
		Row().Scan(&revenue); err != nil {
		return nil, err
	}
	if revenue.Valid {
		stats.TotalRevenue = revenue.Decimal.Round(2)
	}
	return stats, nil
}
