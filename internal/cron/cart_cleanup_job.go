package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

const (
	defaultAnonymousCartTTL = 30 * 24 * time.Hour
	defaultCartCleanupBatch = 500
)

type CartCleanupJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository cart.CartRepository
	// TTL is how long an untouched anonymous cart survives.
	TTL       time.Duration
	BatchSize int
}

// NewCartCleanupJob deletes anonymous carts that have not been touched within
// TTL, one batch per transaction.
func NewCartCleanupJob(params CartCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultAnonymousCartTTL
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultCartCleanupBatch
	}
	return &cartCleanupJob{
		logg:  params.Logger,
		db:    params.DB,
		repo:  params.Repository,
		ttl:   ttl,
		batch: batch,
		now:   time.Now,
	}, nil
}

type cartCleanupJob struct {
	logg  *logger.Logger
	db    txRunner
	repo  cart.CartRepository
	ttl   time.Duration
	batch int
	now   func() time.Time
}

func (j *cartCleanupJob) Name() string { return "anonymous-cart-cleanup" }

func (j *cartCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var found int
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			repo := j.repo.WithTx(tx)
			ids, err := repo.ListStaleAnonymous(ctx, cutoff, j.batch)
			if err != nil {
				return err
			}
			found = len(ids)
			if found == 0 {
				return nil
			}
			deleted, err := repo.DeleteCarts(ctx, ids)
			total += deleted
			return err
		})
		if err != nil {
			return fmt.Errorf("anonymous cart cleanup: %w", err)
		}
		if found < j.batch {
			break
		}
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":        cutoff,
		"carts_deleted": total,
	}), "anonymous cart cleanup complete")
	return nil
}
