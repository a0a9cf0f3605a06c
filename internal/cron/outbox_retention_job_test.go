package cron

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/testdb"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

func TestOutboxRetentionJobPurgesOldRows(t *testing.T) {
	conn := testdb.Open(t)
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	old := now.AddDate(0, 0, -45)
	recent := now.AddDate(0, 0, -2)

	insert := func(createdAt time.Time, published bool, attempts int) uuid.UUID {
		row := models.OutboxEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{}`),
			CreatedAt:     createdAt,
			AttemptCount:  attempts,
		}
		if published {
			row.PublishedAt = &createdAt
		}
		require.NoError(t, conn.Create(&row).Error)
		return row.ID
	}
	insert(old, true, 1)
	insert(old, false, 12)
	keepUnpublished := insert(old, false, 2)
	keepRecent := insert(recent, true, 1)

	bury := func(failedAt time.Time) uuid.UUID {
		row := models.OutboxDLQ{
			EventID:       uuid.New(),
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{}`),
			ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
			FailedAt:      failedAt,
		}
		require.NoError(t, conn.Create(&row).Error)
		return row.ID
	}
	bury(now.AddDate(0, 0, -120))
	keepDead := bury(old)

	jobIface, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:      quietLogger(),
		DB:          db.Wrap(conn),
		Events:      outbox.NewRepository(conn),
		DeadLetters: outbox.NewDeadLetters(conn),
	})
	require.NoError(t, err)
	job := jobIface.(*outboxRetentionJob)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))

	var ids []uuid.UUID
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Order("created_at ASC").Pluck("id", &ids).Error)
	require.ElementsMatch(t, []uuid.UUID{keepUnpublished, keepRecent}, ids)

	var dead []uuid.UUID
	require.NoError(t, conn.Model(&models.OutboxDLQ{}).Pluck("id", &dead).Error)
	require.Equal(t, []uuid.UUID{keepDead}, dead)
}

func TestOutboxRetentionJobPropagatesError(t *testing.T) {
	jobIface, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:        quietLogger(),
		DB:            passthroughTx{},
		Events:        failingRetentionRepo{},
		RetentionDays: 7,
	})
	require.NoError(t, err)
	require.Error(t, jobIface.Run(context.Background()))
}

func TestOutboxRetentionJobRequiresDependencies(t *testing.T) {
	if _, err := NewOutboxRetentionJob(OutboxRetentionJobParams{}); err == nil {
		t.Fatal("expected error")
	}
}

type failingRetentionRepo struct{}

func (failingRetentionRepo) DeletePublishedBefore(context.Context, *gorm.DB, time.Time, int) (int64, error) {
	return 0, errors.New("boom")
}

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}
