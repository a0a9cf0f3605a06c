package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type eventPurger interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error)
}

type deadLetterPurger interface {
	PurgeBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type OutboxRetentionJobParams struct {
	Logger *logger.Logger
	DB     txRunner
	Events eventPurger
	// DeadLetters is optional; without it outbox_dlq is left alone.
	DeadLetters deadLetterPurger
	// RetentionDays applies to published rows and to rows that used up
	// MaxAttempts without being published.
	RetentionDays       int
	DeadLetterRetention int
	MaxAttempts         int
}

type outboxRetentionJob struct {
	logg        *logger.Logger
	db          txRunner
	events      eventPurger
	deadLetters deadLetterPurger
	keepEvents  int
	keepDead    int
	maxAttempts int
	now         func() time.Time
}

// NewOutboxRetentionJob purges delivered outbox rows, then expired dead
// letters, in one transaction.
func NewOutboxRetentionJob(p OutboxRetentionJobParams) (Job, error) {
	switch {
	case p.Logger == nil:
		return nil, errors.New("logger required")
	case p.DB == nil:
		return nil, errors.New("db runner required")
	case p.Events == nil:
		return nil, errors.New("outbox repository required")
	}
	return &outboxRetentionJob{
		logg:        p.Logger,
		db:          p.DB,
		events:      p.Events,
		deadLetters: p.DeadLetters,
		keepEvents:  positiveOr(p.RetentionDays, 30),
		keepDead:    positiveOr(p.DeadLetterRetention, 90),
		maxAttempts: positiveOr(p.MaxAttempts, 10),
		now:         time.Now,
	}, nil
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	today := j.now().UTC()
	eventCutoff := today.AddDate(0, 0, -j.keepEvents)
	deadCutoff := today.AddDate(0, 0, -j.keepDead)

	var events, dead int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		if events, err = j.events.DeletePublishedBefore(ctx, tx, eventCutoff, j.maxAttempts); err != nil {
			return fmt.Errorf("purge outbox events: %w", err)
		}
		if j.deadLetters == nil {
			return nil
		}
		if dead, err = j.deadLetters.PurgeBefore(ctx, tx, deadCutoff); err != nil {
			return fmt.Errorf("purge dead letters: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"event_cutoff":        eventCutoff,
		"events_deleted":      events,
		"dead_letter_cutoff":  deadCutoff,
		"dead_letters_purged": dead,
	}), "outbox retention complete")
	return nil
}
