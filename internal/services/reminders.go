package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"studycoach-backend/internal/logger"
	"studycoach-backend/internal/models"
	"studycoach-backend/internal/repository"
)

const (
	ReminderQueue = "queue:revision-reminders"

	reminderPollInterval = 1 * time.Hour
	reminderBatchSize    = 200
	reminderLockTTL      = 24 * time.Hour
	reconcileBatchSize   = 100
)

type dueRevisionLister interface {
	ListDueForReminder(ctx context.Context, now time.Time, limit int) ([]repository.DueRevision, error)
}

type revisionReconciler interface {
	ReconcileRevisions(ctx context.Context, limit int) (int, error)
}

// ReminderScheduler enqueues one reminder job per due revision and
// periodically repairs missing revision entries.
type ReminderScheduler struct {
	revisions dueRevisionLister
	study     revisionReconciler
	redis     *redis.Client
	log       *logger.Logger
	interval  time.Duration
	stopChan  chan struct{}
}

func NewReminderScheduler(revisions dueRevisionLister, study revisionReconciler, redisClient *redis.Client, log *logger.Logger) *ReminderScheduler {
	return &ReminderScheduler{
		revisions: revisions,
		study:     study,
		redis:     redisClient,
		log:       log,
		interval:  reminderPollInterval,
		stopChan:  make(chan struct{}),
	}
}

func (s *ReminderScheduler) Start() {
	if s.revisions == nil || s.redis == nil {
		return
	}

	go s.loop(func(ctx context.Context, now time.Time) {
		if _, err := s.EnqueueDue(ctx, now); err != nil {
			s.log.Error("revision reminders: enqueue failed", "error", err)
		}
	})
	if s.study != nil {
		go s.loop(func(ctx context.Context, now time.Time) {
			if _, err := s.study.ReconcileRevisions(ctx, reconcileBatchSize); err != nil {
				s.log.Error("revision reconciliation failed", "error", err)
			}
		})
	}

	s.log.Info("reminder scheduler started", "interval", s.interval.String())
}

func (s *ReminderScheduler) Stop() {
	select {
	case <-s.stopChan:
		return
	default:
		close(s.stopChan)
	}
}

func (s *ReminderScheduler) loop(runFn func(ctx context.Context, now time.Time)) {
	// Run on startup as well as by interval.
	runFn(context.Background(), time.Now().UTC())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			runFn(context.Background(), time.Now().UTC())
		}
	}
}

// EnqueueDue pushes a job for every due revision not already queued and
// returns the number of jobs pushed.
func (s *ReminderScheduler) EnqueueDue(ctx context.Context, now time.Time) (int, error) {
	due, err := s.revisions.ListDueForReminder(ctx, now, reminderBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list due revisions: %w", err)
	}

	queued := 0
	for _, d := range due {
		locked, err := s.redis.SetNX(ctx, ReminderLockKey(d.ID.String()), "1", reminderLockTTL).Result()
		if err != nil {
			s.log.Warn("revision reminders: lock failed", "revision_id", d.ID, "error", err)
			continue
		}
		if !locked {
			continue
		}

		data, err := json.Marshal(reminderJob(d))
		if err != nil {
			continue
		}
		if err := s.redis.RPush(ctx, ReminderQueue, data).Err(); err != nil {
			s.log.Warn("revision reminders: enqueue failed", "revision_id", d.ID, "error", err)
			s.redis.Del(ctx, ReminderLockKey(d.ID.String()))
			continue
		}
		queued++
	}

	if queued > 0 {
		s.log.Info("revision reminders queued", "count", queued)
	}
	return queued, nil
}

// ReminderLockKey guards a revision against being queued twice while a reminder is pending.
func ReminderLockKey(revisionID string) string {
	return fmt.Sprintf("reminder_lock:%s", revisionID)
}

func reminderJob(d repository.DueRevision) models.ReminderJob {
	return models.ReminderJob{
		RevisionID: d.ID,
		UserID:     d.UserID,
		Email:      d.Email,
		Name:       d.Name,
		Subject:    d.Subject,
		Topic:      d.Topic,
		Kind:       d.Kind,
	}
}
