package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"studycoach-backend/internal/logger"
	"studycoach-backend/internal/models"
	"studycoach-backend/internal/services"
)

type reminderMailer interface {
	SendRevisionReminderEmail(to, name, subject, topic, kind string) error
}

type reminderMarker interface {
	MarkReminded(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Pool drains the revision reminder queue and delivers the emails.
type Pool struct {
	redis       *redis.Client
	email       reminderMailer
	revisions   reminderMarker
	log         *logger.Logger
	workerCount int
	stopChan    chan struct{}
	now         func() time.Time
}

func NewPool(redisClient *redis.Client, email reminderMailer, revisions reminderMarker, workerCount int, log *logger.Logger) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Pool{
		redis:       redisClient,
		email:       email,
		revisions:   revisions,
		log:         log,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
		now:         time.Now,
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		go p.worker(i)
	}

	p.log.Info("started reminder workers", "count", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

func (p *Pool) worker(id int) {
	for {
		select {
		case <-p.stopChan:
			p.log.Info("worker shutting down", "worker", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with 30s timeout
		result, err := p.redis.BLPop(ctx, 30*time.Second, services.ReminderQueue).Result()
		if err != nil {
			continue // Timeout or error, retry
		}

		if len(result) < 2 {
			continue
		}

		var job models.ReminderJob
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			p.log.Warn("failed to parse reminder job", "worker", id, "error", err)
			continue
		}

		if err := p.process(ctx, job); err != nil {
			p.log.Error("reminder job failed", "worker", id, "revision_id", job.RevisionID, "error", err)
			// Let the next scheduler tick queue it again.
			p.redis.Del(ctx, services.ReminderLockKey(job.RevisionID.String()))
			continue
		}

		p.log.Info("reminder sent", "worker", id, "revision_id", job.RevisionID, "kind", job.Kind)
	}
}

func (p *Pool) process(ctx context.Context, job models.ReminderJob) error {
	if job.Email == "" {
		return fmt.Errorf("reminder job %s has no recipient", job.RevisionID)
	}
	if err := p.email.SendRevisionReminderEmail(job.Email, job.Name, job.Subject, job.Topic, job.Kind); err != nil {
		return err
	}
	if err := p.revisions.MarkReminded(ctx, job.RevisionID, p.now()); err != nil {
		return fmt.Errorf("failed to mark revision reminded: %w", err)
	}
	return nil
}
