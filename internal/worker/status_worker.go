package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/examarena/examarena-backend/internal/config"
	"github.com/examarena/examarena-backend/internal/repository"
	"github.com/examarena/examarena-backend/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// StatusSweepInterval is how often the exam lifecycle sweep runs.
const StatusSweepInterval = 30 * time.Second

// StatusWorker advances exams through their scheduled lifecycle and
// force-submits attempts whose deadline passed while the taker was
// offline. Without it, a closed laptop would leave an attempt open
// forever.
type StatusWorker struct {
	examRepo    *repository.ExamRepository
	attemptRepo *repository.AttemptRepository
	examService *service.ExamService
	rdb         *redis.Client
	log         zerolog.Logger
}

func NewStatusWorker(
	examRepo *repository.ExamRepository,
	attemptRepo *repository.AttemptRepository,
	examService *service.ExamService,
	rdb *redis.Client,
	log zerolog.Logger,
) *StatusWorker {
	return &StatusWorker{
		examRepo:    examRepo,
		attemptRepo: attemptRepo,
		examService: examService,
		rdb:         rdb,
		log:         log.With().Str("component", "status_worker").Logger(),
	}
}

// Start begins the periodic sweep. Call in a goroutine.
func (w *StatusWorker) Start(ctx context.Context) {
	w.log.Info().Msg("StatusWorker started")

	ticker := time.NewTicker(StatusSweepInterval)
	defer ticker.Stop()

	// Run once immediately so a restart doesn't wait a full interval.
	w.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("StatusWorker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *StatusWorker) sweep(ctx context.Context) {
	w.activateExams(ctx)
	w.completeExams(ctx)
	w.expireAttempts(ctx)
}

// activateExams opens exams whose start_time arrived and makes sure
// their papers are cached before the first taker shows up.
func (w *StatusWorker) activateExams(ctx context.Context) {
	ids, err := w.examRepo.ActivateDue(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("Activate sweep failed")
		return
	}

	for _, id := range ids {
		exam, err := w.examRepo.GetByID(ctx, id)
		if err != nil {
			w.log.Error().Err(err).Str("exam_id", id.String()).Msg("Fetch activated exam failed")
			continue
		}
		if err := w.examService.WarmExamCache(ctx, exam); err != nil {
			w.log.Warn().Err(err).Str("exam_id", id.String()).Msg("Cache warm on activation failed")
		}
		w.log.Info().Str("exam_id", id.String()).Msg("Exam activated")
	}
}

// completeExams closes exams whose end_time passed and parks their
// submitted attempts in under_review until results are announced.
func (w *StatusWorker) completeExams(ctx context.Context) {
	ids, err := w.examRepo.CompleteDue(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("Complete sweep failed")
		return
	}

	for _, id := range ids {
		moved, err := w.attemptRepo.MarkUnderReview(ctx, id)
		if err != nil {
			w.log.Error().Err(err).Str("exam_id", id.String()).Msg("Mark under_review failed")
			continue
		}
		w.log.Info().
			Str("exam_id", id.String()).
			Int64("attempts", moved).
			Msg("Exam completed")
	}
}

// expireAttempts force-submits overdue attempts and queues them for
// asynchronous grading from their autosaved answers.
func (w *StatusWorker) expireAttempts(ctx context.Context) {
	expired, err := w.attemptRepo.ExpireOverdue(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("Expire sweep failed")
		return
	}
	if len(expired) == 0 {
		return
	}

	pipe := w.rdb.Pipeline()
	for _, a := range expired {
		payload, err := json.Marshal(map[string]string{
			"attempt_id": a.ID.String(),
			"exam_id":    a.ExamID.String(),
			"user_id":    a.UserID.String(),
		})
		if err != nil {
			continue
		}
		pipe.RPush(ctx, config.WorkerKey.ScoreAttemptsQueue, payload)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Msg("Enqueue expired attempts failed")
		return
	}

	w.log.Info().Int("count", len(expired)).Msg("Expired attempts queued for grading")
}
