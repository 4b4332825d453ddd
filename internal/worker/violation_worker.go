package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/examarena/examarena-backend/internal/config"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	ViolationBatchSize    = 50
	ViolationBatchTimeout = 2 * time.Second
	ViolationPollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// ViolationWorker persists proctoring events (tab switches, fullscreen
// exits) reported over the exam WebSocket. Events land in an audit
// table and bump the attempt's violation counter in bulk.
type ViolationWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

func NewViolationWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *ViolationWorker {
	return &ViolationWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "violation_worker").Logger(),
	}
}

type violationPayload struct {
	UserID    string `json:"user_id"`
	ExamID    string `json:"exam_id"`
	Event     string `json:"event"`
	Timestamp int64  `json:"timestamp"`
}

func (w *ViolationWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ViolationWorker started")

	buffer := make([]*violationPayload, 0, ViolationBatchSize)
	lastFlushTime := time.Now()

	for {
		if len(buffer) > 0 {
			if len(buffer) >= ViolationBatchSize || time.Since(lastFlushTime) >= ViolationBatchTimeout {
				w.flushSafe(ctx, buffer)
				buffer = buffer[:0]
				lastFlushTime = time.Now()
			}
		}

		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		result, err := w.rdb.BLPop(ctx, ViolationPollTimeout, config.WorkerKey.PersistViolationsQueue).Result()
		if err != nil {
			if err == redis.Nil {
				continue // Queue empty, loop back to check flush timer
			}
			if ctx.Err() != nil {
				return
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}

		if len(result) < 2 {
			continue
		}

		var payload violationPayload
		if err := json.Unmarshal([]byte(result[1]), &payload); err != nil {
			// Malformed JSON cannot be retried. Log and discard.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed JSON")
			continue
		}

		buffer = append(buffer, &payload)
	}
}

// flushSafe attempts bulk insert, then fallback insert, then requeue.
func (w *ViolationWorker) flushSafe(ctx context.Context, batch []*violationPayload) {
	if err := w.bulkInsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")
		w.fallbackInsert(ctx, batch)
		return
	}

	if err := w.bulkIncrementCounters(ctx, batch); err != nil {
		w.log.Error().Err(err).Msg("Violation counter update failed")
	}
}

func (w *ViolationWorker) bulkInsert(ctx context.Context, batch []*violationPayload) error {
	rows := make([][]interface{}, 0, len(batch))
	for _, p := range batch {
		examID, err := uuid.Parse(p.ExamID)
		if err != nil {
			return err
		}
		userID, err := uuid.Parse(p.UserID)
		if err != nil {
			return err
		}
		rows = append(rows, []interface{}{
			examID, userID, p.Event, time.Unix(p.Timestamp, 0),
		})
	}

	_, err := w.pool.CopyFrom(
		ctx,
		pgx.Identifier{"attempt_violations"},
		[]string{"exam_id", "user_id", "event", "recorded_at"},
		pgx.CopyFromRows(rows),
	)
	return err
}

// bulkIncrementCounters adds the batch's per-attempt event counts to
// violation_count with a single UNNEST update.
func (w *ViolationWorker) bulkIncrementCounters(ctx context.Context, batch []*violationPayload) error {
	type pair struct{ examID, userID uuid.UUID }
	counts := make(map[pair]int)
	for _, p := range batch {
		examID, err := uuid.Parse(p.ExamID)
		if err != nil {
			continue
		}
		userID, err := uuid.Parse(p.UserID)
		if err != nil {
			continue
		}
		counts[pair{examID, userID}]++
	}

	examIDs := make([]uuid.UUID, 0, len(counts))
	userIDs := make([]uuid.UUID, 0, len(counts))
	deltas := make([]int, 0, len(counts))
	for k, n := range counts {
		examIDs = append(examIDs, k.examID)
		userIDs = append(userIDs, k.userID)
		deltas = append(deltas, n)
	}

	query := `
		UPDATE exam_attempts AS a
		SET violation_count = a.violation_count + t.delta
		FROM (
			SELECT u.exam_id, u.user_id, u.delta
			FROM UNNEST(
				$1::uuid[],
				$2::uuid[],
				$3::int[]
			) AS u (exam_id, user_id, delta)
		) AS t
		WHERE a.exam_id = t.exam_id
		  AND a.user_id = t.user_id
	`

	_, err := w.pool.Exec(ctx, query, examIDs, userIDs, deltas)
	return err
}

func (w *ViolationWorker) fallbackInsert(ctx context.Context, batch []*violationPayload) {
	requeueList := make([]*violationPayload, 0)

	for _, p := range batch {
		examID, err := uuid.Parse(p.ExamID)
		if err != nil {
			w.log.Error().Str("exam_id", p.ExamID).Msg("Dropping violation with invalid UUID")
			continue
		}
		userID, err := uuid.Parse(p.UserID)
		if err != nil {
			w.log.Error().Str("user_id", p.UserID).Msg("Dropping violation with invalid UUID")
			continue
		}

		_, err = w.pool.Exec(ctx,
			`WITH inserted AS (
				INSERT INTO attempt_violations (exam_id, user_id, event, recorded_at)
				VALUES ($1, $2, $3, $4)
			)
			UPDATE exam_attempts
			SET violation_count = violation_count + 1
			WHERE exam_id = $1 AND user_id = $2`,
			examID, userID, p.Event, time.Unix(p.Timestamp, 0),
		)
		if err != nil {
			w.log.Error().Err(err).Str("user_id", p.UserID).Msg("Insert failed, requeueing")
			requeueList = append(requeueList, p)
		}
	}

	if len(requeueList) > 0 {
		w.requeue(ctx, requeueList)
	}
}

func (w *ViolationWorker) requeue(ctx context.Context, items []*violationPayload) {
	pipe := w.rdb.Pipeline()
	for _, p := range items {
		data, _ := json.Marshal(p)
		pipe.RPush(ctx, config.WorkerKey.PersistViolationsQueue, data)
	}
	_, err := pipe.Exec(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("CRITICAL: Failed to requeue items to Redis. Data loss occurred.")
	} else {
		w.log.Info().Int("count", len(items)).Msg("Requeued failed items back to Redis")
		// Sleep a bit to avoid thrashing if the DB is down hard
		time.Sleep(2 * time.Second)
	}
}

func (w *ViolationWorker) shutdown(buffer []*violationPayload) {
	w.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flushSafe(shutdownCtx, buffer)
	}
}
