package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/examarena/examarena-backend/internal/config"
	"github.com/examarena/examarena-backend/internal/model"
	"github.com/examarena/examarena-backend/internal/scoring"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	ScoreBatchSize    = 50
	ScoreBatchTimeout = 2 * time.Second
	ScorePollTimeout  = 1 * time.Second
)

// ScoringWorker grades attempts that were force-submitted at their
// deadline. Most answers are already in attempt_answers courtesy of
// the autosave worker; the Redis answer hash is merged in first so a
// selection saved moments before the deadline still counts even if
// its queue item never landed. This worker computes the score and
// writes it back in bulk.
type ScoringWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

func NewScoringWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *ScoringWorker {
	return &ScoringWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "scoring_worker").Logger(),
	}
}

type scorePayload struct {
	AttemptID string `json:"attempt_id"`
	ExamID    string `json:"exam_id"`
	UserID    string `json:"user_id"`
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *ScoringWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ScoringWorker started")

	batch := make([]*scorePayload, 0, ScoreBatchSize)
	lastFlush := time.Now()

	for {
		// Should flush?
		if len(batch) > 0 &&
			(len(batch) >= ScoreBatchSize || time.Since(lastFlush) >= ScoreBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, ScorePollTimeout, config.WorkerKey.ScoreAttemptsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var p scorePayload
			if err := json.Unmarshal([]byte(item[1]), &p); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &p)
		}
	}
}

// ----------------------------------------------------------------
// Grading + bulk update
// ----------------------------------------------------------------

func (w *ScoringWorker) flushSafe(ctx context.Context, batch []*scorePayload) {
	if len(batch) == 0 {
		return
	}

	scored, failed := w.gradeBatch(ctx, batch)

	if len(scored) > 0 {
		if err := w.bulkUpdateScores(ctx, scored); err != nil {
			w.log.Warn().Err(err).Msg("bulk score update failed, using fallback")

			for _, g := range scored {
				if err := w.persistSingle(ctx, g); err != nil {
					w.log.Error().Err(err).Msg("persistSingle failed, requeueing")
					failed = append(failed, g.payload)
				}
			}
		}
	}

	for _, p := range failed {
		raw, _ := json.Marshal(p)
		w.rdb.RPush(ctx, config.WorkerKey.ScoreAttemptsQueue, raw)
	}

	// Scores are durable → drop the Redis attempt buffers.
	w.bulkClearAttemptCache(ctx, batch)
}

type gradedAttempt struct {
	payload   *scorePayload
	attemptID uuid.UUID
	score     int
}

// gradeBatch loads questions per exam once and scores each attempt
// from its persisted answer rows.
func (w *ScoringWorker) gradeBatch(ctx context.Context, batch []*scorePayload) ([]*gradedAttempt, []*scorePayload) {
	questionCache := make(map[uuid.UUID][]model.Question)
	var scored []*gradedAttempt
	var failed []*scorePayload

	for _, p := range batch {
		attemptID, err := uuid.Parse(p.AttemptID)
		if err != nil {
			w.log.Error().Str("attempt_id", p.AttemptID).Msg("Discarding payload with invalid attempt UUID")
			continue
		}
		examID, err := uuid.Parse(p.ExamID)
		if err != nil {
			w.log.Error().Str("exam_id", p.ExamID).Msg("Discarding payload with invalid exam UUID")
			continue
		}

		questions, ok := questionCache[examID]
		if !ok {
			questions, err = w.loadQuestions(ctx, examID)
			if err != nil {
				w.log.Error().Err(err).Str("exam_id", p.ExamID).Msg("Load questions failed, requeueing")
				failed = append(failed, p)
				continue
			}
			questionCache[examID] = questions
		}

		selected, err := w.loadSelections(ctx, attemptID)
		if err != nil {
			w.log.Error().Err(err).Str("attempt_id", p.AttemptID).Msg("Load answers failed, requeueing")
			failed = append(failed, p)
			continue
		}

		// Fold in answers still sitting in the Redis hash and persist
		// them, before flushSafe drops the hash.
		if err := w.mergeAutosaved(ctx, p, attemptID, selected); err != nil {
			w.log.Error().Err(err).Str("attempt_id", p.AttemptID).Msg("Merge autosaved answers failed, requeueing")
			failed = append(failed, p)
			continue
		}

		scored = append(scored, &gradedAttempt{
			payload:   p,
			attemptID: attemptID,
			score:     scoring.Score(questions, selected),
		})
	}

	return scored, failed
}

func (w *ScoringWorker) loadQuestions(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	rows, err := w.pool.Query(ctx,
		`SELECT id, correct_answer, marks, negative_marks
		 FROM questions WHERE exam_id = $1`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.CorrectAnswer, &q.Marks, &q.NegativeMarks); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// mergeAutosaved overlays the attempt's Redis answer hash onto the
// persisted selections and upserts any straggler rows. The autosave
// worker refuses writes once the attempt left in_progress, so a
// last-second answer whose queue item arrived after the force-submit
// exists only in the hash at this point.
func (w *ScoringWorker) mergeAutosaved(ctx context.Context, p *scorePayload, attemptID uuid.UUID, selected map[uuid.UUID]string) error {
	autosaved, err := w.rdb.HGetAll(ctx, config.CacheKey.UserAnswersKey(p.ExamID, p.UserID)).Result()
	if err != nil {
		return err
	}

	for _, s := range overlayAutosaved(autosaved, selected) {
		if _, err := w.pool.Exec(ctx,
			`INSERT INTO attempt_answers (attempt_id, question_id, selected_answer, answered_at)
			 VALUES ($1, $2, $3, NOW())
			 ON CONFLICT (attempt_id, question_id) DO UPDATE
			 SET selected_answer = EXCLUDED.selected_answer,
			     answered_at = EXCLUDED.answered_at`,
			attemptID, s.questionID, s.answer,
		); err != nil {
			return err
		}
	}
	return nil
}

type stragglerAnswer struct {
	questionID uuid.UUID
	answer     string
}

// overlayAutosaved applies the Redis hash onto the persisted
// selections in place and returns the entries that still need a row
// in attempt_answers. Hash entries matching a persisted row need no
// write; malformed keys and empty answers are skipped.
func overlayAutosaved(autosaved map[string]string, selected map[uuid.UUID]string) []stragglerAnswer {
	var stragglers []stragglerAnswer
	for qid, answer := range autosaved {
		questionID, err := uuid.Parse(qid)
		if err != nil || answer == "" {
			continue
		}
		if selected[questionID] == answer {
			continue
		}
		selected[questionID] = answer
		stragglers = append(stragglers, stragglerAnswer{questionID: questionID, answer: answer})
	}
	return stragglers
}

func (w *ScoringWorker) loadSelections(ctx context.Context, attemptID uuid.UUID) (map[uuid.UUID]string, error) {
	rows, err := w.pool.Query(ctx,
		`SELECT question_id, selected_answer
		 FROM attempt_answers
		 WHERE attempt_id = $1 AND selected_answer IS NOT NULL`, attemptID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []model.Answer
	for rows.Next() {
		var a model.Answer
		if err := rows.Scan(&a.QuestionID, &a.SelectedAnswer); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return scoring.SelectedFromAnswers(answers), nil
}

// ----------------------------------------------------------------
// BULK PostgreSQL UPDATE using UNNEST + alias
// ----------------------------------------------------------------

func (w *ScoringWorker) bulkUpdateScores(ctx context.Context, scored []*gradedAttempt) error {
	n := len(scored)

	attemptIDs := make([]uuid.UUID, 0, n)
	scores := make([]int, 0, n)

	for _, g := range scored {
		attemptIDs = append(attemptIDs, g.attemptID)
		scores = append(scores, g.score)
	}

	query := `
		UPDATE exam_attempts AS a
		SET total_score = t.score
		FROM (
			SELECT u.attempt_id, u.score
			FROM UNNEST(
				$1::uuid[],
				$2::int[]
			) AS u (attempt_id, score)
		) AS t
		WHERE a.id = t.attempt_id
		  AND a.total_score IS NULL
	`

	_, err := w.pool.Exec(ctx, query, attemptIDs, scores)
	return err
}

// ----------------------------------------------------------------
// BULK Redis DEL for clearing attempt buffers
// ----------------------------------------------------------------

func (w *ScoringWorker) bulkClearAttemptCache(ctx context.Context, batch []*scorePayload) {
	pipe := w.rdb.Pipeline()

	for _, p := range batch {
		pipe.Del(ctx, config.CacheKey.UserAnswersKey(p.ExamID, p.UserID))
		pipe.Del(ctx, config.CacheKey.AttemptDeadlineKey(p.ExamID, p.UserID))
	}

	_, _ = pipe.Exec(ctx)
}

// ----------------------------------------------------------------
// FALLBACK single update
// ----------------------------------------------------------------

func (w *ScoringWorker) persistSingle(ctx context.Context, g *gradedAttempt) error {
	_, err := w.pool.Exec(ctx,
		`UPDATE exam_attempts
		 SET total_score = $1
		 WHERE id = $2 AND total_score IS NULL`,
		g.score, g.attemptID,
	)
	return err
}
