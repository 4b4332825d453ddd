package repository

import (
	"context"
	"errors"
	"time"

	"github.com/examarena/examarena-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrAttemptExists   = errors.New("attempt already exists for this exam")
	ErrAttemptFinished = errors.New("attempt is no longer in progress")
)

const attemptColumns = `id, exam_id, user_id, start_time, deadline, end_time,
	status, total_score, rank, violation_count, created_at`

// AttemptRepository handles exam attempt data access.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

func scanAttempt(row interface{ Scan(dest ...any) error }) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := row.Scan(
		&a.ID, &a.ExamID, &a.UserID, &a.StartTime, &a.Deadline, &a.EndTime,
		&a.Status, &a.TotalScore, &a.Rank, &a.ViolationCount, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Create inserts an in_progress attempt with its deadline persisted.
// The UNIQUE (exam_id, user_id) constraint guarantees one attempt per
// user per exam even under concurrent start requests.
func (r *AttemptRepository) Create(ctx context.Context, a *model.Attempt) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO exam_attempts (exam_id, user_id, start_time, deadline, status)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (exam_id, user_id) DO NOTHING
		 RETURNING id, created_at`,
		a.ExamID, a.UserID, a.StartTime, a.Deadline, model.AttemptStatusInProgress,
	).Scan(&a.ID, &a.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return ErrAttemptExists
	}
	return err
}

// GetByExamAndUser retrieves the attempt for an exam-user combination.
func (r *AttemptRepository) GetByExamAndUser(ctx context.Context, examID, userID uuid.UUID) (*model.Attempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM exam_attempts
		 WHERE exam_id = $1 AND user_id = $2`, examID, userID,
	))
}

// Submit finalizes an attempt and persists its answer rows in a single
// transaction. The attempt row and its answers either all land or none
// do. The WHERE status guard makes repeat submits harmless.
func (r *AttemptRepository) Submit(ctx context.Context, attemptID uuid.UUID, endTime time.Time, score int, answers []model.Answer) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE exam_attempts
		 SET status = $1, end_time = $2, total_score = $3
		 WHERE id = $4 AND status = $5`,
		model.AttemptStatusSubmitted, endTime, score, attemptID, model.AttemptStatusInProgress,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAttemptFinished
	}

	// The autosave worker may have landed partial rows already. The
	// merged submit set is authoritative, so replace wholesale.
	if _, err := tx.Exec(ctx,
		`DELETE FROM attempt_answers WHERE attempt_id = $1`, attemptID,
	); err != nil {
		return err
	}

	if len(answers) > 0 {
		rows := make([][]interface{}, 0, len(answers))
		for _, ans := range answers {
			rows = append(rows, []interface{}{
				attemptID, ans.QuestionID, ans.SelectedAnswer, ans.IsMarkedForReview, ans.AnsweredAt,
			})
		}
		if _, err := tx.CopyFrom(
			ctx,
			pgx.Identifier{"attempt_answers"},
			[]string{"attempt_id", "question_id", "selected_answer", "is_marked_for_review", "answered_at"},
			pgx.CopyFromRows(rows),
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// MarkUnderReview moves submitted attempts of an exam to under_review.
// Called when the exam completes, before scores are verified.
func (r *AttemptRepository) MarkUnderReview(ctx context.Context, examID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_attempts SET status = $1
		 WHERE exam_id = $2 AND status = $3`,
		model.AttemptStatusUnderReview, examID, model.AttemptStatusSubmitted,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// AssignRanks ranks every scored attempt of an exam and marks them
// completed. Ordering is total_score descending; equal scores are
// broken by earlier finish, then attempt ID, so ranks are a strict
// 1..N sequence.
func (r *AttemptRepository) AssignRanks(ctx context.Context, examID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`WITH ranked AS (
			SELECT id,
			       ROW_NUMBER() OVER (
			           ORDER BY total_score DESC, end_time ASC NULLS LAST, id ASC
			       ) AS position
			FROM exam_attempts
			WHERE exam_id = $1
			  AND status IN ($2, $3)
			  AND total_score IS NOT NULL
		)
		UPDATE exam_attempts AS a
		SET rank = ranked.position, status = $4
		FROM ranked
		WHERE a.id = ranked.id`,
		examID, model.AttemptStatusSubmitted, model.AttemptStatusUnderReview,
		model.AttemptStatusCompleted,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ExpireOverdue force-submits in_progress attempts whose deadline has
// passed. end_time is pinned to the deadline, not to now, so a late
// sweep never inflates working time. Returns the affected attempts.
func (r *AttemptRepository) ExpireOverdue(ctx context.Context) ([]model.Attempt, error) {
	rows, err := r.pool.Query(ctx,
		`UPDATE exam_attempts
		 SET status = $1, end_time = deadline
		 WHERE status = $2 AND deadline <= NOW()
		 RETURNING `+attemptColumns,
		model.AttemptStatusSubmitted, model.AttemptStatusInProgress,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}

// ListByUser retrieves a user's attempts joined with exam display
// fields, newest first. Powers the dashboard history.
func (r *AttemptRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.AttemptSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.exam_id, a.user_id, a.start_time, a.deadline, a.end_time,
		        a.status, a.total_score, a.rank, a.violation_count, a.created_at,
		        e.title, e.total_marks
		 FROM exam_attempts a
		 JOIN exams e ON a.exam_id = e.id
		 WHERE a.user_id = $1
		 ORDER BY a.start_time DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []model.AttemptSummary
	for rows.Next() {
		var s model.AttemptSummary
		if err := rows.Scan(
			&s.ID, &s.ExamID, &s.UserID, &s.StartTime, &s.Deadline, &s.EndTime,
			&s.Status, &s.TotalScore, &s.Rank, &s.ViolationCount, &s.CreatedAt,
			&s.ExamTitle, &s.ExamTotalMarks,
		); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// ListByExam retrieves all attempts of an exam with the taker's name,
// ordered by score, for the admin results table.
func (r *AttemptRepository) ListByExam(ctx context.Context, examID uuid.UUID, limit, offset int) ([]model.AttemptSummary, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exam_attempts WHERE exam_id = $1`, examID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.exam_id, a.user_id, a.start_time, a.deadline, a.end_time,
		        a.status, a.total_score, a.rank, a.violation_count, a.created_at,
		        p.full_name, e.total_marks
		 FROM exam_attempts a
		 JOIN profiles p ON a.user_id = p.id
		 JOIN exams e ON a.exam_id = e.id
		 WHERE a.exam_id = $1
		 ORDER BY a.total_score DESC NULLS LAST, a.end_time ASC NULLS LAST
		 LIMIT $2 OFFSET $3`, examID, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var summaries []model.AttemptSummary
	for rows.Next() {
		var s model.AttemptSummary
		if err := rows.Scan(
			&s.ID, &s.ExamID, &s.UserID, &s.StartTime, &s.Deadline, &s.EndTime,
			&s.Status, &s.TotalScore, &s.Rank, &s.ViolationCount, &s.CreatedAt,
			&s.ExamTitle, &s.ExamTotalMarks,
		); err != nil {
			return nil, 0, err
		}
		summaries = append(summaries, s)
	}
	return summaries, total, rows.Err()
}

// GetAnswers retrieves the persisted answer rows of an attempt.
func (r *AttemptRepository) GetAnswers(ctx context.Context, attemptID uuid.UUID) ([]model.Answer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, attempt_id, question_id, selected_answer, is_marked_for_review, answered_at
		 FROM attempt_answers
		 WHERE attempt_id = $1`, attemptID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []model.Answer
	for rows.Next() {
		var a model.Answer
		if err := rows.Scan(
			&a.ID, &a.AttemptID, &a.QuestionID, &a.SelectedAnswer, &a.IsMarkedForReview, &a.AnsweredAt,
		); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}
