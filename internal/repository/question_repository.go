package repository

import (
	"context"

	"github.com/examarena/examarena-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QuestionRepository handles exam question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// Create inserts a single question.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (exam_id, question_text, option_a, option_b, option_c, option_d,
		                        correct_answer, marks, negative_marks, question_order)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, created_at`,
		q.ExamID, q.QuestionText, q.OptionA, q.OptionB, q.OptionC, q.OptionD,
		q.CorrectAnswer, q.Marks, q.NegativeMarks, q.QuestionOrder,
	).Scan(&q.ID, &q.CreatedAt)
}

// BulkCreate inserts many questions at once using COPY. Used by the
// admin bulk import and the demo seeder.
func (r *QuestionRepository) BulkCreate(ctx context.Context, questions []model.Question) (int64, error) {
	rows := make([][]interface{}, 0, len(questions))
	for _, q := range questions {
		rows = append(rows, []interface{}{
			q.ExamID, q.QuestionText, q.OptionA, q.OptionB, q.OptionC, q.OptionD,
			q.CorrectAnswer, q.Marks, q.NegativeMarks, q.QuestionOrder,
		})
	}

	return r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"questions"},
		[]string{"exam_id", "question_text", "option_a", "option_b", "option_c", "option_d",
			"correct_answer", "marks", "negative_marks", "question_order"},
		pgx.CopyFromRows(rows),
	)
}

// ListByExam retrieves all questions of an exam in display order.
func (r *QuestionRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, question_text, option_a, option_b, option_c, option_d,
		        correct_answer, marks, negative_marks, question_order, created_at
		 FROM questions
		 WHERE exam_id = $1
		 ORDER BY question_order ASC, created_at ASC`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(
			&q.ID, &q.ExamID, &q.QuestionText, &q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD,
			&q.CorrectAnswer, &q.Marks, &q.NegativeMarks, &q.QuestionOrder, &q.CreatedAt,
		); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// CountByExam returns the number of questions attached to an exam.
func (r *QuestionRepository) CountByExam(ctx context.Context, examID uuid.UUID) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM questions WHERE exam_id = $1`, examID,
	).Scan(&total)
	return total, err
}

// Delete removes a question by ID within an exam.
func (r *QuestionRepository) Delete(ctx context.Context, examID, questionID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM questions WHERE id = $1 AND exam_id = $2`, questionID, examID,
	)
	return err
}
