package repository

import (
	"context"
	"strconv"

	"github.com/examarena/examarena-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const examColumns = `id, title, description, created_by, start_time, end_time,
	duration_minutes, total_marks, exam_type, status, created_at, updated_at`

// ExamRepository handles exam data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

func scanExam(row interface{ Scan(dest ...any) error }) (*model.Exam, error) {
	e := &model.Exam{}
	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.CreatedBy, &e.StartTime, &e.EndTime,
		&e.DurationMinutes, &e.TotalMarks, &e.ExamType, &e.Status, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// GetByID retrieves an exam by ID.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	return scanExam(r.pool.QueryRow(ctx,
		`SELECT `+examColumns+` FROM exams WHERE id = $1`, id,
	))
}

// ListVisible retrieves non-draft exams for the catalog, newest start first,
// with optional status filter and pagination.
func (r *ExamRepository) ListVisible(ctx context.Context, status *model.ExamStatus, limit, offset int) ([]model.Exam, int64, error) {
	countQuery := `SELECT COUNT(*) FROM exams WHERE status <> 'draft'`
	query := `SELECT ` + examColumns + ` FROM exams WHERE status <> 'draft'`
	var args []any

	if status != nil {
		args = append(args, *status)
		countQuery += ` AND status = $1`
		query += ` AND status = $1`
	}

	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY start_time DESC LIMIT $` + strconv.Itoa(len(args)+1) +
		` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, 0, err
		}
		exams = append(exams, *e)
	}
	return exams, total, rows.Err()
}

// ListAll retrieves every exam, drafts included, for the admin console.
func (r *ExamRepository) ListAll(ctx context.Context, limit, offset int) ([]model.Exam, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM exams`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+examColumns+` FROM exams ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, 0, err
		}
		exams = append(exams, *e)
	}
	return exams, total, rows.Err()
}

// Create inserts a new exam in draft status.
func (r *ExamRepository) Create(ctx context.Context, e *model.Exam) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exams (title, description, created_by, start_time, end_time,
		                    duration_minutes, total_marks, exam_type, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at, updated_at`,
		e.Title, e.Description, e.CreatedBy, e.StartTime, e.EndTime,
		e.DurationMinutes, e.TotalMarks, e.ExamType, e.Status,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// Update modifies an exam's editable fields.
func (r *ExamRepository) Update(ctx context.Context, e *model.Exam) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exams
		 SET title = $1, description = $2, start_time = $3, end_time = $4,
		     duration_minutes = $5, total_marks = $6, exam_type = $7,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = $8`,
		e.Title, e.Description, e.StartTime, e.EndTime,
		e.DurationMinutes, e.TotalMarks, e.ExamType, e.ID,
	)
	return err
}

// UpdateStatus moves an exam to a new lifecycle status.
func (r *ExamRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.ExamStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exams SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		status, id,
	)
	return err
}

// Delete removes an exam. Questions and attempts cascade.
func (r *ExamRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM exams WHERE id = $1`, id)
	return err
}

// ActivateDue flips upcoming exams whose start_time has passed to active.
// Returns the IDs that changed so callers can warm caches.
func (r *ExamRepository) ActivateDue(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`UPDATE exams
		 SET status = 'active', updated_at = CURRENT_TIMESTAMP
		 WHERE status = 'upcoming' AND start_time <= NOW()
		 RETURNING id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CompleteDue flips active exams whose end_time has passed to completed.
func (r *ExamRepository) CompleteDue(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`UPDATE exams
		 SET status = 'completed', updated_at = CURRENT_TIMESTAMP
		 WHERE status = 'active' AND end_time <= NOW()
		 RETURNING id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountByStatus returns exam counts grouped by status for the admin dashboard.
func (r *ExamRepository) CountByStatus(ctx context.Context) (map[model.ExamStatus]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM exams GROUP BY status`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[model.ExamStatus]int64)
	for rows.Next() {
		var status model.ExamStatus
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
