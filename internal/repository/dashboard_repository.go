package repository

import (
	"context"
	"time"

	"github.com/examarena/examarena-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DashboardUpcomingExam is a slim exam row for the dashboard schedule.
type DashboardUpcomingExam struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	StartTime time.Time `json:"start_time"`
	Questions int64     `json:"questions"`
}

// DashboardRecentResult summarizes a recently finished exam.
type DashboardRecentResult struct {
	ExamID       uuid.UUID `json:"exam_id"`
	Title        string    `json:"title"`
	EndTime      time.Time `json:"end_time"`
	AttemptCount int64     `json:"attempt_count"`
	AverageScore *float64  `json:"average_score"`
}

// DashboardRepository aggregates metrics for the admin dashboard.
type DashboardRepository struct {
	pool *pgxpool.Pool
}

// NewDashboardRepository creates a new DashboardRepository.
func NewDashboardRepository(pool *pgxpool.Pool) *DashboardRepository {
	return &DashboardRepository{pool: pool}
}

// GetSummaryCounts returns total students, exams, questions, and attempts.
func (r *DashboardRepository) GetSummaryCounts(ctx context.Context) (students, exams, questions, attempts int64, err error) {
	err = r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM profiles WHERE role = 'student'),
			(SELECT COUNT(*) FROM exams),
			(SELECT COUNT(*) FROM questions),
			(SELECT COUNT(*) FROM exam_attempts)
	`).Scan(&students, &exams, &questions, &attempts)
	return
}

// GetExamStatusCounts returns exam counts grouped by lifecycle status.
func (r *DashboardRepository) GetExamStatusCounts(ctx context.Context) (map[model.ExamStatus]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM exams GROUP BY status`)
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

// GetUpcomingExams returns the next scheduled exams with question counts.
func (r *DashboardRepository) GetUpcomingExams(ctx context.Context, limit int) ([]DashboardUpcomingExam, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT e.id, e.title, e.start_time, COUNT(q.id)
		FROM exams e
		LEFT JOIN questions q ON q.exam_id = e.id
		WHERE e.status = 'upcoming'
		GROUP BY e.id
		ORDER BY e.start_time ASC
		LIMIT $1`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var upcoming []DashboardUpcomingExam
	for rows.Next() {
		var u DashboardUpcomingExam
		if err := rows.Scan(&u.ID, &u.Title, &u.StartTime, &u.Questions); err != nil {
			return nil, err
		}
		upcoming = append(upcoming, u)
	}
	return upcoming, rows.Err()
}

// GetRecentResults returns the latest finished exams with participation
// and average score.
func (r *DashboardRepository) GetRecentResults(ctx context.Context, limit int) ([]DashboardRecentResult, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT e.id, e.title, e.end_time, COUNT(a.id), AVG(a.total_score)
		FROM exams e
		LEFT JOIN exam_attempts a ON a.exam_id = e.id
		WHERE e.status IN ('completed', 'results_announced')
		GROUP BY e.id
		ORDER BY e.end_time DESC
		LIMIT $1`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recent []DashboardRecentResult
	for rows.Next() {
		var rr DashboardRecentResult
		if err := rows.Scan(&rr.ExamID, &rr.Title, &rr.EndTime, &rr.AttemptCount, &rr.AverageScore); err != nil {
			return nil, err
		}
		recent = append(recent, rr)
	}
	return recent, rows.Err()
}
