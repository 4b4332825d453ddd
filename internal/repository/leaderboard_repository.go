package repository

import (
	"context"

	"github.com/examarena/examarena-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LeaderboardRepository reads ranked attempts for public display.
type LeaderboardRepository struct {
	pool *pgxpool.Pool
}

// NewLeaderboardRepository creates a new LeaderboardRepository.
func NewLeaderboardRepository(pool *pgxpool.Pool) *LeaderboardRepository {
	return &LeaderboardRepository{pool: pool}
}

// Top retrieves the highest-ranked completed attempts across exams
// whose results are announced, optionally restricted to one exam.
// Rank was assigned at announcement time and is read back as-is.
func (r *LeaderboardRepository) Top(ctx context.Context, examID *uuid.UUID, limit int) ([]model.LeaderboardEntry, error) {
	query := `
		SELECT a.rank, a.user_id, a.total_score, a.exam_id, e.title,
		       p.full_name, p.profile_picture_url
		FROM exam_attempts a
		JOIN exams e ON a.exam_id = e.id
		JOIN profiles p ON a.user_id = p.id
		WHERE a.status = 'completed'
		  AND a.rank IS NOT NULL
		  AND e.status = 'results_announced'
	`
	args := []any{}

	if examID != nil {
		args = append(args, *examID)
		query += ` AND a.exam_id = $1`
	}

	args = append(args, limit)
	if examID != nil {
		query += ` ORDER BY a.rank ASC LIMIT $2`
	} else {
		query += ` ORDER BY a.rank ASC LIMIT $1`
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.LeaderboardEntry
	for rows.Next() {
		var e model.LeaderboardEntry
		if err := rows.Scan(
			&e.Rank, &e.UserID, &e.TotalScore, &e.ExamID, &e.ExamTitle,
			&e.FullName, &e.ProfilePictureURL,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
