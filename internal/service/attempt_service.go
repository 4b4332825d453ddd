package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/examarena/examarena-backend/internal/config"
	"github.com/examarena/examarena-backend/internal/model"
	"github.com/examarena/examarena-backend/internal/repository"
	"github.com/examarena/examarena-backend/internal/response"
	"github.com/examarena/examarena-backend/internal/scoring"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Domain errors for the attempt lifecycle.
var (
	ErrExamNotActive     = errors.New("exam is not active")
	ErrAttemptNotFound   = errors.New("no attempt found for this exam")
	ErrDeadlineExceeded  = errors.New("attempt deadline has passed")
	ErrResultsNotVisible = errors.New("results have not been announced")
)

// submitGrace absorbs clock skew and network latency on submits that
// race the deadline.
const submitGrace = 5 * time.Second

// AttemptService handles the exam attempt lifecycle: start, state
// recovery, autosave, submit, and result review.
type AttemptService struct {
	attemptRepo  *repository.AttemptRepository
	examRepo     *repository.ExamRepository
	questionRepo *repository.QuestionRepository
	examService  *ExamService
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	attemptRepo *repository.AttemptRepository,
	examRepo *repository.ExamRepository,
	questionRepo *repository.QuestionRepository,
	examService *ExamService,
	rdb *redis.Client,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		attemptRepo:  attemptRepo,
		examRepo:     examRepo,
		questionRepo: questionRepo,
		examService:  examService,
		rdb:          rdb,
		log:          log.With().Str("component", "attempt_service").Logger(),
	}
}

// Start creates an attempt for an active exam, or resumes the caller's
// existing in-progress attempt. The deadline is fixed at start time:
// the earlier of start+duration and the exam's end_time, so a late
// starter never gets extra time past the exam window.
func (s *AttemptService) Start(ctx context.Context, examID, userID uuid.UUID) (*model.Attempt, error) {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExamNotActive
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if exam.Status != model.ExamStatusActive {
		return nil, ErrExamNotActive
	}

	now := time.Now()
	deadline := now.Add(time.Duration(exam.DurationMinutes) * time.Minute)
	if deadline.After(exam.EndTime) {
		deadline = exam.EndTime
	}

	attempt := &model.Attempt{
		ExamID:    examID,
		UserID:    userID,
		StartTime: now,
		Deadline:  deadline,
		Status:    model.AttemptStatusInProgress,
	}

	if err := s.attemptRepo.Create(ctx, attempt); err != nil {
		if !errors.Is(err, repository.ErrAttemptExists) {
			return nil, fmt.Errorf("create attempt: %w", err)
		}

		// A row already exists: resume if still open, otherwise refuse.
		existing, fetchErr := s.attemptRepo.GetByExamAndUser(ctx, examID, userID)
		if fetchErr != nil {
			return nil, fmt.Errorf("fetch existing attempt: %w", fetchErr)
		}
		if existing.Status != model.AttemptStatusInProgress {
			return nil, repository.ErrAttemptExists
		}
		s.cacheDeadline(ctx, examID, userID, existing.Deadline)
		return existing, nil
	}

	s.cacheDeadline(ctx, examID, userID, attempt.Deadline)

	s.log.Info().
		Str("exam_id", examID.String()).
		Str("user_id", userID.String()).
		Time("deadline", attempt.Deadline).
		Msg("Attempt started")
	return attempt, nil
}

// GetPaper returns the cached exam paper for the caller's open attempt.
// Correct answers are never part of the payload.
func (s *AttemptService) GetPaper(ctx context.Context, examID, userID uuid.UUID) (*model.ExamPayload, error) {
	if _, err := s.requireOpenAttempt(ctx, examID, userID); err != nil {
		return nil, err
	}
	return s.examService.GetExamPayload(ctx, examID)
}

// GetState returns autosaved answers and the remaining seconds so a
// reconnecting client can restore its navigator and countdown.
func (s *AttemptService) GetState(ctx context.Context, examID, userID uuid.UUID) (*model.AttemptState, error) {
	attempt, err := s.getAttempt(ctx, examID, userID)
	if err != nil {
		return nil, err
	}

	answers, err := s.rdb.HGetAll(ctx, config.CacheKey.UserAnswersKey(examID.String(), userID.String())).Result()
	if err != nil {
		return nil, fmt.Errorf("get autosaved answers: %w", err)
	}

	deadline, err := s.getDeadline(ctx, examID, userID, attempt)
	if err != nil {
		return nil, err
	}

	remaining := time.Until(deadline)
	if remaining < 0 || attempt.Status != model.AttemptStatusInProgress {
		remaining = 0
	}

	return &model.AttemptState{
		ExamID:           examID,
		AttemptID:        attempt.ID,
		Status:           attempt.Status,
		AutosavedAnswers: answers,
		RemainingSeconds: int64(remaining.Seconds()),
	}, nil
}

// Autosave buffers one answer selection in Redis and queues it for
// asynchronous persistence. The write path stays off PostgreSQL.
func (s *AttemptService) Autosave(ctx context.Context, examID, userID, questionID uuid.UUID, answer string, marked bool) error {
	if _, err := s.requireOpenAttempt(ctx, examID, userID); err != nil {
		return err
	}

	key := config.CacheKey.UserAnswersKey(examID.String(), userID.String())
	if err := s.rdb.HSet(ctx, key, questionID.String(), answer).Err(); err != nil {
		return fmt.Errorf("autosave to redis: %w", err)
	}

	payload, err := json.Marshal(map[string]interface{}{
		"user_id":     userID.String(),
		"exam_id":     examID.String(),
		"question_id": questionID.String(),
		"answer":      answer,
		"marked":      marked,
	})
	if err != nil {
		return fmt.Errorf("marshal autosave payload: %w", err)
	}

	return s.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, payload).Err()
}

// Submit finalizes the caller's attempt. Explicit answers win over
// autosaved ones for the same question. Grading happens synchronously
// against the Redis answer key, and the attempt row plus its answers
// commit in one transaction. The returned attempt hides the score
// until results are announced.
func (s *AttemptService) Submit(ctx context.Context, examID, userID uuid.UUID, req *model.SubmitAttemptRequest) (*model.Attempt, error) {
	attempt, err := s.getAttempt(ctx, examID, userID)
	if err != nil {
		return nil, err
	}
	if attempt.Status != model.AttemptStatusInProgress {
		return nil, repository.ErrAttemptFinished
	}

	now := time.Now()
	if now.After(attempt.Deadline.Add(submitGrace)) {
		return nil, ErrDeadlineExceeded
	}
	endTime := now
	if endTime.After(attempt.Deadline) {
		endTime = attempt.Deadline
	}

	questions, err := s.questionRepo.ListByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	selected, marked, err := s.mergeAnswers(ctx, examID, userID, req.Answers)
	if err != nil {
		return nil, err
	}

	score := s.grade(ctx, examID, questions, selected)

	// Rows the autosave worker already flushed carry the moment the
	// student actually picked the answer. Keep those timestamps for
	// selections that did not change at submit.
	persisted, err := s.attemptRepo.GetAnswers(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("get persisted answers: %w", err)
	}

	answers := buildAnswerRows(questions, selected, marked, answeredTimes(persisted, selected), now)
	if err := s.attemptRepo.Submit(ctx, attempt.ID, endTime, score, answers); err != nil {
		return nil, err
	}

	s.clearAttemptCache(ctx, examID, userID)

	attempt.Status = model.AttemptStatusSubmitted
	attempt.EndTime = &endTime
	attempt.TotalScore = nil // hidden until results are announced

	s.log.Info().
		Str("exam_id", examID.String()).
		Str("user_id", userID.String()).
		Int("answers", len(answers)).
		Msg("Attempt submitted")
	return attempt, nil
}

// QuestionResult is one graded question in a result review.
type QuestionResult struct {
	model.Question
	CorrectAnswer  string  `json:"correct_answer"`
	SelectedAnswer *string `json:"selected_answer"`
	MarksAwarded   int     `json:"marks_awarded"`
}

// AttemptResult is the full post-announcement review of an attempt.
type AttemptResult struct {
	Attempt   model.Attempt    `json:"attempt"`
	ExamTitle string           `json:"exam_title"`
	MaxScore  int              `json:"max_score"`
	Questions []QuestionResult `json:"questions"`
}

// Result returns the graded review of the caller's attempt, including
// correct answers. Only available once the exam's results are announced.
func (s *AttemptService) Result(ctx context.Context, examID, userID uuid.UUID) (*AttemptResult, error) {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if exam.Status != model.ExamStatusResultsAnnounced {
		return nil, ErrResultsNotVisible
	}

	attempt, err := s.getAttempt(ctx, examID, userID)
	if err != nil {
		return nil, err
	}

	questions, err := s.questionRepo.ListByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	answers, err := s.attemptRepo.GetAnswers(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("get answers: %w", err)
	}
	byQuestion := make(map[uuid.UUID]*model.Answer, len(answers))
	for i := range answers {
		byQuestion[answers[i].QuestionID] = &answers[i]
	}

	results := make([]QuestionResult, 0, len(questions))
	for _, q := range questions {
		qr := QuestionResult{Question: q, CorrectAnswer: q.CorrectAnswer}
		if a, ok := byQuestion[q.ID]; ok && a.SelectedAnswer != nil {
			qr.SelectedAnswer = a.SelectedAnswer
			if *a.SelectedAnswer == q.CorrectAnswer {
				qr.MarksAwarded = q.Marks
			} else {
				qr.MarksAwarded = -q.NegativeMarks
			}
		}
		results = append(results, qr)
	}

	return &AttemptResult{
		Attempt:   *attempt,
		ExamTitle: exam.Title,
		MaxScore:  scoring.MaxScore(questions),
		Questions: results,
	}, nil
}

// ListMine returns the caller's attempt history for the dashboard.
// Scores and ranks are blanked for exams still awaiting announcement.
func (s *AttemptService) ListMine(ctx context.Context, userID uuid.UUID) ([]model.AttemptSummary, error) {
	summaries, err := s.attemptRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range summaries {
		if summaries[i].Status != model.AttemptStatusCompleted {
			summaries[i].TotalScore = nil
			summaries[i].Rank = nil
		}
	}
	if summaries == nil {
		summaries = []model.AttemptSummary{}
	}
	return summaries, nil
}

// ListByExam returns all attempts of an exam for the admin results view.
func (s *AttemptService) ListByExam(ctx context.Context, examID uuid.UUID, page, perPage int) ([]model.AttemptSummary, *response.Pagination, error) {
	page, perPage = clampPage(page, perPage)
	summaries, total, err := s.attemptRepo.ListByExam(ctx, examID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	if summaries == nil {
		summaries = []model.AttemptSummary{}
	}
	return summaries, buildPagination(page, perPage, total), nil
}

// ReportViolation queues a proctoring event for asynchronous persistence.
func (s *AttemptService) ReportViolation(ctx context.Context, examID, userID uuid.UUID, event string) error {
	payload, err := json.Marshal(map[string]interface{}{
		"user_id":   userID.String(),
		"exam_id":   examID.String(),
		"event":     event,
		"timestamp": time.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshal violation payload: %w", err)
	}
	return s.rdb.RPush(ctx, config.WorkerKey.PersistViolationsQueue, payload).Err()
}

// ────────────────────────────────────────────────────────────────────────────
// Internal helpers
// ────────────────────────────────────────────────────────────────────────────

func (s *AttemptService) getAttempt(ctx context.Context, examID, userID uuid.UUID) (*model.Attempt, error) {
	attempt, err := s.attemptRepo.GetByExamAndUser(ctx, examID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	return attempt, nil
}

func (s *AttemptService) requireOpenAttempt(ctx context.Context, examID, userID uuid.UUID) (*model.Attempt, error) {
	attempt, err := s.getAttempt(ctx, examID, userID)
	if err != nil {
		return nil, err
	}
	if attempt.Status != model.AttemptStatusInProgress {
		return nil, repository.ErrAttemptFinished
	}
	if time.Now().After(attempt.Deadline.Add(submitGrace)) {
		return nil, ErrDeadlineExceeded
	}
	return attempt, nil
}

// getDeadline reads the attempt deadline from Redis, falling back to
// the attempt row and self-healing the cache on a miss.
func (s *AttemptService) getDeadline(ctx context.Context, examID, userID uuid.UUID, attempt *model.Attempt) (time.Time, error) {
	key := config.CacheKey.AttemptDeadlineKey(examID.String(), userID.String())

	val, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			return time.Time{}, fmt.Errorf("redis error getting deadline: %w", err)
		}
		s.cacheDeadline(ctx, examID, userID, attempt.Deadline)
		return attempt.Deadline, nil
	}

	unix, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid deadline format in cache: %w", err)
	}
	return time.Unix(unix, 0), nil
}

func (s *AttemptService) cacheDeadline(ctx context.Context, examID, userID uuid.UUID, deadline time.Time) {
	key := config.CacheKey.AttemptDeadlineKey(examID.String(), userID.String())
	if err := s.rdb.Set(ctx, key, deadline.Unix(), 0).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to cache deadline")
	}
}

func (s *AttemptService) clearAttemptCache(ctx context.Context, examID, userID uuid.UUID) {
	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, config.CacheKey.UserAnswersKey(examID.String(), userID.String()))
	pipe.Del(ctx, config.CacheKey.AttemptDeadlineKey(examID.String(), userID.String()))
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Failed to clear attempt cache")
	}
}

// mergeAnswers combines autosaved selections with the submit payload.
// The payload wins per question. Returns the final selections and the
// review-marked set.
func (s *AttemptService) mergeAnswers(ctx context.Context, examID, userID uuid.UUID, explicit []model.AnswerInput) (map[uuid.UUID]string, map[uuid.UUID]bool, error) {
	selected := make(map[uuid.UUID]string)
	marked := make(map[uuid.UUID]bool)

	autosaved, err := s.rdb.HGetAll(ctx, config.CacheKey.UserAnswersKey(examID.String(), userID.String())).Result()
	if err != nil {
		return nil, nil, fmt.Errorf("get autosaved answers: %w", err)
	}
	for qid, answer := range autosaved {
		id, parseErr := uuid.Parse(qid)
		if parseErr != nil || answer == "" {
			continue
		}
		selected[id] = answer
	}

	for _, in := range explicit {
		marked[in.QuestionID] = in.IsMarkedForReview
		if in.SelectedAnswer == nil || *in.SelectedAnswer == "" {
			delete(selected, in.QuestionID)
			continue
		}
		selected[in.QuestionID] = *in.SelectedAnswer
	}

	return selected, marked, nil
}

// grade scores the selections with the cached answer key, falling back
// to the question rows already loaded from PostgreSQL.
func (s *AttemptService) grade(ctx context.Context, examID uuid.UUID, questions []model.Question, selected map[uuid.UUID]string) int {
	key, err := s.examService.GetAnswerKey(ctx, examID)
	if err != nil {
		s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Answer key cache miss, grading from db rows")
		return scoring.Score(questions, selected)
	}

	// Overlay the cached key onto the question rows so marks and
	// penalties still come from the source of truth.
	byID := make(map[uuid.UUID]model.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	graded := make([]model.Question, 0, len(questions))
	for idStr, correct := range key {
		id, parseErr := uuid.Parse(idStr)
		if parseErr != nil {
			continue
		}
		q, ok := byID[id]
		if !ok {
			continue
		}
		q.CorrectAnswer = correct
		graded = append(graded, q)
	}
	return scoring.Score(graded, selected)
}

// answeredTimes collects the answered_at of persisted rows whose
// selection matches the one being submitted. A changed selection gets
// a fresh timestamp instead.
func answeredTimes(persisted []model.Answer, selected map[uuid.UUID]string) map[uuid.UUID]time.Time {
	times := make(map[uuid.UUID]time.Time, len(persisted))
	for _, a := range persisted {
		if a.SelectedAnswer == nil || a.AnsweredAt == nil {
			continue
		}
		if selected[a.QuestionID] != *a.SelectedAnswer {
			continue
		}
		times[a.QuestionID] = *a.AnsweredAt
	}
	return times
}

// buildAnswerRows produces one row per exam question so reviews can
// show unanswered questions too.
func buildAnswerRows(questions []model.Question, selected map[uuid.UUID]string, marked map[uuid.UUID]bool, answeredAt map[uuid.UUID]time.Time, now time.Time) []model.Answer {
	rows := make([]model.Answer, 0, len(questions))
	for _, q := range questions {
		row := model.Answer{
			QuestionID:        q.ID,
			IsMarkedForReview: marked[q.ID],
		}
		if answer, ok := selected[q.ID]; ok {
			a := answer
			t := now
			if at, ok := answeredAt[q.ID]; ok {
				t = at
			}
			row.SelectedAnswer = &a
			row.AnsweredAt = &t
		}
		rows = append(rows, row)
	}
	return rows
}
