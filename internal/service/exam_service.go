package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/examarena/examarena-backend/internal/config"
	"github.com/examarena/examarena-backend/internal/model"
	"github.com/examarena/examarena-backend/internal/repository"
	"github.com/examarena/examarena-backend/internal/response"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Domain errors for exam lifecycle management.
var (
	ErrExamNotDraft     = errors.New("exam is not in draft status")
	ErrExamNotCompleted = errors.New("exam is not completed yet")
	ErrNoQuestions      = errors.New("exam has no questions")
)

// ExamService handles exam lifecycle, question management, and the
// Redis exam cache.
type ExamService struct {
	examRepo     *repository.ExamRepository
	questionRepo *repository.QuestionRepository
	attemptRepo  *repository.AttemptRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(
	examRepo *repository.ExamRepository,
	questionRepo *repository.QuestionRepository,
	attemptRepo *repository.AttemptRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *ExamService {
	return &ExamService{
		examRepo:     examRepo,
		questionRepo: questionRepo,
		attemptRepo:  attemptRepo,
		rdb:          rdb,
		log:          log.With().Str("component", "exam_service").Logger(),
	}
}

// GetByID retrieves an exam by its UUID.
func (s *ExamService) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	return s.examRepo.GetByID(ctx, id)
}

// ListCatalog returns non-draft exams for the public catalog with an
// optional status filter.
func (s *ExamService) ListCatalog(ctx context.Context, status *model.ExamStatus, page, perPage int) ([]model.Exam, *response.Pagination, error) {
	page, perPage = clampPage(page, perPage)

	exams, total, err := s.examRepo.ListVisible(ctx, status, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	if exams == nil {
		exams = []model.Exam{}
	}

	return exams, buildPagination(page, perPage, total), nil
}

// ListAll returns every exam including drafts, for the admin console.
func (s *ExamService) ListAll(ctx context.Context, page, perPage int) ([]model.Exam, *response.Pagination, error) {
	page, perPage = clampPage(page, perPage)

	exams, total, err := s.examRepo.ListAll(ctx, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	if exams == nil {
		exams = []model.Exam{}
	}

	return exams, buildPagination(page, perPage, total), nil
}

// Create inserts a new exam as draft.
func (s *ExamService) Create(ctx context.Context, createdBy uuid.UUID, req *model.CreateExamRequest) (*model.Exam, error) {
	exam := &model.Exam{
		Title:           req.Title,
		Description:     req.Description,
		CreatedBy:       &createdBy,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		DurationMinutes: req.DurationMinutes,
		TotalMarks:      req.TotalMarks,
		ExamType:        req.ExamType,
		Status:          model.ExamStatusDraft,
	}
	if err := s.examRepo.Create(ctx, exam); err != nil {
		return nil, err
	}
	return exam, nil
}

// Update modifies a draft exam. Published exams are frozen.
func (s *ExamService) Update(ctx context.Context, id uuid.UUID, req *model.UpdateExamRequest) (*model.Exam, error) {
	exam, err := s.examRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if exam.Status != model.ExamStatusDraft {
		return nil, ErrExamNotDraft
	}

	if req.Title != "" {
		exam.Title = req.Title
	}
	if req.Description != nil {
		exam.Description = *req.Description
	}
	if req.StartTime != nil {
		exam.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		exam.EndTime = *req.EndTime
	}
	if req.DurationMinutes != 0 {
		exam.DurationMinutes = req.DurationMinutes
	}
	if req.TotalMarks != 0 {
		exam.TotalMarks = req.TotalMarks
	}
	if req.ExamType != "" {
		exam.ExamType = req.ExamType
	}
	if !exam.EndTime.After(exam.StartTime) {
		return nil, errors.New("end_time must be after start_time")
	}

	if err := s.examRepo.Update(ctx, exam); err != nil {
		return nil, err
	}
	return exam, nil
}

// Delete removes a draft exam.
func (s *ExamService) Delete(ctx context.Context, id uuid.UUID) error {
	exam, err := s.examRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if exam.Status != model.ExamStatusDraft {
		return ErrExamNotDraft
	}
	return s.examRepo.Delete(ctx, id)
}

// AddQuestion attaches a question to a draft exam.
func (s *ExamService) AddQuestion(ctx context.Context, examID uuid.UUID, req *model.AddQuestionRequest) (*model.Question, error) {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	if exam.Status != model.ExamStatusDraft {
		return nil, ErrExamNotDraft
	}

	q := &model.Question{
		ExamID:        examID,
		QuestionText:  req.QuestionText,
		OptionA:       req.OptionA,
		OptionB:       req.OptionB,
		OptionC:       req.OptionC,
		OptionD:       req.OptionD,
		CorrectAnswer: req.CorrectAnswer,
		Marks:         req.Marks,
		NegativeMarks: req.NegativeMarks,
		QuestionOrder: req.QuestionOrder,
	}
	if err := s.questionRepo.Create(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// ListQuestions returns an exam's questions with grading fields.
// Admin-only surface.
func (s *ExamService) ListQuestions(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	return s.questionRepo.ListByExam(ctx, examID)
}

// DeleteQuestion removes a question from a draft exam.
func (s *ExamService) DeleteQuestion(ctx context.Context, examID, questionID uuid.UUID) error {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return err
	}
	if exam.Status != model.ExamStatusDraft {
		return ErrExamNotDraft
	}
	return s.questionRepo.Delete(ctx, examID, questionID)
}

// Publish moves a draft exam into the schedule and warms its cache.
// An exam whose start window is already open goes straight to active.
func (s *ExamService) Publish(ctx context.Context, examID uuid.UUID) (*model.Exam, error) {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if exam.Status != model.ExamStatusDraft {
		return nil, ErrExamNotDraft
	}

	if err := s.WarmExamCache(ctx, exam); err != nil {
		return nil, err
	}

	next := model.ExamStatusUpcoming
	if !exam.StartTime.After(time.Now()) {
		next = model.ExamStatusActive
	}
	if err := s.examRepo.UpdateStatus(ctx, examID, next); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	exam.Status = next

	s.log.Info().
		Str("exam_id", examID.String()).
		Str("status", string(next)).
		Msg("Exam published")
	return exam, nil
}

// AnnounceResults ranks all scored attempts of a completed exam and
// makes its results public.
func (s *ExamService) AnnounceResults(ctx context.Context, examID uuid.UUID) (*model.Exam, error) {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if exam.Status != model.ExamStatusCompleted {
		return nil, ErrExamNotCompleted
	}

	ranked, err := s.attemptRepo.AssignRanks(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("assign ranks: %w", err)
	}

	if err := s.examRepo.UpdateStatus(ctx, examID, model.ExamStatusResultsAnnounced); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	exam.Status = model.ExamStatusResultsAnnounced

	s.log.Info().
		Str("exam_id", examID.String()).
		Int64("ranked", ranked).
		Msg("Results announced")
	return exam, nil
}

// WarmExamCache loads an exam's paper and answer key from PostgreSQL
// into Redis. The paper never contains correct answers; those live
// only in the separate answer key hash used for grading.
func (s *ExamService) WarmExamCache(ctx context.Context, exam *model.Exam) error {
	questions, err := s.questionRepo.ListByExam(ctx, exam.ID)
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}
	if len(questions) == 0 {
		return ErrNoQuestions
	}

	studentQuestions := make([]model.QuestionForStudent, len(questions))
	for i, q := range questions {
		studentQuestions[i] = q.ForStudent()
	}

	payload := model.ExamPayload{
		ExamID:    exam.ID,
		Title:     exam.Title,
		Duration:  exam.DurationMinutes,
		Questions: studentQuestions,
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	answerKey := make(map[string]interface{}, len(questions))
	for _, q := range questions {
		answerKey[q.ID.String()] = q.CorrectAnswer
	}

	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, config.CacheKey.ExamPayloadKey(exam.ID.String()), payloadJSON, 0)
	pipe.Del(ctx, config.CacheKey.ExamAnswerKey(exam.ID.String()))
	pipe.HSet(ctx, config.CacheKey.ExamAnswerKey(exam.ID.String()), answerKey)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache to redis: %w", err)
	}

	s.log.Debug().
		Str("exam_id", exam.ID.String()).
		Int("questions", len(questions)).
		Msg("Cache warmed")
	return nil
}

// PrewarmActiveCaches loads every upcoming and active exam into Redis
// on startup so the first taker never hits a cold cache.
func (s *ExamService) PrewarmActiveCaches(ctx context.Context) error {
	warmed := 0
	for _, status := range []model.ExamStatus{model.ExamStatusUpcoming, model.ExamStatusActive} {
		st := status
		exams, _, err := s.examRepo.ListVisible(ctx, &st, 500, 0)
		if err != nil {
			return fmt.Errorf("list %s exams: %w", status, err)
		}
		for i := range exams {
			if err := s.WarmExamCache(ctx, &exams[i]); err != nil {
				s.log.Warn().
					Err(err).
					Str("exam_id", exams[i].ID.String()).
					Msg("Failed to warm exam, skipping")
				continue
			}
			warmed++
		}
	}

	s.log.Info().Int("warmed", warmed).Msg("Prewarming complete")
	return nil
}

// GetExamPayload retrieves the cached student paper from Redis, falling
// back to a warm from PostgreSQL on a cache miss.
func (s *ExamService) GetExamPayload(ctx context.Context, examID uuid.UUID) (*model.ExamPayload, error) {
	key := config.CacheKey.ExamPayloadKey(examID.String())
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("get payload: %w", err)
		}

		// Cache miss. Rebuild from the source of truth.
		exam, dbErr := s.examRepo.GetByID(ctx, examID)
		if dbErr != nil {
			return nil, fmt.Errorf("exam not cached or in db: %w", dbErr)
		}
		if warmErr := s.WarmExamCache(ctx, exam); warmErr != nil {
			return nil, warmErr
		}
		if data, err = s.rdb.Get(ctx, key).Bytes(); err != nil {
			return nil, fmt.Errorf("get payload after warm: %w", err)
		}
	}

	var payload model.ExamPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &payload, nil
}

// GetAnswerKey retrieves the answer key hash from Redis for grading.
func (s *ExamService) GetAnswerKey(ctx context.Context, examID uuid.UUID) (map[string]string, error) {
	result, err := s.rdb.HGetAll(ctx, config.CacheKey.ExamAnswerKey(examID.String())).Result()
	if err != nil {
		return nil, fmt.Errorf("get answer key: %w", err)
	}
	if len(result) == 0 {
		return nil, errors.New("answer key not found in cache")
	}
	return result, nil
}

func clampPage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}
	return page, perPage
}

func buildPagination(page, perPage int, total int64) *response.Pagination {
	totalItems := int(total)
	return &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: totalItems,
		TotalPages: (totalItems + perPage - 1) / perPage,
	}
}
