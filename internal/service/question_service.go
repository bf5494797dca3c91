package service

import (
	"context"

	"github.com/hlmaths/practice-backend/internal/model"
	"github.com/hlmaths/practice-backend/internal/progress"
	"github.com/hlmaths/practice-backend/internal/repository"
	"github.com/rs/zerolog"
)

// QuestionService handles question bank reads and admin CRUD.
type QuestionService struct {
	repo *repository.QuestionRepository
	pm   progress.PaperMap
	log  zerolog.Logger
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(repo *repository.QuestionRepository, pm progress.PaperMap, log zerolog.Logger) *QuestionService {
	return &QuestionService{
		repo: repo,
		pm:   pm,
		log:  log.With().Str("component", "question_service").Logger(),
	}
}

// List returns a page of questions matching the filter.
func (s *QuestionService) List(ctx context.Context, f repository.QuestionFilter, limit, offset int) ([]model.Question, int, error) {
	return s.repo.List(ctx, f, limit, offset)
}

// ListRandom returns up to n random questions matching the filter.
func (s *QuestionService) ListRandom(ctx context.Context, f repository.QuestionFilter, n int) ([]model.Question, error) {
	return s.repo.ListRandom(ctx, f, n)
}

// GetByID returns a single question.
func (s *QuestionService) GetByID(ctx context.Context, id string) (*model.Question, error) {
	return s.repo.GetByID(ctx, id)
}

// Topics returns the distinct topics in the bank with question counts.
func (s *QuestionService) Topics(ctx context.Context) (map[string]int, error) {
	return s.repo.Topics(ctx)
}

// Create adds a question, deriving topic and paper from its ID so the
// bank's classification always matches what the progress tree will use.
func (s *QuestionService) Create(ctx context.Context, req model.CreateQuestionRequest) (*model.Question, error) {
	topic := progress.TopicOf(req.ID)
	q := &model.Question{
		ID:         req.ID,
		Topic:      topic,
		Paper:      string(s.pm.PaperFor(topic)),
		Prompt:     req.Prompt,
		Answer:     req.Answer,
		Solution:   req.Solution,
		Difficulty: req.Difficulty,
		SourceYear: req.SourceYear,
	}
	if q.Difficulty == 0 {
		q.Difficulty = 1
	}
	if err := s.repo.Create(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// Update edits a question's content. ID, topic and paper are immutable.
func (s *QuestionService) Update(ctx context.Context, id string, req model.UpdateQuestionRequest) (*model.Question, error) {
	q := &model.Question{
		ID:         id,
		Prompt:     req.Prompt,
		Answer:     req.Answer,
		Solution:   req.Solution,
		Difficulty: req.Difficulty,
		SourceYear: req.SourceYear,
	}
	if q.Difficulty == 0 {
		q.Difficulty = 1
	}
	if err := s.repo.Update(ctx, q); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// Delete removes a question from the bank.
func (s *QuestionService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
