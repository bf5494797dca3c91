package repository

import (
	"context"
	"errors"

	"github.com/hlmaths/practice-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const questionColumns = `id, topic, paper, prompt, answer, solution, difficulty, source_year, created_at, updated_at`

// QuestionRepository handles question bank data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// QuestionFilter narrows question listings.
type QuestionFilter struct {
	Topic      string
	Paper      string
	Difficulty int
}

// List retrieves a page of questions matching the filter.
func (r *QuestionRepository) List(ctx context.Context, f QuestionFilter, limit, offset int) ([]model.Question, int, error) {
	where := ` WHERE ($1 = '' OR topic = $1) AND ($2 = '' OR paper = $2) AND ($3 = 0 OR difficulty = $3)`

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM questions`+where, f.Topic, f.Paper, f.Difficulty,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions`+where+` ORDER BY id LIMIT $4 OFFSET $5`,
		f.Topic, f.Paper, f.Difficulty, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	questions, err := scanQuestions(rows)
	return questions, total, err
}

// ListRandom retrieves up to n random questions matching the filter.
func (r *QuestionRepository) ListRandom(ctx context.Context, f QuestionFilter, n int) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions
		 WHERE ($1 = '' OR topic = $1) AND ($2 = '' OR paper = $2) AND ($3 = 0 OR difficulty = $3)
		 ORDER BY random() LIMIT $4`,
		f.Topic, f.Paper, f.Difficulty, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanQuestions(rows)
}

// GetByID retrieves a single question.
func (r *QuestionRepository) GetByID(ctx context.Context, id string) (*model.Question, error) {
	var q model.Question
	var year *int
	err := r.pool.QueryRow(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = $1`, id,
	).Scan(&q.ID, &q.Topic, &q.Paper, &q.Prompt, &q.Answer, &q.Solution,
		&q.Difficulty, &year, &q.CreatedAt, &q.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if year != nil {
		q.SourceYear = *year
	}
	return &q, nil
}

// Create inserts a new question.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO questions (id, topic, paper, prompt, answer, solution, difficulty, source_year)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, 0))
		 RETURNING created_at, updated_at`,
		q.ID, q.Topic, q.Paper, q.Prompt, q.Answer, q.Solution, q.Difficulty, q.SourceYear,
	).Scan(&q.CreatedAt, &q.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}

// Update edits an existing question's content fields.
func (r *QuestionRepository) Update(ctx context.Context, q *model.Question) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE questions
		 SET prompt = $2, answer = $3, solution = $4, difficulty = $5,
		     source_year = NULLIF($6, 0), updated_at = now()
		 WHERE id = $1`,
		q.ID, q.Prompt, q.Answer, q.Solution, q.Difficulty, q.SourceYear)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a question from the bank.
func (r *QuestionRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Topics returns the distinct topics present in the bank with counts.
func (r *QuestionRepository) Topics(ctx context.Context) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT topic, COUNT(*) FROM questions GROUP BY topic`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	topics := make(map[string]int)
	for rows.Next() {
		var topic string
		var count int
		if err := rows.Scan(&topic, &count); err != nil {
			return nil, err
		}
		topics[topic] = count
	}
	return topics, rows.Err()
}

func scanQuestions(rows pgx.Rows) ([]model.Question, error) {
	var questions []model.Question
	for rows.Next() {
		var q model.Question
		var year *int
		if err := rows.Scan(&q.ID, &q.Topic, &q.Paper, &q.Prompt, &q.Answer, &q.Solution,
			&q.Difficulty, &year, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, err
		}
		if year != nil {
			q.SourceYear = *year
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}
