package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/polling-service/internal/domain"
	apperrors "github.com/spec-kit/polling-service/pkg/util"
)

// PollRepository encapsulates poll persistence.
type PollRepository interface {
	Create(ctx context.Context, poll *domain.Poll) error
	Update(ctx context.Context, poll *domain.Poll) error
	GetByID(ctx context.Context, id string) (*domain.Poll, error)
	ExistsActive(ctx context.Context) (bool, error)
	ListByStatus(ctx context.Context, statuses ...domain.PollStatus) ([]domain.Poll, error)
	ListHistory(ctx context.Context) ([]domain.Poll, error)
	IncrementOptionVotes(ctx context.Context, pollID, optionID string, delta int) error
}

type pollRepository struct {
	pool *pgxpool.Pool
}

// NewPollRepository instantiates repository.
func NewPollRepository(pool *pgxpool.Pool) PollRepository {
	return &pollRepository{pool: pool}
}

func (r *pollRepository) Create(ctx context.Context, poll *domain.Poll) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const pollQuery = `
        INSERT INTO polls (question, duration_seconds, start_time, status)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, pollQuery,
		poll.Question,
		poll.Duration,
		poll.StartTime,
		poll.Status,
	).Scan(&poll.ID, &poll.CreatedAt, &poll.UpdatedAt); err != nil {
		return err
	}

	const optionQuery = `
        INSERT INTO poll_options (poll_id, idx, option_text, votes)
        VALUES ($1,$2,$3,$4)
        RETURNING id`
	for i := range poll.Options {
		opt := &poll.Options[i]
		if err := tx.QueryRow(ctx, optionQuery, poll.ID, i, opt.Text, opt.Votes).Scan(&opt.ID); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *pollRepository) Update(ctx context.Context, poll *domain.Poll) error {
	const query = `
        UPDATE polls SET question=$1, duration_seconds=$2, start_time=$3, status=$4, updated_at=NOW()
        WHERE id=$5
        RETURNING updated_at`
	if err := r.pool.QueryRow(ctx, query,
		poll.Question,
		poll.Duration,
		poll.StartTime,
		poll.Status,
		poll.ID,
	).Scan(&poll.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("poll", map[string]any{"poll_id": poll.ID})
		}
		return err
	}
	return nil
}

func (r *pollRepository) GetByID(ctx context.Context, id string) (*domain.Poll, error) {
	const query = `
        SELECT id, question, duration_seconds, start_time, status, created_at, updated_at
        FROM polls WHERE id=$1`
	var poll domain.Poll
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&poll.ID,
		&poll.Question,
		&poll.Duration,
		&poll.StartTime,
		&poll.Status,
		&poll.CreatedAt,
		&poll.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("poll", map[string]any{"poll_id": id})
		}
		return nil, err
	}

	options, err := r.optionsForPoll(ctx, poll.ID)
	if err != nil {
		return nil, err
	}
	poll.Options = options
	return &poll, nil
}

func (r *pollRepository) ExistsActive(ctx context.Context) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM polls WHERE status=$1)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, domain.PollStatusActive).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *pollRepository) ListByStatus(ctx context.Context, statuses ...domain.PollStatus) ([]domain.Poll, error) {
	const query = `
        SELECT id, question, duration_seconds, start_time, status, created_at, updated_at
        FROM polls WHERE status = ANY($1)
        ORDER BY start_time DESC NULLS LAST, created_at DESC`
	statusStrings := make([]string, 0, len(statuses))
	for _, s := range statuses {
		statusStrings = append(statusStrings, string(s))
	}

	rows, err := r.pool.Query(ctx, query, statusStrings)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var polls []domain.Poll
	for rows.Next() {
		var poll domain.Poll
		if err := rows.Scan(
			&poll.ID,
			&poll.Question,
			&poll.Duration,
			&poll.StartTime,
			&poll.Status,
			&poll.CreatedAt,
			&poll.UpdatedAt,
		); err != nil {
			return nil, err
		}
		polls = append(polls, poll)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range polls {
		options, err := r.optionsForPoll(ctx, polls[i].ID)
		if err != nil {
			return nil, err
		}
		polls[i].Options = options
	}
	return polls, nil
}

func (r *pollRepository) ListHistory(ctx context.Context) ([]domain.Poll, error) {
	return r.ListByStatus(ctx, domain.PollStatusCompleted, domain.PollStatusCancelled)
}

func (r *pollRepository) IncrementOptionVotes(ctx context.Context, pollID, optionID string, delta int) error {
	const query = `UPDATE poll_options SET votes = votes + $1 WHERE poll_id=$2 AND id=$3`
	cmd, err := r.pool.Exec(ctx, query, delta, pollID, optionID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.NewNotFound("poll option", map[string]any{"poll_id": pollID, "option_id": optionID})
	}
	return nil
}

func (r *pollRepository) optionsForPoll(ctx context.Context, pollID string) ([]domain.PollOption, error) {
	const query = `
        SELECT id, option_text, votes FROM poll_options
        WHERE poll_id=$1 ORDER BY idx`
	rows, err := r.pool.Query(ctx, query, pollID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var options []domain.PollOption
	for rows.Next() {
		var opt domain.PollOption
		if err := rows.Scan(&opt.ID, &opt.Text, &opt.Votes); err != nil {
			return nil, err
		}
		options = append(options, opt)
	}
	return options, rows.Err()
}
