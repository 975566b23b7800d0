package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/polling-service/internal/domain"
	apperrors "github.com/spec-kit/polling-service/pkg/util"
)

const uniqueViolationCode = "23505"

// VoteRepository encapsulates vote persistence. The votes table carries a
// UNIQUE(poll_id, student_name) constraint; Create surfaces violations as
// a DUPLICATE_VOTE domain error.
type VoteRepository interface {
	Create(ctx context.Context, vote *domain.Vote) error
	CountByPoll(ctx context.Context, pollID string) (int, error)
	CountGroupedByOption(ctx context.Context, pollID string) (map[string]int, error)
	DeleteByPollAndStudent(ctx context.Context, pollID, studentName string) (*domain.Vote, error)
}

type voteRepository struct {
	pool *pgxpool.Pool
}

// NewVoteRepository instantiates repository.
func NewVoteRepository(pool *pgxpool.Pool) VoteRepository {
	return &voteRepository{pool: pool}
}

func (r *voteRepository) Create(ctx context.Context, vote *domain.Vote) error {
	const query = `
        INSERT INTO votes (poll_id, student_name, selected_option)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query,
		vote.PollID,
		vote.StudentName,
		vote.SelectedOption,
	).Scan(&vote.ID, &vote.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return apperrors.NewDuplicateVote("student has already voted on this poll")
		}
		return err
	}
	return nil
}

func (r *voteRepository) CountByPoll(ctx context.Context, pollID string) (int, error) {
	const query = `SELECT COUNT(*) FROM votes WHERE poll_id=$1`
	var count int
	if err := r.pool.QueryRow(ctx, query, pollID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *voteRepository) CountGroupedByOption(ctx context.Context, pollID string) (map[string]int, error) {
	const query = `
        SELECT selected_option, COUNT(*) FROM votes
        WHERE poll_id=$1 GROUP BY selected_option`
	rows, err := r.pool.Query(ctx, query, pollID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var option string
		var count int
		if err := rows.Scan(&option, &count); err != nil {
			return nil, err
		}
		counts[option] = count
	}
	return counts, rows.Err()
}

func (r *voteRepository) DeleteByPollAndStudent(ctx context.Context, pollID, studentName string) (*domain.Vote, error) {
	const query = `
        DELETE FROM votes WHERE poll_id=$1 AND student_name=$2
        RETURNING id, poll_id, student_name, selected_option, created_at`
	var vote domain.Vote
	if err := r.pool.QueryRow(ctx, query, pollID, studentName).Scan(
		&vote.ID,
		&vote.PollID,
		&vote.StudentName,
		&vote.SelectedOption,
		&vote.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &vote, nil
}
