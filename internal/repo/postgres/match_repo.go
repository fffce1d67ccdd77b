package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gadsdencode/vybechex-sub000/internal/domain/enums"
	"github.com/gadsdencode/vybechex-sub000/internal/domain/errs"
	"github.com/gadsdencode/vybechex-sub000/internal/domain/model"
)

const matchColumns = `id, user_a_id, user_b_id, initiator_id, status, score, created_at, last_activity_at, responded_at`

type MatchRepo struct {
	pool *pgxpool.Pool
}

type NewMatch struct {
	InitiatorID int64
	TargetID    int64
	Score       int
	CreatedAt   time.Time
}

func NewMatchRepo(pool *pgxpool.Pool) *MatchRepo {
	return &MatchRepo{pool: pool}
}

func (r *MatchRepo) ExistsForPair(ctx context.Context, userID, targetID int64) (bool, error) {
	if r.pool == nil {
		return false, errs.Transient("lookup match pair", errNilPool)
	}

	userA, userB := model.CanonicalPair(userID, targetID)

	var exists bool
	err := r.pool.QueryRow(ctx, `
SELECT EXISTS (
	SELECT 1
	FROM matches
	WHERE user_a_id = $1 AND user_b_id = $2
)
`, userA, userB).Scan(&exists)
	if err != nil {
		return false, classify("lookup match pair", err)
	}
	return exists, nil
}

// Insert relies on the unique pair constraint: when a concurrent request for the
// same unordered pair wins, no row is returned and ErrDuplicateMatch is reported.
func (r *MatchRepo) Insert(ctx context.Context, in NewMatch) (model.Match, error) {
	if in.InitiatorID <= 0 || in.TargetID <= 0 || in.InitiatorID == in.TargetID {
		return model.Match{}, fmt.Errorf("invalid match payload: %w", errs.ErrValidation)
	}
	if r.pool == nil {
		return model.Match{}, errs.Transient("insert match", errNilPool)
	}

	userA, userB := model.CanonicalPair(in.InitiatorID, in.TargetID)

	row := r.pool.QueryRow(ctx, `
INSERT INTO matches (
	user_a_id,
	user_b_id,
	initiator_id,
	status,
	score,
	created_at,
	last_activity_at
) VALUES ($1, $2, $3, $6, $4, $5, $5)
ON CONFLICT (user_a_id, user_b_id) DO NOTHING
RETURNING `+matchColumns, userA, userB, in.InitiatorID, in.Score, in.CreatedAt.UTC(), string(enums.MatchStatusRequested))

	match, err := scanMatch(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Match{}, errs.ErrDuplicateMatch
		}
		return model.Match{}, classify("insert match", err)
	}
	return match, nil
}

func (r *MatchRepo) GetByID(ctx context.Context, matchID int64) (model.Match, error) {
	if r.pool == nil {
		return model.Match{}, errs.Transient("get match", errNilPool)
	}

	match, err := scanMatch(r.pool.QueryRow(ctx, `
SELECT `+matchColumns+`
FROM matches
WHERE id = $1
`, matchID))
	if err != nil {
		return model.Match{}, classify("get match", err)
	}
	return match, nil
}

// TransitionFromRequested is a compare-and-swap on status. The responder must be
// the non-initiating participant; any other case affects zero rows.
func (r *MatchRepo) TransitionFromRequested(ctx context.Context, matchID, responderID int64, to enums.MatchStatus, at time.Time) (model.Match, error) {
	if !to.IsPersisted() || !to.IsTerminal() {
		return model.Match{}, fmt.Errorf("invalid target status %q: %w", to, errs.ErrValidation)
	}
	if r.pool == nil {
		return model.Match{}, errs.Transient("transition match", errNilPool)
	}

	match, err := scanMatch(r.pool.QueryRow(ctx, `
UPDATE matches
SET
	status = $3,
	responded_at = $4,
	last_activity_at = $4
WHERE id = $1
	AND status = 'requested'
	AND initiator_id <> $2
	AND (user_a_id = $2 OR user_b_id = $2)
RETURNING `+matchColumns, matchID, responderID, string(to), at.UTC()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Match{}, errs.ErrInvalidState
		}
		return model.Match{}, classify("transition match", err)
	}
	return match, nil
}

func (r *MatchRepo) ListForUser(ctx context.Context, userID int64) ([]model.Match, error) {
	if r.pool == nil {
		return nil, errs.Transient("list matches", errNilPool)
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+matchColumns+`
FROM matches
WHERE user_a_id = $1 OR user_b_id = $1
ORDER BY last_activity_at DESC, id DESC
`, userID)
	if err != nil {
		return nil, classify("list matches", err)
	}
	defer rows.Close()

	items := make([]model.Match, 0)
	for rows.Next() {
		match, err := scanMatch(rows)
		if err != nil {
			return nil, classify("scan match", err)
		}
		items = append(items, match)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate matches", err)
	}

	return items, nil
}

func scanMatch(row pgx.Row) (model.Match, error) {
	var (
		m      model.Match
		status string
	)
	if err := row.Scan(
		&m.ID,
		&m.UserAID,
		&m.UserBID,
		&m.InitiatorID,
		&status,
		&m.Score,
		&m.CreatedAt,
		&m.LastActivityAt,
		&m.RespondedAt,
	); err != nil {
		return model.Match{}, err
	}
	m.Status = enums.MatchStatus(status)
	if !m.Status.IsPersisted() {
		return model.Match{}, fmt.Errorf("match %d has unknown status %q", m.ID, status)
	}
	return m, nil
}
