package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gadsdencode/vybechex-sub000/internal/domain/errs"
	"github.com/gadsdencode/vybechex-sub000/internal/domain/model"
)

type ProfileRepo struct {
	pool *pgxpool.Pool
}

// ProfileRecord is the raw shape written by the profile service. Trait axes
// arrive as free-form names and are normalized by the profiles service.
type ProfileRecord struct {
	UserID        int64
	DisplayName   string
	AvatarURL     string
	QuizCompleted bool
	Traits        map[string]float64
	Interests     []model.Interest
}

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

// GetByIDs loads profiles with their traits and interests in three queries,
// independent of how many ids are requested.
func (r *ProfileRepo) GetByIDs(ctx context.Context, userIDs []int64) ([]ProfileRecord, error) {
	if r.pool == nil {
		return nil, errs.Transient("list profiles", errNilPool)
	}
	if len(userIDs) == 0 {
		return []ProfileRecord{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT user_id, display_name, avatar_url, quiz_completed
FROM profiles
WHERE user_id = ANY($1)
ORDER BY user_id
`, userIDs)
	if err != nil {
		return nil, classify("list profiles", err)
	}
	defer rows.Close()

	items := make([]ProfileRecord, 0, len(userIDs))
	index := make(map[int64]int, len(userIDs))
	for rows.Next() {
		var item ProfileRecord
		if err := rows.Scan(&item.UserID, &item.DisplayName, &item.AvatarURL, &item.QuizCompleted); err != nil {
			return nil, classify("scan profile", err)
		}
		item.Traits = map[string]float64{}
		index[item.UserID] = len(items)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate profiles", err)
	}
	if len(items) == 0 {
		return items, nil
	}

	if err := r.attachTraits(ctx, userIDs, items, index); err != nil {
		return nil, err
	}
	if err := r.attachInterests(ctx, userIDs, items, index); err != nil {
		return nil, err
	}

	return items, nil
}

// ListSuggestionCandidates returns quiz-complete users that share no match row with the actor.
func (r *ProfileRepo) ListSuggestionCandidates(ctx context.Context, actorID int64, limit int) ([]ProfileRecord, error) {
	if limit <= 0 {
		limit = 200
	}
	if r.pool == nil {
		return nil, errs.Transient("list suggestion candidates", errNilPool)
	}

	rows, err := r.pool.Query(ctx, `
SELECT p.user_id
FROM profiles p
WHERE p.quiz_completed
	AND p.user_id <> $1
	AND NOT EXISTS (
		SELECT 1
		FROM matches m
		WHERE m.user_a_id = LEAST($1, p.user_id)
			AND m.user_b_id = GREATEST($1, p.user_id)
	)
ORDER BY p.updated_at DESC, p.user_id
LIMIT $2
`, actorID, limit)
	if err != nil {
		return nil, classify("list suggestion candidates", err)
	}
	defer rows.Close()

	ids := make([]int64, 0, limit)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, classify("scan suggestion candidate", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate suggestion candidates", err)
	}

	return r.GetByIDs(ctx, ids)
}

func (r *ProfileRepo) attachTraits(ctx context.Context, userIDs []int64, items []ProfileRecord, index map[int64]int) error {
	rows, err := r.pool.Query(ctx, `
SELECT user_id, axis, value
FROM profile_traits
WHERE user_id = ANY($1)
`, userIDs)
	if err != nil {
		return classify("list profile traits", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			userID int64
			axis   string
			value  float64
		)
		if err := rows.Scan(&userID, &axis, &value); err != nil {
			return classify("scan profile trait", err)
		}
		if i, ok := index[userID]; ok {
			items[i].Traits[axis] = value
		}
	}
	return classify("iterate profile traits", rows.Err())
}

func (r *ProfileRepo) attachInterests(ctx context.Context, userIDs []int64, items []ProfileRecord, index map[int64]int) error {
	rows, err := r.pool.Query(ctx, `
SELECT user_id, name, score, category
FROM profile_interests
WHERE user_id = ANY($1)
ORDER BY user_id, name
`, userIDs)
	if err != nil {
		return classify("list profile interests", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			userID   int64
			interest model.Interest
		)
		if err := rows.Scan(&userID, &interest.Name, &interest.Score, &interest.Category); err != nil {
			return classify("scan profile interest", err)
		}
		if i, ok := index[userID]; ok {
			items[i].Interests = append(items[i].Interests, interest)
		}
	}
	return classify("iterate profile interests", rows.Err())
}
