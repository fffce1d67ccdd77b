package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gadsdencode/vybechex-sub000/internal/domain/errs"
	"github.com/gadsdencode/vybechex-sub000/internal/domain/model"
)

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

// Append writes the message and bumps the match activity in one transaction,
// then resolves the sender's public profile for fan-out.
func (r *MessageRepo) Append(ctx context.Context, matchID, senderID int64, content string, at time.Time) (model.Message, error) {
	if r.pool == nil {
		return model.Message{}, errs.Transient("append message", errNilPool)
	}

	var msg model.Message
	err := WithTx(ctx, r.pool, func(txCtx context.Context, tx pgx.Tx) error {
		err := tx.QueryRow(txCtx, `
INSERT INTO messages (
	match_id,
	sender_id,
	content,
	created_at
) VALUES ($1, $2, $3, $4)
RETURNING id, match_id, sender_id, content, created_at
`, matchID, senderID, content, at.UTC()).Scan(
			&msg.ID,
			&msg.MatchID,
			&msg.SenderID,
			&msg.Content,
			&msg.CreatedAt,
		)
		if err != nil {
			return classify("insert message", err)
		}

		if _, err := tx.Exec(txCtx, `
UPDATE matches
SET last_activity_at = $2
WHERE id = $1
`, matchID, at.UTC()); err != nil {
			return classify("touch match activity", err)
		}

		msg.Sender = model.PublicProfile{UserID: senderID}
		err = tx.QueryRow(txCtx, `
SELECT display_name, avatar_url
FROM profiles
WHERE user_id = $1
`, senderID).Scan(&msg.Sender.DisplayName, &msg.Sender.AvatarURL)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return classify("load sender profile", err)
		}
		return nil
	})
	if err != nil {
		return model.Message{}, err
	}

	return msg, nil
}

// ListByMatch returns messages in insertion order, starting after afterID.
func (r *MessageRepo) ListByMatch(ctx context.Context, matchID, afterID int64, limit int) ([]model.Message, error) {
	if r.pool == nil {
		return nil, errs.Transient("list messages", errNilPool)
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
SELECT
	m.id,
	m.match_id,
	m.sender_id,
	m.content,
	m.created_at,
	COALESCE(p.display_name, ''),
	COALESCE(p.avatar_url, '')
FROM messages m
LEFT JOIN profiles p ON p.user_id = m.sender_id
WHERE m.match_id = $1 AND m.id > $2
ORDER BY m.id ASC
LIMIT $3
`, matchID, afterID, limit)
	if err != nil {
		return nil, classify("list messages", err)
	}
	defer rows.Close()

	items := make([]model.Message, 0, limit)
	for rows.Next() {
		var item model.Message
		if err := rows.Scan(
			&item.ID,
			&item.MatchID,
			&item.SenderID,
			&item.Content,
			&item.CreatedAt,
			&item.Sender.DisplayName,
			&item.Sender.AvatarURL,
		); err != nil {
			return nil, classify("scan message", err)
		}
		item.Sender.UserID = item.SenderID
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate messages", err)
	}

	return items, nil
}
