package sqlstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/suatgpt/suatgpt-backend/internal/core/domain"
)

// TurnRepository implements ports.TurnRepository on the chat_messages table.
type TurnRepository struct {
	db *DB
}

func NewTurnRepository(db *DB) *TurnRepository {
	return &TurnRepository{db: db}
}

func (r *TurnRepository) Append(ctx context.Context, turn *domain.Turn) (*domain.Turn, error) {
	userID, err := strconv.ParseInt(turn.UserID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("append turn: invalid user id %q: %w", turn.UserID, err)
	}
	createdAt := turn.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var id int64
	err = r.db.QueryRowContext(ctx,
		r.db.rebind(`INSERT INTO chat_messages (user_id, sender, content, created_at) VALUES ($1, $2, $3, $4) RETURNING id`),
		userID, string(turn.Sender), turn.Content, createdAt.UnixMicro(),
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("append turn: %w", err)
	}

	saved := *turn
	saved.ID = strconv.FormatInt(id, 10)
	saved.CreatedAt = time.UnixMicro(createdAt.UnixMicro()).UTC()
	return &saved, nil
}

func (r *TurnRepository) ListByUser(ctx context.Context, userID string) ([]domain.Turn, error) {
	uid, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("list turns: invalid user id %q: %w", userID, err)
	}

	rows, err := r.db.QueryContext(ctx,
		r.db.rebind(`SELECT id, sender, content, created_at FROM chat_messages WHERE user_id = $1 ORDER BY created_at, id`),
		uid,
	)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer rows.Close()

	turns := make([]domain.Turn, 0)
	for rows.Next() {
		var (
			id        int64
			sender    string
			t         domain.Turn
			createdAt int64
		)
		if err := rows.Scan(&id, &sender, &t.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("list turns: scan: %w", err)
		}
		t.ID = strconv.FormatInt(id, 10)
		t.UserID = userID
		t.Sender = domain.Sender(sender)
		t.CreatedAt = time.UnixMicro(createdAt).UTC()
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	return turns, nil
}
