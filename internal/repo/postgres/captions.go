package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/captionhub/internal/domain/caption"
	"github.com/geocoder89/captionhub/internal/domain/user"
	"github.com/geocoder89/captionhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const captionColumns = `id, user_id, caption, image_url, created_at`

type CaptionsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewCaptionsRepo(pool *pgxpool.Pool, prom *observability.Prom) *CaptionsRepo {
	return &CaptionsRepo{
		pool: pool,
		prom: prom,
	}
}

func (r *CaptionsRepo) Create(ctx context.Context, userID, text, imageURL string) (caption.Caption, error) {
	var c caption.Caption

	err := r.prom.ObserveDB("captions.create", func() error {
		return scanCaption(r.pool.QueryRow(ctx,
			`INSERT INTO captions (user_id, caption, image_url)
			 VALUES ($1, $2, $3)
			 RETURNING `+captionColumns,
			userID, text, imageURL,
		), &c)
	})
	if err != nil {
		if isForeignKeyViolation(err) || isInvalidText(err) {
			return caption.Caption{}, user.ErrNotFound
		}
		return caption.Caption{}, err
	}

	return c, nil
}

// ListOwned returns at most limit captions owned by userID, newest first;
// captions sharing a timestamp come back in reverse insertion order.
func (r *CaptionsRepo) ListOwned(ctx context.Context, userID string, limit int) ([]caption.Caption, error) {
	if limit <= 0 || limit > caption.ListLimit {
		limit = caption.ListLimit
	}

	out := make([]caption.Caption, 0)

	err := r.prom.ObserveDB("captions.list_owned", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT `+captionColumns+`
			 FROM captions
			 WHERE user_id = $1
			 ORDER BY created_at DESC, seq DESC
			 LIMIT $2`,
			userID, limit,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var c caption.Caption
			if err := scanCaption(rows, &c); err != nil {
				return err
			}
			out = append(out, c)
		}

		return rows.Err()
	})
	if err != nil {
		if isInvalidText(err) {
			return []caption.Caption{}, nil
		}
		return nil, err
	}

	return out, nil
}

func (r *CaptionsRepo) GetOwned(ctx context.Context, id, userID string) (caption.Caption, error) {
	var c caption.Caption

	err := r.prom.ObserveDB("captions.get_owned", func() error {
		return scanCaption(r.pool.QueryRow(ctx,
			`SELECT `+captionColumns+`
			 FROM captions
			 WHERE id = $1 AND user_id = $2`,
			id, userID,
		), &c)
	})
	if err != nil {
		return caption.Caption{}, mapCaptionErr(err)
	}

	return c, nil
}

// DeleteOwned removes the caption and returns it so the caller can clean up
// the stored image.
func (r *CaptionsRepo) DeleteOwned(ctx context.Context, id, userID string) (caption.Caption, error) {
	var c caption.Caption

	err := r.prom.ObserveDB("captions.delete_owned", func() error {
		return scanCaption(r.pool.QueryRow(ctx,
			`DELETE FROM captions
			 WHERE id = $1 AND user_id = $2
			 RETURNING `+captionColumns,
			id, userID,
		), &c)
	})
	if err != nil {
		return caption.Caption{}, mapCaptionErr(err)
	}

	return c, nil
}

func scanCaption(row pgx.Row, c *caption.Caption) error {
	return row.Scan(
		&c.ID,
		&c.UserID,
		&c.Text,
		&c.ImageURL,
		&c.CreatedAt,
	)
}

func mapCaptionErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) || isInvalidText(err) {
		return caption.ErrNotFound
	}
	return err
}
