package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"imaginify/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const imageColumns = `id, title, transformation_type, public_id, secure_url, width, height, config,
	transformation_url, aspect_ratio, color, prompt, author_id, created_at, updated_at`

type postgresImageRepo struct {
	pool *pgxpool.Pool
}

func scanImage(row pgx.Row) (model.Image, error) {
	var img model.Image
	err := row.Scan(
		&img.ID,
		&img.Title,
		&img.TransformationType,
		&img.PublicID,
		&img.SecureURL,
		&img.Width,
		&img.Height,
		&img.Config,
		&img.TransformationURL,
		&img.AspectRatio,
		&img.Color,
		&img.Prompt,
		&img.AuthorID,
		&img.CreatedAt,
		&img.UpdatedAt,
	)
	return img, err
}

func (r *postgresImageRepo) CreateImage(ctx context.Context, img *model.Image) error {
	img.ID = uuid.NewString()
	query := `INSERT INTO images (id, title, transformation_type, public_id, secure_url, width, height, config,
			transformation_url, aspect_ratio, color, prompt, author_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		img.ID, img.Title, string(img.TransformationType), img.PublicID, img.SecureURL, img.Width, img.Height,
		img.Config, img.TransformationURL, img.AspectRatio, img.Color, img.Prompt, img.AuthorID,
	).Scan(&img.CreatedAt, &img.UpdatedAt)
	if err != nil {
		return pgErr(err, "insert image")
	}
	return nil
}

func (r *postgresImageRepo) GetImageByID(ctx context.Context, id string) (*model.Image, error) {
	img, err := scanImage(r.pool.QueryRow(ctx, `SELECT `+imageColumns+` FROM images WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get image %s: %w", id, err)
	}
	return &img, nil
}

func (r *postgresImageRepo) UpdateImage(ctx context.Context, img *model.Image) error {
	query := `UPDATE images SET title = $2, transformation_type = $3, public_id = $4, secure_url = $5,
			width = $6, height = $7, config = $8, transformation_url = $9, aspect_ratio = $10,
			color = $11, prompt = $12, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		img.ID, img.Title, string(img.TransformationType), img.PublicID, img.SecureURL, img.Width, img.Height,
		img.Config, img.TransformationURL, img.AspectRatio, img.Color, img.Prompt,
	).Scan(&img.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return pgErr(err, "update image")
	}
	return nil
}

func (r *postgresImageRepo) DeleteImage(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM images WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete image %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresImageRepo) DeleteImagesByAuthor(ctx context.Context, authorID string) (int, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM images WHERE author_id = $1`, authorID)
	if err != nil {
		return 0, fmt.Errorf("delete images of %s: %w", authorID, err)
	}
	return int(tag.RowsAffected()), nil
}

// imageWhere builds the WHERE clause for filter. ok is false when the filter
// cannot match.
func imageWhere(filter ImageFilter) (string, []any, bool) {
	var (
		conds []string
		args  []any
	)
	if filter.AuthorID != "" {
		args = append(args, filter.AuthorID)
		conds = append(conds, fmt.Sprintf("author_id = $%d", len(args)))
	}
	if filter.RestrictToPublicIDs {
		if len(filter.PublicIDs) == 0 {
			return "", nil, false
		}
		args = append(args, filter.PublicIDs)
		conds = append(conds, fmt.Sprintf("public_id = ANY($%d)", len(args)))
	}
	if len(conds) == 0 {
		return "", args, true
	}
	return " WHERE " + strings.Join(conds, " AND "), args, true
}

func (r *postgresImageRepo) ListImages(ctx context.Context, filter ImageFilter, offset, limit int) ([]model.Image, error) {
	where, args, ok := imageWhere(filter)
	if !ok {
		return []model.Image{}, nil
	}
	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM images%s ORDER BY updated_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		imageColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query images: %w", err)
	}
	defer rows.Close()

	images := []model.Image{}
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan image row: %w", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return images, nil
}

func (r *postgresImageRepo) CountImages(ctx context.Context, filter ImageFilter) (int, error) {
	where, args, ok := imageWhere(filter)
	if !ok {
		return 0, nil
	}
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM images`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count images: %w", err)
	}
	return n, nil
}
