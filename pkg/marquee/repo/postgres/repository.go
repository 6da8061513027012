package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/wavespeak/marquee/pkg/marquee"
)

const uniqueViolation = "23505"

// mapError folds pgx failures into the core taxonomy.
func mapError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", op, marquee.ErrAlreadyExists)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, marquee.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

type resourceRepository struct {
	uow *unitOfWork
}

func (r *resourceRepository) Insert(ctx context.Context, id marquee.ResourceID, t marquee.ResourceType, seq int32) (marquee.ResourceID, error) {
	err := r.uow.use(func(db DBTX) error {
		_, err := db.Exec(ctx,
			`INSERT INTO resource (id, resource_type, seq, created_at) VALUES ($1, $2, $3, now())`,
			id.String(), t.String(), seq)
		return err
	})
	if err != nil {
		return "", mapError("insert resource", err)
	}
	return id, nil
}

func (r *resourceRepository) Contains(ctx context.Context, id marquee.ResourceID, t marquee.ResourceType) (bool, error) {
	var exists bool
	err := r.uow.use(func(db DBTX) error {
		return db.QueryRow(ctx,
			`SELECT EXISTS (
				SELECT 1 FROM resource
				WHERE id = $1 AND resource_type = $2 AND deleted_at IS NULL
			)`,
			id.String(), t.String()).Scan(&exists)
	})
	if err != nil {
		return false, mapError("resource exists", err)
	}
	return exists, nil
}

func (r *resourceRepository) Delete(ctx context.Context, id marquee.ResourceID, t marquee.ResourceType) error {
	err := r.uow.use(func(db DBTX) error {
		tag, err := db.Exec(ctx,
			`UPDATE resource SET deleted_at = now()
			WHERE id = $1 AND resource_type = $2 AND deleted_at IS NULL`,
			id.String(), t.String())
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return marquee.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return mapError("delete resource", err)
	}
	return nil
}

func (r *resourceRepository) UpdateSeq(ctx context.Context, id marquee.ResourceID, seq int32) error {
	err := r.uow.use(func(db DBTX) error {
		tag, err := db.Exec(ctx,
			`UPDATE resource SET seq = $2 WHERE id = $1 AND deleted_at IS NULL`,
			id.String(), seq)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return marquee.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return mapError("update seq", err)
	}
	return nil
}

type contentRepository struct {
	uow *unitOfWork
}

func (r *contentRepository) Insert(ctx context.Context, id marquee.ContentID, data marquee.ContentData, lang marquee.Language) (marquee.ContentID, error) {
	err := r.uow.use(func(db DBTX) error {
		_, err := db.Exec(ctx,
			`INSERT INTO content (id, data, language, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())`,
			id.String(), []byte(data), lang.String())
		return err
	})
	if err != nil {
		return "", mapError("insert content", err)
	}
	return id, nil
}

func (r *contentRepository) Update(ctx context.Context, id marquee.ContentID, data marquee.ContentData, lang marquee.Language) error {
	err := r.uow.use(func(db DBTX) error {
		tag, err := db.Exec(ctx,
			`UPDATE content SET data = $2, updated_at = now()
			WHERE id = $1 AND language = $3`,
			id.String(), []byte(data), lang.String())
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return marquee.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return mapError("update content", err)
	}
	return nil
}

func (r *contentRepository) Contains(ctx context.Context, id marquee.ContentID, lang marquee.Language) (bool, error) {
	var exists bool
	err := r.uow.use(func(db DBTX) error {
		return db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM content WHERE id = $1 AND language = $2)`,
			id.String(), lang.String()).Scan(&exists)
	})
	if err != nil {
		return false, mapError("content exists", err)
	}
	return exists, nil
}

func (r *contentRepository) Get(ctx context.Context, id marquee.ContentID, lang marquee.Language) (marquee.ContentData, error) {
	var data []byte
	err := r.uow.use(func(db DBTX) error {
		return db.QueryRow(ctx,
			`SELECT data FROM content WHERE id = $1 AND language = $2`,
			id.String(), lang.String()).Scan(&data)
	})
	if err != nil {
		return nil, mapError("get content", err)
	}
	return marquee.ContentData(data), nil
}

func (r *contentRepository) List(ctx context.Context, lang marquee.Language) ([]marquee.ContentEntry, error) {
	var entries []marquee.ContentEntry
	err := r.uow.use(func(db DBTX) error {
		rows, err := db.Query(ctx,
			`SELECT id, data FROM content WHERE language = $1`, lang.String())
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				id   string
				data []byte
			)
			if err := rows.Scan(&id, &data); err != nil {
				return err
			}
			entries = append(entries, marquee.ContentEntry{
				ID:   marquee.ContentID(id),
				Data: marquee.ContentData(data),
			})
		}
		return rows.Err()
	})
	if err != nil {
		return nil, mapError("list content", err)
	}
	return entries, nil
}

type avatarRepository struct {
	uow *unitOfWork
}

func (r *avatarRepository) Save(ctx context.Context, id marquee.ResourceID, avatar marquee.AvatarData) (marquee.ResourceID, error) {
	blob, err := json.Marshal(avatar)
	if err != nil {
		return "", fmt.Errorf("save avatar: %w", err)
	}
	err = r.uow.use(func(db DBTX) error {
		_, err := db.Exec(ctx,
			`INSERT INTO avatar (id, data) VALUES ($1, $2)
			ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data`,
			id.String(), blob)
		return err
	})
	if err != nil {
		return "", mapError("save avatar", err)
	}
	return id, nil
}

func (r *avatarRepository) Get(ctx context.Context, id marquee.ResourceID) (*marquee.AvatarData, error) {
	var blob []byte
	err := r.uow.use(func(db DBTX) error {
		return db.QueryRow(ctx,
			`SELECT data FROM avatar WHERE id = $1`, id.String()).Scan(&blob)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get avatar", err)
	}
	var avatar marquee.AvatarData
	if err := json.Unmarshal(blob, &avatar); err != nil {
		return nil, fmt.Errorf("get avatar: %w", err)
	}
	return &avatar, nil
}

type viewRepository struct {
	uow *unitOfWork
}

func (r *viewRepository) Save(ctx context.Context, articleID marquee.ResourceID, ip, userAgent string) (uuid.UUID, error) {
	id := uuid.New()
	err := r.uow.use(func(db DBTX) error {
		_, err := db.Exec(ctx,
			`INSERT INTO article_view (id, article_id, view_ip, user_agent, created_at)
			VALUES ($1, $2, $3, $4, now())`,
			id, articleID.String(), ip, userAgent)
		return err
	})
	if err != nil {
		return uuid.Nil, mapError("save view", err)
	}
	return id, nil
}
