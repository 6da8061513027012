package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/wavespeak/marquee/pkg/marquee"
)

// GetResource implements the assembled single-resource read. Members join the
// avatar side table; every kind is restricted to live resource records.
func (u *unitOfWork) GetResource(ctx context.Context, id marquee.ResourceID, lang marquee.Language, t marquee.ResourceType) (*marquee.RetrievedResource, error) {
	res := &marquee.RetrievedResource{ID: id.String(), Language: lang.String()}

	err := u.use(func(db DBTX) error {
		if t == marquee.ResourceTypeMember {
			var (
				data   []byte
				avatar []byte
			)
			err := db.QueryRow(ctx,
				`SELECT content.data, avatar.data
				FROM resource
				JOIN content ON content.id = resource.id
				LEFT JOIN avatar ON avatar.id = content.id
				WHERE resource.id = $1
				  AND resource.resource_type = $2
				  AND content.language = $3
				  AND resource.deleted_at IS NULL`,
				id.String(), t.String(), lang.String()).Scan(&data, &avatar)
			if err != nil {
				return err
			}
			res.Data = marquee.ContentData(data)
			if avatar != nil {
				var a marquee.AvatarData
				if err := json.Unmarshal(avatar, &a); err != nil {
					return fmt.Errorf("decode avatar: %w", err)
				}
				res.Avatar = &a
			}
			return nil
		}

		var data []byte
		err := db.QueryRow(ctx,
			`SELECT content.data
			FROM resource
			JOIN content ON content.id = resource.id
			WHERE resource.id = $1
			  AND resource.resource_type = $2
			  AND content.language = $3
			  AND resource.deleted_at IS NULL`,
			id.String(), t.String(), lang.String()).Scan(&data)
		if err != nil {
			return err
		}
		res.Data = marquee.ContentData(data)
		return nil
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, marquee.ErrNotFound
		}
		return nil, mapError("get resource", err)
	}
	return res, nil
}

// ListResources implements the list read, ordered by seq. Member rows are
// projected down to (id, name, small avatar); other kinds return the full
// payload. The filter is a case-insensitive substring match on the payload.
func (u *unitOfWork) ListResources(ctx context.Context, lang marquee.Language, t marquee.ResourceType, filter string, page marquee.Pagination) ([]marquee.ListItem, error) {
	var items []marquee.ListItem

	err := u.use(func(db DBTX) error {
		if t == marquee.ResourceTypeMember {
			query := `SELECT resource.id, content.data->>'name', avatar.data->>'small_image'
				FROM resource
				JOIN content ON content.id = resource.id
				LEFT JOIN avatar ON avatar.id = content.id
				WHERE content.language = $1
				  AND resource.resource_type = $2
				  AND resource.deleted_at IS NULL` +
				filterClause(filter) +
				` ORDER BY resource.seq, resource.id` +
				windowClause(page)

			rows, err := db.Query(ctx, query, listArgs(lang, t, filter)...)
			if err != nil {
				return err
			}
			defer rows.Close()

			for rows.Next() {
				var (
					item   marquee.ListItem
					avatar *string
				)
				if err := rows.Scan(&item.ID, &item.Name, &avatar); err != nil {
					return err
				}
				if avatar != nil {
					item.Avatar = *avatar
				}
				items = append(items, item)
			}
			return rows.Err()
		}

		query := `SELECT resource.id, content.data, content.language
			FROM resource
			JOIN content ON content.id = resource.id
			WHERE content.language = $1
			  AND resource.resource_type = $2
			  AND resource.deleted_at IS NULL` +
			filterClause(filter) +
			` ORDER BY resource.seq, resource.id` +
			windowClause(page)

		rows, err := db.Query(ctx, query, listArgs(lang, t, filter)...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				item marquee.ListItem
				data []byte
			)
			if err := rows.Scan(&item.ID, &data, &item.Language); err != nil {
				return err
			}
			item.Data = marquee.ContentData(data)
			items = append(items, item)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, mapError("list resources", err)
	}
	return items, nil
}

// CountResources counts the live rows of a list read, used for Page totals.
func (u *unitOfWork) CountResources(ctx context.Context, lang marquee.Language, t marquee.ResourceType) (int, error) {
	var count int
	err := u.use(func(db DBTX) error {
		return db.QueryRow(ctx,
			`SELECT count(*)
			FROM resource
			JOIN content ON content.id = resource.id
			WHERE content.language = $1
			  AND resource.resource_type = $2
			  AND resource.deleted_at IS NULL`,
			lang.String(), t.String()).Scan(&count)
	})
	if err != nil {
		return 0, mapError("count resources", err)
	}
	return count, nil
}

func filterClause(filter string) string {
	if filter == "" {
		return ""
	}
	return ` AND content.data::text ILIKE '%' || $3 || '%'`
}

func listArgs(lang marquee.Language, t marquee.ResourceType, filter string) []any {
	args := []any{lang.String(), t.String()}
	if filter != "" {
		args = append(args, filter)
	}
	return args
}

// windowClause renders the pagination tail. Page coordinates are integers, so
// inlining them is safe.
func windowClause(page marquee.Pagination) string {
	if page.IsSingle() {
		return " LIMIT 1"
	}
	if p, size, ok := page.Page(); ok {
		return fmt.Sprintf(" OFFSET %d LIMIT %d", p*size, size)
	}
	return ""
}
