package marquee

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// ResourceRepository tracks the existence, kind, soft-delete state and
// ordering of every resource id.
type ResourceRepository interface {
	// Insert records a new live resource. It fails with ErrAlreadyExists if a
	// live record with the same (id, type) pair exists.
	Insert(ctx context.Context, id ResourceID, t ResourceType, seq int32) (ResourceID, error)

	// Contains reports whether a live (non-deleted) record exists for the
	// (id, type) pair.
	Contains(ctx context.Context, id ResourceID, t ResourceType) (bool, error)

	// Delete soft-deletes the record. It fails with ErrNotFound when no live
	// record matches.
	Delete(ctx context.Context, id ResourceID, t ResourceType) error

	// UpdateSeq changes the ordering of a resource; the type is untouched.
	UpdateSeq(ctx context.Context, id ResourceID, seq int32) error
}

// ContentEntry is one (id, data) pair returned by ContentRepository.List.
type ContentEntry struct {
	ID   ContentID
	Data ContentData
}

// ContentRepository stores the localized payload for a (ContentID, Language)
// pair. A resource may have content in zero, one or two languages
// independently of whether the resource record itself exists.
type ContentRepository interface {
	// Insert fails with ErrAlreadyExists when (id, language) already exists.
	Insert(ctx context.Context, id ContentID, data ContentData, lang Language) (ContentID, error)

	// Update fails with ErrNotFound when (id, language) does not exist.
	Update(ctx context.Context, id ContentID, data ContentData, lang Language) error

	Contains(ctx context.Context, id ContentID, lang Language) (bool, error)

	// Get returns the payload or ErrNotFound.
	Get(ctx context.Context, id ContentID, lang Language) (ContentData, error)

	// List returns every payload stored for the language, regardless of the
	// owning resource's state; callers join against the resource records.
	List(ctx context.Context, lang Language) ([]ContentEntry, error)
}

// AvatarRepository stores the optional derived image-reference blob of a
// member resource.
type AvatarRepository interface {
	// Save upserts the avatar record (insert-or-replace).
	Save(ctx context.Context, id ResourceID, avatar AvatarData) (ResourceID, error)

	// Get returns the avatar for id, or (nil, nil) when none is stored;
	// absence is never an error by itself.
	Get(ctx context.Context, id ResourceID) (*AvatarData, error)
}

// ViewRepository appends article page-view rows.
type ViewRepository interface {
	Save(ctx context.Context, articleID ResourceID, ip, userAgent string) (uuid.UUID, error)
}

// RetrievedResource is the assembled result of a single-resource read. Data
// holds the localized payload; Avatar is populated for members only, when an
// avatar record exists.
type RetrievedResource struct {
	ID       string      `json:"id"`
	Language string      `json:"language"`
	Data     ContentData `json:"data"`
	Avatar   *AvatarData `json:"avatar,omitempty"`
}

// ListItem is one row of a list read. Member rows carry the trimmed
// (Name, Avatar) projection; every other kind carries the full payload.
type ListItem struct {
	ID       string      `json:"id"`
	Language string      `json:"language,omitempty"`
	Data     ContentData `json:"data,omitempty"`
	Name     string      `json:"name,omitempty"`
	Avatar   string      `json:"avatar,omitempty"`
}

// UnitOfWork gives one logical operation transactional access to the
// repositories. Every repository handle obtained from the same UnitOfWork
// operates on the same underlying transaction; the UnitOfWork is the sole
// owner of that transaction, so Commit never has to arbitrate ownership.
//
// State machine: created -> (repositories used)* -> committed | rolled back.
// Any repository call after Commit or Rollback fails with ErrTxDone.
type UnitOfWork interface {
	ResourceRepository() ResourceRepository
	ContentRepository() ContentRepository
	AvatarRepository() AvatarRepository
	ViewRepository() ViewRepository

	// GetResource reads one resource's content in one language, restricted to
	// live resources of the given type. Member results join the avatar
	// record. Absence is ErrNotFound.
	GetResource(ctx context.Context, id ResourceID, lang Language, t ResourceType) (*RetrievedResource, error)

	// ListResources reads the content of every live resource of the type in
	// the language, ordered by seq, optionally filtered by a substring match
	// on the payload, with pagination applied.
	ListResources(ctx context.Context, lang Language, t ResourceType, filter string, page Pagination) ([]ListItem, error)

	// CountResources counts the rows ListResources would return without
	// pagination or filter.
	CountResources(ctx context.Context, lang Language, t ResourceType) (int, error)

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store opens units of work. Begin starts a real transaction for writes; View
// returns a read-only unit of work that may use a pooled connection directly.
type Store interface {
	Begin(ctx context.Context) (UnitOfWork, error)
	View(ctx context.Context) (UnitOfWork, error)
}

// BlobStore stores opaque blobs (avatar images) under string keys. The core
// persists only the reference strings produced by URL.
type BlobStore interface {
	Upload(ctx context.Context, key string, r io.Reader) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}
