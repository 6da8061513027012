// Package memory provides the in-memory backend of the marquee store
// contract. It is intended for tests and local development. Each unit of work
// stages its writes privately and applies them on Commit, so a rolled-back
// unit of work leaves the store untouched.
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wavespeak/marquee/pkg/marquee"
)

type resourceKey struct {
	id marquee.ResourceID
	t  marquee.ResourceType
}

type resourceRecord struct {
	seq       int32
	createdAt time.Time
	deletedAt *time.Time
}

type contentKey struct {
	id   marquee.ContentID
	lang marquee.Language
}

type viewRecord struct {
	ID        uuid.UUID
	ArticleID marquee.ResourceID
	IP        string
	UserAgent string
}

// Store is a map-backed implementation of marquee.Store. The optional failure
// mode makes every repository call fail, which tests use to drive the
// unknown-error paths.
type Store struct {
	mu        sync.RWMutex
	resources map[resourceKey]*resourceRecord
	contents  map[contentKey]marquee.ContentData
	avatars   map[marquee.ResourceID]marquee.AvatarData
	views     []viewRecord
	failing   bool
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		resources: make(map[resourceKey]*resourceRecord),
		contents:  make(map[contentKey]marquee.ContentData),
		avatars:   make(map[marquee.ResourceID]marquee.AvatarData),
	}
}

// NewFailing creates a store whose every repository call fails.
func NewFailing() *Store {
	s := New()
	s.failing = true
	return s
}

// Begin implements marquee.Store.
func (s *Store) Begin(ctx context.Context) (marquee.UnitOfWork, error) {
	return newUnitOfWork(s), nil
}

// View implements marquee.Store.
func (s *Store) View(ctx context.Context) (marquee.UnitOfWork, error) {
	return newUnitOfWork(s), nil
}

// unitOfWork buffers writes until Commit. Reads within the unit of work see
// the staged writes layered over the committed state.
type unitOfWork struct {
	store *Store

	mu   sync.Mutex
	done bool

	resources map[resourceKey]*resourceRecord
	contents  map[contentKey]marquee.ContentData
	avatars   map[marquee.ResourceID]marquee.AvatarData
	views     []viewRecord
}

func newUnitOfWork(s *Store) *unitOfWork {
	return &unitOfWork{
		store:     s,
		resources: make(map[resourceKey]*resourceRecord),
		contents:  make(map[contentKey]marquee.ContentData),
		avatars:   make(map[marquee.ResourceID]marquee.AvatarData),
	}
}

// guard serializes repository access and rejects use after finalization.
func (u *unitOfWork) guard(fn func(s *Store) error) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return marquee.ErrTxDone
	}
	if u.store.failing {
		return errInjected
	}
	return fn(u.store)
}

func (u *unitOfWork) ResourceRepository() marquee.ResourceRepository { return &resourceRepository{u} }
func (u *unitOfWork) ContentRepository() marquee.ContentRepository   { return &contentRepository{u} }
func (u *unitOfWork) AvatarRepository() marquee.AvatarRepository     { return &avatarRepository{u} }
func (u *unitOfWork) ViewRepository() marquee.ViewRepository         { return &viewRepository{u} }

// Commit applies the staged writes to the store.
func (u *unitOfWork) Commit(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return marquee.ErrTxDone
	}
	u.done = true

	s := u.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, rec := range u.resources {
		s.resources[key] = rec
	}
	for key, data := range u.contents {
		s.contents[key] = data
	}
	for id, avatar := range u.avatars {
		s.avatars[id] = avatar
	}
	s.views = append(s.views, u.views...)
	return nil
}

// Rollback discards the staged writes.
func (u *unitOfWork) Rollback(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return marquee.ErrTxDone
	}
	u.done = true
	return nil
}

// The *Locked helpers read the staged layer first, then the committed state.
// Callers hold u.mu (via guard) and s.mu.

func (u *unitOfWork) resourceLocked(s *Store, key resourceKey) (*resourceRecord, bool) {
	if rec, ok := u.resources[key]; ok {
		return rec, true
	}
	rec, ok := s.resources[key]
	return rec, ok
}

func (u *unitOfWork) liveLocked(s *Store, id marquee.ResourceID, t marquee.ResourceType) bool {
	rec, ok := u.resourceLocked(s, resourceKey{id: id, t: t})
	return ok && rec.deletedAt == nil
}

func (u *unitOfWork) contentLocked(s *Store, key contentKey) (marquee.ContentData, bool) {
	if data, ok := u.contents[key]; ok {
		return data, true
	}
	data, ok := s.contents[key]
	return data, ok
}

func (u *unitOfWork) avatarLocked(s *Store, id marquee.ResourceID) (marquee.AvatarData, bool) {
	if avatar, ok := u.avatars[id]; ok {
		return avatar, true
	}
	avatar, ok := s.avatars[id]
	return avatar, ok
}

// eachContentLocked visits the committed rows not overridden in this unit of
// work, then the staged ones.
func (u *unitOfWork) eachContentLocked(s *Store, fn func(contentKey, marquee.ContentData)) {
	for key, data := range s.contents {
		if _, ok := u.contents[key]; ok {
			continue
		}
		fn(key, data)
	}
	for key, data := range u.contents {
		fn(key, data)
	}
}

// eachResourceLocked visits the committed records not overridden in this unit
// of work, then the staged ones.
func (u *unitOfWork) eachResourceLocked(s *Store, fn func(resourceKey, *resourceRecord)) {
	for key, rec := range s.resources {
		if _, ok := u.resources[key]; ok {
			continue
		}
		fn(key, rec)
	}
	for key, rec := range u.resources {
		fn(key, rec)
	}
}

func (u *unitOfWork) GetResource(ctx context.Context, id marquee.ResourceID, lang marquee.Language, t marquee.ResourceType) (*marquee.RetrievedResource, error) {
	var res *marquee.RetrievedResource
	err := u.guard(func(s *Store) error {
		s.mu.RLock()
		defer s.mu.RUnlock()

		if !u.liveLocked(s, id, t) {
			return marquee.ErrNotFound
		}
		data, ok := u.contentLocked(s, contentKey{id: marquee.ContentIDOf(id), lang: lang})
		if !ok {
			return marquee.ErrNotFound
		}

		res = &marquee.RetrievedResource{
			ID:       id.String(),
			Language: lang.String(),
			Data:     append(marquee.ContentData(nil), data...),
		}
		if t == marquee.ResourceTypeMember {
			if avatar, ok := u.avatarLocked(s, id); ok {
				res.Avatar = &avatar
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (u *unitOfWork) ListResources(ctx context.Context, lang marquee.Language, t marquee.ResourceType, filter string, page marquee.Pagination) ([]marquee.ListItem, error) {
	var items []marquee.ListItem
	err := u.guard(func(s *Store) error {
		s.mu.RLock()
		defer s.mu.RUnlock()

		type row struct {
			id   marquee.ResourceID
			seq  int32
			data marquee.ContentData
		}
		var rows []row
		u.eachContentLocked(s, func(key contentKey, data marquee.ContentData) {
			if key.lang != lang {
				return
			}
			id := marquee.ResourceID(key.id)
			rec, ok := u.resourceLocked(s, resourceKey{id: id, t: t})
			if !ok || rec.deletedAt != nil {
				return
			}
			if filter != "" && !strings.Contains(strings.ToLower(string(data)), strings.ToLower(filter)) {
				return
			}
			rows = append(rows, row{id: id, seq: rec.seq, data: data})
		})
		sort.Slice(rows, func(i, j int) bool {
			if rows[i].seq != rows[j].seq {
				return rows[i].seq < rows[j].seq
			}
			return rows[i].id < rows[j].id
		})

		offset, limit := page.Window(len(rows))
		for _, r := range rows[offset : offset+limit] {
			items = append(items, u.listItemLocked(s, r.id, lang, t, r.data))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// listItemLocked builds one list row; members get the trimmed projection.
func (u *unitOfWork) listItemLocked(s *Store, id marquee.ResourceID, lang marquee.Language, t marquee.ResourceType, data marquee.ContentData) marquee.ListItem {
	if t != marquee.ResourceTypeMember {
		return marquee.ListItem{
			ID:       id.String(),
			Language: lang.String(),
			Data:     append(marquee.ContentData(nil), data...),
		}
	}

	var payload struct {
		Name string `json:"name"`
	}
	_ = json.Unmarshal(data, &payload)
	item := marquee.ListItem{ID: id.String(), Name: payload.Name}
	if avatar, ok := u.avatarLocked(s, id); ok {
		item.Avatar = avatar.SmallImage
	}
	return item
}

func (u *unitOfWork) CountResources(ctx context.Context, lang marquee.Language, t marquee.ResourceType) (int, error) {
	var count int
	err := u.guard(func(s *Store) error {
		s.mu.RLock()
		defer s.mu.RUnlock()
		u.eachContentLocked(s, func(key contentKey, _ marquee.ContentData) {
			if key.lang != lang {
				return
			}
			if u.liveLocked(s, marquee.ResourceID(key.id), t) {
				count++
			}
		})
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
