package memory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/wavespeak/marquee/pkg/marquee"
)

var errInjected = errors.New("injected backend failure")

type resourceRepository struct {
	uow *unitOfWork
}

func (r *resourceRepository) Insert(ctx context.Context, id marquee.ResourceID, t marquee.ResourceType, seq int32) (marquee.ResourceID, error) {
	err := r.uow.guard(func(s *Store) error {
		s.mu.RLock()
		defer s.mu.RUnlock()

		key := resourceKey{id: id, t: t}
		if rec, ok := r.uow.resourceLocked(s, key); ok && rec.deletedAt == nil {
			return marquee.ErrAlreadyExists
		}
		r.uow.resources[key] = &resourceRecord{seq: seq, createdAt: time.Now().UTC()}
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *resourceRepository) Contains(ctx context.Context, id marquee.ResourceID, t marquee.ResourceType) (bool, error) {
	var exists bool
	err := r.uow.guard(func(s *Store) error {
		s.mu.RLock()
		defer s.mu.RUnlock()
		exists = r.uow.liveLocked(s, id, t)
		return nil
	})
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *resourceRepository) Delete(ctx context.Context, id marquee.ResourceID, t marquee.ResourceType) error {
	return r.uow.guard(func(s *Store) error {
		s.mu.RLock()
		defer s.mu.RUnlock()

		key := resourceKey{id: id, t: t}
		rec, ok := r.uow.resourceLocked(s, key)
		if !ok || rec.deletedAt != nil {
			return marquee.ErrNotFound
		}
		now := time.Now().UTC()
		staged := *rec
		staged.deletedAt = &now
		r.uow.resources[key] = &staged
		return nil
	})
}

func (r *resourceRepository) UpdateSeq(ctx context.Context, id marquee.ResourceID, seq int32) error {
	return r.uow.guard(func(s *Store) error {
		s.mu.RLock()
		defer s.mu.RUnlock()

		updated := false
		r.uow.eachResourceLocked(s, func(key resourceKey, rec *resourceRecord) {
			if key.id != id || rec.deletedAt != nil {
				return
			}
			staged := *rec
			staged.seq = seq
			r.uow.resources[key] = &staged
			updated = true
		})
		if !updated {
			return marquee.ErrNotFound
		}
		return nil
	})
}

type contentRepository struct {
	uow *unitOfWork
}

func (r *contentRepository) Insert(ctx context.Context, id marquee.ContentID, data marquee.ContentData, lang marquee.Language) (marquee.ContentID, error) {
	err := r.uow.guard(func(s *Store) error {
		s.mu.RLock()
		defer s.mu.RUnlock()

		key := contentKey{id: id, lang: lang}
		if _, ok := r.uow.contentLocked(s, key); ok {
			return marquee.ErrAlreadyExists
		}
		r.uow.contents[key] = append(marquee.ContentData(nil), data...)
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *contentRepository) Update(ctx context.Context, id marquee.ContentID, data marquee.ContentData, lang marquee.Language) error {
	return r.uow.guard(func(s *Store) error {
		s.mu.RLock()
		defer s.mu.RUnlock()

		key := contentKey{id: id, lang: lang}
		if _, ok := r.uow.contentLocked(s, key); !ok {
			return marquee.ErrNotFound
		}
		r.uow.contents[key] = append(marquee.ContentData(nil), data...)
		return nil
	})
}

func (r *contentRepository) Contains(ctx context.Context, id marquee.ContentID, lang marquee.Language) (bool, error) {
	var exists bool
	err := r.uow.guard(func(s *Store) error {
		s.mu.RLock()
		defer s.mu.RUnlock()
		_, exists = r.uow.contentLocked(s, contentKey{id: id, lang: lang})
		return nil
	})
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *contentRepository) Get(ctx context.Context, id marquee.ContentID, lang marquee.Language) (marquee.ContentData, error) {
	var data marquee.ContentData
	err := r.uow.guard(func(s *Store) error {
		s.mu.RLock()
		defer s.mu.RUnlock()

		stored, ok := r.uow.contentLocked(s, contentKey{id: id, lang: lang})
		if !ok {
			return marquee.ErrNotFound
		}
		data = append(marquee.ContentData(nil), stored...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (r *contentRepository) List(ctx context.Context, lang marquee.Language) ([]marquee.ContentEntry, error) {
	var entries []marquee.ContentEntry
	err := r.uow.guard(func(s *Store) error {
		s.mu.RLock()
		defer s.mu.RUnlock()
		r.uow.eachContentLocked(s, func(key contentKey, data marquee.ContentData) {
			if key.lang != lang {
				return
			}
			entries = append(entries, marquee.ContentEntry{
				ID:   key.id,
				Data: append(marquee.ContentData(nil), data...),
			})
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

type avatarRepository struct {
	uow *unitOfWork
}

func (r *avatarRepository) Save(ctx context.Context, id marquee.ResourceID, avatar marquee.AvatarData) (marquee.ResourceID, error) {
	err := r.uow.guard(func(s *Store) error {
		r.uow.avatars[id] = avatar
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *avatarRepository) Get(ctx context.Context, id marquee.ResourceID) (*marquee.AvatarData, error) {
	var avatar *marquee.AvatarData
	err := r.uow.guard(func(s *Store) error {
		s.mu.RLock()
		defer s.mu.RUnlock()
		if stored, ok := r.uow.avatarLocked(s, id); ok {
			avatar = &stored
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return avatar, nil
}

type viewRepository struct {
	uow *unitOfWork
}

func (r *viewRepository) Save(ctx context.Context, articleID marquee.ResourceID, ip, userAgent string) (uuid.UUID, error) {
	id := uuid.New()
	err := r.uow.guard(func(s *Store) error {
		r.uow.views = append(r.uow.views, viewRecord{
			ID:        id,
			ArticleID: articleID,
			IP:        ip,
			UserAgent: userAgent,
		})
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// Views returns a snapshot of the committed page-views. Test helper.
func (s *Store) Views() []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(s.views))
	for _, v := range s.views {
		ids = append(ids, v.ID)
	}
	return ids
}
