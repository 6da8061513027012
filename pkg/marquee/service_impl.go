package marquee

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	errStoreRequired = errors.New("store is required")
	errNoBlobStore   = errors.New("no blob store configured")
)

// CreateResource validates the payload, then inserts the resource record and
// its first-language content under one unit of work.
func (s *service) CreateResource(ctx context.Context, req CreateResourceRequest) (ResourceID, error) {
	if req.Data == nil {
		return "", &ValidationError{Field: "data", Reason: "payload is required"}
	}
	data, err := NewContentData(req.Data)
	if err != nil {
		return "", err
	}
	id, err := ParseResourceID(req.ID)
	if err != nil {
		return "", err
	}
	lang, err := ParseLanguage(req.Language)
	if err != nil {
		return "", err
	}

	uow, err := s.store.Begin(ctx)
	if err != nil {
		return "", &OpError{Op: "create resource", Err: err}
	}
	defer rollback(ctx, uow)

	if _, err := uow.ResourceRepository().Insert(ctx, id, req.Data.ResourceType(), req.Seq); err != nil {
		return "", &OpError{Op: "create resource", Err: err}
	}
	if _, err := uow.ContentRepository().Insert(ctx, ContentIDOf(id), data, lang); err != nil {
		return "", &OpError{Op: "create content", Err: err}
	}
	if err := uow.Commit(ctx); err != nil {
		return "", &OpError{Op: "commit", Err: err}
	}
	return id, nil
}

// GetResource reads one resource in the requested language, retrying once
// with the default language when the requested one has no content and
// differs from the default.
func (s *service) GetResource(ctx context.Context, req GetResourceRequest) (*RetrievedResource, error) {
	id, err := ParseResourceID(req.ID)
	if err != nil {
		return nil, err
	}
	lang, err := ParseLanguage(req.Language)
	if err != nil {
		return nil, err
	}

	uow, err := s.store.View(ctx)
	if err != nil {
		return nil, &OpError{Op: "get resource", Err: err}
	}
	defer rollback(ctx, uow)

	res, err := uow.GetResource(ctx, id, lang, req.Type)
	if err == nil {
		return res, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, &OpError{Op: "get resource", Err: err}
	}
	if lang == req.DefaultLanguage {
		return nil, ErrNotFound
	}

	res, err = uow.GetResource(ctx, id, req.DefaultLanguage, req.Type)
	switch {
	case err == nil:
		return res, nil
	case errors.Is(err, ErrNotFound):
		return nil, ErrNotFound
	default:
		return nil, &OpError{Op: "get resource", Err: err}
	}
}

// UpdateResource replaces the content for an existing language or adds a new
// one, and updates the resource ordering. A resource gains its second
// language through this operation; there is no separate "add translation".
func (s *service) UpdateResource(ctx context.Context, req UpdateResourceRequest) (ContentID, error) {
	if req.Data == nil {
		return "", &ValidationError{Field: "data", Reason: "payload is required"}
	}
	data, err := NewContentData(req.Data)
	if err != nil {
		return "", err
	}
	id, err := ParseResourceID(req.ID)
	if err != nil {
		return "", err
	}
	lang, err := ParseLanguage(req.Language)
	if err != nil {
		return "", err
	}

	uow, err := s.store.Begin(ctx)
	if err != nil {
		return "", &OpError{Op: "update resource", Err: err}
	}
	defer rollback(ctx, uow)

	exists, err := uow.ResourceRepository().Contains(ctx, id, req.Data.ResourceType())
	if err != nil {
		return "", &OpError{Op: "update resource", Err: err}
	}
	if !exists {
		return "", ErrNotFound
	}
	if err := uow.ResourceRepository().UpdateSeq(ctx, id, req.Seq); err != nil {
		return "", &OpError{Op: "update seq", Err: err}
	}

	cid := ContentIDOf(id)
	hasContent, err := uow.ContentRepository().Contains(ctx, cid, lang)
	if err != nil {
		return "", &OpError{Op: "update content", Err: err}
	}
	if hasContent {
		err = uow.ContentRepository().Update(ctx, cid, data, lang)
	} else {
		_, err = uow.ContentRepository().Insert(ctx, cid, data, lang)
	}
	if err != nil {
		return "", &OpError{Op: "update content", Err: err}
	}

	if err := uow.Commit(ctx); err != nil {
		return "", &OpError{Op: "commit", Err: err}
	}
	return cid, nil
}

// DeleteResource soft-deletes the resource record; content rows stay behind.
func (s *service) DeleteResource(ctx context.Context, req DeleteResourceRequest) error {
	id, err := ParseResourceID(req.ID)
	if err != nil {
		return err
	}

	uow, err := s.store.Begin(ctx)
	if err != nil {
		return &OpError{Op: "delete resource", Err: err}
	}
	defer rollback(ctx, uow)

	exists, err := uow.ResourceRepository().Contains(ctx, id, req.Type)
	if err != nil {
		return &OpError{Op: "delete resource", Err: err}
	}
	if !exists {
		return ErrNotFound
	}
	if err := uow.ResourceRepository().Delete(ctx, id, req.Type); err != nil {
		return &OpError{Op: "delete resource", Err: err}
	}
	return uowCommit(ctx, uow)
}

// ListResources lists live resources of one type ordered by seq. When the
// requested language yields zero rows the entire query is retried with the
// default language; the fallback is whole-list, never per-item.
func (s *service) ListResources(ctx context.Context, req ListResourcesRequest) (*ResourceList, error) {
	lang, err := ParseLanguage(req.Language)
	if err != nil {
		return nil, err
	}

	uow, err := s.store.View(ctx)
	if err != nil {
		return nil, &OpError{Op: "list resources", Err: err}
	}
	defer rollback(ctx, uow)

	list, err := s.listIn(ctx, uow, lang, req)
	if err != nil {
		return nil, err
	}
	if len(list.Items) == 0 && lang != req.DefaultLanguage {
		return s.listIn(ctx, uow, req.DefaultLanguage, req)
	}
	return list, nil
}

func (s *service) listIn(ctx context.Context, uow UnitOfWork, lang Language, req ListResourcesRequest) (*ResourceList, error) {
	items, err := uow.ListResources(ctx, lang, req.Type, req.Filter, req.Pagination)
	if err != nil {
		return nil, &OpError{Op: "list resources", Err: err}
	}

	total := len(items)
	if _, _, ok := req.Pagination.Page(); ok {
		total, err = uow.CountResources(ctx, lang, req.Type)
		if err != nil {
			return nil, &OpError{Op: "count resources", Err: err}
		}
	}
	if items == nil {
		items = []ListItem{}
	}
	return &ResourceList{Items: items, Total: total}, nil
}

// UploadAvatar stores the pre-resized avatar images and upserts the member's
// image references under one unit of work.
func (s *service) UploadAvatar(ctx context.Context, req UploadAvatarRequest) (*AvatarData, error) {
	id, err := ParseResourceID(req.MemberID)
	if err != nil {
		return nil, err
	}
	if len(req.Large) == 0 || len(req.Small) == 0 {
		return nil, &ValidationError{Field: "image", Reason: "both image sizes are required"}
	}
	if s.blobs == nil {
		return nil, &OpError{Op: "upload avatar", Err: errNoBlobStore}
	}

	uow, err := s.store.Begin(ctx)
	if err != nil {
		return nil, &OpError{Op: "upload avatar", Err: err}
	}
	defer rollback(ctx, uow)

	exists, err := uow.ResourceRepository().Contains(ctx, id, ResourceTypeMember)
	if err != nil {
		return nil, &OpError{Op: "upload avatar", Err: err}
	}
	if !exists {
		return nil, ErrNotFound
	}

	largeKey := fmt.Sprintf("avatar/%s_large.png", id)
	smallKey := fmt.Sprintf("avatar/%s_small.png", id)
	if err := s.blobs.Upload(ctx, largeKey, bytes.NewReader(req.Large)); err != nil {
		return nil, &OpError{Op: "store avatar image", Err: err}
	}
	if err := s.blobs.Upload(ctx, smallKey, bytes.NewReader(req.Small)); err != nil {
		return nil, &OpError{Op: "store avatar image", Err: err}
	}

	avatar := AvatarData{
		LargeImage: s.blobs.URL(largeKey),
		SmallImage: s.blobs.URL(smallKey),
	}
	if _, err := uow.AvatarRepository().Save(ctx, id, avatar); err != nil {
		return nil, &OpError{Op: "save avatar", Err: err}
	}
	if err := uowCommit(ctx, uow); err != nil {
		return nil, err
	}
	return &avatar, nil
}

// RecordView appends one page-view row for an article.
func (s *service) RecordView(ctx context.Context, req RecordViewRequest) (uuid.UUID, error) {
	id, err := ParseResourceID(req.ArticleID)
	if err != nil {
		return uuid.Nil, err
	}

	uow, err := s.store.Begin(ctx)
	if err != nil {
		return uuid.Nil, &OpError{Op: "record view", Err: err}
	}
	defer rollback(ctx, uow)

	viewID, err := uow.ViewRepository().Save(ctx, id, req.IP, req.UserAgent)
	if err != nil {
		return uuid.Nil, &OpError{Op: "record view", Err: err}
	}
	if err := uowCommit(ctx, uow); err != nil {
		return uuid.Nil, err
	}
	return viewID, nil
}

func uowCommit(ctx context.Context, uow UnitOfWork) error {
	if err := uow.Commit(ctx); err != nil {
		return &OpError{Op: "commit", Err: err}
	}
	return nil
}

// rollback is safe after a successful commit: the unit of work reports
// ErrTxDone, which is deliberately ignored here.
func rollback(ctx context.Context, uow UnitOfWork) {
	_ = uow.Rollback(ctx)
}
