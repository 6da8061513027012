package marquee

import (
	"context"

	"github.com/google/uuid"
)

// Service exposes the resource operations. Every operation drives the
// repositories through one unit of work and commits or rolls back as a whole;
// partial writes are never observable.
type Service interface {
	CreateResource(ctx context.Context, req CreateResourceRequest) (ResourceID, error)
	GetResource(ctx context.Context, req GetResourceRequest) (*RetrievedResource, error)
	UpdateResource(ctx context.Context, req UpdateResourceRequest) (ContentID, error)
	DeleteResource(ctx context.Context, req DeleteResourceRequest) error
	ListResources(ctx context.Context, req ListResourcesRequest) (*ResourceList, error)

	UploadAvatar(ctx context.Context, req UploadAvatarRequest) (*AvatarData, error)
	RecordView(ctx context.Context, req RecordViewRequest) (uuid.UUID, error)
}

// service implements Service.
type service struct {
	store Store
	blobs BlobStore
}

// Option configures the service.
type Option func(*service)

// WithStore sets the backend store. Required.
func WithStore(store Store) Option {
	return func(s *service) { s.store = store }
}

// WithBlobStore sets the blob backend avatar images are written to. Optional;
// without it UploadAvatar fails.
func WithBlobStore(blobs BlobStore) Option {
	return func(s *service) { s.blobs = blobs }
}

// New creates a Service.
func New(options ...Option) (Service, error) {
	s := &service{}
	for _, option := range options {
		option(s)
	}
	if s.store == nil {
		return nil, &OpError{Op: "new service", Err: errStoreRequired}
	}
	return s, nil
}
