package marquee

// Request DTOs. The transport layer decodes the wire format into these; the
// operations validate them before touching storage.

// CreateResourceRequest creates a resource together with its first-language
// content.
type CreateResourceRequest struct {
	ID       string
	Data     Resource
	Language string
	Seq      int32
}

// GetResourceRequest retrieves one resource, falling back to DefaultLanguage
// when the requested language has no content.
type GetResourceRequest struct {
	ID              string
	Type            ResourceType
	Language        string
	DefaultLanguage Language
}

// UpdateResourceRequest replaces content for an existing language or adds a
// new language, and updates the resource ordering.
type UpdateResourceRequest struct {
	ID       string
	Data     Resource
	Language string
	Seq      int32
}

// DeleteResourceRequest soft-deletes a resource.
type DeleteResourceRequest struct {
	ID   string
	Type ResourceType
}

// ListResourcesRequest lists resources of one type in one language, with the
// whole-list fallback to DefaultLanguage when the requested language yields
// no rows.
type ListResourcesRequest struct {
	Type            ResourceType
	Language        string
	DefaultLanguage Language
	Filter          string
	Pagination      Pagination
}

// ResourceList is the result of a list operation. Total is the full count for
// Page pagination; for All and Single it is len(Items), a deliberate cost
// trade-off.
type ResourceList struct {
	Items []ListItem `json:"items"`
	Total int        `json:"total"`
}

// UploadAvatarRequest stores pre-resized avatar images for a member and
// records their references. Resizing happens outside the core.
type UploadAvatarRequest struct {
	MemberID string
	Large    []byte
	Small    []byte
}

// RecordViewRequest appends one article page-view.
type RecordViewRequest struct {
	ArticleID string
	IP        string
	UserAgent string
}

type paginationMode int

const (
	paginationAll paginationMode = iota
	paginationSingle
	paginationPage
)

// Pagination selects how much of a list read is returned: everything, a
// single row (singleton kinds like home and contact), or an offset/limit
// page.
type Pagination struct {
	mode paginationMode
	page int
	size int
}

// PaginationAll returns every row.
func PaginationAll() Pagination { return Pagination{mode: paginationAll} }

// PaginationSingle returns at most one row.
func PaginationSingle() Pagination { return Pagination{mode: paginationSingle} }

// PaginationPage returns rows [page*size, page*size+size). Negative
// coordinates are clamped to zero so no backend ever sees a negative window.
func PaginationPage(page, size int) Pagination {
	return Pagination{mode: paginationPage, page: max(page, 0), size: max(size, 0)}
}

// IsSingle reports whether at most one row is requested.
func (p Pagination) IsSingle() bool { return p.mode == paginationSingle }

// Page returns the page coordinates, with ok false unless this is an
// offset/limit pagination.
func (p Pagination) Page() (page, size int, ok bool) {
	if p.mode != paginationPage {
		return 0, 0, false
	}
	return p.page, p.size, true
}

// Window resolves the pagination into an (offset, limit) window over a result
// set of n rows.
func (p Pagination) Window(n int) (offset, limit int) {
	switch p.mode {
	case paginationSingle:
		return 0, min(1, n)
	case paginationPage:
		offset = max(p.page, 0) * max(p.size, 0)
		if offset > n {
			return n, 0
		}
		return offset, min(max(p.size, 0), n-offset)
	default:
		return 0, n
	}
}
