// Package api exposes the resource operations over HTTP. Public reads are
// mounted under /api, admin writes under /api/admin behind a JWT plus
// server-side session check.
package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/wavespeak/marquee/pkg/marquee"
)

// kindPaths pairs the URL segment of each collection kind with its resource
// type, in registration order. Home and contact are singletons and routed
// separately.
var kindPaths = []struct {
	path string
	t    marquee.ResourceType
}{
	{"members", marquee.ResourceTypeMember},
	{"services", marquee.ResourceTypeService},
	{"articles", marquee.ResourceTypeArticle},
	{"categories", marquee.ResourceTypeCategory},
}

// ResourceHandler handles HTTP requests for resources.
type ResourceHandler struct {
	service         marquee.Service
	defaultLanguage marquee.Language
}

// NewResourceHandler creates a resource handler. defaultLanguage is the
// language reads fall back to.
func NewResourceHandler(service marquee.Service, defaultLanguage marquee.Language) *ResourceHandler {
	return &ResourceHandler{
		service:         service,
		defaultLanguage: defaultLanguage,
	}
}

// Routes returns the public, read-only routes.
func (h *ResourceHandler) Routes() chi.Router {
	r := chi.NewRouter()

	for _, k := range kindPaths {
		r.Get("/"+k.path, h.list(k.t))
		r.Get("/"+k.path+"/{id}", h.get(k.t))
	}
	r.Get("/home", h.single(marquee.ResourceTypeHome))
	r.Get("/contact", h.single(marquee.ResourceTypeContact))

	return r
}

// AdminRoutes returns the write routes. Callers mount them behind AdminGate.
func (h *ResourceHandler) AdminRoutes() chi.Router {
	r := chi.NewRouter()

	for _, k := range kindPaths {
		r.Post("/"+k.path, h.create(k.t))
		r.Put("/"+k.path+"/{id}", h.update(k.t))
		r.Delete("/"+k.path+"/{id}", h.delete(k.t))
	}
	// Singletons can be written but never deleted.
	for _, s := range []struct {
		path string
		t    marquee.ResourceType
	}{
		{"home", marquee.ResourceTypeHome},
		{"contact", marquee.ResourceTypeContact},
	} {
		r.Post("/"+s.path, h.create(s.t))
		r.Put("/"+s.path+"/{id}", h.update(s.t))
	}
	r.Post("/members/{id}/avatar", h.uploadAvatar)

	return r
}

// resourceRequest is the write envelope. Data carries the kind-specific
// payload; ID may be omitted on create, in which case the server mints one.
type resourceRequest struct {
	ID       string          `json:"id,omitempty"`
	Language string          `json:"language"`
	Seq      int32           `json:"seq,omitempty"`
	Data     json.RawMessage `json:"data"`
}

type createResponse struct {
	ID string `json:"id"`
}

func (h *ResourceHandler) create(t marquee.ResourceType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req resourceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		data, err := marquee.UnmarshalResource(t, req.Data)
		if err != nil {
			respondError(w, r, err)
			return
		}

		id := req.ID
		if id == "" {
			v7, err := uuid.NewV7()
			if err != nil {
				respondError(w, r, err)
				return
			}
			id = v7.String()
		}

		created, err := h.service.CreateResource(r.Context(), marquee.CreateResourceRequest{
			ID:       id,
			Data:     data,
			Language: req.Language,
			Seq:      req.Seq,
		})
		if err != nil {
			respondError(w, r, err)
			return
		}

		slog.Info("resource created", "type", t, "id", created)
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, createResponse{ID: created.String()})
	}
}

func (h *ResourceHandler) update(t marquee.ResourceType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req resourceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		data, err := marquee.UnmarshalResource(t, req.Data)
		if err != nil {
			respondError(w, r, err)
			return
		}

		id, err := h.service.UpdateResource(r.Context(), marquee.UpdateResourceRequest{
			ID:       chi.URLParam(r, "id"),
			Data:     data,
			Language: req.Language,
			Seq:      req.Seq,
		})
		if err != nil {
			respondError(w, r, err)
			return
		}

		slog.Info("resource updated", "type", t, "id", id, "language", req.Language)
		render.JSON(w, r, createResponse{ID: id.String()})
	}
}

func (h *ResourceHandler) delete(t marquee.ResourceType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		err := h.service.DeleteResource(r.Context(), marquee.DeleteResourceRequest{
			ID:   id,
			Type: t,
		})
		if err != nil {
			respondError(w, r, err)
			return
		}

		slog.Info("resource deleted", "type", t, "id", id)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *ResourceHandler) get(t marquee.ResourceType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := h.service.GetResource(r.Context(), marquee.GetResourceRequest{
			ID:              chi.URLParam(r, "id"),
			Type:            t,
			Language:        h.language(r),
			DefaultLanguage: h.defaultLanguage,
		})
		if err != nil {
			respondError(w, r, err)
			return
		}

		// Article reads count as page views. Best effort: a failed write
		// never fails the read.
		if t == marquee.ResourceTypeArticle {
			_, err := h.service.RecordView(r.Context(), marquee.RecordViewRequest{
				ArticleID: res.ID,
				IP:        clientIP(r),
				UserAgent: r.UserAgent(),
			})
			if err != nil {
				slog.Warn("failed to record article view", "article_id", res.ID, "error", err)
			}
		}

		render.JSON(w, r, res)
	}
}

func (h *ResourceHandler) list(t marquee.ResourceType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := pagination(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		list, err := h.service.ListResources(r.Context(), marquee.ListResourcesRequest{
			Type:            t,
			Language:        h.language(r),
			DefaultLanguage: h.defaultLanguage,
			Filter:          r.URL.Query().Get("filter"),
			Pagination:      page,
		})
		if err != nil {
			respondError(w, r, err)
			return
		}

		render.JSON(w, r, list)
	}
}

// single serves a singleton kind: the first (and only) live row, 404 when
// none has been published yet.
func (h *ResourceHandler) single(t marquee.ResourceType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := h.service.ListResources(r.Context(), marquee.ListResourcesRequest{
			Type:            t,
			Language:        h.language(r),
			DefaultLanguage: h.defaultLanguage,
			Pagination:      marquee.PaginationSingle(),
		})
		if err != nil {
			respondError(w, r, err)
			return
		}
		if len(list.Items) == 0 {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}

		render.JSON(w, r, list.Items[0])
	}
}

const maxAvatarBytes = 8 << 20

func (h *ResourceHandler) uploadAvatar(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxAvatarBytes); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	large, err := formFileBytes(r, "large")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	small, err := formFileBytes(r, "small")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id := chi.URLParam(r, "id")
	avatar, err := h.service.UploadAvatar(r.Context(), marquee.UploadAvatarRequest{
		MemberID: id,
		Large:    large,
		Small:    small,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	slog.Info("avatar uploaded", "member_id", id)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, avatar)
}

func formFileBytes(r *http.Request, field string) ([]byte, error) {
	f, _, err := r.FormFile(field)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// language returns the requested language, defaulting to the configured one.
// Unknown values are passed through; the operations reject them.
func (h *ResourceHandler) language(r *http.Request) string {
	if lang := r.URL.Query().Get("lang"); lang != "" {
		return lang
	}
	return h.defaultLanguage.String()
}

// pagination reads ?page and ?size. Both present selects a page window,
// neither selects everything; one without the other is rejected.
func pagination(r *http.Request) (marquee.Pagination, error) {
	pageStr := r.URL.Query().Get("page")
	sizeStr := r.URL.Query().Get("size")
	if pageStr == "" && sizeStr == "" {
		return marquee.PaginationAll(), nil
	}

	page, err := strconv.Atoi(pageStr)
	if err != nil {
		return marquee.Pagination{}, &marquee.ValidationError{Field: "page", Reason: "must be an integer"}
	}
	size, err := strconv.Atoi(sizeStr)
	if err != nil {
		return marquee.Pagination{}, &marquee.ValidationError{Field: "size", Reason: "must be an integer"}
	}
	if page < 0 || size <= 0 {
		return marquee.Pagination{}, &marquee.ValidationError{Field: "page", Reason: "page must be >= 0 and size > 0"}
	}
	return marquee.PaginationPage(page, size), nil
}

func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

// respondError maps the error taxonomy onto status codes: invalid input is
// 400, missing resources are 404, everything else is an opaque 500.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case marquee.IsBadRequest(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case marquee.IsNotFound(err):
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
