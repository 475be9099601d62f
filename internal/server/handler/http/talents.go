package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atinyakov/TalentKeeper/internal/apperr"
	"github.com/atinyakov/TalentKeeper/internal/catalog"
	"github.com/atinyakov/TalentKeeper/internal/middleware"
	"github.com/atinyakov/TalentKeeper/internal/models"
	"github.com/atinyakov/TalentKeeper/internal/service"
	"github.com/atinyakov/TalentKeeper/internal/thumbnail"
)

const (
	defaultPageSize = 20
	maxUploadSize   = 32 << 20
)

// TalentService defines the catalog operations required by TalentHandler.
type TalentService interface {
	List(ctx context.Context, q service.ListQuery) (*service.ListResult, error)
	ListRemote(ctx context.Context, q service.ListQuery) (*service.ListResult, error)
	ImagePath(ctx context.Context, id, catalogPath, imagesFolder string) (string, error)
	ThumbnailPath(ctx context.Context, id, catalogPath, imagesFolder string) (string, error)
	CachedImagePath(id string) (string, bool)
	Upload(ctx context.Context, filename string, r io.Reader) (*service.UploadResult, error)
	Save(ctx context.Context, in service.TalentInput) (string, error)
	Update(ctx context.Context, in service.TalentInput) error
	Delete(ctx context.Context, id string) (string, error)
	ToggleFavorite(ctx context.Context, id, catalogPath string) (bool, error)
	Get(ctx context.Context, id string) (*models.Talent, error)
	Select(ctx context.Context, id, catalogPath string) (*service.Selection, error)
}

// TalentHandler serves the catalog listing, image and editing endpoints.
type TalentHandler struct {
	TalentService TalentService
	Log           *zap.Logger
}

// listQuery builds a ListQuery from the request's query string.
func listQuery(r *http.Request) (service.ListQuery, error) {
	q := r.URL.Query()

	page, err := intParam(q.Get("page"), 1)
	if err != nil {
		return service.ListQuery{}, apperr.InvalidArgument("invalid page")
	}
	pageSize, err := intParam(q.Get("page_size"), defaultPageSize)
	if err != nil {
		return service.ListQuery{}, apperr.InvalidArgument("invalid page_size")
	}

	return service.ListQuery{
		Filter: models.FilterSpec{
			NameFilter:    strings.TrimSpace(q.Get("name")),
			TagFilter:     catalog.SplitTags(q.Get("tags")),
			TagLogic:      catalog.ParseTagLogic(q.Get("logic")),
			Gender:        strings.TrimSpace(q.Get("gender")),
			AgeGroup:      strings.TrimSpace(q.Get("age_group")),
			Ethnicity:     strings.TrimSpace(q.Get("ethnicity")),
			FavoritesOnly: strings.EqualFold(q.Get("favorites_only"), "true"),
		},
		Page:         page,
		PageSize:     pageSize,
		UseRemote:    strings.EqualFold(q.Get("use_remote"), "true"),
		DeviceID:     middleware.GetDeviceIDFromContext(r.Context()),
		CatalogPath:  q.Get("catalog_path"),
		ImagesFolder: q.Get("images_folder"),
	}, nil
}

func intParam(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

// List handles GET /talents for both the local and the remote catalog.
func (h *TalentHandler) List(w http.ResponseWriter, r *http.Request) {
	q, err := listQuery(r)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	res, err := h.TalentService.List(r.Context(), q)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListRemote handles GET /remote_talents. A fetch failure still answers
// with an empty page next to the error.
func (h *TalentHandler) ListRemote(w http.ResponseWriter, r *http.Request) {
	q, err := listQuery(r)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	q.UseRemote = true
	res, err := h.TalentService.ListRemote(r.Context(), q)
	if apperr.Is(err, apperr.KindNetwork) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"error":        "Failed to fetch remote catalog",
			"talents":      []models.Talent{},
			"total_pages":  0,
			"current_page": 1,
			"total_count":  0,
		})
		return
	}
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Thumbnail handles GET /thumbnail/{talent_id}.
func (h *TalentHandler) Thumbnail(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p, err := h.TalentService.ThumbnailPath(r.Context(), chi.URLParam(r, "talent_id"), q.Get("catalog_path"), q.Get("images_folder"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	http.ServeFile(w, r, p)
}

// Image handles GET /image/{talent_id}. It never falls back to a thumbnail.
func (h *TalentHandler) Image(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p, err := h.TalentService.ImagePath(r.Context(), chi.URLParam(r, "talent_id"), q.Get("catalog_path"), q.Get("images_folder"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	http.ServeFile(w, r, p)
}

// CachedImage handles GET /cached_image/{talent_id}. Anything that is not a
// cached image gets the placeholder.
func (h *TalentHandler) CachedImage(w http.ResponseWriter, r *http.Request) {
	if p, ok := h.TalentService.CachedImagePath(chi.URLParam(r, "talent_id")); ok {
		if f, err := os.Open(p); err == nil {
			defer f.Close()
			if info, err := f.Stat(); err == nil {
				w.Header().Set("Content-Type", "image/jpeg")
				w.Header().Set("Cache-Control", "public, max-age=86400")
				http.ServeContent(w, r, "", info.ModTime(), f)
				return
			}
		}
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(thumbnail.Placeholder())
}

// Upload handles POST /upload with a multipart "image" field.
func (h *TalentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, r, h.Log, apperr.InvalidArgument("invalid multipart body"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		writeError(w, r, h.Log, apperr.InvalidArgument("Expected 'image' field"))
		return
	}
	if err != nil {
		writeError(w, r, h.Log, apperr.InvalidArgument("invalid image field"))
		return
	}
	defer file.Close()

	res, err := h.TalentService.Upload(r.Context(), header.Filename, file)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Save handles POST /save_talent.
func (h *TalentHandler) Save(w http.ResponseWriter, r *http.Request) {
	var in service.TalentInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	id, err := h.TalentService.Save(r.Context(), in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "success",
		"talent_id": id,
		"message":   fmt.Sprintf("Talent '%s' saved successfully", in.Name),
	})
}

// Update handles POST /update_talent.
func (h *TalentHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in service.TalentInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if err := h.TalentService.Update(r.Context(), in); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": fmt.Sprintf("Talent '%s' updated successfully", in.Name),
	})
}

// Delete handles POST /delete_talent.
func (h *TalentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TalentID string `json:"talent_id"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	name, err := h.TalentService.Delete(r.Context(), req.TalentID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": fmt.Sprintf("Talent '%s' deleted successfully", name),
	})
}

// Favorite handles POST /favorite.
func (h *TalentHandler) Favorite(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TalentID    string `json:"talent_id"`
		CatalogPath string `json:"catalog_path"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	fav, err := h.TalentService.ToggleFavorite(r.Context(), req.TalentID, req.CatalogPath)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "success",
		"talent_id":   req.TalentID,
		"is_favorite": fav,
	})
}

// Get handles GET /talent/{talent_id}.
func (h *TalentHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.TalentService.Get(r.Context(), chi.URLParam(r, "talent_id"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "talent": t})
}

// Select handles GET /select?talent_id=.
func (h *TalentHandler) Select(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sel, err := h.TalentService.Select(r.Context(), q.Get("talent_id"), q.Get("catalog_path"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, sel)
}

// Schema handles GET /schema, listing the attribute values the forms offer.
func (h *TalentHandler) Schema(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{
		"genders":     models.Genders,
		"age_groups":  models.AgeGroups,
		"ethnicities": models.Ethnicities,
		"skin_tones":  models.SkinTones,
		"hair_colors": models.HairColors,
		"hair_styles": models.HairStyles,
		"eye_colors":  models.EyeColors,
		"body_types":  models.BodyTypes,
	})
}
