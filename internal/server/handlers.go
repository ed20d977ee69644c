package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/masonry/pkg/buildinfo"
	merrors "github.com/matzehuels/masonry/pkg/errors"
	"github.com/matzehuels/masonry/pkg/gallery"
	"github.com/matzehuels/masonry/pkg/masonry"
	"github.com/matzehuels/masonry/pkg/pipeline"
	"github.com/matzehuels/masonry/pkg/render"
)

// =============================================================================
// Health
// =============================================================================

type healthResponse struct {
	Status string         `json:"status"`
	Build  buildinfo.Info `json:"build"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Build: buildinfo.Get()})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.opts.Stats == nil {
		writeError(w, r, merrors.New(merrors.ErrCodeUnsupported, "stats are not enabled"))
		return
	}
	writeJSON(w, http.StatusOK, s.opts.Stats.Snapshot())
}

// =============================================================================
// Layout
// =============================================================================

// layoutRequest lays out caller-supplied items. Width defaults to
// pipeline.DefaultWidth and Constraints to the server's.
type layoutRequest struct {
	Items       []masonry.Item       `json:"items"`
	Width       float64              `json:"width,omitempty"`
	Constraints *masonry.Constraints `json:"constraints,omitempty"`
	Formats     []string             `json:"formats,omitempty"`
	TextWidth   int                  `json:"text_width,omitempty"`
}

type cacheInfo struct {
	LayoutHit bool `json:"layout_hit"`
	RenderHit bool `json:"render_hit,omitempty"`
}

type layoutResponse struct {
	Layout    masonry.Layout    `json:"layout"`
	ItemsHash string            `json:"items_hash"`
	Artifacts map[string]string `json:"artifacts,omitempty"`
	Cache     cacheInfo         `json:"cache"`
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	var req layoutRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, r, merrors.Wrap(merrors.ErrCodeInvalidInput, err, "malformed layout request"))
		return
	}
	for i, it := range req.Items {
		if it.ID == "" {
			writeError(w, r, merrors.New(merrors.ErrCodeInvalidItem, "item %d has no id", i))
			return
		}
	}

	items := masonry.Dedupe(nil, req.Items)
	media := make([]gallery.MediaItem, len(items))
	for i, it := range items {
		media[i] = gallery.MediaItem{ObjectKey: it.ID, FileType: gallery.FileTypeImage, Width: it.Width, Height: it.Height}
	}

	opts := pipeline.Options{
		Constraints: s.opts.Constraints,
		Width:       req.Width,
		Formats:     req.Formats,
		TextWidth:   req.TextWidth,
		Logger:      loggerFrom(r),
	}
	if req.Constraints != nil {
		opts.Constraints = *req.Constraints
	}

	ctx := r.Context()
	layout, hit, err := s.opts.Runner.ComputeLayoutWithCacheInfo(ctx, media, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := layoutResponse{
		Layout:    layout,
		ItemsHash: pipeline.HashItems(items),
		Cache:     cacheInfo{LayoutHit: hit},
	}

	if len(req.Formats) > 0 {
		artifacts, renderHit, err := s.opts.Runner.RenderWithCacheInfo(ctx, layout, nil, opts)
		if err != nil {
			writeError(w, r, err)
			return
		}
		resp.Artifacts = make(map[string]string, len(artifacts))
		for f, data := range artifacts {
			resp.Artifacts[f] = string(data)
		}
		resp.Cache.RenderHit = renderHit
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// Gallery
// =============================================================================

type galleryResponse struct {
	Items  []gallery.MediaItem `json:"items"`
	Layout masonry.Layout      `json:"layout"`
	Cache  cacheInfo           `json:"cache"`
}

func (s *Server) handleGallery(w http.ResponseWriter, r *http.Request) {
	opts, err := s.galleryOptions(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx := r.Context()
	items, err := s.opts.Runner.Fetch(ctx, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	layout, hit, err := s.opts.Runner.ComputeLayoutWithCacheInfo(ctx, items, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, galleryResponse{Items: items, Layout: layout, Cache: cacheInfo{LayoutHit: hit}})
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	opts, err := s.galleryOptions(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	format := chi.URLParam(r, "format")
	opts.Formats = []string{format}

	result, err := s.opts.Runner.Execute(r.Context(), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", render.ContentType(format))
	w.Header().Set("X-Cache", cacheStatus(result.CacheInfo.RenderHit))
	_, _ = w.Write(result.Artifacts[format])
}

// galleryOptions reads width, search and limit from the query string.
func (s *Server) galleryOptions(r *http.Request) (pipeline.Options, error) {
	if s.opts.Source == nil {
		return pipeline.Options{}, merrors.New(merrors.ErrCodeUnsupported, "no gallery source configured")
	}
	q := r.URL.Query()
	opts := pipeline.Options{
		Source:      s.opts.Source,
		Constraints: s.opts.Constraints,
		Limit:       s.opts.Limit,
		Search:      q.Get("search"),
		Logger:      loggerFrom(r),
	}
	if v := q.Get("width"); v != "" {
		width, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return opts, merrors.New(merrors.ErrCodeInvalidWidth, "width %q is not a number", v)
		}
		opts.Width = width
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			return opts, merrors.New(merrors.ErrCodeInvalidInput, "limit must be a positive integer")
		}
		opts.Limit = min(limit, s.opts.Limit)
	}
	return opts, nil
}

func cacheStatus(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}

// =============================================================================
// Delete
// =============================================================================

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	deleter, ok := s.opts.Source.(gallery.Deleter)
	if !ok || s.opts.Sessions == nil {
		writeError(w, r, merrors.New(merrors.ErrCodeUnsupported, "deleting files is not available"))
		return
	}

	ctx := r.Context()
	id := r.Header.Get(SessionHeader)
	if id == "" {
		writeError(w, r, merrors.New(merrors.ErrCodeUnauthorized, "missing %s header", SessionHeader))
		return
	}
	sess, err := s.opts.Sessions.Get(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if sess == nil {
		writeError(w, r, merrors.New(merrors.ErrCodeUnauthorized, "session not found or expired"))
		return
	}
	if sess.Guest {
		writeError(w, r, merrors.New(merrors.ErrCodeForbidden, "guest users cannot delete files"))
		return
	}

	fileID, err := strconv.ParseInt(chi.URLParam(r, "fileID"), 10, 64)
	if err != nil || fileID <= 0 {
		writeError(w, r, merrors.New(merrors.ErrCodeInvalidInput, "file id must be a positive integer"))
		return
	}
	if err := deleter.DeleteFile(ctx, fileID); err != nil {
		writeError(w, r, err)
		return
	}
	loggerFrom(r).Info("deleted file", "file_id", fileID, "user", sess.Username)
	w.WriteHeader(http.StatusNoContent)
}
