package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/maltedev/heureka-wishlist/internal/cache"
	"github.com/maltedev/heureka-wishlist/internal/database"
	"github.com/maltedev/heureka-wishlist/internal/models"
	"github.com/maltedev/heureka-wishlist/internal/render"
)

const defaultHistoryLimit = 100

type CacheReader interface {
	Read() (*cache.File, error)
}

type HistoryStore interface {
	History(ctx context.Context, productID string, limit int) ([]database.PricePoint, error)
}

type Handlers struct {
	cache    CacheReader
	renderer *render.Renderer
	history  HistoryStore
	order    render.SortOrder
	logger   *slog.Logger
	now      func() time.Time
}

// NewHandlers serves the cached wishlist. history may be nil, in which case
// the history endpoint answers 404.
func NewHandlers(c CacheReader, renderer *render.Renderer, history HistoryStore, order render.SortOrder, logger *slog.Logger) *Handlers {
	return &Handlers{
		cache:    c,
		renderer: renderer,
		history:  history,
		order:    order,
		logger:   logger.With("component", "handlers"),
		now:      time.Now,
	}
}

type ProductsResponse struct {
	ScrapedAt time.Time        `json:"scraped_at"`
	Count     int              `json:"count"`
	Order     render.SortOrder `json:"order"`
	Products  []models.Product `json:"products"`
}

type HealthResponse struct {
	Status     string     `json:"status"`
	ScrapedAt  *time.Time `json:"scraped_at,omitempty"`
	AgeSeconds int64      `json:"age_seconds,omitempty"`
	Fresh      bool       `json:"fresh"`
	Products   int        `json:"products"`
	Message    string     `json:"message,omitempty"`
}

// GetPage renders the wishlist page from the cache.
func (h *Handlers) GetPage(w http.ResponseWriter, r *http.Request) {
	f, ok := h.readCache(w)
	if !ok {
		return
	}

	opts := render.DefaultOptions()
	opts.Order = h.order
	opts.ScrapedAt = f.ScrapedAt

	if s := r.URL.Query().Get("sort"); s != "" {
		order, err := render.ParseSortOrder(s)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		opts.Order = order
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.renderer.Render(w, f.Products, opts); err != nil {
		h.logger.Error("failed to render page", "error", err)
	}
}

// ListProducts handles GET /api/products?sort=&min=&max=
func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	order := h.order
	if s := q.Get("sort"); s != "" {
		parsed, err := render.ParseSortOrder(s)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		order = parsed
	}

	min, err := parseBound(q.Get("min"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid min price")
		return
	}
	max, err := parseBound(q.Get("max"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid max price")
		return
	}

	f, ok := h.readCache(w)
	if !ok {
		return
	}

	products := render.SortProducts(render.FilterByPrice(f.Products, min, max), order)

	h.respondJSON(w, http.StatusOK, ProductsResponse{
		ScrapedAt: f.ScrapedAt,
		Count:     len(products),
		Order:     order,
		Products:  products,
	})
}

// GetProductHistory handles GET /api/products/{productID}/history
func (h *Handlers) GetProductHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.respondError(w, http.StatusNotFound, "price history is not enabled")
		return
	}

	productID := chi.URLParam(r, "productID")
	if productID == "" {
		h.respondError(w, http.StatusBadRequest, "product ID is required")
		return
	}

	limit := defaultHistoryLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			h.respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	points, err := h.history.History(r.Context(), productID, limit)
	if err != nil {
		h.logger.Error("failed to load price history", "product_id", productID, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to load price history")
		return
	}

	h.respondJSON(w, http.StatusOK, points)
}

// Health reports whether a cache exists and how old it is.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	f, err := h.cache.Read()
	if err != nil {
		resp := HealthResponse{Status: "degraded", Message: "no usable cache"}
		if !errors.Is(err, os.ErrNotExist) {
			resp.Message = err.Error()
		}
		h.respondJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	now := h.now()
	scrapedAt := f.ScrapedAt
	resp := HealthResponse{
		Status:     "ok",
		ScrapedAt:  &scrapedAt,
		AgeSeconds: int64(f.Age(now) / time.Second),
		Fresh:      cache.IsFresh(f, false, now),
		Products:   len(f.Products),
	}
	if !resp.Fresh {
		resp.Status = "stale"
	}

	h.respondJSON(w, http.StatusOK, resp)
}

func (h *Handlers) readCache(w http.ResponseWriter) (*cache.File, bool) {
	f, err := h.cache.Read()
	if err == nil {
		return f, true
	}

	if errors.Is(err, os.ErrNotExist) {
		h.respondError(w, http.StatusNotFound, "wishlist has not been scraped yet")
		return nil, false
	}

	h.logger.Error("failed to read cache", "error", err)
	h.respondError(w, http.StatusInternalServerError, "failed to read cache")
	return nil, false
}

func parseBound(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Helper methods
func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
