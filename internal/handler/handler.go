// Package handler exposes the catalog client over a thin JSON API.
package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/smartshelf/catalog-service/internal/catalog"
)

// Catalog is the subset of the catalog client the API needs. Operations never
// fail; absence of results and upstream failure both surface as emptiness.
type Catalog interface {
	SearchProducts(ctx context.Context, query, country string, page int, category string, maxResults int) []catalog.Product
	GetProductDetails(ctx context.Context, asin, country string) *catalog.Product
	GetProductReviews(ctx context.Context, asin, country string, limit int) []catalog.Review
	GetCategories(ctx context.Context) []string
	Stats() catalog.StatsSnapshot
}

// SearchAnalytics reports aggregated search activity. Nil when no database is
// configured; the endpoint then answers 404.
type SearchAnalytics interface {
	TopSearches(ctx context.Context, since time.Time, limit int) ([]catalog.SearchAggregate, error)
}

// Handler serves the read-only product API.
type Handler struct {
	catalog   Catalog
	analytics SearchAnalytics
}

// New constructs a Handler around the catalog client and an optional
// analytics source.
func New(c Catalog, analytics SearchAnalytics) *Handler {
	return &Handler{catalog: c, analytics: analytics}
}

// Register mounts all API routes on r.
func (h *Handler) Register(r gin.IRouter) {
	api := r.Group("/api")
	api.GET("/search", h.search)
	api.GET("/products/:asin", h.productDetails)
	api.GET("/products/:asin/reviews", h.productReviews)
	api.GET("/categories", h.categories)
	api.GET("/stats", h.stats)
	api.GET("/searches/top", h.topSearches)
}

func (h *Handler) search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		respondError(c, http.StatusBadRequest, "query parameter q is required")
		return
	}
	country := orDefault(c.Query("country"), "US")
	page := clampInt(c.Query("page"), 1, 1, 100)
	maxResults := clampInt(c.Query("max_results"), 10, 1, 50)

	products := h.catalog.SearchProducts(c.Request.Context(), query, country, page, c.Query("category"), maxResults)
	c.JSON(http.StatusOK, gin.H{
		"query":    query,
		"count":    len(products),
		"products": products,
	})
}

func (h *Handler) productDetails(c *gin.Context) {
	asin := c.Param("asin")
	country := orDefault(c.Query("country"), "US")

	p := h.catalog.GetProductDetails(c.Request.Context(), asin, country)
	if p == nil {
		respondError(c, http.StatusNotFound, "product not found")
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) productReviews(c *gin.Context) {
	asin := c.Param("asin")
	country := orDefault(c.Query("country"), "US")
	limit := clampInt(c.Query("limit"), 10, 1, 100)

	reviews := h.catalog.GetProductReviews(c.Request.Context(), asin, country, limit)
	c.JSON(http.StatusOK, gin.H{
		"asin":    asin,
		"count":   len(reviews),
		"reviews": reviews,
	})
}

func (h *Handler) categories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"categories": h.catalog.GetCategories(c.Request.Context()),
	})
}

func (h *Handler) stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.catalog.Stats())
}

func (h *Handler) topSearches(c *gin.Context) {
	if h.analytics == nil {
		respondError(c, http.StatusNotFound, "search analytics not configured")
		return
	}
	hours := clampInt(c.Query("hours"), 24, 1, 720)
	limit := clampInt(c.Query("limit"), 10, 1, 100)
	since := time.Now().Add(-time.Duration(hours) * time.Hour)

	top, err := h.analytics.TopSearches(c.Request.Context(), since, limit)
	if err != nil {
		zctx.From(c.Request.Context()).Error("Top searches query failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "search analytics unavailable")
		return
	}
	if top == nil {
		top = []catalog.SearchAggregate{}
	}
	c.JSON(http.StatusOK, gin.H{
		"window_hours": hours,
		"searches":     top,
	})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"code":    status,
		"message": message,
	})
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// clampInt parses v with a default, bounded to [lo, hi].
func clampInt(v string, def, lo, hi int) int {
	n, err := strconv.Atoi(v)
	if err != nil {
		n = def
	}
	if n < lo {
		n = lo
	}
	if n > hi {
		n = hi
	}
	return n
}
