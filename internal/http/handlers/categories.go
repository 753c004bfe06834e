package handlers

import (
	"context"
	"net/http"
	"sync"

	"github.com/geocoder89/timeledger/internal/cache"
	"github.com/geocoder89/timeledger/internal/domain/category"
	"github.com/gin-gonic/gin"
)

const categoriesListKey = "categories:list:v1"

type CategoryService interface {
	GetOrCreate(ctx context.Context, name string) (category.Category, bool, error)
	Get(ctx context.Context, name string) (category.Category, error)
	List(ctx context.Context) ([]category.Category, error)
}

type CategoriesHandler struct {
	svc   CategoryService
	cache *cache.Cache[[]category.Category]

	// gen is bumped on every create so a List that read the store before the
	// create committed does not repopulate the cache with the old list.
	mu  sync.Mutex
	gen uint64
}

func NewCategoriesHandler(svc CategoryService) *CategoriesHandler {
	return &CategoriesHandler{svc: svc}
}

// NewCategoriesHandlerWithCache serves List from c and drops the entry whenever
// a category is created through this handler.
func NewCategoriesHandlerWithCache(svc CategoryService, c *cache.Cache[[]category.Category]) *CategoriesHandler {
	return &CategoriesHandler{svc: svc, cache: c}
}

// GetOrCreate answers 201 when the category was stored by this call and 200
// when it already existed.
func (h *CategoriesHandler) GetOrCreate(ctx *gin.Context) {
	var req category.CreateCategoryRequest

	if !BindJSON(ctx, &req) {
		return
	}

	c, created, err := h.svc.GetOrCreate(ctx.Request.Context(), req.Name)
	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		h.invalidate()
	}

	ctx.JSON(status, c)
}

// Get looks a category up by name without creating it.
func (h *CategoriesHandler) Get(ctx *gin.Context) {
	c, err := h.svc.Get(ctx.Request.Context(), ctx.Param("name"))
	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, c)
}

func (h *CategoriesHandler) List(ctx *gin.Context) {
	items, ok := h.cachedList()

	if !ok {
		gen := h.generation()

		var err error

		items, err = h.svc.List(ctx.Request.Context())
		if err != nil {
			RespondServiceError(ctx, err)
			return
		}

		h.store(gen, items)
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
	})
}

func (h *CategoriesHandler) cachedList() ([]category.Category, bool) {
	if h.cache == nil {
		return nil, false
	}

	return h.cache.Get(categoriesListKey)
}

func (h *CategoriesHandler) generation() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.gen
}

func (h *CategoriesHandler) invalidate() {
	if h.cache == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.gen++
	h.cache.Delete(categoriesListKey)
}

// store caches items only if no create happened since gen was read.
func (h *CategoriesHandler) store(gen uint64, items []category.Category) {
	if h.cache == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.gen == gen {
		h.cache.Set(categoriesListKey, items)
	}
}
