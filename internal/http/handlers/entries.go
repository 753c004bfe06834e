package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/geocoder89/timeledger/internal/domain/entry"
	"github.com/geocoder89/timeledger/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type EntryService interface {
	CreateEntry(ctx context.Context, username, categoryName, startRaw, endRaw string) (entry.Entry, error)
	UpdateEntry(ctx context.Context, entryID int64, caller, categoryName, startRaw, endRaw string) (entry.Entry, error)
	ListEntriesForUser(ctx context.Context, username string) ([]entry.Entry, error)
}

type EntriesHandler struct {
	svc EntryService
}

func NewEntriesHandler(svc EntryService) *EntriesHandler {
	return &EntriesHandler{svc: svc}
}

func (h *EntriesHandler) Create(ctx *gin.Context) {
	username, ok := middlewares.UsernameFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "token_missing", "Missing Authorization Header")
		return
	}

	var req entry.CreateEntryRequest
	if !BindJSON(ctx, &req) {
		return
	}

	e, err := h.svc.CreateEntry(ctx.Request.Context(), username, req.Category, req.StartTime, req.EndTime)
	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, e)
}

func (h *EntriesHandler) Update(ctx *gin.Context) {
	username, ok := middlewares.UsernameFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "token_missing", "Missing Authorization Header")
		return
	}

	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		// a malformed id cannot name anything the caller owns
		RespondNotFound(ctx, "entry_not_found", "Entry not found or access denied")
		return
	}

	var req entry.UpdateEntryRequest
	if !BindJSON(ctx, &req) {
		return
	}

	e, err := h.svc.UpdateEntry(ctx.Request.Context(), id, username, req.Category, req.StartTime, req.EndTime)
	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, e)
}

func (h *EntriesHandler) List(ctx *gin.Context) {
	username, ok := middlewares.UsernameFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "token_missing", "Missing Authorization Header")
		return
	}

	items, err := h.svc.ListEntriesForUser(ctx.Request.Context(), username)
	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"username": username,
		"items":    items,
		"count":    len(items),
	})
}
