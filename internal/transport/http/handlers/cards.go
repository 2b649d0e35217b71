package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/VoltanFr/memcheck-sub004/internal/core/domain"
	"github.com/VoltanFr/memcheck-sub004/internal/usecase"
)

// CardHandler exposes endpoints for card creation, editing, deletion, history
// and diffs.
type CardHandler struct {
	writer  *usecase.VersionWriter
	history *usecase.HistoryService
	diff    *usecase.DiffService
}

// NewCardHandler builds a card handler.
func NewCardHandler(writer *usecase.VersionWriter, history *usecase.HistoryService, diff *usecase.DiffService) *CardHandler {
	return &CardHandler{
		writer:  writer,
		history: history,
		diff:    diff,
	}
}

// RegisterRoutes binds card endpoints.
func (h *CardHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("", h.Create)
	r.PUT("/:id", h.Update)
	r.DELETE("/:id", h.Delete)
	r.GET("/:id/history", h.History)
	r.GET("/:id/diff", h.Diff)
}

var writeErrorCases = []ErrorCase{
	{Err: usecase.ErrCardIDRequired, Status: http.StatusBadRequest, Message: "card id is required"},
	{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
	{Err: usecase.ErrCardNotFound, Status: http.StatusNotFound, Message: "card not found"},
	{Err: usecase.ErrVersionConflict, Status: http.StatusConflict, Message: "card was modified concurrently, reload and retry"},
	{Err: usecase.ErrNoChanges, Status: http.StatusBadRequest, Message: "edit contains no changes"},
	{Err: domain.ErrEditorNotInVisibility, Status: http.StatusBadRequest, Message: "editor must be allowed to view the card"},
}

var readErrorCases = []ErrorCase{
	{Err: usecase.ErrCardIDRequired, Status: http.StatusBadRequest, Message: "card id is required"},
	{Err: usecase.ErrCardNotFound, Status: http.StatusNotFound, Message: "card not found"},
	{Err: usecase.ErrAccessDenied, Status: http.StatusForbidden, Message: "card is not visible to this user"},
}

// Create persists the first version of a new card.
func (h *CardHandler) Create(c *gin.Context) {
	var req CreateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid card payload"))
		return
	}

	card, err := h.writer.CreateCard(c.Request.Context(), usecase.CreateCardInput{
		CreatorID:          req.CreatorID,
		Content:            contentFromPayload(req.Content),
		VersionDescription: req.VersionDescription,
	})
	if err != nil {
		RespondWithMappedError(c, err, writeErrorCases, http.StatusInternalServerError, "failed to create card")
		return
	}

	c.JSON(http.StatusCreated, newCardResponse(*card))
}

// Update snapshots the card's current state and swaps the live row to the
// proposed content under the caller's version token.
func (h *CardHandler) Update(c *gin.Context) {
	var req UpdateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid card payload"))
		return
	}

	result, err := h.writer.CreateSnapshot(c.Request.Context(), usecase.CreateSnapshotInput{
		CardID:               c.Param("id"),
		EditorID:             req.EditorID,
		NewContent:           contentFromPayload(req.Content),
		VersionDescription:   req.VersionDescription,
		ExpectedVersionToken: req.ExpectedVersionToken,
	})
	if err != nil {
		RespondWithMappedError(c, err, writeErrorCases, http.StatusInternalServerError, "failed to update card")
		return
	}

	c.JSON(http.StatusOK, UpdateCardResponse{
		Card:          newCardResponse(result.Card),
		SnapshotID:    result.SnapshotID,
		ChangedFields: result.ChangedFields,
	})
}

// Delete appends a terminal deletion snapshot and removes the live row.
func (h *CardHandler) Delete(c *gin.Context) {
	var req DeleteCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid deletion payload"))
		return
	}

	snapshotID, err := h.writer.CreateDeletionSnapshot(c.Request.Context(), usecase.CreateDeletionSnapshotInput{
		CardID:              c.Param("id"),
		DeleterID:           req.DeleterID,
		DeletionDescription: req.DeletionDescription,
	})
	if err != nil {
		RespondWithMappedError(c, err, writeErrorCases, http.StatusInternalServerError, "failed to delete card")
		return
	}

	c.JSON(http.StatusOK, DeleteCardResponse{SnapshotID: snapshotID})
}

// History returns the card's version chain, newest first. An optional since
// parameter (RFC 3339) limits the walk to versions at or after the cutoff
// plus one older padding node.
func (h *CardHandler) History(c *gin.Context) {
	cardID := c.Param("id")
	userID := strings.TrimSpace(c.Query("user_id"))
	if userID == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "user_id is required"))
		return
	}

	var descriptors []usecase.VersionDescriptor
	var err error

	if since := strings.TrimSpace(c.Query("since")); since != "" {
		cutoff, parseErr := time.Parse(time.RFC3339, since)
		if parseErr != nil {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "since must be an RFC 3339 timestamp"))
			return
		}
		descriptors, err = h.history.GetHistorySince(c.Request.Context(), cardID, userID, cutoff)
	} else {
		descriptors, err = h.history.GetHistory(c.Request.Context(), cardID, userID)
	}
	if err != nil {
		RespondWithMappedError(c, err, readErrorCases, http.StatusInternalServerError, "failed to load card history")
		return
	}

	resp := HistoryResponse{
		CardID:   cardID,
		Versions: make([]VersionDescriptorResponse, 0, len(descriptors)),
	}
	for _, descriptor := range descriptors {
		resp.Versions = append(resp.Versions, newVersionDescriptorResponse(descriptor))
	}

	c.JSON(http.StatusOK, resp)
}

// Diff compares a snapshot against the live card, or two snapshots when a
// current_id is supplied.
func (h *CardHandler) Diff(c *gin.Context) {
	cardID := c.Param("id")
	userID := strings.TrimSpace(c.Query("user_id"))
	originalID := strings.TrimSpace(c.Query("original_id"))
	currentID := strings.TrimSpace(c.Query("current_id"))

	if userID == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "user_id is required"))
		return
	}
	if originalID == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "original_id is required"))
		return
	}

	var result usecase.DiffResult
	var err error
	if currentID == "" {
		result, err = h.diff.DiffAgainstLive(c.Request.Context(), cardID, originalID, userID)
	} else {
		result, err = h.diff.DiffSnapshots(c.Request.Context(), currentID, originalID, userID)
	}
	if err != nil {
		RespondWithMappedError(c, err, readErrorCases, http.StatusInternalServerError, "failed to compute diff")
		return
	}

	c.JSON(http.StatusOK, newDiffResponse(result))
}
