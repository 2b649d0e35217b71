package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/VoltanFr/memcheck-sub004/internal/core/domain"
	"github.com/VoltanFr/memcheck-sub004/internal/usecase"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse reports liveness status.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessResponse reports per-dependency readiness.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// CardContentPayload carries the editable fields of a card over the wire.
// UsersWithView empty means the card is public.
type CardContentPayload struct {
	FrontSide      string   `json:"front_side"`
	BackSide       string   `json:"back_side"`
	AdditionalInfo string   `json:"additional_info"`
	References     string   `json:"references"`
	LanguageID     string   `json:"language_id"`
	TagIDs         []string `json:"tag_ids"`
	UsersWithView  []string `json:"users_with_view"`
}

// CreateCardRequest defines the payload to create a new card.
type CreateCardRequest struct {
	CreatorID          string             `json:"creator_id" binding:"required"`
	Content            CardContentPayload `json:"content" binding:"required"`
	VersionDescription string             `json:"version_description"`
}

// UpdateCardRequest defines the payload to edit an existing card.
type UpdateCardRequest struct {
	EditorID           string             `json:"editor_id" binding:"required"`
	Content            CardContentPayload `json:"content" binding:"required"`
	VersionDescription string             `json:"version_description"`
	// ExpectedVersionToken echoes the previous_version_id the editor read.
	// Null and absent both mean "I read a never-edited card".
	ExpectedVersionToken *string `json:"expected_version_token"`
}

// DeleteCardRequest defines the payload to delete a card.
type DeleteCardRequest struct {
	DeleterID           string `json:"deleter_id" binding:"required"`
	DeletionDescription string `json:"deletion_description"`
}

// CardResponse describes a live card returned by the API.
type CardResponse struct {
	ID                 string             `json:"id"`
	Content            CardContentPayload `json:"content"`
	EditorID           string             `json:"editor_id"`
	VersionUTCDate     time.Time          `json:"version_utc_date"`
	VersionDescription string             `json:"version_description"`
	VersionType        string             `json:"version_type"`
	VersionToken       *string            `json:"version_token"`
}

// UpdateCardResponse reports the outcome of a committed edit.
type UpdateCardResponse struct {
	Card          CardResponse `json:"card"`
	SnapshotID    string       `json:"snapshot_id"`
	ChangedFields []string     `json:"changed_fields"`
}

// DeleteCardResponse reports the terminal deletion snapshot.
type DeleteCardResponse struct {
	SnapshotID string `json:"snapshot_id"`
}

// VersionDescriptorResponse describes one node of a card's version history.
type VersionDescriptorResponse struct {
	SnapshotID         string             `json:"snapshot_id,omitempty"`
	CardID             string             `json:"card_id"`
	EditorID           string             `json:"editor_id"`
	VersionUTCDate     time.Time          `json:"version_utc_date"`
	VersionDescription string             `json:"version_description"`
	VersionType        string             `json:"version_type"`
	Content            CardContentPayload `json:"content"`
	ChangedFieldNames  []string           `json:"changed_field_names,omitempty"`
}

// HistoryResponse wraps a card's version history, newest first.
type HistoryResponse struct {
	CardID   string                      `json:"card_id"`
	Versions []VersionDescriptorResponse `json:"versions"`
}

// FieldChangeResponse carries the two rendered values of a differing field.
type FieldChangeResponse struct {
	Current  string `json:"current"`
	Original string `json:"original"`
}

// DiffResponse maps field names to their changes; absence means unchanged.
type DiffResponse struct {
	Changes map[string]FieldChangeResponse `json:"changes"`
}

// DeletionNoticeResponse reports one deleted card to a subscriber. Redacted
// notices omit front_side and deletion_description.
type DeletionNoticeResponse struct {
	CardID              string    `json:"card_id"`
	CardIsViewable      bool      `json:"card_is_viewable"`
	FrontSide           *string   `json:"front_side,omitempty"`
	DeletionDescription *string   `json:"deletion_description,omitempty"`
	DeletionUTCDate     time.Time `json:"deletion_utc_date"`
}

// DeletionNoticesResponse wraps the notices for one subscriber.
type DeletionNoticesResponse struct {
	UserID  string                   `json:"user_id"`
	Notices []DeletionNoticeResponse `json:"notices"`
}

func contentFromPayload(p CardContentPayload) domain.CardContent {
	return domain.CardContent{
		FrontSide:      p.FrontSide,
		BackSide:       p.BackSide,
		AdditionalInfo: p.AdditionalInfo,
		References:     p.References,
		LanguageID:     p.LanguageID,
		TagIDs:         p.TagIDs,
		Visibility:     domain.VisibilityFromUserIDs(p.UsersWithView),
	}
}

func payloadFromContent(content domain.CardContent) CardContentPayload {
	return CardContentPayload{
		FrontSide:      content.FrontSide,
		BackSide:       content.BackSide,
		AdditionalInfo: content.AdditionalInfo,
		References:     content.References,
		LanguageID:     content.LanguageID,
		TagIDs:         content.TagIDs,
		UsersWithView:  content.Visibility.UserIDs(),
	}
}

func newCardResponse(card domain.Card) CardResponse {
	return CardResponse{
		ID:                 card.ID,
		Content:            payloadFromContent(card.Content),
		EditorID:           card.EditorID,
		VersionUTCDate:     card.VersionUTCDate,
		VersionDescription: card.VersionDescription,
		VersionType:        string(card.VersionType),
		VersionToken:       card.PreviousVersionID,
	}
}

func newVersionDescriptorResponse(d usecase.VersionDescriptor) VersionDescriptorResponse {
	return VersionDescriptorResponse{
		SnapshotID:         d.SnapshotID,
		CardID:             d.CardID,
		EditorID:           d.EditorID,
		VersionUTCDate:     d.VersionUTCDate,
		VersionDescription: d.VersionDescription,
		VersionType:        string(d.VersionType),
		Content:            payloadFromContent(d.Content),
		ChangedFieldNames:  d.ChangedFieldNames,
	}
}

func newDiffResponse(result usecase.DiffResult) DiffResponse {
	resp := DiffResponse{Changes: make(map[string]FieldChangeResponse, len(result.Changes))}
	for name, change := range result.Changes {
		resp.Changes[name] = FieldChangeResponse{
			Current:  change.Current,
			Original: change.Original,
		}
	}
	return resp
}

func newDeletionNoticeResponse(notice usecase.DeletionNotice) DeletionNoticeResponse {
	return DeletionNoticeResponse{
		CardID:              notice.CardID,
		CardIsViewable:      notice.CardIsViewable,
		FrontSide:           notice.FrontSide,
		DeletionDescription: notice.DeletionDescription,
		DeletionUTCDate:     notice.DeletionUTCDate,
	}
}
