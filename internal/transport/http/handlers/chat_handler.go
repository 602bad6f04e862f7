package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pavelrudenok/matchflow/internal/domain/model"
	authsvc "github.com/pavelrudenok/matchflow/internal/services/auth"
	chatsvc "github.com/pavelrudenok/matchflow/internal/services/chat"
	"github.com/pavelrudenok/matchflow/internal/transport/http/dto"
	httperrors "github.com/pavelrudenok/matchflow/internal/transport/http/errors"
)

type ChatHandler struct {
	service *chatsvc.Service
}

func NewChatHandler(service *chatsvc.Service) *ChatHandler {
	return &ChatHandler{service: service}
}

func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "CHAT_SERVICE_UNAVAILABLE", "chat service is unavailable")
		return
	}

	var req dto.SendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}
	matchID, err := uuid.Parse(req.MatchID)
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid match id")
		return
	}

	res, err := h.service.Append(r.Context(), identity.UserID, matchID, req.Body, req.IdempotencyKey)
	if err != nil {
		handleChatError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.SendMessageResponse{
		Message:  messageToDTO(res.Message, identity.UserID),
		Replayed: res.Replayed,
	})
}

func (h *ChatHandler) Conversation(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "CHAT_SERVICE_UNAVAILABLE", "chat service is unavailable")
		return
	}

	matchID, err := uuid.Parse(chi.URLParam(r, "match_id"))
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid match id")
		return
	}
	afterSeq := parseInt64OrDefault(r.URL.Query().Get("after_seq"), 0)
	limit := parseIntOrDefault(r.URL.Query().Get("limit"), 0)

	page, err := h.service.List(r.Context(), identity.UserID, matchID, afterSeq, limit)
	if err != nil {
		handleChatError(w, err)
		return
	}

	items := make([]dto.MessageResponse, 0, len(page.Messages))
	for _, msg := range page.Messages {
		items = append(items, messageToDTO(msg, identity.UserID))
	}

	httperrors.Write(w, http.StatusOK, dto.ConversationResponse{
		Items:   items,
		NextSeq: page.NextSeq,
		HasMore: page.HasMore,
	})
}

func (h *ChatHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "CHAT_SERVICE_UNAVAILABLE", "chat service is unavailable")
		return
	}

	matchID, err := uuid.Parse(chi.URLParam(r, "match_id"))
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid match id")
		return
	}

	var req dto.MarkReadRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	updated, err := h.service.MarkRead(r.Context(), identity.UserID, matchID, req.UpToSeq)
	if err != nil {
		handleChatError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.MarkReadResponse{Updated: updated})
}

func handleChatError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatsvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid chat request")
	case errors.Is(err, chatsvc.ErrNotFound):
		writeNotFound(w, "MATCH_NOT_FOUND", "match not found")
	case errors.Is(err, chatsvc.ErrNotParticipant):
		writeForbidden(w, "FORBIDDEN", "not a participant of this match")
	case errors.Is(err, chatsvc.ErrNotActive):
		writeConflict(w, "MATCH_ARCHIVED", "match is archived")
	case errors.Is(err, model.ErrUnavailable):
		writeUnavailable(w, "storage is temporarily unavailable, retry the request")
	default:
		writeInternal(w, "INTERNAL_ERROR", "chat operation failed")
	}
}

func messageToDTO(msg model.Message, viewerID int64) dto.MessageResponse {
	return dto.MessageResponse{
		ID:            msg.ID.String(),
		SeqNo:         msg.SeqNo,
		SenderID:      msg.SenderID,
		IsCurrentUser: msg.SenderID == viewerID,
		Body:          msg.Body,
		CreatedAt:     msg.CreatedAt,
		ReadAt:        msg.ReadAt,
	}
}
