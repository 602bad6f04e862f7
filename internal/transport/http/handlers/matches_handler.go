package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/pavelrudenok/matchflow/internal/domain/model"
	authsvc "github.com/pavelrudenok/matchflow/internal/services/auth"
	matchessvc "github.com/pavelrudenok/matchflow/internal/services/matches"
	"github.com/pavelrudenok/matchflow/internal/transport/http/dto"
	httperrors "github.com/pavelrudenok/matchflow/internal/transport/http/errors"
)

type MatchesMetrics interface {
	RecordMatchArchived()
}

type MatchesHandler struct {
	service *matchessvc.Service
	metrics MatchesMetrics
}

func NewMatchesHandler(service *matchessvc.Service, metrics MatchesMetrics) *MatchesHandler {
	return &MatchesHandler{service: service, metrics: metrics}
}

func (h *MatchesHandler) Handle(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCHES_SERVICE_UNAVAILABLE", "matches service is unavailable")
		return
	}

	items, err := h.service.List(r.Context(), identity.UserID, parseIntOrDefault(r.URL.Query().Get("limit"), 100))
	if err != nil {
		switch {
		case errors.Is(err, matchessvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid matches request")
		case errors.Is(err, model.ErrUnavailable):
			writeUnavailable(w, "storage is temporarily unavailable, retry the request")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to load matches")
		}
		return
	}

	responseItems := make([]dto.MatchItemResponse, 0, len(items))
	for _, item := range items {
		responseItems = append(responseItems, dto.MatchItemResponse{
			MatchResponse: matchToDTO(item.Match, identity.UserID),
			LastMessage:   item.LastMessage,
			LastMessageAt: item.LastMessageAt,
			UnreadCount:   item.UnreadCount,
		})
	}

	httperrors.Write(w, http.StatusOK, dto.MatchesResponse{Items: responseItems})
}

func (h *MatchesHandler) Unmatch(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCHES_SERVICE_UNAVAILABLE", "matches service is unavailable")
		return
	}

	var req dto.UnmatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}
	matchID, err := uuid.Parse(req.MatchID)
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid match id")
		return
	}

	match, err := h.service.Archive(r.Context(), identity.UserID, matchID)
	if err != nil {
		switch {
		case errors.Is(err, matchessvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid unmatch request")
		case errors.Is(err, matchessvc.ErrNotFound):
			writeNotFound(w, "MATCH_NOT_FOUND", "match not found")
		case errors.Is(err, matchessvc.ErrNotParticipant):
			writeForbidden(w, "FORBIDDEN", "not a participant of this match")
		case errors.Is(err, model.ErrUnavailable):
			writeUnavailable(w, "storage is temporarily unavailable, retry the request")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to unmatch")
		}
		return
	}

	if h.metrics != nil {
		h.metrics.RecordMatchArchived()
	}

	httperrors.Write(w, http.StatusOK, dto.UnmatchResponse{
		OK:    true,
		Match: matchToDTO(match, identity.UserID),
	})
}
