package handlers

import (
	"errors"
	"net/http"

	"github.com/pavelrudenok/matchflow/internal/domain/model"
	authsvc "github.com/pavelrudenok/matchflow/internal/services/auth"
	swipessvc "github.com/pavelrudenok/matchflow/internal/services/swipes"
	"github.com/pavelrudenok/matchflow/internal/transport/http/dto"
	httperrors "github.com/pavelrudenok/matchflow/internal/transport/http/errors"
)

type SwipeHandler struct {
	service *swipessvc.Service
}

func NewSwipeHandler(service *swipessvc.Service) *SwipeHandler {
	return &SwipeHandler{service: service}
}

func (h *SwipeHandler) Handle(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "SWIPES_SERVICE_UNAVAILABLE", "swipes service is unavailable")
		return
	}

	var req dto.SwipeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	res, err := h.service.Swipe(r.Context(), identity.UserID, req.TargetUserID, req.Action)
	if err != nil {
		switch {
		case errors.Is(err, swipessvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid swipe request")
		case errors.Is(err, swipessvc.ErrUnsupportedAction):
			writeBadRequest(w, "UNSUPPORTED_ACTION", "action must be LIKE or DISLIKE")
		case errors.Is(err, model.ErrUnavailable):
			writeUnavailable(w, "storage is temporarily unavailable, retry the request")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to record swipe")
		}
		return
	}

	response := dto.SwipeResponse{
		Action:         string(res.Record.Action),
		AlreadyDecided: res.AlreadyDecided,
		DecidedAt:      res.Record.CreatedAt,
		Matched:        res.Match != nil,
		IsNewMatch:     res.Outcome == swipessvc.OutcomeMatchCreated,
	}
	if res.Match != nil {
		match := matchToDTO(*res.Match, identity.UserID)
		response.Match = &match
	}

	httperrors.Write(w, http.StatusOK, response)
}

func matchToDTO(match model.Match, viewerID int64) dto.MatchResponse {
	return dto.MatchResponse{
		ID:          match.ID.String(),
		OtherUserID: match.OtherUser(viewerID),
		Status:      string(match.Status),
		CreatedAt:   match.CreatedAt,
		ArchivedAt:  match.ArchivedAt,
	}
}
