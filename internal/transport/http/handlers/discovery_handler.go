package handlers

import (
	"errors"
	"net/http"

	"github.com/pavelrudenok/matchflow/internal/domain/model"
	authsvc "github.com/pavelrudenok/matchflow/internal/services/auth"
	discoverysvc "github.com/pavelrudenok/matchflow/internal/services/discovery"
	"github.com/pavelrudenok/matchflow/internal/transport/http/dto"
	httperrors "github.com/pavelrudenok/matchflow/internal/transport/http/errors"
)

type DiscoveryHandler struct {
	service *discoverysvc.Service
}

func NewDiscoveryHandler(service *discoverysvc.Service) *DiscoveryHandler {
	return &DiscoveryHandler{service: service}
}

func (h *DiscoveryHandler) Handle(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "DISCOVERY_SERVICE_UNAVAILABLE", "discovery service is unavailable")
		return
	}

	candidates, err := h.service.Discover(r.Context(), identity.UserID, parseIntOrDefault(r.URL.Query().Get("limit"), 0))
	if err != nil {
		switch {
		case errors.Is(err, discoverysvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid discovery request")
		case errors.Is(err, model.ErrUnavailable):
			writeUnavailable(w, "storage is temporarily unavailable, retry the request")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to load candidates")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.DiscoverResponse{CandidateIDs: candidates})
}
