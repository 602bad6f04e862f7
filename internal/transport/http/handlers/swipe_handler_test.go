package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pavelrudenok/matchflow/internal/repo/memory"
	authsvc "github.com/pavelrudenok/matchflow/internal/services/auth"
	swipessvc "github.com/pavelrudenok/matchflow/internal/services/swipes"
)

func newSwipeHandlerForTest(t *testing.T) (*SwipeHandler, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	svc := swipessvc.NewService(swipessvc.Dependencies{
		Ledger:     store,
		MatchStore: store,
	})
	return NewSwipeHandler(svc), store
}

func swipeRequest(t *testing.T, userID int64, payload map[string]any) *http.Request {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal request body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/swipes", bytes.NewReader(body))
	req = req.WithContext(authsvc.WithIdentity(context.Background(), authsvc.Identity{
		UserID: userID,
		SID:    "sid-test",
	}))
	return req
}

func TestSwipeHandlerRequiresAuth(t *testing.T) {
	h, _ := newSwipeHandlerForTest(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/swipes", bytes.NewReader([]byte(`{}`)))
	rr := httptest.NewRecorder()
	h.Handle(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestSwipeHandlerRejectsUnknownAction(t *testing.T) {
	h, _ := newSwipeHandlerForTest(t)

	rr := httptest.NewRecorder()
	h.Handle(rr, swipeRequest(t, 1, map[string]any{
		"target_user_id": 2,
		"action":         "SUPERLIKE",
	}))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusBadRequest)
	}
	var payload struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Code != "UNSUPPORTED_ACTION" {
		t.Fatalf("unexpected error code: got %q", payload.Code)
	}
}

func TestSwipeHandlerReportsMatch(t *testing.T) {
	h, _ := newSwipeHandlerForTest(t)

	rr := httptest.NewRecorder()
	h.Handle(rr, swipeRequest(t, 1, map[string]any{
		"target_user_id": 2,
		"action":         "LIKE",
	}))
	if rr.Code != http.StatusOK {
		t.Fatalf("first like status: %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.Handle(rr, swipeRequest(t, 2, map[string]any{
		"target_user_id": 1,
		"action":         "LIKE",
	}))
	if rr.Code != http.StatusOK {
		t.Fatalf("reciprocal like status: %d", rr.Code)
	}

	var payload struct {
		Matched    bool `json:"matched"`
		IsNewMatch bool `json:"is_new_match"`
		Match      *struct {
			OtherUserID int64  `json:"other_user_id"`
			Status      string `json:"status"`
		} `json:"match"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !payload.Matched || payload.Match == nil {
		t.Fatalf("reciprocal like did not report a match: %s", rr.Body.String())
	}
	if !payload.IsNewMatch {
		t.Fatalf("match-creating call not flagged as new: %s", rr.Body.String())
	}
	if payload.Match.OtherUserID != 1 {
		t.Fatalf("other_user_id = %d, want 1", payload.Match.OtherUserID)
	}
	if payload.Match.Status != "active" {
		t.Fatalf("status = %q, want active", payload.Match.Status)
	}

	// A retried like on the matched pair reports the match but must not
	// claim to have created it.
	rr = httptest.NewRecorder()
	h.Handle(rr, swipeRequest(t, 2, map[string]any{
		"target_user_id": 1,
		"action":         "LIKE",
	}))
	if rr.Code != http.StatusOK {
		t.Fatalf("retried like status: %d", rr.Code)
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode retry response: %v", err)
	}
	if !payload.Matched || payload.IsNewMatch {
		t.Fatalf("retry misreported match novelty: %s", rr.Body.String())
	}
}

func TestSwipeHandlerDuplicateKeepsFirstDecision(t *testing.T) {
	h, _ := newSwipeHandlerForTest(t)

	rr := httptest.NewRecorder()
	h.Handle(rr, swipeRequest(t, 1, map[string]any{
		"target_user_id": 2,
		"action":         "DISLIKE",
	}))
	if rr.Code != http.StatusOK {
		t.Fatalf("first swipe status: %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.Handle(rr, swipeRequest(t, 1, map[string]any{
		"target_user_id": 2,
		"action":         "LIKE",
	}))
	if rr.Code != http.StatusOK {
		t.Fatalf("duplicate swipe status: %d", rr.Code)
	}

	var payload struct {
		Action         string `json:"action"`
		AlreadyDecided bool   `json:"already_decided"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !payload.AlreadyDecided {
		t.Fatalf("duplicate not flagged")
	}
	if payload.Action != "DISLIKE" {
		t.Fatalf("original decision lost: %q", payload.Action)
	}
}
