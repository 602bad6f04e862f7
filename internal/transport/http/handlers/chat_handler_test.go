package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pavelrudenok/matchflow/internal/domain/model"
	"github.com/pavelrudenok/matchflow/internal/repo/memory"
	authsvc "github.com/pavelrudenok/matchflow/internal/services/auth"
	chatsvc "github.com/pavelrudenok/matchflow/internal/services/chat"
)

func newChatHandlerForTest(t *testing.T) (*ChatHandler, *memory.Store, model.Match) {
	t.Helper()
	store := memory.NewStore()
	match, _, err := store.CreateIfAbsent(context.Background(), 1, 2, time.Now().UTC())
	if err != nil {
		t.Fatalf("seed match: %v", err)
	}
	svc := chatsvc.NewService(chatsvc.Dependencies{
		Log:      store,
		Registry: store,
	})
	return NewChatHandler(svc), store, match
}

func identityCtx(userID int64) context.Context {
	return authsvc.WithIdentity(context.Background(), authsvc.Identity{
		UserID: userID,
		SID:    "sid-test",
	})
}

func sendRequest(t *testing.T, userID int64, payload map[string]any) *http.Request {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal request body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", bytes.NewReader(body))
	return req.WithContext(identityCtx(userID))
}

func conversationRequest(userID int64, matchID, query string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/v1/conversations/"+matchID+query, nil)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("match_id", matchID)
	ctx := context.WithValue(identityCtx(userID), chi.RouteCtxKey, routeCtx)
	return req.WithContext(ctx)
}

func TestSendMessageAndReplay(t *testing.T) {
	h, _, match := newChatHandlerForTest(t)

	rr := httptest.NewRecorder()
	h.Send(rr, sendRequest(t, 1, map[string]any{
		"match_id":        match.ID.String(),
		"body":            "hello",
		"idempotency_key": "key-1",
	}))
	if rr.Code != http.StatusOK {
		t.Fatalf("send status: %d body: %s", rr.Code, rr.Body.String())
	}

	var first struct {
		Message struct {
			ID            string `json:"id"`
			SeqNo         int64  `json:"seq_no"`
			IsCurrentUser bool   `json:"is_current_user"`
		} `json:"message"`
		Replayed bool `json:"replayed"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &first); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if first.Message.SeqNo != 1 || !first.Message.IsCurrentUser || first.Replayed {
		t.Fatalf("unexpected first send: %+v", first)
	}

	rr = httptest.NewRecorder()
	h.Send(rr, sendRequest(t, 1, map[string]any{
		"match_id":        match.ID.String(),
		"body":            "hello",
		"idempotency_key": "key-1",
	}))
	if rr.Code != http.StatusOK {
		t.Fatalf("replay status: %d", rr.Code)
	}

	var second struct {
		Message struct {
			ID    string `json:"id"`
			SeqNo int64  `json:"seq_no"`
		} `json:"message"`
		Replayed bool `json:"replayed"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &second); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !second.Replayed || second.Message.ID != first.Message.ID {
		t.Fatalf("replay returned a different message: %+v", second)
	}
}

func TestSendToArchivedMatchConflicts(t *testing.T) {
	h, store, match := newChatHandlerForTest(t)

	if _, _, err := store.Archive(context.Background(), match.ID, time.Now().UTC()); err != nil {
		t.Fatalf("archive: %v", err)
	}

	rr := httptest.NewRecorder()
	h.Send(rr, sendRequest(t, 1, map[string]any{
		"match_id":        match.ID.String(),
		"body":            "hello",
		"idempotency_key": "key-1",
	}))
	if rr.Code != http.StatusConflict {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusConflict)
	}

	var payload struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Code != "MATCH_ARCHIVED" {
		t.Fatalf("unexpected error code: %q", payload.Code)
	}
}

func TestSendByOutsiderForbidden(t *testing.T) {
	h, _, match := newChatHandlerForTest(t)

	rr := httptest.NewRecorder()
	h.Send(rr, sendRequest(t, 99, map[string]any{
		"match_id":        match.ID.String(),
		"body":            "hello",
		"idempotency_key": "key-1",
	}))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusForbidden)
	}
}

func TestConversationPagination(t *testing.T) {
	h, _, match := newChatHandlerForTest(t)

	for i := 0; i < 4; i++ {
		rr := httptest.NewRecorder()
		h.Send(rr, sendRequest(t, 1, map[string]any{
			"match_id":        match.ID.String(),
			"body":            "ping",
			"idempotency_key": "key-" + string(rune('a'+i)),
		}))
		if rr.Code != http.StatusOK {
			t.Fatalf("send %d status: %d", i, rr.Code)
		}
	}

	rr := httptest.NewRecorder()
	h.Conversation(rr, conversationRequest(2, match.ID.String(), "?limit=3"))
	if rr.Code != http.StatusOK {
		t.Fatalf("conversation status: %d body: %s", rr.Code, rr.Body.String())
	}

	var page struct {
		Items []struct {
			SeqNo         int64 `json:"seq_no"`
			IsCurrentUser bool  `json:"is_current_user"`
		} `json:"items"`
		NextSeq int64 `json:"next_seq"`
		HasMore bool  `json:"has_more"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(page.Items) != 3 || !page.HasMore || page.NextSeq != 3 {
		t.Fatalf("unexpected page: %+v", page)
	}
	for i, item := range page.Items {
		if item.SeqNo != int64(i+1) {
			t.Fatalf("items out of order at %d: seq %d", i, item.SeqNo)
		}
		if item.IsCurrentUser {
			t.Fatalf("viewer 2 marked as sender of message %d", item.SeqNo)
		}
	}

	rr = httptest.NewRecorder()
	h.Conversation(rr, conversationRequest(2, match.ID.String(), "?after_seq=3"))
	if rr.Code != http.StatusOK {
		t.Fatalf("second page status: %d", rr.Code)
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode second page: %v", err)
	}
	if len(page.Items) != 1 || page.HasMore || page.Items[0].SeqNo != 4 {
		t.Fatalf("unexpected second page: %+v", page)
	}
}

// outageLog fails every operation the way a store does once the
// transaction retry budget is spent.
type outageLog struct{}

func (outageLog) Append(ctx context.Context, matchID uuid.UUID, senderID int64, body, idempotencyKey string, now time.Time) (model.Message, bool, error) {
	return model.Message{}, false, fmt.Errorf("append message: %w", model.ErrUnavailable)
}

func (outageLog) GetByID(ctx context.Context, matchID, messageID uuid.UUID) (model.Message, error) {
	return model.Message{}, fmt.Errorf("get message: %w", model.ErrUnavailable)
}

func (outageLog) ListAfter(ctx context.Context, matchID uuid.UUID, afterSeq int64, limit int) ([]model.Message, error) {
	return nil, fmt.Errorf("list messages: %w", model.ErrUnavailable)
}

func (outageLog) MarkRead(ctx context.Context, matchID uuid.UUID, readerID int64, upToSeq int64, now time.Time) (int64, error) {
	return 0, fmt.Errorf("mark read: %w", model.ErrUnavailable)
}

func TestStorageOutageMapsToServiceUnavailable(t *testing.T) {
	store := memory.NewStore()
	match, _, err := store.CreateIfAbsent(context.Background(), 1, 2, time.Now().UTC())
	if err != nil {
		t.Fatalf("seed match: %v", err)
	}
	svc := chatsvc.NewService(chatsvc.Dependencies{
		Log:      outageLog{},
		Registry: store,
	})
	h := NewChatHandler(svc)

	rr := httptest.NewRecorder()
	h.Send(rr, sendRequest(t, 1, map[string]any{
		"match_id":        match.ID.String(),
		"body":            "hello",
		"idempotency_key": "key-1",
	}))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusServiceUnavailable)
	}

	var payload struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Code != "UNAVAILABLE" {
		t.Fatalf("unexpected error code: %q", payload.Code)
	}
}

func TestMarkReadEndpoint(t *testing.T) {
	h, _, match := newChatHandlerForTest(t)

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		h.Send(rr, sendRequest(t, 1, map[string]any{
			"match_id":        match.ID.String(),
			"body":            "ping",
			"idempotency_key": "key-" + string(rune('a'+i)),
		}))
		if rr.Code != http.StatusOK {
			t.Fatalf("send %d status: %d", i, rr.Code)
		}
	}

	body, _ := json.Marshal(map[string]any{"up_to_seq": 2})
	req := httptest.NewRequest(http.MethodPost, "/v1/conversations/"+match.ID.String()+"/read", bytes.NewReader(body))
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("match_id", match.ID.String())
	req = req.WithContext(context.WithValue(identityCtx(2), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	h.MarkRead(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("mark read status: %d body: %s", rr.Code, rr.Body.String())
	}

	var payload struct {
		Updated int64 `json:"updated"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Updated != 2 {
		t.Fatalf("updated = %d, want 2", payload.Updated)
	}
}
