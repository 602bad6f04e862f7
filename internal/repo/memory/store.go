// Package memory is the in-process storage backend. It mirrors the
// postgres repos' contracts: swipe uniqueness and match create-if-absent
// are atomic map inserts under the store lock, while message sequencing
// takes only the owning match's lock so unrelated conversations never
// contend.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pavelrudenok/matchflow/internal/domain/enums"
	"github.com/pavelrudenok/matchflow/internal/domain/model"
)

type matchEntry struct {
	mu       sync.Mutex
	match    model.Match
	messages []model.Message
	byKey    map[string]int
}

type Store struct {
	mu          sync.RWMutex
	nextSwipeID int64
	swipes      map[string]model.SwipeRecord
	matches     map[uuid.UUID]*matchEntry
	byPair      map[string]uuid.UUID
	users       []int64
	userSet     map[int64]struct{}
}

func NewStore() *Store {
	return &Store{
		swipes:  make(map[string]model.SwipeRecord),
		matches: make(map[uuid.UUID]*matchEntry),
		byPair:  make(map[string]uuid.UUID),
		userSet: make(map[int64]struct{}),
	}
}

// AddUser registers a user in the discovery pool. Insertion order is
// the pool order.
func (s *Store) AddUser(userID int64) {
	if userID <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.userSet[userID]; ok {
		return
	}
	s.userSet[userID] = struct{}{}
	s.users = append(s.users, userID)
}

func (s *Store) Record(_ context.Context, actorUserID, targetUserID int64, action enums.SwipeAction, now time.Time) (model.SwipeRecord, bool, error) {
	if actorUserID <= 0 || targetUserID <= 0 || actorUserID == targetUserID {
		return model.SwipeRecord{}, false, fmt.Errorf("invalid swipe payload")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	key := orderedKey(actorUserID, targetUserID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.swipes[key]; ok {
		return existing, false, nil
	}

	s.nextSwipeID++
	rec := model.SwipeRecord{
		ID:           s.nextSwipeID,
		ActorUserID:  actorUserID,
		TargetUserID: targetUserID,
		Action:       action,
		CreatedAt:    now.UTC(),
	}
	s.swipes[key] = rec
	return rec, true, nil
}

func (s *Store) DecisionOf(_ context.Context, actorUserID, targetUserID int64) (enums.SwipeAction, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.swipes[orderedKey(actorUserID, targetUserID)]
	if !ok {
		return "", false, nil
	}
	return rec.Action, true, nil
}

func (s *Store) HasLike(_ context.Context, actorUserID, targetUserID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.swipes[orderedKey(actorUserID, targetUserID)]
	return ok && rec.Action == enums.SwipeActionLike, nil
}

func (s *Store) DecidedTargets(_ context.Context, actorUserID int64, candidateIDs []int64) (map[int64]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	decided := make(map[int64]struct{}, len(candidateIDs))
	for _, candidateID := range candidateIDs {
		if _, ok := s.swipes[orderedKey(actorUserID, candidateID)]; ok {
			decided[candidateID] = struct{}{}
		}
	}
	return decided, nil
}

// CreateIfAbsent inserts the pair's match under the store lock; the map
// insert is the create-if-absent point, so two concurrent completions
// of the same pair cannot both create a row.
func (s *Store) CreateIfAbsent(_ context.Context, userID, targetID int64, now time.Time) (model.Match, bool, error) {
	if userID <= 0 || targetID <= 0 || userID == targetID {
		return model.Match{}, false, fmt.Errorf("invalid match pair")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	userA, userB := model.PairKey(userID, targetID)
	key := pairMapKey(userA, userB)

	s.mu.Lock()
	if matchID, ok := s.byPair[key]; ok {
		entry := s.matches[matchID]
		s.mu.Unlock()
		return entry.snapshot(), false, nil
	}

	entry := &matchEntry{
		match: model.Match{
			ID:        uuid.New(),
			UserAID:   userA,
			UserBID:   userB,
			Status:    enums.MatchStatusActive,
			CreatedAt: now.UTC(),
		},
		byKey: make(map[string]int),
	}
	s.matches[entry.match.ID] = entry
	s.byPair[key] = entry.match.ID
	s.mu.Unlock()

	return entry.match, true, nil
}

func (s *Store) Get(_ context.Context, matchID uuid.UUID) (model.Match, error) {
	entry, err := s.entry(matchID)
	if err != nil {
		return model.Match{}, err
	}
	return entry.snapshot(), nil
}

func (s *Store) FindByPair(_ context.Context, userID, targetID int64) (model.Match, bool, error) {
	userA, userB := model.PairKey(userID, targetID)

	s.mu.RLock()
	matchID, ok := s.byPair[pairMapKey(userA, userB)]
	var entry *matchEntry
	if ok {
		entry = s.matches[matchID]
	}
	s.mu.RUnlock()

	if !ok {
		return model.Match{}, false, nil
	}
	return entry.snapshot(), true, nil
}

func (s *Store) ListForUser(_ context.Context, userID int64, limit int) ([]model.MatchSummary, error) {
	if limit <= 0 {
		limit = 100
	}

	s.mu.RLock()
	entries := make([]*matchEntry, 0, len(s.matches))
	for _, entry := range s.matches {
		entries = append(entries, entry)
	}
	s.mu.RUnlock()

	items := make([]model.MatchSummary, 0, len(entries))
	for _, entry := range entries {
		entry.mu.Lock()
		if entry.match.HasParticipant(userID) && entry.match.IsActive() {
			item := model.MatchSummary{
				Match:       entry.match,
				OtherUserID: entry.match.OtherUser(userID),
			}
			if n := len(entry.messages); n > 0 {
				last := entry.messages[n-1]
				body := last.Body
				at := last.CreatedAt
				item.LastMessage = &body
				item.LastMessageAt = &at
			}
			for _, msg := range entry.messages {
				if msg.SenderID != userID && msg.ReadAt == nil {
					item.UnreadCount++
				}
			}
			items = append(items, item)
		}
		entry.mu.Unlock()
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Match.CreatedAt.Equal(items[j].Match.CreatedAt) {
			return items[i].Match.ID.String() > items[j].Match.ID.String()
		}
		return items[i].Match.CreatedAt.After(items[j].Match.CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}

	return items, nil
}

func (s *Store) Archive(_ context.Context, matchID uuid.UUID, now time.Time) (model.Match, bool, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	entry, err := s.entry(matchID)
	if err != nil {
		return model.Match{}, false, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.match.Status == enums.MatchStatusArchived {
		return entry.match, false, nil
	}

	archivedAt := now.UTC()
	entry.match.Status = enums.MatchStatusArchived
	entry.match.ArchivedAt = &archivedAt
	return entry.match, true, nil
}

func (s *Store) MatchedUserIDs(_ context.Context, userID int64) (map[int64]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make(map[int64]struct{})
	for _, entry := range s.matches {
		if entry.match.HasParticipant(userID) {
			matched[entry.match.OtherUser(userID)] = struct{}{}
		}
	}
	return matched, nil
}

// Append serializes on the match's own lock: status re-check,
// idempotency lookup, and sequence assignment are one critical section.
func (s *Store) Append(_ context.Context, matchID uuid.UUID, senderID int64, body, idempotencyKey string, now time.Time) (model.Message, bool, error) {
	if senderID <= 0 || body == "" || idempotencyKey == "" {
		return model.Message{}, false, fmt.Errorf("invalid message payload")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	entry, err := s.entry(matchID)
	if err != nil {
		return model.Message{}, false, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.match.Status != enums.MatchStatusActive {
		return model.Message{}, false, model.ErrMatchArchived
	}

	if idx, ok := entry.byKey[idempotencyKey]; ok {
		return entry.messages[idx], true, nil
	}

	entry.match.LastSeq++
	msg := model.Message{
		ID:             uuid.New(),
		MatchID:        matchID,
		SenderID:       senderID,
		SeqNo:          entry.match.LastSeq,
		Body:           body,
		IdempotencyKey: idempotencyKey,
		CreatedAt:      now.UTC(),
	}
	entry.messages = append(entry.messages, msg)
	entry.byKey[idempotencyKey] = len(entry.messages) - 1
	return msg, false, nil
}

func (s *Store) GetByID(_ context.Context, matchID, messageID uuid.UUID) (model.Message, error) {
	entry, err := s.entry(matchID)
	if err != nil {
		return model.Message{}, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	for _, msg := range entry.messages {
		if msg.ID == messageID {
			return msg, nil
		}
	}
	return model.Message{}, model.ErrMessageNotFound
}

func (s *Store) ListAfter(_ context.Context, matchID uuid.UUID, afterSeq int64, limit int) ([]model.Message, error) {
	if limit <= 0 {
		limit = 50
	}

	entry, err := s.entry(matchID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	items := make([]model.Message, 0, limit)
	for _, msg := range entry.messages {
		if msg.SeqNo <= afterSeq {
			continue
		}
		items = append(items, msg)
		if len(items) == limit {
			break
		}
	}
	return items, nil
}

func (s *Store) MarkRead(_ context.Context, matchID uuid.UUID, readerID int64, upToSeq int64, now time.Time) (int64, error) {
	if readerID <= 0 || upToSeq <= 0 {
		return 0, fmt.Errorf("invalid mark-read payload")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	entry, err := s.entry(matchID)
	if err != nil {
		return 0, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	readAt := now.UTC()
	var updated int64
	for i := range entry.messages {
		msg := &entry.messages[i]
		if msg.SenderID != readerID && msg.SeqNo <= upToSeq && msg.ReadAt == nil {
			stamp := readAt
			msg.ReadAt = &stamp
			updated++
		}
	}
	return updated, nil
}

func (s *Store) ListPool(_ context.Context, userID int64, limit int) ([]int64, error) {
	if limit <= 0 {
		limit = 100
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, limit)
	for _, id := range s.users {
		if id == userID {
			continue
		}
		ids = append(ids, id)
		if len(ids) == limit {
			break
		}
	}
	return ids, nil
}

func (s *Store) entry(matchID uuid.UUID) (*matchEntry, error) {
	s.mu.RLock()
	entry, ok := s.matches[matchID]
	s.mu.RUnlock()
	if !ok {
		return nil, model.ErrMatchNotFound
	}
	return entry, nil
}

func (e *matchEntry) snapshot() model.Match {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.match
}

func orderedKey(actorUserID, targetUserID int64) string {
	return strconv.FormatInt(actorUserID, 10) + ":" + strconv.FormatInt(targetUserID, 10)
}

func pairMapKey(userA, userB int64) string {
	return strconv.FormatInt(userA, 10) + "/" + strconv.FormatInt(userB, 10)
}
