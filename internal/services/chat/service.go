package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/pavelrudenok/matchflow/internal/domain/model"
)

var (
	ErrValidation     = errors.New("validation error")
	ErrNotFound       = errors.New("match not found")
	ErrNotParticipant = errors.New("user is not a participant of this match")
	ErrNotActive      = errors.New("match is archived")
)

const (
	maxBodyLength        = 4000
	maxIdempotencyKeyLen = 128
	defaultPageSize      = 50
	defaultMaxPageSize   = 200
)

type Log interface {
	Append(ctx context.Context, matchID uuid.UUID, senderID int64, body, idempotencyKey string, now time.Time) (model.Message, bool, error)
	GetByID(ctx context.Context, matchID, messageID uuid.UUID) (model.Message, error)
	ListAfter(ctx context.Context, matchID uuid.UUID, afterSeq int64, limit int) ([]model.Message, error)
	MarkRead(ctx context.Context, matchID uuid.UUID, readerID int64, upToSeq int64, now time.Time) (int64, error)
}

type Registry interface {
	Get(ctx context.Context, matchID uuid.UUID) (model.Match, error)
}

// IdempotencyCache is an optional fast path in front of the durable
// per-match idempotency guard. Cache misses and failures fall through
// to the log.
type IdempotencyCache interface {
	Lookup(ctx context.Context, matchID uuid.UUID, key string) (uuid.UUID, bool, error)
	Remember(ctx context.Context, matchID uuid.UUID, key string, messageID uuid.UUID) error
}

type Metrics interface {
	RecordMessageAppended(replayed bool)
}

type AppendResult struct {
	Message  model.Message
	Replayed bool
}

type Page struct {
	Messages []model.Message
	NextSeq  int64
	HasMore  bool
}

type Service struct {
	log      Log
	registry Registry
	cache    IdempotencyCache
	metrics  Metrics

	pageSize    int
	maxPageSize int
	now         func() time.Time
}

type Dependencies struct {
	Log      Log
	Registry Registry
	Cache    IdempotencyCache
	Metrics  Metrics

	PageSize    int
	MaxPageSize int
}

func NewService(deps Dependencies) *Service {
	pageSize := deps.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	maxPageSize := deps.MaxPageSize
	if maxPageSize <= 0 {
		maxPageSize = defaultMaxPageSize
	}
	return &Service{
		log:         deps.Log,
		registry:    deps.Registry,
		cache:       deps.Cache,
		metrics:     deps.Metrics,
		pageSize:    pageSize,
		maxPageSize: maxPageSize,
		now:         time.Now,
	}
}

// Append writes a message to the match conversation. Sequence numbers
// are assigned by the log and are gapless per match. A repeated
// idempotency key returns the original message with Replayed set.
func (s *Service) Append(ctx context.Context, senderID int64, matchID uuid.UUID, body, idempotencyKey string) (AppendResult, error) {
	if senderID <= 0 || matchID == uuid.Nil {
		return AppendResult{}, ErrValidation
	}
	body = strings.TrimSpace(body)
	if body == "" || utf8.RuneCountInString(body) > maxBodyLength {
		return AppendResult{}, ErrValidation
	}
	idempotencyKey = strings.TrimSpace(idempotencyKey)
	if idempotencyKey == "" || len(idempotencyKey) > maxIdempotencyKeyLen {
		return AppendResult{}, ErrValidation
	}
	if s.log == nil || s.registry == nil {
		return AppendResult{}, fmt.Errorf("chat dependencies are not configured")
	}

	match, err := s.authorize(ctx, senderID, matchID)
	if err != nil {
		return AppendResult{}, err
	}
	if !match.IsActive() {
		return AppendResult{}, ErrNotActive
	}

	if s.cache != nil {
		if messageID, hit, err := s.cache.Lookup(ctx, matchID, idempotencyKey); err == nil && hit {
			if msg, err := s.log.GetByID(ctx, matchID, messageID); err == nil {
				if s.metrics != nil {
					s.metrics.RecordMessageAppended(true)
				}
				return AppendResult{Message: msg, Replayed: true}, nil
			}
		}
	}

	msg, replayed, err := s.log.Append(ctx, matchID, senderID, body, idempotencyKey, s.now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, model.ErrMatchNotFound):
			return AppendResult{}, ErrNotFound
		case errors.Is(err, model.ErrMatchArchived):
			return AppendResult{}, ErrNotActive
		}
		return AppendResult{}, fmt.Errorf("append message: %w", err)
	}

	if s.cache != nil {
		// Best effort; the log's unique key remains the durable guard.
		_ = s.cache.Remember(ctx, matchID, idempotencyKey, msg.ID)
	}
	if s.metrics != nil {
		s.metrics.RecordMessageAppended(replayed)
	}

	return AppendResult{Message: msg, Replayed: replayed}, nil
}

// List returns messages with seq_no greater than afterSeq in ascending
// order. HasMore signals a further page at NextSeq.
func (s *Service) List(ctx context.Context, userID int64, matchID uuid.UUID, afterSeq int64, limit int) (Page, error) {
	if userID <= 0 || matchID == uuid.Nil || afterSeq < 0 {
		return Page{}, ErrValidation
	}
	if s.log == nil || s.registry == nil {
		return Page{}, fmt.Errorf("chat dependencies are not configured")
	}
	if limit <= 0 {
		limit = s.pageSize
	}
	if limit > s.maxPageSize {
		limit = s.maxPageSize
	}

	if _, err := s.authorize(ctx, userID, matchID); err != nil {
		return Page{}, err
	}

	messages, err := s.log.ListAfter(ctx, matchID, afterSeq, limit+1)
	if err != nil {
		return Page{}, fmt.Errorf("list messages: %w", err)
	}

	page := Page{Messages: messages, NextSeq: afterSeq}
	if len(messages) > limit {
		page.Messages = messages[:limit]
		page.HasMore = true
	}
	if n := len(page.Messages); n > 0 {
		page.NextSeq = page.Messages[n-1].SeqNo
	}
	return page, nil
}

// MarkRead marks the counterpart's messages up to upToSeq as read and
// returns how many changed. Reading an archived conversation is fine.
func (s *Service) MarkRead(ctx context.Context, userID int64, matchID uuid.UUID, upToSeq int64) (int64, error) {
	if userID <= 0 || matchID == uuid.Nil || upToSeq <= 0 {
		return 0, ErrValidation
	}
	if s.log == nil || s.registry == nil {
		return 0, fmt.Errorf("chat dependencies are not configured")
	}

	if _, err := s.authorize(ctx, userID, matchID); err != nil {
		return 0, err
	}

	changed, err := s.log.MarkRead(ctx, matchID, userID, upToSeq, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	return changed, nil
}

func (s *Service) authorize(ctx context.Context, userID int64, matchID uuid.UUID) (model.Match, error) {
	match, err := s.registry.Get(ctx, matchID)
	if err != nil {
		if errors.Is(err, model.ErrMatchNotFound) {
			return model.Match{}, ErrNotFound
		}
		return model.Match{}, fmt.Errorf("get match: %w", err)
	}
	if !match.HasParticipant(userID) {
		return model.Match{}, ErrNotParticipant
	}
	return match, nil
}
