package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pavelrudenok/matchflow/internal/domain/enums"
	"github.com/pavelrudenok/matchflow/internal/domain/model"
)

func TestRecordKeepsFirstDecision(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	now := time.Now().UTC()

	first, created, err := store.Record(ctx, 1, 2, enums.SwipeActionLike, now)
	if err != nil || !created {
		t.Fatalf("first record: created=%v err=%v", created, err)
	}

	second, created, err := store.Record(ctx, 1, 2, enums.SwipeActionDislike, now)
	if err != nil {
		t.Fatalf("second record: %v", err)
	}
	if created {
		t.Fatalf("duplicate reported as created")
	}
	if second.ID != first.ID || second.Action != enums.SwipeActionLike {
		t.Fatalf("original record lost: %+v", second)
	}
}

func TestConcurrentCreateIfAbsentExactlyOne(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	const attempts = 32
	var wg sync.WaitGroup
	createdCount := make(chan bool, attempts)
	ids := make(chan uuid.UUID, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Half the goroutines pass the pair reversed.
			a, b := int64(1), int64(2)
			if i%2 == 1 {
				a, b = b, a
			}
			match, created, err := store.CreateIfAbsent(ctx, a, b, time.Now().UTC())
			if err != nil {
				t.Errorf("create: %v", err)
				return
			}
			createdCount <- created
			ids <- match.ID
		}(i)
	}
	wg.Wait()
	close(createdCount)
	close(ids)

	var wins int
	for created := range createdCount {
		if created {
			wins++
		}
	}
	if wins != 1 {
		t.Fatalf("created %d matches for one pair, want exactly 1", wins)
	}

	var firstID uuid.UUID
	for id := range ids {
		if firstID == uuid.Nil {
			firstID = id
			continue
		}
		if id != firstID {
			t.Fatalf("goroutines observed different matches")
		}
	}
}

func TestConcurrentAppendGapless(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	match, _, err := store.CreateIfAbsent(ctx, 1, 2, time.Now().UTC())
	if err != nil {
		t.Fatalf("create match: %v", err)
	}

	const writers = 10
	const perWriter = 20
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				key := fmt.Sprintf("w%d-%d", w, i)
				if _, _, err := store.Append(ctx, match.ID, 1, "ping", key, time.Now().UTC()); err != nil {
					t.Errorf("append: %v", err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	messages, err := store.ListAfter(ctx, match.ID, 0, writers*perWriter+1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(messages) != writers*perWriter {
		t.Fatalf("got %d messages, want %d", len(messages), writers*perWriter)
	}
	for i, msg := range messages {
		if msg.SeqNo != int64(i+1) {
			t.Fatalf("gap at index %d: seq %d", i, msg.SeqNo)
		}
	}
}

func TestAppendIdempotencyKeyReplays(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	match, _, err := store.CreateIfAbsent(ctx, 1, 2, time.Now().UTC())
	if err != nil {
		t.Fatalf("create match: %v", err)
	}

	first, replayed, err := store.Append(ctx, match.ID, 1, "hello", "k1", time.Now().UTC())
	if err != nil || replayed {
		t.Fatalf("first append: replayed=%v err=%v", replayed, err)
	}
	second, replayed, err := store.Append(ctx, match.ID, 1, "hello", "k1", time.Now().UTC())
	if err != nil {
		t.Fatalf("second append: %v", err)
	}
	if !replayed || second.ID != first.ID || second.SeqNo != first.SeqNo {
		t.Fatalf("replay mismatch: %+v vs %+v", second, first)
	}
}

func TestAppendToArchivedMatchFails(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	match, _, err := store.CreateIfAbsent(ctx, 1, 2, time.Now().UTC())
	if err != nil {
		t.Fatalf("create match: %v", err)
	}
	if _, _, err := store.Archive(ctx, match.ID, time.Now().UTC()); err != nil {
		t.Fatalf("archive: %v", err)
	}

	if _, _, err := store.Append(ctx, match.ID, 1, "hello", "k1", time.Now().UTC()); err != model.ErrMatchArchived {
		t.Fatalf("expected ErrMatchArchived, got %v", err)
	}
}

func TestGetUnknownMatch(t *testing.T) {
	store := NewStore()

	if _, err := store.Get(context.Background(), uuid.New()); err != model.ErrMatchNotFound {
		t.Fatalf("expected ErrMatchNotFound, got %v", err)
	}
}
