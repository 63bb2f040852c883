package outbox

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWorker_DeliversAndMarksDone(t *testing.T) {
	store := NewMemoryStore()
	now := time.Unix(1700000000, 0).UTC()

	e, err := NewEntry("org-1", KindIndexContact, map[string]string{"contactId": "c1"}, now)
	if err != nil {
		t.Fatalf("entry: %v", err)
	}
	store.Enqueue(e)

	var delivered []Entry
	w := NewWorker(store, map[string]Handler{
		KindIndexContact: func(ctx context.Context, e Entry) error {
			delivered = append(delivered, e)
			return nil
		},
	}, nil)
	w.clock = func() time.Time { return now }

	if err := w.DrainOnce(context.Background()); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(delivered) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(delivered))
	}
	if len(store.Pending()) != 0 {
		t.Fatalf("expected entry marked done")
	}
}

func TestWorker_RetriesWithBackoff(t *testing.T) {
	store := NewMemoryStore()
	now := time.Unix(1700000000, 0).UTC()

	e, _ := NewEntry("org-1", KindIndexContact, map[string]string{"contactId": "c1"}, now)
	store.Enqueue(e)

	calls := 0
	w := NewWorker(store, map[string]Handler{
		KindIndexContact: func(ctx context.Context, e Entry) error {
			calls++
			if calls == 1 {
				return errors.New("search unavailable")
			}
			return nil
		},
	}, nil)
	w.clock = func() time.Time { return now }

	if err := w.DrainOnce(context.Background()); err != nil {
		t.Fatalf("drain: %v", err)
	}
	pending := store.Pending()
	if len(pending) != 1 {
		t.Fatalf("expected entry rescheduled")
	}
	if pending[0].Attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", pending[0].Attempts)
	}
	if !pending[0].NextAttemptAt.After(now) {
		t.Fatalf("expected backoff in the future")
	}

	// Not yet due: a second drain at the same time delivers nothing.
	if err := w.DrainOnce(context.Background()); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected no redelivery before backoff, got %d calls", calls)
	}

	// Advance past the backoff and drain again.
	w.clock = func() time.Time { return now.Add(time.Hour) }
	if err := w.DrainOnce(context.Background()); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected redelivery, got %d calls", calls)
	}
	if len(store.Pending()) != 0 {
		t.Fatalf("expected entry done after successful retry")
	}
}

func TestWorker_DeadLettersAfterMaxAttempts(t *testing.T) {
	store := NewMemoryStore()
	now := time.Unix(1700000000, 0).UTC()

	e, _ := NewEntry("org-1", KindIndexContact, nil, now)
	store.Enqueue(e)

	w := NewWorker(store, map[string]Handler{
		KindIndexContact: func(ctx context.Context, e Entry) error {
			return errors.New("permanently broken")
		},
	}, nil)
	w.maxAttempts = 2

	clock := now
	w.clock = func() time.Time { return clock }

	for i := 0; i < 3; i++ {
		if err := w.DrainOnce(context.Background()); err != nil {
			t.Fatalf("drain: %v", err)
		}
		clock = clock.Add(time.Hour)
	}

	if len(store.Pending()) != 0 {
		t.Fatalf("expected no pending entries")
	}
	dead := store.Dead()
	if len(dead) != 1 {
		t.Fatalf("expected dead-lettered entry, got %d", len(dead))
	}
	if dead[0].LastError == "" {
		t.Fatalf("expected last error recorded")
	}
}

func TestWorker_UnknownKindIsDeadLettered(t *testing.T) {
	store := NewMemoryStore()
	now := time.Unix(1700000000, 0).UTC()

	e, _ := NewEntry("org-1", "bogus.kind", nil, now)
	store.Enqueue(e)

	w := NewWorker(store, map[string]Handler{}, nil)
	w.clock = func() time.Time { return now }

	if err := w.DrainOnce(context.Background()); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(store.Dead()) != 1 {
		t.Fatalf("expected dead entry for unknown kind")
	}
}
