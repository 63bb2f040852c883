package outbox

import (
	"context"
	"log/slog"
	"time"
)

// Handler delivers one entry to its external system.
type Handler func(ctx context.Context, e Entry) error

// Worker drains due entries on an interval and delivers them with bounded
// retries. Delivery is at-least-once; handlers must tolerate duplicates.
type Worker struct {
	store    Store
	handlers map[string]Handler

	interval    time.Duration
	batchSize   int
	maxAttempts int

	log   *slog.Logger
	clock func() time.Time
}

func NewWorker(store Store, handlers map[string]Handler, log *slog.Logger) *Worker {
	if log == nil {
		log = slog.Default()
	}
	return &Worker{
		store:       store,
		handlers:    handlers,
		interval:    5 * time.Second,
		batchSize:   50,
		maxAttempts: 8,
		log:         log.With("component", "outbox"),
		clock:       time.Now,
	}
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	w.log.Info("outbox worker started", "interval", w.interval.String())
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("outbox worker stopped")
			return
		case <-ticker.C:
			if err := w.DrainOnce(ctx); err != nil {
				w.log.Error("outbox drain failed", "err", err)
			}
		}
	}
}

// DrainOnce processes one batch of due entries. Exposed for tests and for a
// synchronous flush during shutdown.
func (w *Worker) DrainOnce(ctx context.Context) error {
	now := w.clock().UTC()
	due, err := w.store.Due(ctx, now, w.batchSize)
	if err != nil {
		return err
	}

	for _, e := range due {
		h, ok := w.handlers[e.Kind]
		if !ok {
			w.log.Error("no handler for outbox kind", "kind", e.Kind, "id", e.ID)
			if err := w.store.MarkDead(ctx, e.ID, "no handler registered"); err != nil {
				return err
			}
			continue
		}

		if err := h(ctx, e); err != nil {
			attempts := e.Attempts + 1
			if attempts >= w.maxAttempts {
				w.log.Error("outbox entry dead-lettered", "kind", e.Kind, "id", e.ID, "attempts", attempts, "err", err)
				if derr := w.store.MarkDead(ctx, e.ID, err.Error()); derr != nil {
					return derr
				}
				continue
			}
			next := now.Add(backoff(attempts))
			w.log.Warn("outbox delivery failed", "kind", e.Kind, "id", e.ID, "attempts", attempts, "retry_at", next, "err", err)
			if rerr := w.store.Reschedule(ctx, e.ID, attempts, next, err.Error()); rerr != nil {
				return rerr
			}
			continue
		}

		if err := w.store.MarkDone(ctx, e.ID); err != nil {
			return err
		}
	}
	return nil
}

// backoff doubles per attempt, capped at five minutes.
func backoff(attempts int) time.Duration {
	d := time.Second << uint(attempts)
	if d > 5*time.Minute {
		return 5 * time.Minute
	}
	return d
}
