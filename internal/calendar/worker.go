package calendar

import (
	"context"
	"sync"
	"time"

	kit "pandorum/internal/transport"
	logx "pandorum/pkg/logx"
)

// Marks is the optional persisted fired-reminder state. When wired, a
// restart near a threshold minute no longer double-fires (this deviates
// from the original recompute-from-scratch behavior and is off by
// default).
type Marks interface {
	SeenMark(ctx context.Context, key string) (bool, error)
	PutMark(ctx context.Context, key string, until time.Time) error
}

// Worker runs the reminder loop: it wakes once per wall-clock second and,
// on each whole-minute boundary, refreshes the snapshot and evaluates
// every event against the threshold table.
//
// Single-writer design: only the worker goroutine triggers snapshot
// writes, so no locking is needed around the event data itself.
type Worker struct {
	store   *Store
	sink    kit.Sink
	channel kit.ChatTarget
	marks   Marks
	log     logx.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewWorker(store *Store, sink kit.Sink, channel int64, marks Marks, log logx.Logger) *Worker {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Worker{
		store:   store,
		sink:    sink,
		channel: kit.ChatTarget{ChatID: channel},
		marks:   marks,
		log:     log,
	}
}

// Start launches the loop. Starting while already running is a no-op, so
// two competing loops can never double-fire.
func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		w.log.Debug("worker already running")
		return
	}
	w.log.Info("starting worker")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	w.cancel = cancel
	w.done = done
	go func() {
		defer close(done)
		w.run(ctx)
	}()
}

// Stop cancels the loop and waits for it to fully exit. Stopping while
// stopped is a no-op. In-flight refresh or send calls run to completion;
// the loop observes cancellation within one second.
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel == nil {
		return
	}
	w.log.Info("stopping worker")
	w.cancel()
	<-w.done
	w.cancel = nil
	w.done = nil
}

// Running reports whether the loop is active.
func (w *Worker) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cancel != nil
}

func (w *Worker) run(ctx context.Context) {
	for {
		// Sleep to the next wall-clock second boundary (not a fixed
		// duration) so the minute gate lands on second == 0 exactly once
		// per minute.
		t := time.NewTimer(time.Second - time.Duration(time.Now().Nanosecond()))
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
		if time.Now().Second() == 0 {
			w.tick(ctx, time.Now().UTC())
		}
	}
}

// tick is one refresh-and-evaluate pass. A failed refresh keeps the prior
// snapshot; a failed send never stops the pass.
func (w *Worker) tick(ctx context.Context, now time.Time) {
	w.log.Debug("refresh events cache...")
	if err := w.store.Refresh(ctx); err != nil {
		w.log.Warn("events refresh failed; using last snapshot", logx.Err(err))
	}

	snap := w.store.Snapshot()
	w.log.Debug("refresh events cache done", logx.Int("events", len(snap.Events)))

	for _, ev := range snap.Events {
		w.evaluate(ctx, now, ev)
	}
}

func (w *Worker) evaluate(ctx context.Context, now time.Time, ev Event) {
	r, fire := Evaluate(MinutesLeft(now, ev.Start))
	if !fire {
		return
	}

	markKey := ev.ID + "/" + r.Key()
	if w.marks != nil {
		seen, err := w.marks.SeenMark(ctx, markKey)
		if err != nil {
			w.log.Debug("mark lookup failed", logx.String("key", markKey), logx.Err(err))
		} else if seen {
			w.log.Debug("reminder already fired", logx.String("key", markKey))
			return
		}
	}

	w.log.Info("reminder",
		logx.String("headline", r.Headline()),
		logx.String("event", ev.ID),
		logx.String("title", ev.Title))

	if _, err := w.sink.SendText(ctx, w.channel, RenderReminder(r, ev), nil); err != nil {
		w.log.Warn("reminder send failed",
			logx.String("event", ev.ID),
			logx.Err(err))
		return
	}

	if w.marks != nil {
		// Marks only need to outlive the event start.
		if err := w.marks.PutMark(ctx, markKey, ev.Start.Add(time.Hour)); err != nil {
			w.log.Debug("mark write failed", logx.String("key", markKey), logx.Err(err))
		}
	}
}
