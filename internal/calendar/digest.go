package calendar

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	kit "pandorum/internal/transport"
	logx "pandorum/pkg/logx"
)

// Digest posts a single summary of all upcoming events on a cron
// schedule (e.g. "0 8 * * *" for a daily morning post).
type Digest struct {
	store   *Store
	sink    kit.Sink
	channel kit.ChatTarget
	log     logx.Logger

	cron *cron.Cron
}

func NewDigest(spec string, store *Store, sink kit.Sink, channel int64, log logx.Logger) (*Digest, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	d := &Digest{
		store:   store,
		sink:    sink,
		channel: kit.ChatTarget{ChatID: channel},
		log:     log,
	}

	c := cron.New()
	if _, err := c.AddFunc(spec, d.post); err != nil {
		return nil, fmt.Errorf("digest spec %q: %w", spec, err)
	}
	d.cron = c
	return d, nil
}

func (d *Digest) Start() {
	d.log.Info("starting digest")
	d.cron.Start()
}

// Stop halts scheduling and waits for a running post to finish.
func (d *Digest) Stop() {
	ctx := d.cron.Stop()
	<-ctx.Done()
}

func (d *Digest) post() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if !d.store.Cached() {
		if err := d.store.Refresh(ctx); err != nil {
			d.log.Warn("digest refresh failed; using last snapshot", logx.Err(err))
		}
	}

	snap := d.store.Snapshot()
	if len(snap.Events) == 0 {
		d.log.Debug("digest: no events to post")
		return
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Upcoming events (%d):", len(snap.Events)))
	for _, ev := range snap.Events {
		b.WriteString("\n\n")
		b.WriteString(Render(ev, false))
	}

	if _, err := d.sink.SendText(ctx, d.channel, b.String(), nil); err != nil {
		d.log.Warn("digest send failed", logx.Err(err))
	}
}
