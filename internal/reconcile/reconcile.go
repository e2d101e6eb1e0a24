// Package reconcile re-derives the subscriber/role membership delta.
//
// The assignment queue is not durable, so every gap that accumulated while
// the process was offline is rediscovered here by comparing each event's
// current subscribers against the holders of its role, rather than by
// replaying missed triggers.
package reconcile

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"rolecall/internal/assignqueue"
	"rolecall/internal/discord"
	logx "rolecall/pkg/logx"
)

// Resolver drives events through the idempotent role-creation protocol.
type Resolver interface {
	ResolveBatch(ctx context.Context, events []*discord.ScheduledEvent) []*discord.ScheduledEvent
}

// Source lists events and their subscribers.
type Source interface {
	ScheduledEvents(ctx context.Context, guildID string) ([]*discord.ScheduledEvent, error)
	EventSubscribers(ctx context.Context, guildID, eventID string) ([]*discord.Subscriber, error)
}

// Queue receives assignment intents for subscribers lacking their role.
type Queue interface {
	Enqueue(a assignqueue.Assignment) bool
	Kick()
}

// Pass reconciles one guild's scheduled events. Run on startup and,
// optionally, on a periodic sweep.
type Pass struct {
	guildID  string
	src      Source
	resolver Resolver
	queue    Queue
	log      logx.Logger

	running atomic.Bool
}

func New(guildID string, src Source, resolver Resolver, queue Queue, log logx.Logger) *Pass {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Pass{guildID: guildID, src: src, resolver: resolver, queue: queue, log: log}
}

// Run fetches all scheduled events, resolves each to its role, and enqueues
// an assignment for every subscriber not yet holding that role. Individual
// failures are logged and skipped; only a failure to list the events at all
// aborts the pass. Overlapping runs are skipped.
func (p *Pass) Run(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		p.log.Debug("reconciliation already running, skipping")
		return nil
	}
	defer p.running.Store(false)

	start := time.Now()
	events, err := p.src.ScheduledEvents(ctx, p.guildID)
	if err != nil {
		p.log.Error("cannot list scheduled events", logx.String("guild_id", p.guildID), logx.Err(err))
		return fmt.Errorf("list scheduled events for guild %s: %w", p.guildID, err)
	}

	resolved := p.resolver.ResolveBatch(ctx, events)

	var enqueued, skipped int
	for _, ev := range resolved {
		if ev == nil {
			skipped++
			continue
		}
		n, ok := p.reconcileEvent(ctx, ev)
		if !ok {
			skipped++
			continue
		}
		enqueued += n
	}

	if enqueued > 0 {
		p.queue.Kick()
	}
	p.log.Info("reconciliation pass complete",
		logx.Int("events", len(events)), logx.Int("skipped", skipped),
		logx.Int("assignments", enqueued), logx.Duration("took", time.Since(start)))
	return nil
}

// reconcileEvent enqueues assignments for one resolved event and reports how
// many it queued. ok is false when the whole event had to be skipped.
func (p *Pass) reconcileEvent(ctx context.Context, ev *discord.ScheduledEvent) (int, bool) {
	if ev.RoleID == "" {
		p.log.Warn("resolved event has no role id, cannot reconcile",
			logx.String("event", ev.Name), logx.String("event_id", ev.ID))
		return 0, false
	}

	// Subscribers come with freshly fetched members: right after a restart
	// there is no warm cache to trust.
	subs, err := p.src.EventSubscribers(ctx, p.guildID, ev.ID)
	if err != nil {
		p.log.Warn("cannot list event subscribers",
			logx.String("event", ev.Name), logx.String("event_id", ev.ID), logx.Err(err))
		return 0, false
	}

	var enqueued int
	for _, sub := range subs {
		if sub.Member == nil {
			p.log.Warn("subscriber has no guild member, skipping",
				logx.String("event", ev.Name), logx.String("event_id", ev.ID),
				logx.String("user", sub.Username), logx.String("user_id", sub.UserID))
			continue
		}
		if sub.Member.HasRole(ev.RoleID) {
			continue
		}
		if p.queue.Enqueue(assignqueue.Assignment{
			GuildID:   p.guildID,
			EventID:   ev.ID,
			EventName: ev.Name,
			UserID:    sub.UserID,
			Username:  sub.Username,
			RoleID:    ev.RoleID,
		}) {
			enqueued++
		}
	}
	return enqueued, true
}
