package eventrole

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"rolecall/internal/discord"
	"rolecall/internal/storage"
	logx "rolecall/pkg/logx"
)

// RecordStore is the slice of the persistence API this service needs.
type RecordStore interface {
	FindScheduledEvent(ctx context.Context, eventID string) (*storage.EventRecord, error)
	CreateScheduledEvent(ctx context.Context, eventID, roleID string) (int64, error)
}

// RoleSource creates and fetches guild roles.
type RoleSource interface {
	CreateRole(ctx context.Context, guildID, name, reason string) (*discord.Role, error)
	Role(ctx context.Context, guildID, roleID string) (*discord.Role, error)
}

// Queue receives the non-blocking "work may be ready" signal after a
// successful resolve. It must never block.
type Queue interface {
	Kick()
}

// Service resolves scheduled events to their subscriber roles.
//
// All dependencies are injected; the service holds no ambient state. Resolve
// and ResolveBatch are meant to be driven by a single caller at a time: the
// idempotency guarantee relies on the record lookup and the record write
// being observed in program order for a given event.
type Service struct {
	store RecordStore
	src   RoleSource
	queue Queue
	log   logx.Logger
}

func New(store RecordStore, src RoleSource, queue Queue, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{store: store, src: src, queue: queue, log: log}
}

// Resolve returns ev annotated with its subscriber role id, creating the
// role and the record on first sight of the event.
//
// Errors are logged here and returned wrapped; Resolve never panics past
// its own boundary.
func (s *Service) Resolve(ctx context.Context, ev *discord.ScheduledEvent) (res *discord.ScheduledEvent, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("resolve panicked",
				logx.Any("panic", r),
				logx.Stack(string(debug.Stack())))
			res = nil
			err = fmt.Errorf("%w: %v", ErrUnexpected, r)
		}
	}()

	if ev == nil {
		return nil, fmt.Errorf("%w: nil event", ErrUnexpected)
	}
	if ev.GuildID == "" {
		s.log.Warn("event has no guild, cannot create a role for it",
			logx.String("event", ev.Name), logx.String("event_id", ev.ID))
		return nil, fmt.Errorf("%w: event %q (%s)", ErrMissingGuild, ev.Name, ev.ID)
	}

	// Record lookup comes first: it is the single source of truth for
	// "already processed" and must precede any side effect.
	rec, err := s.store.FindScheduledEvent(ctx, ev.ID)
	if err != nil {
		s.log.Error("event record lookup failed",
			logx.String("event", ev.Name), logx.String("event_id", ev.ID), logx.Err(err))
		return nil, fmt.Errorf("%w: record lookup for event %s: %v", ErrUnexpected, ev.ID, err)
	}
	if rec != nil {
		ev.RoleID = rec.RoleID
		s.log.Debug("event already resolved",
			logx.String("event", ev.Name), logx.String("event_id", ev.ID),
			logx.String("role_id", rec.RoleID))
		return ev, nil
	}

	name := RoleName(ev)
	if ev.Recurrence != nil && ev.Recurrence.Frequency.Label() == "" {
		s.log.Warn("event has an unrecognized recurrence frequency, role suffix is empty",
			logx.String("event", ev.Name), logx.String("event_id", ev.ID),
			logx.Int("frequency", int(ev.Recurrence.Frequency)))
	}

	role, err := s.src.CreateRole(ctx, ev.GuildID, name, "subscriber role for scheduled event "+ev.Name)
	if err != nil || role == nil {
		if err == nil {
			err = errors.New("api returned no role")
		}
		s.log.Error("role creation failed",
			logx.String("event", ev.Name), logx.String("event_id", ev.ID),
			logx.String("role_name", name), logx.Err(err))
		return nil, fmt.Errorf("%w: event %q (%s): %v", ErrRoleCreation, ev.Name, ev.ID, err)
	}

	affected, err := s.store.CreateScheduledEvent(ctx, ev.ID, role.ID)
	if err != nil || affected == 0 {
		if err == nil {
			err = errors.New("zero rows affected")
		}
		// The role exists but is unlinked. A later Resolve will not find
		// a record and will create a second role; surfaced, not repaired.
		s.log.Error("event record write failed, role is now unlinked",
			logx.String("event", ev.Name), logx.String("event_id", ev.ID),
			logx.String("role_id", role.ID), logx.Err(err))
		return nil, fmt.Errorf("%w: event %s: %v", ErrPersistence, ev.ID, err)
	}

	ev.RoleID = role.ID
	s.log.Info("created subscriber role for event",
		logx.String("event", ev.Name), logx.String("event_id", ev.ID),
		logx.String("role", role.Name), logx.String("role_id", role.ID))
	s.queue.Kick()
	return ev, nil
}

// ResolveBatch resolves each event in order, one at a time. A failed item is
// recorded as nil at its input position and never stops the remaining items.
// The returned slice always has the same length and order as the input.
func (s *Service) ResolveBatch(ctx context.Context, events []*discord.ScheduledEvent) []*discord.ScheduledEvent {
	out := make([]*discord.ScheduledEvent, len(events))
	for i, ev := range events {
		res, err := s.Resolve(ctx, ev)
		if err != nil {
			// Resolve already logged the failure with the event identity.
			continue
		}
		out[i] = res
	}
	return out
}

// RoleID returns the persisted role id for eventID. ok is false when the
// event has never been resolved. No side effects.
func (s *Service) RoleID(ctx context.Context, eventID string) (roleID string, ok bool, err error) {
	rec, err := s.store.FindScheduledEvent(ctx, eventID)
	if err != nil {
		return "", false, err
	}
	if rec == nil {
		return "", false, nil
	}
	return rec.RoleID, true, nil
}

// Role fetches the live role object for ev. It returns (nil, nil) when the
// event has no record yet, and ErrLookup when a record exists but the role
// cannot be fetched (e.g. deleted out-of-band). No replacement is created.
func (s *Service) Role(ctx context.Context, ev *discord.ScheduledEvent) (*discord.Role, error) {
	if ev == nil {
		return nil, fmt.Errorf("%w: nil event", ErrUnexpected)
	}
	if ev.GuildID == "" {
		s.log.Warn("event has no guild, cannot fetch its role",
			logx.String("event", ev.Name), logx.String("event_id", ev.ID))
		return nil, fmt.Errorf("%w: event %q (%s)", ErrMissingGuild, ev.Name, ev.ID)
	}

	roleID := ev.RoleID
	if roleID == "" {
		id, ok, err := s.RoleID(ctx, ev.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: record lookup for event %s: %v", ErrLookup, ev.ID, err)
		}
		if !ok {
			return nil, nil
		}
		roleID = id
	}

	role, err := s.src.Role(ctx, ev.GuildID, roleID)
	if err != nil || role == nil {
		if err == nil {
			err = errors.New("role not found in guild")
		}
		s.log.Warn("resolved role is gone",
			logx.String("event", ev.Name), logx.String("event_id", ev.ID),
			logx.String("role_id", roleID), logx.Err(err))
		return nil, fmt.Errorf("%w: role %s for event %s: %v", ErrLookup, roleID, ev.ID, err)
	}
	return role, nil
}
