package discord

import (
	"context"
	"time"
)

// Frequency is a scheduled event recurrence interval.
// Values match the Discord wire encoding.
type Frequency int

const (
	FrequencyYearly Frequency = iota
	FrequencyMonthly
	FrequencyWeekly
	FrequencyDaily
)

// Label returns the human-readable frequency name, or "" for values
// outside the documented range.
func (f Frequency) Label() string {
	switch f {
	case FrequencyYearly:
		return "Yearly"
	case FrequencyMonthly:
		return "Monthly"
	case FrequencyWeekly:
		return "Weekly"
	case FrequencyDaily:
		return "Daily"
	default:
		return ""
	}
}

// Recurrence describes how often a scheduled event repeats.
type Recurrence struct {
	Frequency Frequency
}

// ScheduledEvent is the slice of a guild scheduled event this bot cares about.
//
// RoleID is not part of the Discord payload: the reconciliation service
// annotates it once the event has been resolved to its subscriber role.
type ScheduledEvent struct {
	ID         string
	GuildID    string
	Name       string
	StartTime  time.Time
	Recurrence *Recurrence

	RoleID string
}

// Subscriber is a user interested in a scheduled event. Member is nil when
// the user is no longer (or not yet) a member of the guild.
type Subscriber struct {
	UserID   string
	Username string
	Member   *Member
}

// Member carries the guild-member state needed for reconciliation.
type Member struct {
	Roles []string
}

// HasRole reports whether the member currently holds roleID.
func (m *Member) HasRole(roleID string) bool {
	if m == nil {
		return false
	}
	for _, r := range m.Roles {
		if r == roleID {
			return true
		}
	}
	return false
}

// Role is a guild role.
type Role struct {
	ID          string
	Name        string
	Mentionable bool
}

// Source is the guild data API consumed by the reconciliation core.
// The production implementation is Client; tests substitute fakes.
type Source interface {
	// ScheduledEvents lists the guild's scheduled events in API order.
	ScheduledEvents(ctx context.Context, guildID string) ([]*ScheduledEvent, error)
	// EventSubscribers lists an event's subscribers with freshly fetched
	// guild members (never served from a cache).
	EventSubscribers(ctx context.Context, guildID, eventID string) ([]*Subscriber, error)
	// CreateRole creates a mentionable role with no permissions.
	CreateRole(ctx context.Context, guildID, name, reason string) (*Role, error)
	// Role fetches a single role, (nil, nil) if it does not exist.
	Role(ctx context.Context, guildID, roleID string) (*Role, error)
	// AddMemberRole grants roleID to the member.
	AddMemberRole(ctx context.Context, guildID, userID, roleID string) error
}
