package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"

	logx "rolecall/pkg/logx"
)

// Discord caps the page size for the "get scheduled event users" endpoint.
const subscriberPageSize = 100

// Wire shapes for the scheduled-event endpoints. Only the fields the
// reconciliation core consumes are decoded.

type wireScheduledEvent struct {
	ID                 string              `json:"id"`
	GuildID            string              `json:"guild_id"`
	Name               string              `json:"name"`
	ScheduledStartTime *time.Time          `json:"scheduled_start_time"`
	RecurrenceRule     *wireRecurrenceRule `json:"recurrence_rule"`
}

type wireRecurrenceRule struct {
	Frequency int `json:"frequency"`
}

type wireEventUser struct {
	User struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
	Member *struct {
		Roles []string `json:"roles"`
	} `json:"member"`
}

func (w *wireScheduledEvent) domain() *ScheduledEvent {
	ev := &ScheduledEvent{
		ID:      w.ID,
		GuildID: w.GuildID,
		Name:    w.Name,
	}
	if w.ScheduledStartTime != nil {
		ev.StartTime = *w.ScheduledStartTime
	}
	if w.RecurrenceRule != nil {
		ev.Recurrence = &Recurrence{Frequency: Frequency(w.RecurrenceRule.Frequency)}
	}
	return ev
}

func (c *Client) ScheduledEvents(ctx context.Context, guildID string) ([]*ScheduledEvent, error) {
	endpoint := discordgo.EndpointGuildScheduledEvents(guildID)
	body, err := c.s.RequestWithBucketID("GET", endpoint, nil, endpoint, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("list scheduled events: %w", err)
	}

	var wire []*wireScheduledEvent
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("decode scheduled events: %w", err)
	}

	events := make([]*ScheduledEvent, 0, len(wire))
	for _, w := range wire {
		events = append(events, w.domain())
	}
	return events, nil
}

func (c *Client) EventSubscribers(ctx context.Context, guildID, eventID string) ([]*Subscriber, error) {
	endpoint := discordgo.EndpointGuildScheduledEventUsers(guildID, eventID)

	var subs []*Subscriber
	after := ""
	for {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(subscriberPageSize))
		q.Set("with_member", "true")
		if after != "" {
			q.Set("after", after)
		}

		body, err := c.s.RequestWithBucketID("GET", endpoint+"?"+q.Encode(), nil, endpoint, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("list event %s subscribers: %w", eventID, err)
		}

		var page []*wireEventUser
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("decode event %s subscribers: %w", eventID, err)
		}

		for _, u := range page {
			sub := &Subscriber{UserID: u.User.ID, Username: u.User.Username}
			if u.Member != nil {
				sub.Member = &Member{Roles: u.Member.Roles}
			}
			subs = append(subs, sub)
			after = u.User.ID
		}
		if len(page) < subscriberPageSize {
			c.log.Debug("fetched event subscribers",
				logx.String("event_id", eventID), logx.Int("count", len(subs)))
			return subs, nil
		}
	}
}
