package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	logx "rolecall/pkg/logx"
)

// Client implements Source on top of a discordgo session.
//
// Role and member operations go through the library. Scheduled-event reads go
// through raw REST calls instead (see events.go): the library's scheduled
// event struct predates recurrence_rule, which the role naming policy needs.
type Client struct {
	s   *discordgo.Session
	log logx.Logger
}

func NewClient(s *discordgo.Session, log logx.Logger) *Client {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{s: s, log: log}
}

func (c *Client) CreateRole(ctx context.Context, guildID, name, reason string) (*Role, error) {
	mentionable := true
	var perms int64
	r, err := c.s.GuildRoleCreate(guildID, &discordgo.RoleParams{
		Name:        name,
		Mentionable: &mentionable,
		Permissions: &perms,
	}, discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	if err != nil {
		return nil, fmt.Errorf("create role %q: %w", name, err)
	}
	if r == nil {
		return nil, nil
	}
	return &Role{ID: r.ID, Name: r.Name, Mentionable: r.Mentionable}, nil
}

func (c *Client) Role(ctx context.Context, guildID, roleID string) (*Role, error) {
	roles, err := c.s.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("list guild roles: %w", err)
	}
	for _, r := range roles {
		if r.ID == roleID {
			return &Role{ID: r.ID, Name: r.Name, Mentionable: r.Mentionable}, nil
		}
	}
	return nil, nil
}

func (c *Client) AddMemberRole(ctx context.Context, guildID, userID, roleID string) error {
	if err := c.s.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("add role %s to member %s: %w", roleID, userID, err)
	}
	return nil
}
