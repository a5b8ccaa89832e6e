package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/sabrina-ksks/shaberina/internal/textnorm"
)

// stateResolver resolves mention ids against the gateway state cache, falling
// back to the REST API on a miss.
type stateResolver struct {
	session *discordgo.Session
	guildID string
}

var _ textnorm.Resolver = (*stateResolver)(nil)

func newResolver(s *discordgo.Session, guildID string) *stateResolver {
	return &stateResolver{session: s, guildID: guildID}
}

func (r *stateResolver) UserName(ctx context.Context, id string) (string, error) {
	member, err := r.session.State.Member(r.guildID, id)
	if err != nil {
		member, err = r.session.GuildMember(r.guildID, id, discordgo.WithContext(ctx))
		if err != nil {
			return "", fmt.Errorf("discord: resolve member %s: %w", id, err)
		}
	}
	return displayName(member), nil
}

func (r *stateResolver) RoleName(ctx context.Context, id string) (string, error) {
	role, err := r.session.State.Role(r.guildID, id)
	if err != nil {
		roles, err := r.session.GuildRoles(r.guildID, discordgo.WithContext(ctx))
		if err != nil {
			return "", fmt.Errorf("discord: resolve role %s: %w", id, err)
		}
		for _, candidate := range roles {
			if candidate.ID == id {
				return candidate.Name, nil
			}
		}
		return "", fmt.Errorf("discord: resolve role %s: not found", id)
	}
	return role.Name, nil
}

func (r *stateResolver) ChannelName(ctx context.Context, id string) (string, error) {
	ch, err := r.session.State.Channel(id)
	if err != nil {
		ch, err = r.session.Channel(id, discordgo.WithContext(ctx))
		if err != nil {
			return "", fmt.Errorf("discord: resolve channel %s: %w", id, err)
		}
	}
	return ch.Name, nil
}

// displayName prefers the guild nickname over the account name.
func displayName(m *discordgo.Member) string {
	if m.Nick != "" {
		return m.Nick
	}
	if m.User != nil {
		return m.User.Username
	}
	return ""
}
