package chatbot

import (
	"context"
	"fmt"

	"github.com/eldtechnologies/respoke-chatbot/internal/models"
)

// OnlineAnnouncement is published to the people group once the bot is up.
const OnlineAnnouncement = "is online and listening to your every word..."

// Directory is the part of the Respoke API the startup sequence uses.
type Directory interface {
	GetConnections(ctx context.Context, endpointID string) ([]models.Connection, error)
	JoinGroups(ctx context.Context, endpointID, connectionID string, groups []string) error
	GetMembers(ctx context.Context, group string) ([]models.Member, error)
}

// Bootstrap registers the bot with its groups and greets the people group.
// It looks up the bot endpoint's first connection, joins it to the bot
// groups, then announces itself and every current member of the people
// group. Only a failed member listing aborts the sequence.
func (b *Bot) Bootstrap(ctx context.Context, dir Directory) error {
	conns, err := dir.GetConnections(ctx, b.opts.BotEndpoint)
	if err != nil {
		b.logger.Warn().Err(err).Str("endpoint", b.opts.BotEndpoint).Msg("listing bot connections failed")
	}

	if len(conns) > 0 {
		b.setConnectionID(conns[0].ID)
		b.logger.Info().Str("connection", conns[0].ID).Msg("bot connection found")

		if err := dir.JoinGroups(ctx, b.opts.BotEndpoint, conns[0].ID, b.opts.BotGroups); err != nil {
			b.logger.Warn().Err(err).Strs("groups", b.opts.BotGroups).Msg("joining bot groups failed")
		}
	} else {
		b.logger.Info().Str("endpoint", b.opts.BotEndpoint).Msg("no connections right now")
	}

	members, err := dir.GetMembers(ctx, b.opts.PeopleGroup)
	if err != nil {
		return fmt.Errorf("list %s members: %w", b.opts.PeopleGroup, err)
	}

	b.relay.SendToGroup(b.opts.PeopleGroup, OnlineAnnouncement)
	for _, m := range members {
		b.relay.SendToGroup(b.opts.PeopleGroup, fmt.Sprintf("I see %s connected on %s.", m.EndpointID, m.ConnectionID))
	}

	b.logger.Info().Int("members", len(members)).Msg("bootstrap complete")
	return nil
}
