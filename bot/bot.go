package bot

import (
	"context"
	"fmt"

	"repost-bot/command"
	"repost-bot/models"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

// Intents are the gateway events the bot consumes. Message content is
// needed for link extraction and text commands.
const Intents = discordgo.IntentsGuildMessages |
	discordgo.IntentsGuilds |
	discordgo.IntentsGuildMembers |
	discordgo.IntentsMessageContent

// Bot encapsulates the bot's state.
type Bot struct {
	Session *discordgo.Session
	log     zerolog.Logger
}

// NewBot creates and initializes a new Bot instance.
func NewBot(cfg *models.Config, logger zerolog.Logger) (*Bot, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("no bot token provided")
	}

	dg, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}

	dg.Identify.Intents = Intents
	dg.StateEnabled = true
	dg.State.TrackChannels = true
	dg.State.TrackMembers = true
	dg.State.TrackRoles = true

	return &Bot{
		Session: dg,
		log:     logger.With().Str("component", "bot").Logger(),
	}, nil
}

// Start registers handlers, opens the gateway connection and installs the
// slash commands.
func (b *Bot) Start(registerHandlers func(*Bot)) error {
	registerHandlers(b)

	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}

	defs := command.GetCommandDefinitions()
	if _, err := b.Session.ApplicationCommandBulkOverwrite(b.Session.State.User.ID, "", defs); err != nil {
		b.log.Error().Err(err).Msg("cannot register slash commands")
	} else {
		b.log.Info().Int("count", len(defs)).Msg("slash commands registered")
	}

	b.log.Info().Msg("Bot is now running.")
	return nil
}

// Stop gracefully closes the bot's session.
func (b *Bot) Stop() {
	if b.Session != nil {
		if err := b.Session.Close(); err != nil {
			b.log.Warn().Err(err).Msg("error closing session")
		}
	}
	b.log.Info().Msg("Bot stopped gracefully.")
}

// Run starts the bot and blocks until ctx is done.
func (b *Bot) Run(ctx context.Context, registerHandlers func(*Bot)) error {
	if err := b.Start(registerHandlers); err != nil {
		return err
	}
	<-ctx.Done()
	b.Stop()
	return nil
}
