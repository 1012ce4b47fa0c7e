// Package processor runs a single platform message through the ledger, the
// image index and the link index, and decides whether it deserves a notice.
package processor

import (
	"context"
	"io"
	"strings"
	"time"

	"repost-bot/cache"
	"repost-bot/database"
	"repost-bot/errs"
	"repost-bot/hashindex"
	"repost-bot/links"
	"repost-bot/models"
	"repost-bot/observability"
	"repost-bot/reply"
	"repost-bot/repost"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

// Mode selects between a message that just arrived and one replayed from history.
type Mode uint8

const (
	// Live messages may run commands and are checked against earlier content.
	Live Mode = iota
	// Historical messages are only recorded.
	Historical
)

func (m Mode) String() string {
	if m == Live {
		return "live"
	}
	return "historical"
}

// Commands executes text commands found in message content.
type Commands interface {
	IsCommand(content string) bool
	Run(ctx context.Context, msg *discordgo.Message) (*reply.Reply, error)
}

// Fetcher downloads image bytes. A nil reader means there is no image.
type Fetcher interface {
	Get(ctx context.Context, url, source string) (io.Reader, error)
}

// Directory resolves names the gateway does not put on messages.
// *discordgo.State satisfies it.
type Directory interface {
	Guild(guildID string) (*discordgo.Guild, error)
	Channel(channelID string) (*discordgo.Channel, error)
	Member(guildID, userID string) (*discordgo.Member, error)
}

type Deps struct {
	Store     database.MutableStore
	Cache     *cache.Metadata
	Images    *hashindex.Index
	Links     *links.Extractor
	Fetcher   Fetcher
	Directory Directory
	Commands  Commands

	// IgnoredProviders lists embed providers whose images are never fetched.
	IgnoredProviders []string
	Now              func() time.Time
}

type Processor struct {
	store     database.MutableStore
	cache     *cache.Metadata
	images    *hashindex.Index
	links     *links.Extractor
	fetcher   Fetcher
	dir       Directory
	commands  Commands
	providers map[string]struct{}
	now       func() time.Time
	log       zerolog.Logger
}

func New(d Deps, logger zerolog.Logger) *Processor {
	p := &Processor{
		store:     d.Store,
		cache:     d.Cache,
		images:    d.Images,
		links:     d.Links,
		fetcher:   d.Fetcher,
		dir:       d.Directory,
		commands:  d.Commands,
		providers: make(map[string]struct{}, len(d.IgnoredProviders)),
		now:       d.Now,
		log:       logger.With().Str("component", "processor").Logger(),
	}
	if p.now == nil {
		p.now = time.Now
	}
	for _, name := range d.IgnoredProviders {
		p.providers[name] = struct{}{}
	}
	return p
}

// Ingestible reports whether msg is an ordinary message from a person.
func Ingestible(msg *discordgo.Message) bool {
	if msg.Author == nil || msg.Author.Bot {
		return false
	}
	return msg.Type == discordgo.MessageTypeDefault || msg.Type == discordgo.MessageTypeReply
}

func validate(msg *discordgo.Message) error {
	if msg.Author == nil || msg.Author.Bot {
		return errs.ErrBotMessage
	}
	if !Ingestible(msg) {
		return errs.ErrNotRegular
	}
	if msg.GuildID == "" {
		return errs.ErrNoServer
	}
	return nil
}

// Process records msg and returns the notice to send, if any. Bot messages,
// system messages and messages without a server yield a precondition error.
// Failures of the image or link stage are logged and the message is still
// marked as checked.
func (p *Processor) Process(ctx context.Context, msg *discordgo.Message, mode Mode) (*reply.Reply, error) {
	if err := validate(msg); err != nil {
		return nil, err
	}
	log := p.log.With().Str("message", msg.ID).Str("server", msg.GuildID).Str("mode", mode.String()).Logger()

	dbMsg, err := p.record(ctx, msg)
	if err != nil {
		observability.MessagesProcessed.WithLabelValues(mode.String(), "error").Inc()
		return nil, err
	}

	if p.commands != nil && p.commands.IsCommand(msg.Content) {
		var out *reply.Reply
		if mode == Live {
			out, err = p.commands.Run(ctx, msg)
			if err != nil {
				log.Warn().Err(err).Str("command", msg.Content).Msg("command failed")
				out = nil
			}
		}
		if err := p.store.MarkFullyChecked(ctx, dbMsg.ID); err != nil {
			return nil, err
		}
		observability.MessagesProcessed.WithLabelValues(mode.String(), "command").Inc()
		return out, nil
	}

	query := mode == Live
	set := repost.NewSet()
	outcome := "clean"
	if !dbMsg.IsEmbedChecked() {
		found, err := p.processImages(ctx, dbMsg, msg.Attachments, msg.Embeds, query)
		if err != nil {
			log.Error().Err(err).Msg("image check failed")
			outcome = "partial"
		}
		set.Merge(found)
	}
	if !dbMsg.IsRepostChecked() {
		found, err := p.processLinks(ctx, dbMsg, msg.Content, query)
		if err != nil {
			log.Error().Err(err).Msg("link check failed")
			outcome = "partial"
		}
		set.Merge(found)
	}

	if err := p.store.MarkFullyChecked(ctx, dbMsg.ID); err != nil {
		observability.MessagesProcessed.WithLabelValues(mode.String(), "error").Inc()
		return nil, err
	}

	text, ok := set.Render(dbMsg.CreatedAt)
	if !ok {
		observability.MessagesProcessed.WithLabelValues(mode.String(), outcome).Inc()
		return nil, nil
	}
	if outcome == "clean" {
		outcome = "repost"
	}
	observability.MessagesProcessed.WithLabelValues(mode.String(), outcome).Inc()
	log.Info().Int("matches", set.Len()).Msg("repost detected")

	r := reply.To(msg, text)
	return &r, nil
}

// ProcessUpdate handles an edit of a message already in the ledger. Discord
// often attaches embeds a moment after the message is created, so images are
// checked again. A notice is only produced while the message is recent; it
// targets the message by id so an earlier notice is edited rather than
// duplicated.
func (p *Processor) ProcessUpdate(ctx context.Context, msg *discordgo.Message) (*reply.Reply, error) {
	log := p.log.With().Str("message", msg.ID).Logger()
	if msg.GuildID == "" {
		log.Warn().Msg("message update has no server, skipping")
		return nil, nil
	}
	id, err := models.ParseID(msg.ID)
	if err != nil {
		return nil, errs.E(errs.Precondition, "message update", err)
	}
	dbMsg, err := p.store.GetMessage(ctx, id)
	if err != nil {
		return nil, err
	}
	if dbMsg == nil {
		log.Debug().Msg("update for unknown message, skipping")
		return nil, nil
	}
	if len(msg.Embeds) == 0 && len(msg.Attachments) == 0 {
		return nil, nil
	}

	shouldReply := dbMsg.IsRecent(p.now())
	set, err := p.processImages(ctx, dbMsg, msg.Attachments, msg.Embeds, shouldReply)
	if err != nil {
		return nil, err
	}
	if !shouldReply || set.Len() == 0 {
		return nil, nil
	}

	prior, err := p.store.RepostsForMessage(ctx, dbMsg.ID)
	if err != nil {
		return nil, err
	}
	set.Merge(repost.NewSetFromMessages(prior, repost.Link))

	text, ok := set.Render(dbMsg.CreatedAt)
	if !ok {
		return nil, nil
	}
	channelID := msg.ChannelID
	if channelID == "" {
		channelID = models.FormatID(dbMsg.ChannelID)
	}
	r := reply.ToID(msg.ID, channelID, text)
	return &r, nil
}

// record writes the metadata around msg and returns its ledger row.
func (p *Processor) record(ctx context.Context, msg *discordgo.Message) (*models.Message, error) {
	id, err := models.ParseID(msg.ID)
	if err != nil {
		return nil, errs.E(errs.Precondition, "message", err)
	}
	server, err := models.ParseID(msg.GuildID)
	if err != nil {
		return nil, errs.E(errs.Precondition, "message", err)
	}
	channel, err := models.ParseID(msg.ChannelID)
	if err != nil {
		return nil, errs.E(errs.Precondition, "message", err)
	}
	author, err := models.ParseID(msg.Author.ID)
	if err != nil {
		return nil, errs.E(errs.Precondition, "message", err)
	}

	err = p.cache.Do(cache.Author, author, func() error {
		return p.store.UpsertUser(ctx, models.User{
			ID:            author,
			Username:      msg.Author.Username,
			Bot:           msg.Author.Bot,
			Discriminator: msg.Author.Discriminator,
		})
	})
	if err != nil {
		return nil, err
	}

	err = p.cache.Do(cache.Server, server, func() error {
		return p.store.UpsertServer(ctx, server, p.guildName(msg.GuildID))
	})
	if err != nil {
		return nil, err
	}

	// Receiving a message from a channel means it can be read.
	err = p.cache.Do(cache.Channel, channel, func() error {
		return p.store.UpsertChannel(ctx, models.Channel{
			ID:       channel,
			ServerID: server,
			Name:     p.channelName(msg.ChannelID),
			Visible:  true,
		})
	})
	if err != nil {
		return nil, err
	}

	return p.store.UpsertMessage(ctx, id, channel, server, &author)
}

// RecordNickname stores the author's server nickname, if they have one.
func (p *Processor) RecordNickname(ctx context.Context, msg *discordgo.Message) error {
	if msg.GuildID == "" || msg.Author == nil {
		return errs.ErrNoServer
	}
	nick := ""
	if msg.Member != nil {
		nick = msg.Member.Nick
	} else if p.dir != nil {
		if m, err := p.dir.Member(msg.GuildID, msg.Author.ID); err == nil {
			nick = m.Nick
		}
	}
	if nick == "" {
		return nil
	}
	return p.storeNickname(ctx, msg.Author.ID, msg.GuildID, nick)
}

// RecordMember stores a member's account details and nickname.
func (p *Processor) RecordMember(ctx context.Context, m *discordgo.Member) error {
	if m == nil || m.User == nil {
		return nil
	}
	user, err := models.ParseID(m.User.ID)
	if err != nil {
		return errs.E(errs.Precondition, "member update", err)
	}
	err = p.store.UpsertUser(ctx, models.User{
		ID:            user,
		Username:      m.User.Username,
		Bot:           m.User.Bot,
		Discriminator: m.User.Discriminator,
	})
	if err != nil {
		return err
	}
	if m.Nick == "" {
		return nil
	}
	return p.storeNickname(ctx, m.User.ID, m.GuildID, m.Nick)
}

func (p *Processor) storeNickname(ctx context.Context, userID, guildID, nick string) error {
	user, err := models.ParseID(userID)
	if err != nil {
		return errs.E(errs.Precondition, "nickname", err)
	}
	server, err := models.ParseID(guildID)
	if err != nil {
		return errs.E(errs.Precondition, "nickname", err)
	}
	if err := p.store.UpsertServer(ctx, server, ""); err != nil {
		return err
	}
	return p.store.UpsertNickname(ctx, user, server, nick)
}

func (p *Processor) guildName(id string) string {
	if p.dir == nil {
		return ""
	}
	g, err := p.dir.Guild(id)
	if err != nil {
		return ""
	}
	return g.Name
}

func (p *Processor) channelName(id string) string {
	if p.dir == nil {
		return ""
	}
	c, err := p.dir.Channel(id)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(c.Name)
}
