// Package command implements the bot's commands. Each command runs from
// either a slash interaction or a "!rpm " / "!rpb " text message and produces
// the same text.
package command

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"repost-bot/database"
	"repost-bot/errs"
	"repost-bot/models"
	"repost-bot/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

const (
	unknownCommand = "Unrecognized command"
	denied         = "🚫 你没有权限执行此命令"
)

// Discord is the REST surface the pins command uses.
type Discord interface {
	GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error)
	ChannelMessagesPinned(channelID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
}

// Waker nudges a server's reconciliation loop. It reports false when no
// loop runs for the server.
type Waker interface {
	Wake(server uint64) bool
}

// WakerFunc adapts a function to Waker.
type WakerFunc func(server uint64) bool

func (f WakerFunc) Wake(server uint64) bool { return f(server) }

// Invocation is a parsed command from either entry point.
type Invocation struct {
	Name    string
	Args    []string
	GuildID string
	UserID  string
	Member  *discordgo.Member
}

type Service struct {
	store    database.Store
	discord  Discord
	auth     *utils.Auth
	prefix   *regexp.Regexp
	readable func(channelID string) bool
	waker    Waker
	log      zerolog.Logger
}

type Option func(*Service)

// WithReadable decides which channels the pins command looks at.
func WithReadable(fn func(channelID string) bool) Option {
	return func(s *Service) { s.readable = fn }
}

func WithWaker(w Waker) Option {
	return func(s *Service) { s.waker = w }
}

// New compiles prefix, the regular expression a text command starts with.
func New(store database.Store, discord Discord, auth *utils.Auth, prefix string, logger zerolog.Logger, opts ...Option) (*Service, error) {
	re, err := regexp.Compile(prefix)
	if err != nil {
		return nil, fmt.Errorf("invalid command prefix %q: %w", prefix, err)
	}
	s := &Service{
		store:    store,
		discord:  discord,
		auth:     auth,
		prefix:   re,
		readable: func(string) bool { return true },
		log:      logger.With().Str("component", "command").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Ephemeral reports whether a response should only be shown to the caller.
func Ephemeral(text string) bool {
	return text == unknownCommand || text == denied
}

// Execute runs inv and returns the response text.
func (s *Service) Execute(ctx context.Context, inv Invocation) (string, error) {
	level, ok := Permissions[inv.Name]
	if !ok {
		return unknownCommand, nil
	}
	if s.auth != nil && !s.auth.Allowed(inv.UserID, inv.Member, level) {
		return denied, nil
	}
	if inv.GuildID == "" && inv.Name != "ping" {
		return "", errs.ErrNoServer
	}

	switch inv.Name {
	case "ping":
		return "Pong!", nil
	case "reposts":
		return s.reposts(ctx, inv.GuildID)
	case "reposters":
		return s.reposters(ctx, inv.GuildID)
	case "pins":
		return s.pins(ctx, inv.GuildID)
	case "wordle":
		if len(inv.Args) == 0 || inv.Args[0] != "server" {
			return unknownCommand, nil
		}
		return s.wordleServer(ctx, inv.GuildID)
	case "reconcile":
		return s.reconcile(inv.GuildID)
	}
	return unknownCommand, nil
}

func (s *Service) reposts(ctx context.Context, guildID string) (string, error) {
	server, err := models.ParseID(guildID)
	if err != nil {
		return "", errs.E(errs.Precondition, "reposts", err)
	}
	counts, err := s.store.RepostList(ctx, server)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("Count | Link")
	for _, c := range counts {
		fmt.Fprintf(&b, "\n%-9d | <%s>", c.Count, c.Link)
	}
	return b.String(), nil
}

func (s *Service) reposters(ctx context.Context, guildID string) (string, error) {
	server, err := models.ParseID(guildID)
	if err != nil {
		return "", errs.E(errs.Precondition, "reposters", err)
	}
	counts, err := s.store.TopReposters(ctx, server)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("Username | Count")
	for _, c := range counts {
		fmt.Fprintf(&b, "\n%s | %-9d", c.Username, c.Count)
	}
	return b.String(), nil
}

func (s *Service) pins(ctx context.Context, guildID string) (string, error) {
	channels, err := s.discord.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return "", errs.FromDiscord("list channels", err)
	}

	counts := make(map[string]int)
	for _, ch := range channels {
		if ch.Type != discordgo.ChannelTypeGuildText || !s.readable(ch.ID) {
			continue
		}
		pinned, err := s.discord.ChannelMessagesPinned(ch.ID, discordgo.WithContext(ctx))
		if err != nil {
			return "", errs.FromDiscord("list pins", err)
		}
		for _, m := range pinned {
			if m.Author != nil {
				counts[m.Author.Username]++
			}
		}
	}

	type row struct {
		user  string
		count int
	}
	rows := make([]row, 0, len(counts))
	for user, n := range counts {
		rows = append(rows, row{user, n})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].count != rows[j].count {
			return rows[i].count > rows[j].count
		}
		return rows[i].user < rows[j].user
	})
	s.log.Debug().Str("server", guildID).Int("authors", len(rows)).Msg("counted pins")

	var b strings.Builder
	b.WriteString("the chamPIoNship")
	for _, r := range rows {
		fmt.Fprintf(&b, "\n%s: with %d pins", r.user, r.count)
	}
	return b.String(), nil
}

func (s *Service) wordleServer(ctx context.Context, guildID string) (string, error) {
	server, err := models.ParseID(guildID)
	if err != nil {
		return "", errs.E(errs.Precondition, "wordle", err)
	}
	scores, err := s.store.WordleDistribution(ctx, server)
	if err != nil {
		return "", err
	}
	return "Wordle distribution for server\n" + WordleDistribution(scores), nil
}

// WordleDistribution renders one bar per score 1 to 6, then failures as X.
func WordleDistribution(scores []models.WordleScore) string {
	var buckets [7]int
	total := 0
	for _, s := range scores {
		if s.Score < 0 || s.Score >= len(buckets) {
			continue
		}
		buckets[s.Score] += s.Count
		total += s.Count
	}

	row := func(label string, count int) string {
		percent := 0.0
		if total > 0 {
			percent = float64(count) / float64(total) * 100
		}
		return fmt.Sprintf("%s: %s %d%%", label, strings.Repeat("🟩", int(percent/4)), int(percent))
	}

	lines := make([]string, 0, len(buckets))
	for i := 1; i < len(buckets); i++ {
		lines = append(lines, row(fmt.Sprint(i), buckets[i]))
	}
	lines = append(lines, row("X", buckets[0]))
	return strings.Join(lines, "\n")
}

func (s *Service) reconcile(guildID string) (string, error) {
	server, err := models.ParseID(guildID)
	if err != nil {
		return "", errs.E(errs.Precondition, "reconcile", err)
	}
	if s.waker == nil || !s.waker.Wake(server) {
		return "History reconciliation is not running for this server.", nil
	}
	s.log.Info().Uint64("server", server).Msg("reconciliation woken by command")
	return "History reconciliation will run now.", nil
}
