package handlers

import (
	"context"

	"repost-bot/bot"
	"repost-bot/cache"
	"repost-bot/command"
	"repost-bot/database"
	"repost-bot/processor"
	"repost-bot/reconcile"
	"repost-bot/reply"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

// Pipeline is the message processing the handlers drive.
type Pipeline interface {
	Process(ctx context.Context, msg *discordgo.Message, mode processor.Mode) (*reply.Reply, error)
	ProcessUpdate(ctx context.Context, msg *discordgo.Message) (*reply.Reply, error)
	RecordNickname(ctx context.Context, msg *discordgo.Message) error
	RecordMember(ctx context.Context, m *discordgo.Member) error
}

type Sender interface {
	Send(ctx context.Context, r reply.Reply) error
}

// Loops starts a server's reconciliation loop at most once.
type Loops interface {
	Start(ctx context.Context, server uint64) bool
}

type Executor interface {
	Execute(ctx context.Context, inv command.Invocation) (string, error)
}

// Deps are the collaborators of Handler. History and Connected are optional.
type Deps struct {
	Store     database.MutableStore
	Cache     *cache.Metadata
	Pipeline  Pipeline
	Sender    Sender
	Commands  Executor
	Loops     Loops
	History   reconcile.History
	Connected func(bool)
}

// Handler turns gateway events into ledger updates. ctx bounds the
// background work it starts.
type Handler struct {
	ctx       context.Context
	store     database.MutableStore
	cache     *cache.Metadata
	pipeline  Pipeline
	sender    Sender
	commands  Executor
	loops     Loops
	history   reconcile.History
	connected func(bool)
	log       zerolog.Logger
}

func New(ctx context.Context, d Deps, logger zerolog.Logger) *Handler {
	h := &Handler{
		ctx:       ctx,
		store:     d.Store,
		cache:     d.Cache,
		pipeline:  d.Pipeline,
		sender:    d.Sender,
		commands:  d.Commands,
		loops:     d.Loops,
		history:   d.History,
		connected: d.Connected,
		log:       logger.With().Str("component", "handlers").Logger(),
	}
	if h.connected == nil {
		h.connected = func(bool) {}
	}
	return h
}

// Register all handlers to the bot.
func Register(b *bot.Bot, h *Handler) {
	if h.history == nil {
		h.history = b.Session
	}

	b.Session.AddHandler(h.Ready)
	b.Session.AddHandler(h.Resumed)
	b.Session.AddHandler(h.Disconnect)
	b.Session.AddHandler(h.GuildCreate)
	b.Session.AddHandler(h.MessageCreate)
	b.Session.AddHandler(h.MessageUpdate)
	b.Session.AddHandler(h.MessageDelete)
	b.Session.AddHandler(h.MessageDeleteBulk)
	b.Session.AddHandler(h.ChannelCreate)
	b.Session.AddHandler(h.ChannelUpdate)
	b.Session.AddHandler(h.ChannelDelete)
	b.Session.AddHandler(h.MemberUpdate)
	b.Session.AddHandler(h.InteractionCreate)
}
