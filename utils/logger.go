package utils

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

const (
	ColorInfo  = 0x00ff00 // Green
	ColorWarn  = 0xffff00 // Yellow
	ColorError = 0xff0000 // Red
)

// NewLogger builds the root logger. Unknown levels fall back to info.
func NewLogger(level string, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stderr
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).
		Level(lvl).
		With().Timestamp().
		Logger()
}

// EmbedSender is the part of *discordgo.Session the admin hook needs.
type EmbedSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// AdminHook mirrors warnings and errors to the admin channel as embeds.
// Sending happens on a separate goroutine; entries are dropped when the
// queue is full.
type AdminHook struct {
	sender    EmbedSender
	channelID string
	queue     chan *discordgo.MessageEmbed
	now       func() time.Time
}

func NewAdminHook(sender EmbedSender, channelID string) *AdminHook {
	return &AdminHook{
		sender:    sender,
		channelID: channelID,
		queue:     make(chan *discordgo.MessageEmbed, 32),
		now:       time.Now,
	}
}

// Run implements zerolog.Hook.
func (h *AdminHook) Run(_ *zerolog.Event, level zerolog.Level, msg string) {
	if h.channelID == "" || level < zerolog.WarnLevel || level > zerolog.PanicLevel {
		return
	}
	select {
	case h.queue <- h.embed(level, msg):
	default:
	}
}

func (h *AdminHook) embed(level zerolog.Level, msg string) *discordgo.MessageEmbed {
	color := ColorWarn
	if level >= zerolog.ErrorLevel {
		color = ColorError
	}
	return &discordgo.MessageEmbed{
		Title:     fmt.Sprintf("Log Level: %s", level),
		Color:     color,
		Timestamp: h.now().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:  "附加信息",
				Value: msg,
			},
		},
	}
}

// Deliver sends queued embeds until ctx is done.
func (h *AdminHook) Deliver(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case embed := <-h.queue:
			if _, err := h.sender.ChannelMessageSendEmbed(h.channelID, embed); err != nil {
				fmt.Fprintf(os.Stderr, "Error sending log message to Discord: %v\n", err)
			}
		}
	}
}
