package handlers

import (
	"context"
	"errors"
	"testing"

	"repost-bot/cache"
	"repost-bot/command"
	"repost-bot/database"
	"repost-bot/errs"
	"repost-bot/models"
	"repost-bot/processor"
	"repost-bot/reply"
	"repost-bot/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	botID    = "1"
	guildID  = "10"
	textID   = "20"
	voiceID  = "21"
	hiddenID = "22"
)

type fakePipeline struct {
	processed []string
	updated   []string
	nicknames []string
	members   []string
	reply     *reply.Reply
	err       error
}

func (f *fakePipeline) Process(_ context.Context, msg *discordgo.Message, mode processor.Mode) (*reply.Reply, error) {
	f.processed = append(f.processed, msg.ID+"/"+mode.String())
	return f.reply, f.err
}

func (f *fakePipeline) ProcessUpdate(_ context.Context, msg *discordgo.Message) (*reply.Reply, error) {
	f.updated = append(f.updated, msg.ID)
	return f.reply, f.err
}

func (f *fakePipeline) RecordNickname(_ context.Context, msg *discordgo.Message) error {
	f.nicknames = append(f.nicknames, msg.ID)
	return nil
}

func (f *fakePipeline) RecordMember(_ context.Context, m *discordgo.Member) error {
	f.members = append(f.members, m.User.ID)
	return nil
}

type fakeSender struct {
	sent []reply.Reply
}

func (f *fakeSender) Send(_ context.Context, r reply.Reply) error {
	f.sent = append(f.sent, r)
	return nil
}

type fakeLoops struct {
	started map[uint64]int
}

func (f *fakeLoops) Start(_ context.Context, server uint64) bool {
	f.started[server]++
	return f.started[server] == 1
}

type fakeHistory struct {
	latest map[string]*discordgo.Message
	calls  []string
}

func (f *fakeHistory) ChannelMessages(channelID string, limit int, _, _, _ string, _ ...discordgo.RequestOption) ([]*discordgo.Message, error) {
	f.calls = append(f.calls, channelID)
	if m, ok := f.latest[channelID]; ok && limit > 0 {
		return []*discordgo.Message{m}, nil
	}
	return nil, nil
}

type fixture struct {
	db       *database.DB
	cache    *cache.Metadata
	pipeline *fakePipeline
	sender   *fakeSender
	loops    *fakeLoops
	history  *fakeHistory
	h        *Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.InitDB(context.Background(), database.MemoryPath, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{
		db:       db,
		cache:    cache.New(),
		pipeline: &fakePipeline{},
		sender:   &fakeSender{},
		loops:    &fakeLoops{started: map[uint64]int{}},
		history:  &fakeHistory{latest: map[string]*discordgo.Message{}},
	}
	f.h = New(context.Background(), Deps{
		Store:    db,
		Cache:    f.cache,
		Pipeline: f.pipeline,
		Sender:   f.sender,
		Loops:    f.loops,
		History:  f.history,
	}, zerolog.Nop())
	return f
}

// stateSession returns a session whose state lets the bot read every
// channel of guildID except hiddenID.
func stateSession(t *testing.T, channels []*discordgo.Channel) *discordgo.Session {
	t.Helper()
	st := discordgo.NewState()
	st.User = &discordgo.User{ID: botID}
	require.NoError(t, st.GuildAdd(&discordgo.Guild{
		ID:      guildID,
		OwnerID: "99",
		Roles:   []*discordgo.Role{{ID: guildID, Permissions: utils.ReadHistory}},
		Members: []*discordgo.Member{{User: &discordgo.User{ID: botID}, GuildID: guildID}},
	}))
	for _, ch := range channels {
		c := *ch
		c.GuildID = guildID
		if c.ID == hiddenID {
			c.PermissionOverwrites = []*discordgo.PermissionOverwrite{{
				ID:   guildID,
				Type: discordgo.PermissionOverwriteTypeRole,
				Deny: discordgo.PermissionViewChannel,
			}}
		}
		require.NoError(t, st.ChannelAdd(&c))
	}
	return &discordgo.Session{State: st}
}

func TestMessageCreateSendsReply(t *testing.T) {
	f := newFixture(t)
	r := reply.ToID("100", textID, "🚨 LINK 🚨 REPOST 🚨")
	f.pipeline.reply = &r

	f.h.MessageCreate(nil, &discordgo.MessageCreate{Message: &discordgo.Message{
		ID: "100", ChannelID: textID, GuildID: guildID, Author: &discordgo.User{ID: "30"},
	}})

	assert.Equal(t, []string{"100/live"}, f.pipeline.processed)
	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, r, f.sender.sent[0])
	assert.Equal(t, []string{"100"}, f.pipeline.nicknames)
}

func TestMessageCreateSkipsOwnAndRejected(t *testing.T) {
	f := newFixture(t)
	s := &discordgo.Session{State: discordgo.NewState()}
	s.State.User = &discordgo.User{ID: botID}

	f.h.MessageCreate(s, &discordgo.MessageCreate{Message: &discordgo.Message{
		ID: "100", ChannelID: textID, Author: &discordgo.User{ID: botID},
	}})
	assert.Empty(t, f.pipeline.processed)

	f.pipeline.err = errs.ErrBotMessage
	f.h.MessageCreate(s, &discordgo.MessageCreate{Message: &discordgo.Message{
		ID: "101", ChannelID: textID, Author: &discordgo.User{ID: "2", Bot: true},
	}})
	assert.Equal(t, []string{"101/live"}, f.pipeline.processed)
	assert.Empty(t, f.sender.sent)
	assert.Empty(t, f.pipeline.nicknames)
}

func TestMessageUpdateSendsReply(t *testing.T) {
	f := newFixture(t)
	r := reply.ToID("100", textID, "🚨 IMAGE 🚨 REPOST 🚨")
	f.pipeline.reply = &r

	f.h.MessageUpdate(nil, &discordgo.MessageUpdate{Message: &discordgo.Message{ID: "100", ChannelID: textID}})
	assert.Equal(t, []string{"100"}, f.pipeline.updated)
	assert.Len(t, f.sender.sent, 1)

	f.pipeline.err = errors.New("boom")
	f.h.MessageUpdate(nil, &discordgo.MessageUpdate{Message: &discordgo.Message{ID: "101", ChannelID: textID}})
	assert.Len(t, f.sender.sent, 1)
}

func TestMessageDeleteRemovesRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.db.UpsertServer(ctx, 10, "test"))
	require.NoError(t, f.db.UpsertChannel(ctx, models.Channel{ID: 20, ServerID: 10, Name: "general", Visible: true}))
	for _, id := range []uint64{100, 101, 102} {
		_, err := f.db.UpsertMessage(ctx, id, 20, 10, nil)
		require.NoError(t, err)
	}

	f.h.MessageDelete(nil, &discordgo.MessageDelete{Message: &discordgo.Message{ID: "100"}})
	f.h.MessageDeleteBulk(nil, &discordgo.MessageDeleteBulk{Messages: []string{"101", "102", "bogus"}})

	for _, id := range []uint64{100, 101, 102} {
		msg, err := f.db.GetMessage(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, msg, "message %d", id)
	}
}

func TestChannelEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.h.ChannelCreate(nil, &discordgo.ChannelCreate{Channel: &discordgo.Channel{
		ID: textID, GuildID: guildID, Name: "general", Type: discordgo.ChannelTypeGuildText,
	}})
	f.h.ChannelCreate(nil, &discordgo.ChannelCreate{Channel: &discordgo.Channel{
		ID: voiceID, GuildID: guildID, Name: "voice", Type: discordgo.ChannelTypeGuildVoice,
	}})

	chans, err := f.db.Channels(ctx, 10)
	require.NoError(t, err)
	require.Len(t, chans, 1)
	assert.Equal(t, models.Channel{ID: 20, ServerID: 10, Name: "general", Visible: false}, chans[0])

	f.cache.Mark(cache.Channel, 20)
	f.h.ChannelDelete(nil, &discordgo.ChannelDelete{Channel: &discordgo.Channel{ID: textID, GuildID: guildID}})
	chans, err = f.db.Channels(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, chans)
	assert.True(t, f.cache.ShouldWrite(cache.Channel, 20))
}

func TestGuildCreateSyncsChannels(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.db.UpsertServer(ctx, 10, "old name"))
	require.NoError(t, f.db.UpsertChannel(ctx, models.Channel{ID: 23, ServerID: 10, Name: "gone", Visible: true}))

	f.history.latest[textID] = &discordgo.Message{ID: "500", ChannelID: textID, Author: &discordgo.User{ID: "30"}}
	channels := []*discordgo.Channel{
		{ID: textID, Name: "general", Type: discordgo.ChannelTypeGuildText},
		{ID: voiceID, Name: "voice", Type: discordgo.ChannelTypeGuildVoice},
		{ID: hiddenID, Name: "secret", Type: discordgo.ChannelTypeGuildText},
	}
	s := stateSession(t, channels)

	g := &discordgo.GuildCreate{Guild: &discordgo.Guild{ID: guildID, Name: "test server", Channels: channels}}
	f.h.GuildCreate(s, g)
	f.h.GuildCreate(s, g)

	chans, err := f.db.Channels(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []models.Channel{
		{ID: 20, ServerID: 10, Name: "general", Visible: true},
		{ID: 22, ServerID: 10, Name: "secret", Visible: false},
		{ID: 23, ServerID: 10, Name: "gone", Visible: false},
	}, chans)

	msg, err := f.db.GetMessage(ctx, 500)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, uint64(20), msg.ChannelID)
	assert.False(t, msg.IsFullyProcessed())
	assert.Equal(t, []string{textID, textID}, f.history.calls)

	assert.Equal(t, 2, f.loops.started[10])
}

func TestGuildCreateKeepsThreadAndMissingChannelMessages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.db.UpsertServer(ctx, 10, "test"))
	require.NoError(t, f.db.UpsertChannel(ctx, models.Channel{ID: 30, ServerID: 10, Name: "thread", Visible: true}))
	require.NoError(t, f.db.UpsertChannel(ctx, models.Channel{ID: 31, ServerID: 10, Name: "archived", Visible: true}))
	for id, channel := range map[uint64]uint64{300: 30, 310: 31} {
		_, err := f.db.UpsertMessage(ctx, id, channel, 10, nil)
		require.NoError(t, err)
	}

	channels := []*discordgo.Channel{{ID: textID, Name: "general", Type: discordgo.ChannelTypeGuildText}}
	threads := []*discordgo.Channel{{ID: "30", Name: "thread", ParentID: textID, Type: discordgo.ChannelTypeGuildPublicThread}}
	s := stateSession(t, channels)

	g := &discordgo.GuildCreate{Guild: &discordgo.Guild{ID: guildID, Name: "test", Channels: channels, Threads: threads}}
	f.h.GuildCreate(s, g)
	f.h.GuildCreate(s, g)

	for _, id := range []uint64{300, 310} {
		msg, err := f.db.GetMessage(ctx, id)
		require.NoError(t, err)
		assert.NotNil(t, msg, "message %d", id)
	}

	chans, err := f.db.Channels(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []models.Channel{
		{ID: 20, ServerID: 10, Name: "general", Visible: true},
		{ID: 30, ServerID: 10, Name: "thread", Visible: true},
		{ID: 31, ServerID: 10, Name: "archived", Visible: false},
	}, chans)
}

func TestGuildCreateIgnoresBotLatestAndUnavailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.history.latest[textID] = &discordgo.Message{ID: "500", ChannelID: textID, Author: &discordgo.User{ID: "2", Bot: true}}
	channels := []*discordgo.Channel{{ID: textID, Name: "general", Type: discordgo.ChannelTypeGuildText}}

	f.h.GuildCreate(nil, &discordgo.GuildCreate{Guild: &discordgo.Guild{ID: guildID, Unavailable: true, Channels: channels}})
	assert.Empty(t, f.loops.started)

	f.h.GuildCreate(stateSession(t, channels), &discordgo.GuildCreate{Guild: &discordgo.Guild{ID: guildID, Name: "test", Channels: channels}})
	msg, err := f.db.GetMessage(ctx, 500)
	require.NoError(t, err)
	assert.Nil(t, msg)
	assert.Equal(t, 1, f.loops.started[10])
}

func TestMemberUpdateRecordsMember(t *testing.T) {
	f := newFixture(t)
	f.h.MemberUpdate(nil, &discordgo.GuildMemberUpdate{Member: &discordgo.Member{
		GuildID: guildID, User: &discordgo.User{ID: "30"}, Nick: "nick",
	}})
	assert.Equal(t, []string{"30"}, f.pipeline.members)
}

func TestConnectionState(t *testing.T) {
	f := newFixture(t)
	var states []bool
	f.h.connected = func(up bool) { states = append(states, up) }

	f.h.Ready(nil, &discordgo.Ready{User: &discordgo.User{Username: "repost"}})
	f.h.Disconnect(nil, &discordgo.Disconnect{})
	f.h.Resumed(nil, &discordgo.Resumed{})
	assert.Equal(t, []bool{true, false, true}, states)
}

func TestEphemeralResponses(t *testing.T) {
	assert.True(t, command.Ephemeral("Unrecognized command"))
	assert.False(t, command.Ephemeral("Pong!"))
}
