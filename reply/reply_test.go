package reply

import (
	"context"
	"net/http"
	"testing"

	"repost-bot/models"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type edit struct{ channel, message, content string }

type fakeSession struct {
	plain   []string
	complex []*discordgo.MessageSend
	edits   []edit
	editErr error
	nextID  string
}

func (f *fakeSession) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.plain = append(f.plain, channelID+":"+content)
	return &discordgo.Message{ID: f.nextID, ChannelID: channelID}, nil
}

func (f *fakeSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.complex = append(f.complex, data)
	return &discordgo.Message{ID: f.nextID, ChannelID: channelID}, nil
}

func (f *fakeSession) ChannelMessageEdit(channelID, messageID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	if f.editErr != nil {
		return nil, f.editErr
	}
	f.edits = append(f.edits, edit{channelID, messageID, content})
	return &discordgo.Message{ID: messageID, ChannelID: channelID}, nil
}

type memStore struct {
	replies map[uint64]models.StoredReply
}

func (m *memStore) GetReply(_ context.Context, repliedTo uint64) (*models.StoredReply, error) {
	r, ok := m.replies[repliedTo]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *memStore) AddReply(_ context.Context, r models.StoredReply) error {
	m.replies[r.RepliedTo] = r
	return nil
}

func newSender() (*Sender, *fakeSession, *memStore) {
	session := &fakeSession{nextID: "900"}
	store := &memStore{replies: map[uint64]models.StoredReply{}}
	return NewSender(session, store, zerolog.Nop()), session, store
}

func TestSendToChannel(t *testing.T) {
	s, session, store := newSender()
	require.NoError(t, s.Send(context.Background(), InChannel("5", "hello")))
	assert.Equal(t, []string{"5:hello"}, session.plain)
	assert.Empty(t, store.replies)
}

func TestSendReplyThenEdit(t *testing.T) {
	s, session, store := newSender()
	ctx := context.Background()
	src := &discordgo.Message{ID: "100", ChannelID: "5", GuildID: "1"}

	require.NoError(t, s.Send(ctx, To(src, "first")))
	require.Len(t, session.complex, 1)
	sent := session.complex[0]
	assert.Equal(t, "first", sent.Content)
	assert.Equal(t, "100", sent.Reference.MessageID)
	assert.False(t, sent.AllowedMentions.RepliedUser)
	assert.Equal(t, models.StoredReply{ID: 900, ChannelID: 5, RepliedTo: 100}, store.replies[100])

	require.NoError(t, s.Send(ctx, ToID("100", "5", "second")))
	assert.Len(t, session.complex, 1)
	assert.Equal(t, []edit{{"5", "900", "second"}}, session.edits)
}

func TestSendReplacesDeletedNotice(t *testing.T) {
	s, session, store := newSender()
	store.replies[100] = models.StoredReply{ID: 800, ChannelID: 5, RepliedTo: 100}
	session.editErr = &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusNotFound}}

	require.NoError(t, s.Send(context.Background(), ToID("100", "5", "again")))
	assert.Len(t, session.complex, 1)
	assert.Equal(t, uint64(900), store.replies[100].ID)
}

func TestSendRejectsBadID(t *testing.T) {
	s, _, _ := newSender()
	assert.Error(t, s.Send(context.Background(), ToID("abc", "5", "x")))
}
