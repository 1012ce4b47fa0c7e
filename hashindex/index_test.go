package hashindex

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"repost-bot/database"
	"repost-bot/errs"
	"repost-bot/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	server  uint64 = 1
	channel uint64 = 2
)

func snowflake(t time.Time) uint64 {
	return uint64(t.UnixMilli()-1420070400000) << 22
}

func newIndex(t *testing.T) (*Index, *database.DB) {
	t.Helper()
	ctx := context.Background()
	db, err := database.InitDB(ctx, database.MemoryPath, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.UpsertServer(ctx, server, "s"))
	require.NoError(t, db.UpsertChannel(ctx, models.Channel{ID: channel, ServerID: server, Visible: true}))
	return New(db, zerolog.Nop()), db
}

func store(t *testing.T, ix *Index, db *database.DB, at time.Time, url string, fp Fingerprint) uint64 {
	t.Helper()
	id := snowflake(at)
	_, err := db.UpsertMessage(context.Background(), id, channel, server, nil)
	require.NoError(t, err)
	require.NoError(t, ix.Record(context.Background(), url, fp, id))
	return id
}

func TestFindMatchesBlocking(t *testing.T) {
	ix, db := newIndex(t)
	ctx := context.Background()
	base := FromImage(testImage(64, 64))
	start := time.Now().Add(-time.Hour)

	// bytes 0-5 make up the first blocking key, 6-11 the second, 30-31 none
	oneBlock := store(t, ix, db, start, "https://cdn/one-block", flip(base, 0, 2))
	tail := store(t, ix, db, start.Add(time.Second), "https://cdn/tail", flip(base, 31, 3))
	store(t, ix, db, start.Add(2*time.Second), "https://cdn/two-blocks", flip(flip(base, 0, 3), 6, 3))
	store(t, ix, db, start.Add(3*time.Second), "https://cdn/far", flip(base, 0, 6))

	current := snowflake(time.Now())
	_, err := db.UpsertMessage(ctx, current, channel, server, nil)
	require.NoError(t, err)

	matches, err := ix.FindMatches(ctx, base, server, current)
	require.NoError(t, err)

	got := map[uint64]int{}
	for _, m := range matches {
		got[m.Message.ID] = m.Distance
	}
	assert.Equal(t, map[uint64]int{oneBlock: 2, tail: 3}, got)
}

func TestFindMatchesExcludesCurrentMessage(t *testing.T) {
	ix, db := newIndex(t)
	fp := FromImage(testImage(32, 32))
	id := store(t, ix, db, time.Now(), "https://cdn/a", fp)

	matches, err := ix.FindMatches(context.Background(), fp, server, id)
	require.NoError(t, err)
	assert.Empty(t, matches)

	matches, err = ix.FindMatches(context.Background(), fp, server, id+1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 0, matches[0].Distance)
}

func TestIndexFingerprint(t *testing.T) {
	ix, _ := newIndex(t)

	fp, err := ix.Fingerprint(bytes.NewReader(encode(t, testImage(40, 40), pngEncode)))
	require.NoError(t, err)
	assert.NotNil(t, fp)

	fp, err = ix.Fingerprint(bytes.NewReader([]byte("garbage")))
	require.NoError(t, err)
	assert.Nil(t, fp)

	fp, err = ix.Fingerprint(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Nil(t, fp)

	_, err = ix.Fingerprint(failingReader{})
	assert.True(t, errs.Is(err, errs.Transient))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }
