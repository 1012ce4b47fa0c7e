package hashindex

import (
	"context"
	"io"

	"repost-bot/database"
	"repost-bot/errs"
	"repost-bot/models"

	"github.com/rs/zerolog"
)

// Match is a stored image close to the queried fingerprint.
type Match struct {
	Message     *models.Message
	Fingerprint Fingerprint
	Distance    int
}

// Index answers approximate fingerprint queries against the store.
type Index struct {
	store database.MutableStore
	log   zerolog.Logger
}

func New(store database.MutableStore, logger zerolog.Logger) *Index {
	return &Index{store: store, log: logger.With().Str("component", "hashindex").Logger()}
}

// Fingerprint reads an encoded image from r. A read failure is returned as
// a transient error. Data that does not decode as an image is logged and
// yields nil so that callers simply skip it.
func (ix *Index) Fingerprint(r io.Reader) (*Fingerprint, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.E(errs.Transient, "read image", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	fp, err := FromBytes(data)
	if err != nil {
		ix.log.Debug().Err(err).Int("bytes", len(data)).Msg("skipping undecodable image")
		return nil, nil
	}
	return &fp, nil
}

// FindMatches returns prior images in server, other than those of exclude,
// whose fingerprint is within MatchThreshold of fp.
func (ix *Index) FindMatches(ctx context.Context, fp Fingerprint, server, exclude uint64) ([]Match, error) {
	encoded := fp.String()
	candidates, err := ix.store.ImageCandidates(ctx, encoded, fp.BlockingKeys(), server, exclude)
	if err != nil {
		return nil, err
	}

	var out []Match
	for _, c := range candidates {
		stored, err := Parse(c.Hash)
		if err != nil {
			ix.log.Warn().Err(err).Uint64("message", c.Message.ID).Msg("stored fingerprint is corrupt")
			continue
		}
		d := fp.Distance(stored)
		if d >= MatchThreshold {
			continue
		}
		out = append(out, Match{Message: c.Message, Fingerprint: stored, Distance: d})
	}
	ix.log.Debug().Str("hash", encoded).Int("candidates", len(candidates)).Int("matches", len(out)).Msg("fingerprint lookup")
	return out, nil
}

// Record stores fp for url and links it to message. A url seen before keeps
// its original fingerprint.
func (ix *Index) Record(ctx context.Context, url string, fp Fingerprint, message uint64) error {
	return ix.store.InsertImage(ctx, url, fp.String(), fp.BlockingKeys(), message)
}
