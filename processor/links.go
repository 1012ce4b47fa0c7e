package processor

import (
	"context"

	"repost-bot/links"
	"repost-bot/models"
	"repost-bot/observability"
	"repost-bot/repost"
)

// processLinks canonicalises every link in content and records it against m.
// Earlier messages in the same server sharing a link are returned when query
// is set. A link that fails to canonicalise is skipped.
func (p *Processor) processLinks(ctx context.Context, m *models.Message, content string, query bool) (*repost.Set, error) {
	set := repost.NewSet()
	for _, raw := range p.links.Extract(content) {
		link, err := links.Canonicalize(raw)
		if err != nil {
			p.log.Warn().Err(err).Str("link", raw).Msg("failed to canonicalise link")
			continue
		}

		if query {
			prior, err := p.store.QueryLinks(ctx, link, m.ServerID, m.ID)
			if err != nil {
				return set, err
			}
			for _, msg := range prior {
				set.Add(msg, repost.Link)
				observability.RepostsDetected.WithLabelValues(repost.Link.Long()).Inc()
			}
		}

		if err := p.store.InsertLink(ctx, link, m.ID); err != nil {
			return set, err
		}
	}
	if set.Len() > 0 {
		p.log.Info().Uint64("message", m.ID).Int("matches", set.Len()).Msg("link reposts found")
	}
	return set, nil
}
