package processor

import (
	"context"
	"strings"

	"repost-bot/models"
	"repost-bot/observability"
	"repost-bot/repost"

	"github.com/bwmarrin/discordgo"
)

// imageSource is one image worth fingerprinting. url identifies the image in
// the index; fetchURL is where the bytes are downloaded from.
type imageSource struct {
	url      string
	fetchURL string
	kind     string
}

func (p *Processor) imageSources(attachments []*discordgo.MessageAttachment, embeds []*discordgo.MessageEmbed) []imageSource {
	var out []imageSource
	for _, a := range attachments {
		if a == nil || !strings.HasPrefix(a.ContentType, "image") {
			continue
		}
		out = append(out, imageSource{url: a.URL, fetchURL: a.URL, kind: "attachment"})
	}

	for _, e := range embeds {
		if e == nil {
			continue
		}
		if e.Provider != nil {
			if _, ignored := p.providers[e.Provider.Name]; ignored {
				p.log.Debug().Str("provider", e.Provider.Name).Msg("skipping embed from ignored provider")
				continue
			}
		}
		var url, proxy string
		switch {
		case e.Image != nil && e.Image.URL != "":
			url, proxy = e.Image.URL, e.Image.ProxyURL
		case e.Thumbnail != nil && e.Thumbnail.URL != "":
			url, proxy = e.Thumbnail.URL, e.Thumbnail.ProxyURL
		default:
			continue
		}
		fetchURL := proxy
		if fetchURL == "" {
			fetchURL = url
		}
		out = append(out, imageSource{url: url, fetchURL: fetchURL, kind: "embed"})
	}
	return out
}

// processImages fingerprints every image of m, recording each one. Earlier
// messages with a matching image are returned when query is set. The set
// holds whatever was found before an error.
func (p *Processor) processImages(ctx context.Context, m *models.Message, attachments []*discordgo.MessageAttachment, embeds []*discordgo.MessageEmbed, query bool) (*repost.Set, error) {
	set := repost.NewSet()
	for _, src := range p.imageSources(attachments, embeds) {
		body, err := p.fetcher.Get(ctx, src.fetchURL, src.kind)
		if err != nil {
			return set, err
		}
		if body == nil {
			p.log.Info().Uint64("message", m.ID).Str("url", src.fetchURL).Msg("no image data, skipping")
			continue
		}
		fp, err := p.images.Fingerprint(body)
		if err != nil {
			return set, err
		}
		if fp == nil {
			continue
		}

		if query {
			matches, err := p.images.FindMatches(ctx, *fp, m.ServerID, m.ID)
			if err != nil {
				return set, err
			}
			for _, match := range matches {
				set.Add(match.Message, repost.Image)
				observability.RepostsDetected.WithLabelValues(repost.Image.Long()).Inc()
			}
		}

		if err := p.images.Record(ctx, src.url, *fp, m.ID); err != nil {
			return set, err
		}
	}
	return set, nil
}
