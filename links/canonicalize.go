// Package links extracts links from message text and reduces them to a
// canonical form so that equivalent links compare equal as strings.
package links

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"repost-bot/errs"

	"golang.org/x/net/idna"
)

// trackingFields are stripped from every host.
var trackingFields = setOf(
	// Urchin Tracking Module
	"utm_source", "utm_medium", "utm_term", "utm_campaign", "utm_content",
	"utm_name", "utm_cid", "utm_reader", "utm_viz_id", "utm_pubreferrer", "utm_swu",
	// Mailchimp
	"mc_cid", "mc_eid",
	// comScore
	"ns_source", "ns_mchannel", "ns_campaign", "ns_linkname", "ns_fee",
	"sr_share",
	"fbclid",
	"igshid",
	"srcid",
	"gclid",
	"ocid",
	"ncid",
	"nr_email_referer",
	"ref",
	"spm",
)

var (
	twitterFields = setOf("s", "t")
	youtubeFields = setOf("feature", "t")
)

// hostFields maps a (lower-case, post-rewrite) host to the extra fields
// stripped for it.
var hostFields = map[string]map[string]struct{}{
	"twitter":         twitterFields,
	"twitter.com":     twitterFields,
	"x":               twitterFields,
	"x.com":           twitterFields,
	"youtube":         youtubeFields,
	"youtube.com":     youtubeFields,
	"www.youtube.com": youtubeFields,
	"m.youtube.com":   youtubeFields,
}

// twitterAliases are rewritten to twitter.com with a lower-cased path.
var twitterAliases = setOf(
	"twitter.com", "www.twitter.com", "mobile.twitter.com",
	"x.com", "www.x.com", "mobile.x.com",
)

func setOf(items ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}

// Canonicalize normalises raw so that links a person would call the same
// produce the same string. It is deterministic and idempotent.
func Canonicalize(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", errs.E(errs.Decode, "canonicalize", err)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", errs.E(errs.Decode, "canonicalize", fmt.Errorf("unsupported scheme in %q", raw))
	}
	if u.Hostname() == "" {
		return "", errs.E(errs.Decode, "canonicalize", fmt.Errorf("missing host in %q", raw))
	}
	normaliseHost(u)

	rewrite(u)
	filterQuery(u)

	if u.Path == "" && u.Opaque == "" {
		u.Path = "/"
		u.RawPath = ""
	}
	return u.String(), nil
}

// normaliseHost lower-cases and punycodes the host and drops a default port.
func normaliseHost(u *url.URL) {
	host, port := u.Hostname(), u.Port()
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		// idna rejects some hosts browsers accept, such as underscores
		ascii = strings.ToLower(host)
	}
	if (u.Scheme == "https" && port == "443") || (u.Scheme == "http" && port == "80") {
		port = ""
	}
	if port != "" {
		u.Host = net.JoinHostPort(ascii, port)
	} else if strings.Contains(ascii, ":") {
		u.Host = "[" + ascii + "]"
	} else {
		u.Host = ascii
	}
}

// rewrite maps short-link and alias hosts onto their canonical host.
func rewrite(u *url.URL) {
	host := u.Hostname()
	switch {
	case host == "youtu.be":
		if len(u.Path) > 1 {
			id := u.Path[1:]
			*u = url.URL{
				Scheme:   "https",
				Host:     "www.youtube.com",
				Path:     "/watch",
				RawQuery: "v=" + url.QueryEscape(id),
			}
		}
	case inSet(twitterAliases, host):
		u.Host = "twitter.com"
		u.Path = asciiLower(u.Path)
		u.RawPath = ""
	}
}

// filterQuery removes tracking fields, keeping the order of the rest.
// An emptied query loses its '?'.
func filterQuery(u *url.URL) {
	u.ForceQuery = false
	if u.RawQuery == "" {
		return
	}
	extra := hostFields[u.Hostname()]

	var kept []string
	for _, pair := range strings.Split(u.RawQuery, "&") {
		if pair == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			key = rawKey
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			value = rawValue
		}
		if inSet(trackingFields, key) || inSet(extra, key) {
			continue
		}
		kept = append(kept, url.QueryEscape(key)+"="+url.QueryEscape(value))
	}
	u.RawQuery = strings.Join(kept, "&")
}

func inSet(set map[string]struct{}, s string) bool {
	_, ok := set[s]
	return ok
}

// asciiLower folds A-Z only; other letters keep their case.
func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}
