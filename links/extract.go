package links

import (
	"fmt"
	"regexp"
	"strings"

	"mvdan.cc/xurls/v2"
)

// Extractor finds http and https links in free text, skipping ignored sites.
type Extractor struct {
	finder *regexp.Regexp
	ignore *regexp.Regexp
}

// NewExtractor compiles the ignore patterns. Each pattern is a regular
// expression matched against the host and path right after the scheme.
func NewExtractor(ignored []string) (*Extractor, error) {
	finder, err := xurls.StrictMatchingScheme(`https?://`)
	if err != nil {
		return nil, fmt.Errorf("failed to build link finder: %w", err)
	}
	e := &Extractor{finder: finder}
	if len(ignored) > 0 {
		ignore, err := regexp.Compile(`(?i)^https?://(` + strings.Join(ignored, "|") + `)(?:[/?#]|$)`)
		if err != nil {
			return nil, fmt.Errorf("invalid ignored link pattern: %w", err)
		}
		e.ignore = ignore
	}
	return e, nil
}

// Ignored reports whether link matches one of the ignore patterns.
func (e *Extractor) Ignored(link string) bool {
	return e.ignore != nil && e.ignore.MatchString(link)
}

// Extract returns the links in text in order of appearance.
func (e *Extractor) Extract(text string) []string {
	var out []string
	for _, link := range e.finder.FindAllString(text, -1) {
		if e.Ignored(link) {
			continue
		}
		out = append(out, link)
	}
	return out
}
