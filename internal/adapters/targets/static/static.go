// Package static serves a fixed target list taken from configuration.
package static

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/vshulcz/Viewpulse/internal/domain"
	"github.com/vshulcz/Viewpulse/internal/ports"
)

const viewURL = "https://api.bilibili.com/x/web-interface/view?bvid="

var bvidParam = regexp.MustCompile(`bvid=([^&#]+)`)

// Source returns the same targets every cycle.
type Source struct {
	targets []domain.Target
}

var _ ports.TargetSource = (*Source)(nil)

// New accepts bare BV ids or URLs that carry a bvid query parameter.
// Entries that yield no id are dropped; duplicates collapse to one target.
func New(entries []string) *Source {
	seen := make(map[string]struct{}, len(entries))
	targets := make([]domain.Target, 0, len(entries))
	for _, e := range entries {
		id := ExtractBVID(e)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		targets = append(targets, domain.Target{ID: id, Params: viewURL + url.QueryEscape(id)})
	}
	return &Source{targets: targets}
}

// Load returns a copy so callers cannot mutate the table.
func (s *Source) Load(context.Context) ([]domain.Target, error) {
	return append([]domain.Target(nil), s.targets...), nil
}

// ExtractBVID returns the bvid query value of a URL, or s itself when it is
// not a URL. It returns "" when a URL has no bvid.
func ExtractBVID(s string) string {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "://") && !strings.Contains(s, "?") {
		return s
	}
	m := bvidParam.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	if v, err := url.QueryUnescape(m[1]); err == nil {
		return v
	}
	return m[1]
}
