package social

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/walletfeed/wallet-feed/internal/domain"
)

// provider describes one known social profile URL shape.
type provider struct {
	key     string
	aliases []string
	pattern *regexp.Regexp
	profile func(username string) string
}

var providers = []provider{
	{
		key:     "x",
		aliases: []string{"x", "twitter"},
		pattern: regexp.MustCompile(`^(?:https?://)?(?:www\.)?(?:x|twitter)\.com/([A-Za-z0-9_]+)/?$`),
		profile: func(u string) string { return "https://x.com/" + u },
	},
	{
		key:     "ig",
		aliases: []string{"ig", "instagram"},
		pattern: regexp.MustCompile(`^(?:https?://)?(?:www\.)?instagram\.com/([A-Za-z0-9_.]+)/?$`),
		profile: func(u string) string { return "https://instagram.com/" + u + "/" },
	},
	{
		key:     "tg",
		aliases: []string{"tg", "telegram"},
		pattern: regexp.MustCompile(`^(?:https?://)?(?:www\.)?t\.me/([A-Za-z0-9_]+)/?$`),
		profile: func(u string) string { return "https://t.me/" + u },
	},
}

// usernamePattern accepts a bare username when a provider hint is given.
var usernamePattern = regexp.MustCompile(`^@?([A-Za-z0-9_.]+)$`)

// Parser matches profile URLs against the known provider patterns. It
// implements domain.SocialParser.
type Parser struct{}

// NewParser creates a Parser.
func NewParser() *Parser { return &Parser{} }

// Parse extracts the provider and username from raw. raw may be a full
// profile URL for any known provider, or, when hint names a provider, a
// bare username from which the canonical URL is built. Returns
// domain.ErrUnknownProvider when nothing matches.
func (p *Parser) Parse(raw, hint string) (*domain.SocialLink, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty input: %w", domain.ErrUnknownProvider)
	}

	for _, prov := range providers {
		if m := prov.pattern.FindStringSubmatch(raw); m != nil {
			return &domain.SocialLink{
				Type:     prov.key,
				Username: m[1],
				URL:      prov.profile(m[1]),
			}, nil
		}
	}

	// Bare username with an explicit provider hint.
	if hint != "" && hint != "all" {
		if m := usernamePattern.FindStringSubmatch(raw); m != nil {
			for _, prov := range providers {
				for _, alias := range prov.aliases {
					if strings.EqualFold(hint, alias) {
						return &domain.SocialLink{
							Type:     prov.key,
							Username: m[1],
							URL:      prov.profile(m[1]),
						}, nil
					}
				}
			}
		}
	}

	return nil, fmt.Errorf("%q: %w", raw, domain.ErrUnknownProvider)
}
