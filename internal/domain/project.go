package domain

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// ActionType classifies a feed action.
type ActionType string

const (
	ActionNewUser  ActionType = "new_user"
	ActionTag      ActionType = "tag"
	ActionMultiTag ActionType = "multi_tag"
	ActionLink     ActionType = "link"
	ActionLocation ActionType = "location"
)

// Authorship marks how an action relates to the viewing wallet.
type Authorship string

const (
	AuthorshipSelf  Authorship = "self"
	AuthorshipOther Authorship = "other"
	AuthorshipNone  Authorship = "none"
)

// absoluteLayout is the fixed absolute display format: comma-free, single
// space before the meridiem.
const absoluteLayout = "01/02/2006 03:04 PM"

// ActionAddress is the compact location attached to an action.
type ActionAddress struct {
	Short string `json:"short"`
	Road  string `json:"road"`
}

// Action is a single rendered feed entry derived from one Message. Actions
// are recomputed per request and never persisted.
//
// Payload is keyed by Type: the tag name for tag/new_user/multi_tag, the
// URL for link, the road for location. Count is set only for multi_tag.
type Action struct {
	Type       ActionType    `json:"type"`
	From       string        `json:"from"`
	To         string        `json:"to"`
	FromShort  string        `json:"fromShort"`
	ToShort    string        `json:"toShort"`
	Payload    string        `json:"payload"`
	Count      int           `json:"count,omitempty"`
	Timestamp  string        `json:"timestamp"`
	Absolute   string        `json:"absolute"`
	Relative   string        `json:"relative"`
	Address    ActionAddress `json:"address"`
	Authorship Authorship    `json:"authorship"`
}

// linkMarker is the substring that identifies a link-bearing message. Link
// messages bypass the duplicate check and project as link actions.
const linkMarker = "https://"

// Project maps one Message to its Action. A message contributes an action
// only if it carries both a mention and a hashtag; anything else is dropped
// from the feed, which is a filtering rule rather than an error. viewer is
// the viewing wallet's key, or empty when nobody is signed in.
func Project(msg Message, viewer string) (Action, bool) {
	if len(msg.Mentions) == 0 || len(msg.Hashtags) == 0 {
		return Action{}, false
	}

	from := msg.Mentions[0]
	to := msg.Username

	a := Action{
		From:       from,
		To:         to,
		FromShort:  ShortKey(from),
		ToShort:    ShortKey(to),
		Timestamp:  msg.Timestamp,
		Address:    parseActionAddress(msg.Address),
		Authorship: classify(viewer, from),
	}

	if t, err := time.Parse(time.RFC3339, msg.Timestamp); err == nil {
		a.Absolute = t.UTC().Format(absoluteLayout)
		a.Relative = humanize.Time(t)
	}

	tag := msg.Hashtags[0]
	switch {
	case tag == "new_user":
		a.Type = ActionNewUser
		a.Payload = tag
	case strings.Contains(msg.Text, linkMarker):
		a.Type = ActionLink
		a.Payload = extractURL(msg.Text)
	case msg.Latitude != nil && msg.Longitude != nil:
		a.Type = ActionLocation
		a.Payload = a.Address.Road
	case countTag(msg.Hashtags, tag) > 1:
		a.Type = ActionMultiTag
		a.Payload = tag
		a.Count = countTag(msg.Hashtags, tag)
	default:
		a.Type = ActionTag
		a.Payload = tag
	}

	return a, true
}

// ProjectAll projects every message that survives the drop rule, preserving
// input order.
func ProjectAll(msgs []Message, viewer string) []Action {
	actions := make([]Action, 0, len(msgs))
	for _, m := range msgs {
		if a, ok := Project(m, viewer); ok {
			actions = append(actions, a)
		}
	}
	return actions
}

func classify(viewer, from string) Authorship {
	switch {
	case viewer == "":
		return AuthorshipNone
	case viewer == from:
		return AuthorshipSelf
	default:
		return AuthorshipOther
	}
}

func countTag(tags []string, tag string) int {
	n := 0
	for _, t := range tags {
		if t == tag {
			n++
		}
	}
	return n
}

// extractURL returns the first https:// substring of text, up to the next
// whitespace.
func extractURL(text string) string {
	i := strings.Index(text, linkMarker)
	if i < 0 {
		return ""
	}
	rest := text[i:]
	if j := strings.IndexAny(rest, " \t\n"); j >= 0 {
		rest = rest[:j]
	}
	return rest
}

// parseActionAddress splits a stored address string into its compact form.
// Short is the leading "house road" segment; Road is the road name alone.
func parseActionAddress(addr string) ActionAddress {
	if addr == "" || addr == NoLocation {
		return ActionAddress{}
	}
	short, _, _ := strings.Cut(addr, ",")
	short = strings.TrimSpace(short)
	road := strings.TrimLeft(short, "0123456789")
	return ActionAddress{
		Short: short,
		Road:  strings.TrimSpace(road),
	}
}
