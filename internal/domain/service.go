package domain

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FeedService is the core domain service. It owns the business logic for
// submitting messages, linking external profiles, projecting feeds, and
// ranking hashtags. Identity is passed explicitly into each operation; the
// service keeps no ambient session state.
type FeedService struct {
	messages MessageRepository
	links    LinkRepository
	geocoder Geocoder
	parser   SocialParser
	notifier *Notifier
	logger   *slog.Logger
}

// NewFeedService creates a FeedService over the given collaborators.
func NewFeedService(
	messages MessageRepository,
	links LinkRepository,
	geocoder Geocoder,
	parser SocialParser,
	logger *slog.Logger,
) *FeedService {
	return &FeedService{
		messages: messages,
		links:    links,
		geocoder: geocoder,
		parser:   parser,
		notifier: NewNotifier(),
		logger:   logger,
	}
}

// SubmitMessage validates, geocodes, and stores one message, then notifies
// watchers. Reverse geocoding is best-effort: on failure the message is
// stored with the NoLocation placeholder and the flow continues.
//
// The duplicate check and the insert are not atomic; a race between
// concurrent submitters can admit a duplicate, which is accepted.
func (s *FeedService) SubmitMessage(ctx context.Context, author, text string, coords *Coordinates) (*Message, error) {
	if !IsValidKey(author) {
		return nil, fmt.Errorf("author %q: %w", author, ErrInvalidKey)
	}

	address := NoLocation
	var lat, lon *float64
	if coords != nil {
		lat, lon = &coords.Latitude, &coords.Longitude
		loc, err := s.geocoder.ReverseGeocode(ctx, coords.Latitude, coords.Longitude)
		if err != nil {
			s.logger.Warn("reverse geocode failed", "error", err)
		} else {
			address = loc.Format()
		}
	}

	// Link-bearing messages bypass the duplicate check: duplicates of
	// links are permitted.
	if !strings.Contains(text, linkMarker) {
		dup, err := s.messages.HasDuplicate(ctx, author, text)
		if err != nil {
			return nil, fmt.Errorf("duplicate check: %w", err)
		}
		if dup {
			return nil, ErrDuplicate
		}
	}

	mentions, hashtags := Extract(text)

	msg := &Message{
		ID:        uuid.NewString(),
		Username:  author,
		Text:      text,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Address:   address,
		Latitude:  lat,
		Longitude: lon,
		Mentions:  mentions,
		Hashtags:  hashtags,
	}

	if err := s.messages.Insert(ctx, msg); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	s.logger.Info("message stored", "id", msg.ID, "author", ShortKey(author), "mentions", len(mentions), "hashtags", len(hashtags))
	s.notifier.NotifyMessage(msg)
	return msg, nil
}

// SubmitHashtag posts a "#tag @pageKey" message on behalf of author. The
// tag must be non-empty and contain no spaces.
func (s *FeedService) SubmitHashtag(ctx context.Context, author, pageKey, tag string, coords *Coordinates) (*Message, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" || strings.Contains(tag, " ") {
		return nil, fmt.Errorf("tag %q: %w", tag, ErrInvalidHashtag)
	}
	if !IsValidKey(pageKey) {
		return nil, fmt.Errorf("page key %q: %w", pageKey, ErrInvalidKey)
	}
	return s.SubmitMessage(ctx, author, "#"+tag+" @"+pageKey, coords)
}

// SubmitLink parses a profile URL, merge-writes it into pageKey's link
// document, and posts the "@username url" follow-up message. An unparseable
// URL aborts the operation with no partial write.
func (s *FeedService) SubmitLink(ctx context.Context, author, pageKey, rawURL, provider string, coords *Coordinates) (*Message, error) {
	if !IsValidKey(pageKey) {
		return nil, fmt.Errorf("page key %q: %w", pageKey, ErrInvalidKey)
	}

	social, err := s.parser.Parse(rawURL, provider)
	if err != nil {
		return nil, fmt.Errorf("parse profile url: %w", err)
	}

	link := Link{Username: social.Username, URL: social.URL}
	if err := s.links.MergeLink(ctx, pageKey, social.Type, link); err != nil {
		return nil, fmt.Errorf("merge link: %w", err)
	}
	s.notifier.NotifyLinks(pageKey)

	return s.SubmitMessage(ctx, author, "@"+social.Username+" "+social.URL, coords)
}

// FeedQuery describes one feed request.
type FeedQuery struct {
	// Key is the user whose page is being viewed.
	Key string

	// Viewer is the signed-in wallet, or empty.
	Viewer string

	// Mode selects the backing query.
	Mode FilterMode

	// Filters are applied in-memory for hashtag/location modes.
	Filters []Filter
}

// Feed retrieves, filters, and projects the action list for q.
func (s *FeedService) Feed(ctx context.Context, q FeedQuery) ([]Action, error) {
	var (
		msgs []Message
		err  error
	)

	switch q.Mode {
	case ModeAll:
		msgs, err = s.messages.ListAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("list messages: %w", err)
		}
	case ModeAddress, ModeHashtag, ModeLocation:
		if !IsValidKey(q.Key) {
			return nil, fmt.Errorf("key %q: %w", q.Key, ErrInvalidKey)
		}
		msgs, err = s.listByKey(ctx, q.Key)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown filter mode %q", q.Mode)
	}

	switch q.Mode {
	case ModeHashtag:
		msgs = filterMessages(msgs, Values(q.Filters, FilterHashtag), MatchesHashtags)
	case ModeLocation:
		msgs = filterMessages(msgs, Values(q.Filters, FilterLocation), MatchesLocations)
	}

	return ProjectAll(msgs, q.Viewer), nil
}

// listByKey unions the mention-scoped and author-scoped queries, dedupes by
// document identity keeping first appearance, and restores timestamp order.
func (s *FeedService) listByKey(ctx context.Context, key string) ([]Message, error) {
	mentioned, err := s.messages.ListByMention(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("list by mention: %w", err)
	}
	authored, err := s.messages.ListByUsername(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("list by username: %w", err)
	}

	combined := DedupeMessages(append(mentioned, authored...))
	sort.SliceStable(combined, func(i, j int) bool {
		return combined[i].Timestamp > combined[j].Timestamp
	})
	return combined, nil
}

func filterMessages(msgs []Message, vals []string, match func(Message, []string) bool) []Message {
	if len(vals) == 0 {
		return msgs
	}
	kept := msgs[:0:0]
	for _, m := range msgs {
		if match(m, vals) {
			kept = append(kept, m)
		}
	}
	return kept
}

// TopTags returns the ranked top hashtags across messages mentioning key.
func (s *FeedService) TopTags(ctx context.Context, key string) ([]TagCount, error) {
	if !IsValidKey(key) {
		return nil, fmt.Errorf("key %q: %w", key, ErrInvalidKey)
	}
	msgs, err := s.messages.ListByMention(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("list by mention: %w", err)
	}
	return TopHashtags(msgs, TopTagCount), nil
}

// Links returns all linked profiles for key, by provider.
func (s *FeedService) Links(ctx context.Context, key string) (map[string]Link, error) {
	if !IsValidKey(key) {
		return nil, fmt.Errorf("key %q: %w", key, ErrInvalidKey)
	}
	links, err := s.links.GetLinks(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get links: %w", err)
	}
	return links, nil
}

// WatchMessages registers a message watcher for key. See Notifier.
func (s *FeedService) WatchMessages(key string, fn func()) (cancel func()) {
	return s.notifier.WatchMessages(key, fn)
}

// WatchLinks registers a link watcher for key. See Notifier.
func (s *FeedService) WatchLinks(key string, fn func()) (cancel func()) {
	return s.notifier.WatchLinks(key, fn)
}
