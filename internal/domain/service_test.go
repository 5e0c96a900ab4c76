package domain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"sort"
	"testing"
)

type fakeMessages struct {
	msgs []Message
}

func (f *fakeMessages) Insert(_ context.Context, msg *Message) error {
	f.msgs = append(f.msgs, *msg)
	return nil
}

func (f *fakeMessages) HasDuplicate(_ context.Context, username, text string) (bool, error) {
	for _, m := range f.msgs {
		if m.Username == username && m.Text == text {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeMessages) ListAll(context.Context) ([]Message, error) {
	return sortedDesc(f.msgs), nil
}

func (f *fakeMessages) ListByMention(_ context.Context, key string) ([]Message, error) {
	var out []Message
	for _, m := range f.msgs {
		if contains(m.Mentions, key) {
			out = append(out, m)
		}
	}
	return sortedDesc(out), nil
}

func (f *fakeMessages) ListByUsername(_ context.Context, key string) ([]Message, error) {
	var out []Message
	for _, m := range f.msgs {
		if m.Username == key {
			out = append(out, m)
		}
	}
	return sortedDesc(out), nil
}

func sortedDesc(msgs []Message) []Message {
	out := append([]Message(nil), msgs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out
}

type fakeLinks struct {
	data map[string]map[string]Link
}

func (f *fakeLinks) MergeLink(_ context.Context, key, provider string, link Link) error {
	if f.data == nil {
		f.data = make(map[string]map[string]Link)
	}
	if f.data[key] == nil {
		f.data[key] = make(map[string]Link)
	}
	f.data[key][provider] = link
	return nil
}

func (f *fakeLinks) GetLinks(_ context.Context, key string) (map[string]Link, error) {
	return f.data[key], nil
}

type fakeGeocoder struct {
	loc *Location
	err error
}

func (f *fakeGeocoder) ReverseGeocode(context.Context, float64, float64) (*Location, error) {
	return f.loc, f.err
}

type fakeParser struct {
	link *SocialLink
	err  error
}

func (f *fakeParser) Parse(string, string) (*SocialLink, error) {
	return f.link, f.err
}

func newTestService(msgs *fakeMessages, links *fakeLinks, geo *fakeGeocoder, parser *fakeParser) *FeedService {
	if msgs == nil {
		msgs = &fakeMessages{}
	}
	if links == nil {
		links = &fakeLinks{}
	}
	if geo == nil {
		geo = &fakeGeocoder{loc: &Location{Road: "Main St", City: "Springfield"}}
	}
	if parser == nil {
		parser = &fakeParser{}
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewFeedService(msgs, links, geo, parser, logger)
}

// TestSubmitMessageStoresExtractedTokens verifies the write-time invariant:
// stored mentions and hashtags match re-running extraction over the text.
func TestSubmitMessageStoresExtractedTokens(t *testing.T) {
	repo := &fakeMessages{}
	svc := newTestService(repo, nil, nil, nil)

	text := "#build @" + testKeyB + " #ship"
	msg, err := svc.SubmitMessage(context.Background(), testKeyA, text, nil)
	if err != nil {
		t.Fatalf("SubmitMessage: %v", err)
	}

	wantMentions, wantHashtags := Extract(text)
	if !reflect.DeepEqual(msg.Mentions, wantMentions) {
		t.Fatalf("mentions = %v, want %v", msg.Mentions, wantMentions)
	}
	if !reflect.DeepEqual(msg.Hashtags, wantHashtags) {
		t.Fatalf("hashtags = %v, want %v", msg.Hashtags, wantHashtags)
	}
	if msg.Address != NoLocation {
		t.Fatalf("address = %q, want placeholder without coordinates", msg.Address)
	}
	if len(repo.msgs) != 1 {
		t.Fatalf("stored %d messages, want 1", len(repo.msgs))
	}
}

// TestSubmitMessageRejectsInvalidAuthor verifies the malformed-key
// validation failure aborts with no partial write.
func TestSubmitMessageRejectsInvalidAuthor(t *testing.T) {
	repo := &fakeMessages{}
	svc := newTestService(repo, nil, nil, nil)

	_, err := svc.SubmitMessage(context.Background(), "nothex", "#a @b", nil)
	if !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("err = %v, want ErrInvalidKey", err)
	}
	if len(repo.msgs) != 0 {
		t.Fatal("message was stored despite invalid author")
	}
}

// TestSubmitMessageDuplicateRejection verifies identical (username, text)
// resubmission is rejected, while link-bearing texts bypass the check.
func TestSubmitMessageDuplicateRejection(t *testing.T) {
	svc := newTestService(nil, nil, nil, nil)
	ctx := context.Background()

	if _, err := svc.SubmitMessage(ctx, testKeyA, "#gm @"+testKeyB, nil); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := svc.SubmitMessage(ctx, testKeyA, "#gm @"+testKeyB, nil); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}

	linkText := "@someone https://x.com/someone"
	if _, err := svc.SubmitMessage(ctx, testKeyA, linkText, nil); err != nil {
		t.Fatalf("first link submit: %v", err)
	}
	if _, err := svc.SubmitMessage(ctx, testKeyA, linkText, nil); err != nil {
		t.Fatalf("duplicate link submit rejected: %v", err)
	}
}

// TestSubmitMessageGeocodeFallback verifies a failing geocoder degrades to
// the placeholder address while coordinates are still stored.
func TestSubmitMessageGeocodeFallback(t *testing.T) {
	geo := &fakeGeocoder{err: errors.New("service unavailable")}
	svc := newTestService(nil, nil, geo, nil)

	msg, err := svc.SubmitMessage(context.Background(), testKeyA, "#gm @"+testKeyB, &Coordinates{Latitude: 40.7, Longitude: -74.0})
	if err != nil {
		t.Fatalf("SubmitMessage: %v", err)
	}
	if msg.Address != NoLocation {
		t.Fatalf("address = %q, want placeholder", msg.Address)
	}
	if msg.Latitude == nil || *msg.Latitude != 40.7 {
		t.Fatalf("latitude = %v, want 40.7", msg.Latitude)
	}
}

// TestSubmitMessageGeocodeSuccess verifies the formatted address is stored
// when geocoding succeeds.
func TestSubmitMessageGeocodeSuccess(t *testing.T) {
	geo := &fakeGeocoder{loc: &Location{
		HouseNumber: "12", Road: "Main St", City: "Springfield",
		State: "IL", Postcode: "62704", Country: "USA",
	}}
	svc := newTestService(nil, nil, geo, nil)

	msg, err := svc.SubmitMessage(context.Background(), testKeyA, "#gm @"+testKeyB, &Coordinates{Latitude: 40.7, Longitude: -74.0})
	if err != nil {
		t.Fatalf("SubmitMessage: %v", err)
	}
	if msg.Address != "12 Main St, Springfield, IL, 62704, USA" {
		t.Fatalf("address = %q", msg.Address)
	}
}

// TestSubmitHashtagValidation verifies empty and space-containing tags are
// rejected synchronously.
func TestSubmitHashtagValidation(t *testing.T) {
	svc := newTestService(nil, nil, nil, nil)
	ctx := context.Background()

	if _, err := svc.SubmitHashtag(ctx, testKeyA, testKeyB, "", nil); !errors.Is(err, ErrInvalidHashtag) {
		t.Fatalf("empty tag: err = %v", err)
	}
	if _, err := svc.SubmitHashtag(ctx, testKeyA, testKeyB, "two words", nil); !errors.Is(err, ErrInvalidHashtag) {
		t.Fatalf("spaced tag: err = %v", err)
	}

	msg, err := svc.SubmitHashtag(ctx, testKeyA, testKeyB, "build", nil)
	if err != nil {
		t.Fatalf("valid tag: %v", err)
	}
	if msg.Text != "#build @"+testKeyB {
		t.Fatalf("text = %q", msg.Text)
	}
}

// TestSubmitLink verifies the merge-write plus follow-up message flow, and
// that an unparseable URL aborts with no partial write.
func TestSubmitLink(t *testing.T) {
	links := &fakeLinks{}
	parser := &fakeParser{link: &SocialLink{Type: "x", Username: "someone", URL: "https://x.com/someone"}}
	repo := &fakeMessages{}
	svc := newTestService(repo, links, nil, parser)
	ctx := context.Background()

	msg, err := svc.SubmitLink(ctx, testKeyA, testKeyB, "x.com/someone", "x", nil)
	if err != nil {
		t.Fatalf("SubmitLink: %v", err)
	}
	if got := links.data[testKeyB]["x"]; got.URL != "https://x.com/someone" {
		t.Fatalf("stored link = %+v", got)
	}
	if msg.Text != "@someone https://x.com/someone" {
		t.Fatalf("follow-up text = %q", msg.Text)
	}

	failing := &fakeParser{err: ErrUnknownProvider}
	svc = newTestService(&fakeMessages{}, &fakeLinks{}, nil, failing)
	if _, err := svc.SubmitLink(ctx, testKeyA, testKeyB, "nonsense", "", nil); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("err = %v, want ErrUnknownProvider", err)
	}
}

// TestSubmitLinkMergePreservesProviders verifies writing a second provider
// does not erase the first.
func TestSubmitLinkMergePreservesProviders(t *testing.T) {
	links := &fakeLinks{}
	svc := newTestService(nil, links, nil, &fakeParser{link: &SocialLink{Type: "x", Username: "a", URL: "https://x.com/a"}})
	ctx := context.Background()

	if _, err := svc.SubmitLink(ctx, testKeyA, testKeyB, "x.com/a", "x", nil); err != nil {
		t.Fatalf("first link: %v", err)
	}

	svc = NewFeedService(&fakeMessages{}, links, &fakeGeocoder{loc: &Location{}}, &fakeParser{link: &SocialLink{Type: "ig", Username: "b", URL: "https://instagram.com/b/"}}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if _, err := svc.SubmitLink(ctx, testKeyA, testKeyB, "instagram.com/b", "ig", nil); err != nil {
		t.Fatalf("second link: %v", err)
	}

	got, _ := links.GetLinks(ctx, testKeyB)
	if len(got) != 2 {
		t.Fatalf("providers = %v, want both x and ig", got)
	}
}

// TestFeedAddressMode is the end-to-end property: one stored tag message
// renders as one tag action for the mentioned user.
func TestFeedAddressMode(t *testing.T) {
	svc := newTestService(nil, nil, nil, nil)
	ctx := context.Background()

	if _, err := svc.SubmitMessage(ctx, testKeyA, "#build @"+testKeyB, nil); err != nil {
		t.Fatalf("SubmitMessage: %v", err)
	}

	actions, err := svc.Feed(ctx, FeedQuery{Key: testKeyB, Mode: ModeAddress})
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(actions) != 1 {
		t.Fatalf("got %d actions, want 1", len(actions))
	}
	a := actions[0]
	if a.Type != ActionTag || a.Payload != "build" {
		t.Fatalf("action = %+v", a)
	}
	if a.Relative == "" {
		t.Fatal("relative time missing")
	}
}

// TestFeedUnionDedup verifies a message that matches both the mention and
// username queries appears once.
func TestFeedUnionDedup(t *testing.T) {
	svc := newTestService(nil, nil, nil, nil)
	ctx := context.Background()

	// Self-mention: authored by and mentioning the same key.
	if _, err := svc.SubmitMessage(ctx, testKeyA, "#note @"+testKeyA, nil); err != nil {
		t.Fatalf("SubmitMessage: %v", err)
	}

	actions, err := svc.Feed(ctx, FeedQuery{Key: testKeyA, Mode: ModeAddress})
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(actions) != 1 {
		t.Fatalf("got %d actions, want 1", len(actions))
	}
}

// TestFeedHashtagMode verifies the in-memory hashtag predicate on top of
// the address-scoped result.
func TestFeedHashtagMode(t *testing.T) {
	svc := newTestService(nil, nil, nil, nil)
	ctx := context.Background()

	if _, err := svc.SubmitMessage(ctx, testKeyA, "#ai @"+testKeyB, nil); err != nil {
		t.Fatalf("submit ai: %v", err)
	}
	if _, err := svc.SubmitMessage(ctx, testKeyA, "#gm @"+testKeyB, nil); err != nil {
		t.Fatalf("submit gm: %v", err)
	}

	actions, err := svc.Feed(ctx, FeedQuery{
		Key:     testKeyB,
		Mode:    ModeHashtag,
		Filters: []Filter{{Type: FilterHashtag, Value: "ai"}},
	})
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(actions) != 1 || actions[0].Payload != "ai" {
		t.Fatalf("actions = %+v, want single ai action", actions)
	}
}

// TestTopTagsThroughService verifies the mention-scoped ranking surface.
func TestTopTagsThroughService(t *testing.T) {
	svc := newTestService(nil, nil, nil, nil)
	ctx := context.Background()

	for _, text := range []string{
		"#ai @" + testKeyB,
		"#ai #one @" + testKeyB + " second",
		"#one #ai @" + testKeyB + " third",
		"#solo @" + testKeyB + " fourth",
	} {
		if _, err := svc.SubmitMessage(ctx, testKeyA, text, nil); err != nil {
			t.Fatalf("submit %q: %v", text, err)
		}
	}

	tags, err := svc.TopTags(ctx, testKeyB)
	if err != nil {
		t.Fatalf("TopTags: %v", err)
	}
	if len(tags) != 3 {
		t.Fatalf("got %d tags, want 3", len(tags))
	}
	if tags[0].Tag != "ai" || tags[0].Count != 3 {
		t.Fatalf("top tag = %+v, want ai x3", tags[0])
	}
}

// TestWatchNotification verifies watchers fire for relevant messages only
// and stop after cancellation.
func TestWatchNotification(t *testing.T) {
	svc := newTestService(nil, nil, nil, nil)
	ctx := context.Background()

	fired := 0
	cancel := svc.WatchMessages(testKeyB, func() { fired++ })

	if _, err := svc.SubmitMessage(ctx, testKeyA, "#gm @"+testKeyB, nil); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if fired != 1 {
		t.Fatalf("fired = %d, want 1", fired)
	}

	// Unrelated message: no notification.
	if _, err := svc.SubmitMessage(ctx, testKeyA, "#gm @"+testKeyA, nil); err != nil {
		t.Fatalf("submit unrelated: %v", err)
	}
	if fired != 1 {
		t.Fatalf("fired = %d after unrelated message, want 1", fired)
	}

	cancel()
	if _, err := svc.SubmitMessage(ctx, testKeyA, "#gn @"+testKeyB, nil); err != nil {
		t.Fatalf("submit after cancel: %v", err)
	}
	if fired != 1 {
		t.Fatalf("fired = %d after cancel, want 1", fired)
	}
}

// TestWatchLinksNotification verifies link watchers fire on merge writes.
func TestWatchLinksNotification(t *testing.T) {
	links := &fakeLinks{}
	svc := newTestService(nil, links, nil, &fakeParser{link: &SocialLink{Type: "x", Username: "a", URL: "https://x.com/a"}})

	fired := 0
	cancel := svc.WatchLinks(testKeyB, func() { fired++ })
	defer cancel()

	if _, err := svc.SubmitLink(context.Background(), testKeyA, testKeyB, "x.com/a", "x", nil); err != nil {
		t.Fatalf("SubmitLink: %v", err)
	}
	if fired != 1 {
		t.Fatalf("fired = %d, want 1", fired)
	}
}
