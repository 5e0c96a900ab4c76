package domain

import "context"

// MessageRepository defines persistence operations for feed messages.
type MessageRepository interface {
	// Insert stores a new message. Messages are never updated.
	Insert(ctx context.Context, msg *Message) error

	// HasDuplicate reports whether an identical (username, text) pair is
	// already stored.
	HasDuplicate(ctx context.Context, username, text string) (bool, error)

	// ListAll retrieves every message ordered by timestamp descending.
	ListAll(ctx context.Context) ([]Message, error)

	// ListByMention retrieves messages whose mentions contain key, ordered
	// by timestamp descending.
	ListByMention(ctx context.Context, key string) ([]Message, error)

	// ListByUsername retrieves messages authored by key, ordered by
	// timestamp descending.
	ListByUsername(ctx context.Context, key string) ([]Message, error)
}

// LinkRepository defines persistence operations for per-user link documents.
type LinkRepository interface {
	// MergeLink upserts one provider's link for a user key. Other providers
	// stored for the same key are left untouched.
	MergeLink(ctx context.Context, key, provider string, link Link) error

	// GetLinks retrieves all linked profiles for a user key, by provider.
	GetLinks(ctx context.Context, key string) (map[string]Link, error)
}

// Geocoder resolves coordinates into a structured address. Implementations
// are best-effort; callers fall back to NoLocation on error.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (*Location, error)
}

// SocialParser turns a profile URL (or bare username plus provider hint)
// into a SocialLink, or fails with ErrUnknownProvider.
type SocialParser interface {
	Parse(rawURL, provider string) (*SocialLink, error)
}
