package domain

import "errors"

// Message is a stored feed message. Messages are immutable once written;
// they are only ever inserted, never updated.
type Message struct {
	// ID is the document identity of the message.
	ID string `json:"id"`

	// Username is the wallet address of the author, without the 0x prefix.
	Username string `json:"username"`

	// Text is the raw message body as submitted.
	Text string `json:"text"`

	// Timestamp is the creation time in RFC 3339 (UTC).
	Timestamp string `json:"timestamp"`

	// Address is the reverse-geocoded location string, or "No location".
	Address string `json:"address"`

	// Latitude and Longitude are the submitter's coordinates, if any.
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`

	// Mentions holds every @token in Text, in order, duplicates kept.
	Mentions []string `json:"mentions"`

	// Hashtags holds every #token in Text, in order, duplicates kept.
	Hashtags []string `json:"hashtags"`
}

// Link is one external profile linked to a user key.
type Link struct {
	Username string `json:"username"`
	URL      string `json:"url"`
}

// SocialLink is a parsed profile URL: the provider key, the extracted
// username, and the canonical profile URL.
type SocialLink struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	URL      string `json:"url"`
}

// Coordinates is an optional latitude/longitude pair attached to a submission.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Location is a structured reverse-geocoding result.
type Location struct {
	HouseNumber string
	Road        string
	City        string
	State       string
	Postcode    string
	Country     string
}

// NoLocation is the address placeholder used when no coordinates were
// provided or reverse geocoding failed.
const NoLocation = "No location"

// Format renders the location as a single display string, matching the
// shape "house road, city, state, postcode, country".
func (l *Location) Format() string {
	return l.HouseNumber + " " + l.Road + ", " + l.City + ", " + l.State + ", " + l.Postcode + ", " + l.Country
}

var (
	// ErrInvalidKey indicates a malformed user key (not 40 hex characters).
	ErrInvalidKey = errors.New("invalid user key")

	// ErrInvalidHashtag indicates an empty or space-containing hashtag input.
	ErrInvalidHashtag = errors.New("invalid hashtag")

	// ErrDuplicate indicates an identical (username, text) pair is already
	// stored and the text carries no link marker.
	ErrDuplicate = errors.New("duplicate message")

	// ErrUnknownProvider indicates a profile URL that matches no known
	// provider pattern.
	ErrUnknownProvider = errors.New("unknown link provider")
)
