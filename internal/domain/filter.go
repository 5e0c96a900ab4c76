package domain

import "strings"

// FilterType classifies a feed filter.
type FilterType string

const (
	FilterHashtag  FilterType = "hashtag"
	FilterLocation FilterType = "location"
	FilterAddress  FilterType = "address"
)

// FilterMode selects which query backs the feed.
type FilterMode string

const (
	ModeAll      FilterMode = "all"
	ModeAddress  FilterMode = "address"
	ModeHashtag  FilterMode = "hashtag"
	ModeLocation FilterMode = "location"
)

// ParseFilterMode validates a mode string from the wire.
func ParseFilterMode(s string) (FilterMode, bool) {
	switch FilterMode(s) {
	case ModeAll, ModeAddress, ModeHashtag, ModeLocation:
		return FilterMode(s), true
	}
	return "", false
}

// Filter is a user-chosen predicate narrowing the displayed feed.
type Filter struct {
	Type  FilterType `json:"type"`
	Value string     `json:"value"`
}

// FilterSet holds the ordered filter list and the active filter mode.
// Filters keep insertion order and are unique by value.
type FilterSet struct {
	mode        FilterMode
	defaultMode FilterMode
	filters     []Filter
}

// NewFilterSet creates an empty filter set starting in the default mode.
func NewFilterSet(defaultMode FilterMode) *FilterSet {
	return &FilterSet{mode: defaultMode, defaultMode: defaultMode}
}

// Mode returns the active filter mode.
func (s *FilterSet) Mode() FilterMode { return s.mode }

// Filters returns the filters in insertion order.
func (s *FilterSet) Filters() []Filter { return s.filters }

// Add appends f unless a filter with the same value is already present.
// Adding a hashtag or location filter forces the corresponding mode.
func (s *FilterSet) Add(f Filter) {
	for _, existing := range s.filters {
		if existing.Value == f.Value {
			return
		}
	}
	s.filters = append(s.filters, f)
	switch f.Type {
	case FilterHashtag:
		s.mode = ModeHashtag
	case FilterLocation:
		s.mode = ModeLocation
	}
}

// Remove deletes the filter with the given value, if present. Removing the
// last remaining filter resets the mode to the configured default.
func (s *FilterSet) Remove(value string) {
	kept := s.filters[:0]
	for _, f := range s.filters {
		if f.Value != value {
			kept = append(kept, f)
		}
	}
	s.filters = kept
	if len(s.filters) == 0 {
		s.mode = s.defaultMode
	}
}

// SetMode sets the mode directly, independent of the filter set.
func (s *FilterSet) SetMode(m FilterMode) { s.mode = m }

// Values returns the values of all filters of type t, in insertion order.
func Values(filters []Filter, t FilterType) []string {
	var vals []string
	for _, f := range filters {
		if f.Type == t {
			vals = append(vals, f.Value)
		}
	}
	return vals
}

// DedupeMessages keeps only the first occurrence of each document identity,
// preserving the order of first appearance.
func DedupeMessages(msgs []Message) []Message {
	seen := make(map[string]struct{}, len(msgs))
	out := msgs[:0:0]
	for _, m := range msgs {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	return out
}

// MatchesHashtags reports whether the message's hashtags intersect vals.
func MatchesHashtags(msg Message, vals []string) bool {
	for _, h := range msg.Hashtags {
		for _, v := range vals {
			if h == v {
				return true
			}
		}
	}
	return false
}

// MatchesLocations reports whether the message's stored address contains
// any of vals, case-insensitively.
func MatchesLocations(msg Message, vals []string) bool {
	addr := strings.ToLower(msg.Address)
	for _, v := range vals {
		if v != "" && strings.Contains(addr, strings.ToLower(v)) {
			return true
		}
	}
	return false
}
