package domain

import "regexp"

var (
	mentionPattern = regexp.MustCompile(`@(\w+)`)
	hashtagPattern = regexp.MustCompile(`#(\w+)`)
)

// Extract scans text for @mention and #hashtag tokens. Both sequences keep
// first-seen order and duplicates, and preserve case. A token is one or more
// word characters (letters, digits, underscore).
func Extract(text string) (mentions, hashtags []string) {
	for _, m := range mentionPattern.FindAllStringSubmatch(text, -1) {
		mentions = append(mentions, m[1])
	}
	for _, m := range hashtagPattern.FindAllStringSubmatch(text, -1) {
		hashtags = append(hashtags, m[1])
	}
	return mentions, hashtags
}
