package domain

import "sort"

// TopTagCount is the number of ranked hashtags served per user.
const TopTagCount = 3

// TagCount is one entry in a ranked hashtag list.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// TopHashtags flattens the hashtags of msgs into one multiset, counts
// occurrences per distinct tag, and returns the top n sorted by count
// descending. Ties rank in first-seen order of the flattened sequence.
func TopHashtags(msgs []Message, n int) []TagCount {
	counts := make(map[string]int)
	var order []string
	for _, m := range msgs {
		for _, h := range m.Hashtags {
			if counts[h] == 0 {
				order = append(order, h)
			}
			counts[h]++
		}
	}

	ranked := make([]TagCount, 0, len(order))
	for _, tag := range order {
		ranked = append(ranked, TagCount{Tag: tag, Count: counts[tag]})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
