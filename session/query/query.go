// Package query provides pure functions over session collections: ordering
// and free-text search. Nothing here mutates its input.
package query

import (
	"sort"
	"strings"

	"chat-aggregator/backend/session/models"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortOrder selects how sessions are ordered
type SortOrder string

// Sort orders
const (
	SortNewest SortOrder = "newest"
	SortOldest SortOrder = "oldest"
	SortName   SortOrder = "name"
)

// SortedBy returns a new slice ordered by the given criterion. Ties keep the
// input's iteration order (stable sort). Name ordering is locale-aware and
// case-insensitive.
func SortedBy(sessions []*models.ChatSession, order SortOrder) []*models.ChatSession {
	out := make([]*models.ChatSession, len(sessions))
	copy(out, sessions)

	switch order {
	case SortOldest:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].UpdatedAt.Before(out[j].UpdatedAt)
		})
	case SortName:
		// collators are not safe for concurrent use, so build one per call
		c := collate.New(language.Und, collate.IgnoreCase)
		sort.SliceStable(out, func(i, j int) bool {
			return c.CompareString(out[i].Name, out[j].Name) < 0
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		})
	}
	return out
}

// Search filters sessions to those whose name or any message content
// contains the query, case-insensitively. An empty query returns the input
// unfiltered.
func Search(sessions []*models.ChatSession, q string) []*models.ChatSession {
	if q == "" {
		return sessions
	}

	term := strings.ToLower(q)
	var out []*models.ChatSession
	for _, sess := range sessions {
		if matches(sess, term) {
			out = append(out, sess)
		}
	}
	return out
}

func matches(sess *models.ChatSession, term string) bool {
	if strings.Contains(strings.ToLower(sess.Name), term) {
		return true
	}
	for _, msg := range sess.Messages {
		if strings.Contains(strings.ToLower(msg.Content), term) {
			return true
		}
	}
	return false
}
